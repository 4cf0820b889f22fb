package codec

import "errors"

// ErrMalformedFrame is returned whenever field parsing fails or the declared
// payload length disagrees with the bytes actually present, per spec.md §7.
var ErrMalformedFrame = errors.New("codec: malformed frame")
