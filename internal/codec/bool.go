package codec

// EncodeBool renders a CanMesh reply payload: a single byte, 1 for true, 0
// for false.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeBool parses the payload produced by EncodeBool.
func DecodeBool(raw []byte) bool {
	return len(raw) > 0 && raw[0] != 0
}
