// Package codec implements the MessageCodec component of spec.md §4.1: it
// frames, parses, and validates the wire messages exchanged on both router
// sockets.
//
// Every envelope is a single transport frame laid out as four newline
// terminated text fields followed by a raw payload, the same line-oriented
// style spec.md §6 uses for the Job/JobStatus/JobResult sub-formats:
//
//	<version>\n<service-type>\n<input-format> <output-format>\n<payload-length>\n<payload bytes>
//
// A text header keeps the framing debuggable (readable in a packet capture,
// diffable in test fixtures) the same way the teacher's mdp package keeps
// its command bytes and frame counts human-legible, while the payload
// itself stays an opaque byte string as spec.md §1 requires.
package codec

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/plantd/meshbroker/internal/proto"
)

// Message is the typed envelope produced by Decode and consumed by Encode.
// It corresponds to spec.md §4.1's "IncomingMessage" for received frames and
// doubles as the outgoing envelope shape (service type echoed, payload per
// operation).
type Message struct {
	Version byte
	Service proto.ServiceType
	Type    proto.JobType
	Payload []byte
}

// Encode serializes a Message into a single wire frame.
func Encode(m Message) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d\n", m.Version)
	fmt.Fprintf(&buf, "%d\n", byte(m.Service))
	fmt.Fprintf(&buf, "%s\n", m.Type.String())
	fmt.Fprintf(&buf, "%d\n", len(m.Payload))
	buf.Write(m.Payload)
	return buf.Bytes()
}

// Decode parses a single wire frame into a Message. It fails with
// ErrMalformedFrame when any field fails to parse or the declared payload
// length disagrees with the bytes actually present (spec.md §4.1).
func Decode(raw []byte) (Message, error) {
	var m Message

	versionLine, rest, err := cutLine(raw)
	if err != nil {
		return Message{}, err
	}
	version, err := strconv.ParseUint(versionLine, 10, 8)
	if err != nil {
		return Message{}, fmt.Errorf("%w: bad version field", ErrMalformedFrame)
	}
	m.Version = byte(version)

	serviceLine, rest, err := cutLine(rest)
	if err != nil {
		return Message{}, err
	}
	serviceCode, err := strconv.ParseUint(serviceLine, 10, 8)
	if err != nil {
		return Message{}, fmt.Errorf("%w: bad service type field", ErrMalformedFrame)
	}
	m.Service = proto.ServiceType(serviceCode)

	typeLine, rest, err := cutLine(rest)
	if err != nil {
		return Message{}, err
	}
	jobType, err := proto.ParseJobType(typeLine)
	if err != nil {
		return Message{}, fmt.Errorf("%w: bad job type field: %v", ErrMalformedFrame, err)
	}
	m.Type = jobType

	lengthLine, rest, err := cutLine(rest)
	if err != nil {
		return Message{}, err
	}
	length, err := strconv.Atoi(lengthLine)
	if err != nil || length < 0 {
		return Message{}, fmt.Errorf("%w: bad payload length field", ErrMalformedFrame)
	}

	if len(rest) != length {
		return Message{}, fmt.Errorf(
			"%w: declared payload length %d does not match %d bytes present",
			ErrMalformedFrame, length, len(rest),
		)
	}
	m.Payload = rest

	return m, nil
}

// cutLine splits off the text before the next '\n', returning the remainder
// (everything after the newline, which may be binary payload bytes).
func cutLine(buf []byte) (line string, rest []byte, err error) {
	idx := bytes.IndexByte(buf, '\n')
	if idx < 0 {
		return "", nil, fmt.Errorf("%w: missing field delimiter", ErrMalformedFrame)
	}
	return string(buf[:idx]), buf[idx+1:], nil
}

// Invalid builds the canonical "reply Invalid" envelope used across spec.md
// §4.6/§7 whenever a request cannot be honored: the service type becomes
// Invalid and the payload is empty.
func Invalid(jobType proto.JobType) Message {
	return Message{
		Version: proto.ProtocolVersion,
		Service: proto.Invalid,
		Type:    jobType,
		Payload: nil,
	}
}
