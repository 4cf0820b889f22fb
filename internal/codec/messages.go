package codec

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/plantd/meshbroker/internal/proto"
)

// JobDescriptor is the payload shape spec.md §6 defines for a queued job
// handed back to a client (MakeMesh reply) or forwarded to a worker
// (dispatch): `<uuid-text>\n<jobtype>\n<payload-length>\n<payload-bytes>`.
type JobDescriptor struct {
	ID      proto.JobId
	Type    proto.JobType
	Payload []byte
}

// EncodeJobDescriptor serializes a JobDescriptor to its wire form.
func EncodeJobDescriptor(d JobDescriptor) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n", d.ID.String())
	fmt.Fprintf(&buf, "%s\n", d.Type.String())
	fmt.Fprintf(&buf, "%d\n", len(d.Payload))
	buf.Write(d.Payload)
	return buf.Bytes()
}

// DecodeJobDescriptor parses the wire form produced by EncodeJobDescriptor.
func DecodeJobDescriptor(raw []byte) (JobDescriptor, error) {
	var d JobDescriptor

	idLine, rest, err := cutLine(raw)
	if err != nil {
		return JobDescriptor{}, err
	}
	id, err := proto.ParseJobId(idLine)
	if err != nil {
		return JobDescriptor{}, fmt.Errorf("%w: bad job id: %v", ErrMalformedFrame, err)
	}
	d.ID = id

	typeLine, rest, err := cutLine(rest)
	if err != nil {
		return JobDescriptor{}, err
	}
	jobType, err := proto.ParseJobType(typeLine)
	if err != nil {
		return JobDescriptor{}, fmt.Errorf("%w: bad job type: %v", ErrMalformedFrame, err)
	}
	d.Type = jobType

	lengthLine, rest, err := cutLine(rest)
	if err != nil {
		return JobDescriptor{}, err
	}
	length, err := strconv.Atoi(lengthLine)
	if err != nil || length < 0 {
		return JobDescriptor{}, fmt.Errorf("%w: bad payload length", ErrMalformedFrame)
	}
	if len(rest) != length {
		return JobDescriptor{}, fmt.Errorf("%w: payload length mismatch", ErrMalformedFrame)
	}
	d.Payload = rest

	return d, nil
}

// JobStatusWire is the payload shape for a MeshStatus reply:
// `<uuid-text>\n<status-code>`.
type JobStatusWire struct {
	ID     proto.JobId
	Status proto.Status
}

// EncodeJobStatus serializes a JobStatusWire to its wire form.
func EncodeJobStatus(s JobStatusWire) []byte {
	return []byte(fmt.Sprintf("%s\n%d", s.ID.String(), byte(s.Status)))
}

// DecodeJobStatus parses the wire form produced by EncodeJobStatus.
func DecodeJobStatus(raw []byte) (JobStatusWire, error) {
	idLine, rest, err := cutLine(raw)
	if err != nil {
		return JobStatusWire{}, err
	}
	id, err := proto.ParseJobId(idLine)
	if err != nil {
		return JobStatusWire{}, fmt.Errorf("%w: bad job id: %v", ErrMalformedFrame, err)
	}
	code, err := strconv.ParseUint(string(rest), 10, 8)
	if err != nil {
		return JobStatusWire{}, fmt.Errorf("%w: bad status code", ErrMalformedFrame)
	}
	return JobStatusWire{ID: id, Status: proto.Status(code)}, nil
}

// JobResultWire is the payload shape for a RetrieveMesh reply:
// `<uuid-text>\n<length>\n<bytes>`.
type JobResultWire struct {
	ID     proto.JobId
	Result []byte
}

// EncodeJobResult serializes a JobResultWire to its wire form.
func EncodeJobResult(r JobResultWire) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n", r.ID.String())
	fmt.Fprintf(&buf, "%d\n", len(r.Result))
	buf.Write(r.Result)
	return buf.Bytes()
}

// DecodeJobResult parses the wire form produced by EncodeJobResult.
func DecodeJobResult(raw []byte) (JobResultWire, error) {
	idLine, rest, err := cutLine(raw)
	if err != nil {
		return JobResultWire{}, err
	}
	id, err := proto.ParseJobId(idLine)
	if err != nil {
		return JobResultWire{}, fmt.Errorf("%w: bad job id: %v", ErrMalformedFrame, err)
	}
	lengthLine, rest, err := cutLine(rest)
	if err != nil {
		return JobResultWire{}, err
	}
	length, err := strconv.Atoi(lengthLine)
	if err != nil || length < 0 {
		return JobResultWire{}, fmt.Errorf("%w: bad result length", ErrMalformedFrame)
	}
	if len(rest) != length {
		return JobResultWire{}, fmt.Errorf("%w: result length mismatch", ErrMalformedFrame)
	}
	return JobResultWire{ID: id, Result: rest}, nil
}
