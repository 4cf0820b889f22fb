package codec

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantd/meshbroker/internal/proto"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	cases := []Message{
		{Version: proto.ProtocolVersion, Service: proto.CanMesh, Type: proto.JobType{InputFormat: 1, OutputFormat: 2}, Payload: nil},
		{Version: proto.ProtocolVersion, Service: proto.MakeMesh, Type: proto.JobType{InputFormat: 3, OutputFormat: 4}, Payload: []byte("abc")},
		{Version: proto.ProtocolVersion, Service: proto.Invalid, Type: proto.JobType{}, Payload: []byte{}},
		{Version: proto.ProtocolVersion, Service: proto.RetrieveMesh, Type: proto.JobType{InputFormat: 99, OutputFormat: 0}, Payload: []byte{0x00, 0x01, '\n', 0xff}},
	}

	for _, want := range cases {
		raw := Encode(want)
		got, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, want.Version, got.Version)
		assert.Equal(t, want.Service, got.Service)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Payload, got.Payload)
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		_, err := Decode([]byte("1\n2\n"))
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("bad version", func(t *testing.T) {
		_, err := Decode([]byte("nope\n1\n1 2\n0\n"))
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := Decode([]byte("1\n1\n1 2\n10\nabc"))
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("bad job type", func(t *testing.T) {
		_, err := Decode([]byte("1\n1\nnotatype\n0\n"))
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})
}

func TestJobDescriptorRoundTrip(t *testing.T) {
	want := JobDescriptor{
		ID:      uuid.New(),
		Type:    proto.JobType{InputFormat: 1, OutputFormat: 2},
		Payload: []byte("mesh payload bytes"),
	}
	got, err := DecodeJobDescriptor(EncodeJobDescriptor(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestJobStatusRoundTrip(t *testing.T) {
	want := JobStatusWire{ID: uuid.New(), Status: proto.InProgress}
	got, err := DecodeJobStatus(EncodeJobStatus(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestJobResultRoundTrip(t *testing.T) {
	want := JobResultWire{ID: uuid.New(), Result: []byte("xyz")}
	got, err := DecodeJobResult(EncodeJobResult(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestJobResultRoundTripEmpty(t *testing.T) {
	want := JobResultWire{ID: uuid.New(), Result: []byte{}}
	got, err := DecodeJobResult(EncodeJobResult(want))
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Empty(t, got.Result)
}
