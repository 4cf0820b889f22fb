package brokererr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plantd/meshbroker/internal/proto"
)

func TestErrorMessageIncludesCauseWhenPresent(t *testing.T) {
	cause := errors.New("boom")
	err := MalformedFrame(cause)

	assert.Contains(t, err.Error(), "MALFORMED_FRAME")
	assert.Contains(t, err.Error(), "boom")
}

func TestErrorMessageOmitsCauseWhenNil(t *testing.T) {
	err := NoSupport(proto.JobType{InputFormat: 1, OutputFormat: 2})

	assert.NotContains(t, err.Error(), "<nil>")
	assert.Contains(t, err.Error(), "NO_SUPPORT")
}

func TestIsComparesByCode(t *testing.T) {
	a := UnknownJob(nil)
	b := UnknownJob(errors.New("different cause"))

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, UnknownWorker(nil)))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("socket refused")
	err := BindFailed("tcp://127.0.0.1:50505", cause)

	assert.ErrorIs(t, err, cause)
}

func TestWithContextAttachesFields(t *testing.T) {
	err := FactorySpawnFailed(proto.JobType{InputFormat: 3, OutputFormat: 4}).WithContext("attempt", 2)

	assert.Equal(t, "3 4", err.Context["jobType"])
	assert.Equal(t, 2, err.Context["attempt"])
}
