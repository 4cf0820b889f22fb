// Package brokererr implements the structured error taxonomy from
// spec.md §7 (MalformedFrame, UnknownJob, UnknownWorker, NoSupport,
// WorkerExpired, FactorySpawnFailed, BindFailed), generalized from
// core/mdp/errors.go's *Error: a Code/Message/Cause/Context struct with
// Is/Unwrap support rather than a new design.
package brokererr

import (
	"errors"
	"fmt"
)

// Error codes from spec.md §7.
const (
	CodeMalformedFrame     = "MALFORMED_FRAME"
	CodeUnknownJob         = "UNKNOWN_JOB"
	CodeUnknownWorker      = "UNKNOWN_WORKER"
	CodeNoSupport          = "NO_SUPPORT"
	CodeWorkerExpired      = "WORKER_EXPIRED"
	CodeFactorySpawnFailed = "FACTORY_SPAWN_FAILED"
	CodeBindFailed         = "BIND_FAILED"
)

// Error is a structured broker error carrying a taxonomy code, a
// human-readable message, an optional cause, and free-form context for
// log fields.
type Error struct {
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("broker %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("broker %s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports equality by Code, or defers to the wrapped cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return errors.Is(e.Cause, target)
}

// WithContext attaches a key/value pair, returning the receiver for chaining.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// MalformedFrame wraps a codec decode failure (spec.md §7: "respond with
// Invalid service type and empty payload; do not disconnect").
func MalformedFrame(cause error) *Error {
	return newError(CodeMalformedFrame, "unparseable wire message", cause)
}

// UnknownJob wraps a lookup miss against ActiveJobs or JobQueue for an id
// the client referenced.
func UnknownJob(cause error) *Error {
	return newError(CodeUnknownJob, "job id not present in any registry", cause)
}

// UnknownWorker wraps a worker pool lookup miss for an identity that sent a
// data message without a prior CanMesh registration.
func UnknownWorker(cause error) *Error {
	return newError(CodeUnknownWorker, "worker sent data message before registering", cause)
}

// NoSupport reports that neither the factory nor the pool can service a
// JobType.
func NoSupport(jobType fmt.Stringer) *Error {
	return newError(CodeNoSupport, "no worker support for job type", nil).WithContext("jobType", jobType.String())
}

// WorkerExpired reports a worker whose heartbeat lapsed, taking its active
// jobs down with it.
func WorkerExpired(identity string) *Error {
	return newError(CodeWorkerExpired, "worker heartbeat expired", nil).WithContext("worker", identity)
}

// FactorySpawnFailed reports a createWorker refusal; the job stays queued.
func FactorySpawnFailed(jobType fmt.Stringer) *Error {
	return newError(CodeFactorySpawnFailed, "factory declined to spawn worker", nil).WithContext("jobType", jobType.String())
}

// BindFailed wraps a startup socket-bind failure. Fatal: the caller should
// exit the process.
func BindFailed(endpoint string, cause error) *Error {
	return newError(CodeBindFailed, "failed to bind endpoint", cause).WithContext("endpoint", endpoint)
}
