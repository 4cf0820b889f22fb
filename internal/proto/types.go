// Package proto defines the wire-level vocabulary shared by every component
// that speaks the meshing-job protocol: the service type enumeration, the
// job type descriptor, status codes, and the default network endpoints.
//
// It plays the role core/mdp/const.go plays for the Majordomo protocol, but
// for the two-frame router protocol described in spec.md §6 instead of MDP.
package proto

import (
	"fmt"

	"github.com/google/uuid"
)

// Identity is the opaque peer identity assigned by the transport to each
// connected peer (spec.md §3). Equality only; used as a routing key.
type Identity string

// JobId is a universally unique 128-bit identifier, rendered as a canonical
// text form for transport (spec.md §3). It is a thin alias over
// github.com/google/uuid's UUID, which is the teacher's stack's (and the
// wider pack's) established UUID library.
type JobId = uuid.UUID

// ParseJobId parses the canonical text form of a JobId.
func ParseJobId(s string) (JobId, error) {
	return uuid.Parse(s)
}

// ServiceType identifies the kind of operation carried by an envelope.
// Stable integer codes, reserved per spec.md §6.
type ServiceType byte

// Service type codes. Additional unused codes are reserved for future use.
const (
	Invalid      ServiceType = 0
	CanMesh      ServiceType = 1
	MakeMesh     ServiceType = 2
	MeshStatus   ServiceType = 3
	RetrieveMesh ServiceType = 4
	Shutdown     ServiceType = 5
)

var serviceTypeNames = map[ServiceType]string{
	Invalid:      "Invalid",
	CanMesh:      "CanMesh",
	MakeMesh:     "MakeMesh",
	MeshStatus:   "MeshStatus",
	RetrieveMesh: "RetrieveMesh",
	Shutdown:     "Shutdown",
}

// String implements fmt.Stringer for log-friendly output.
func (s ServiceType) String() string {
	if name, ok := serviceTypeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ServiceType(%d)", byte(s))
}

// Valid reports whether s is a known, non-reserved service type.
func (s ServiceType) Valid() bool {
	_, ok := serviceTypeNames[s]
	return ok && s != Invalid
}

// Status is the lifecycle state of a job, per spec.md §3.
type Status byte

// Status values. Finished is reached only after a result has been stored.
const (
	Queued Status = iota
	InProgress
	Finished
	Failed
	StatusInvalid
)

var statusNames = map[Status]string{
	Queued:        "Queued",
	InProgress:    "InProgress",
	Finished:      "Finished",
	Failed:        "Failed",
	StatusInvalid: "Invalid",
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", byte(s))
}

// JobType is an opaque categorical tag describing the input/output format
// pair a worker must support. It is comparable and therefore usable as a
// map key, satisfying the total-order/equality requirement of spec.md §3
// (Go's struct equality gives us equality; the deterministic String form
// can serve as a sort key where a total order is needed. The status API
// does not sort its per-type rows).
type JobType struct {
	InputFormat  uint16
	OutputFormat uint16
}

// String renders the JobType the way spec.md §6 requires on the wire: two
// decimal integers separated by whitespace.
func (t JobType) String() string {
	return fmt.Sprintf("%d %d", t.InputFormat, t.OutputFormat)
}

// ParseJobType parses the "<input> <output>" wire form produced by String.
func ParseJobType(s string) (JobType, error) {
	var t JobType
	n, err := fmt.Sscanf(s, "%d %d", &t.InputFormat, &t.OutputFormat)
	if err != nil || n != 2 {
		return JobType{}, fmt.Errorf("proto: malformed job type %q", s)
	}
	return t, nil
}

// ProtocolVersion is the single version byte carried by every envelope.
const ProtocolVersion = 1

// Default network endpoints, per spec.md §6.
const (
	DefaultClientPort = 50505
	DefaultWorkerPort = 50510
	DefaultHost       = "127.0.0.1"
)
