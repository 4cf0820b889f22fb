package broker

import (
	"time"

	"github.com/plantd/meshbroker/internal/proto"
)

// Endpoint identifies which of the broker's two router sockets a message
// arrived on or should be sent to (spec.md §2/§6).
type Endpoint int

const (
	// ClientEndpoint is the client-facing router socket.
	ClientEndpoint Endpoint = iota
	// WorkerEndpoint is the worker-facing router socket.
	WorkerEndpoint
)

func (e Endpoint) String() string {
	if e == ClientEndpoint {
		return "client"
	}
	return "worker"
}

// Transport is the narrow collaborator the event loop depends on: poll both
// router sockets with a single timeout, and send a framed envelope back to
// a peer by its routing identity. CzmqTransport is the production
// implementation; tests drive the loop against a scripted fake instead of
// real sockets, the way the teacher's own mdp tests exercise message
// handling without a live broker (core/mdp/integration_test.go).
type Transport interface {
	// Poll waits up to timeout for a message on either socket. ok is false
	// on timeout (not an error: this is the normal heartbeat-interval
	// wakeup spec.md §4.6 describes).
	Poll(timeout time.Duration) (ep Endpoint, identity proto.Identity, envelope []byte, ok bool, err error)

	SendToClient(identity proto.Identity, envelope []byte) error
	SendToWorker(identity proto.Identity, envelope []byte) error

	Close() error
}
