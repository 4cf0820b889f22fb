package broker

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	czmq "github.com/zeromq/goczmq/v4"

	"github.com/plantd/meshbroker/internal/brokererr"
	"github.com/plantd/meshbroker/internal/proto"
)

// CzmqTransport binds two ZeroMQ ROUTER sockets, one per endpoint, and polls
// both together. Grounded on core/mdp/broker.go's Bind/Run: each socket is
// a router bound to its endpoint (via NewSock+Bind, see BindCzmqTransport),
// a single Poller spans both sockets, and RecvMessage/SendMessage move raw
// frames.
type CzmqTransport struct {
	clientSock *czmq.Sock
	workerSock *czmq.Sock
	poller     *czmq.Poller

	clientBoundEndpoint string
	workerBoundEndpoint string
}

// BindCzmqTransport binds the client and worker router sockets. A
// BindFailed error here is fatal at startup per spec.md §7.
//
// Sockets are built via NewSock+Bind rather than the NewRouter shorthand
// because Bind is the call that hands back the port CZMQ actually bound,
// which spec.md:160 requires the broker to record and advertise rather
// than just echo the configured endpoint back.
func BindCzmqTransport(clientEndpoint, workerEndpoint string) (*CzmqTransport, error) {
	clientSock := czmq.NewSock(czmq.Router)
	clientPort, err := clientSock.Bind(clientEndpoint)
	if err != nil {
		clientSock.Destroy()
		return nil, brokererr.BindFailed(clientEndpoint, err)
	}
	clientSock.SetOption(czmq.SockSetRcvhwm(500000))

	workerSock := czmq.NewSock(czmq.Router)
	workerPort, err := workerSock.Bind(workerEndpoint)
	if err != nil {
		clientSock.Destroy()
		workerSock.Destroy()
		return nil, brokererr.BindFailed(workerEndpoint, err)
	}
	workerSock.SetOption(czmq.SockSetRcvhwm(500000))

	poller, err := czmq.NewPoller(clientSock, workerSock)
	if err != nil {
		clientSock.Destroy()
		workerSock.Destroy()
		return nil, brokererr.BindFailed(fmt.Sprintf("%s,%s", clientEndpoint, workerEndpoint), err)
	}

	clientBoundEndpoint := boundEndpoint(clientEndpoint, clientPort)
	workerBoundEndpoint := boundEndpoint(workerEndpoint, workerPort)

	log.WithFields(log.Fields{
		"client": clientBoundEndpoint,
		"worker": workerBoundEndpoint,
	}).Info("meshbroker is bound and active")

	return &CzmqTransport{
		clientSock:          clientSock,
		workerSock:          workerSock,
		poller:              poller,
		clientBoundEndpoint: clientBoundEndpoint,
		workerBoundEndpoint: workerBoundEndpoint,
	}, nil
}

// boundEndpoint rewrites a requested tcp:// endpoint's port with the one
// CZMQ actually bound, so an ephemeral "*" port resolves to a concrete,
// advertisable address. Non-tcp transports (ipc://, inproc://) and a
// zero/negative port (nothing to rewrite) pass through unchanged.
func boundEndpoint(requested string, boundPort int) string {
	if boundPort <= 0 || !strings.HasPrefix(requested, "tcp://") {
		return requested
	}
	host := strings.TrimPrefix(requested, "tcp://")
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return fmt.Sprintf("tcp://%s:%d", host, boundPort)
}

// ClientEndpointAddr returns the bound client-facing endpoint address.
func (t *CzmqTransport) ClientEndpointAddr() string { return t.clientBoundEndpoint }

// WorkerEndpointAddr returns the bound worker-facing endpoint address.
func (t *CzmqTransport) WorkerEndpointAddr() string { return t.workerBoundEndpoint }

// Poll implements Transport.
func (t *CzmqTransport) Poll(timeout time.Duration) (Endpoint, proto.Identity, []byte, bool, error) {
	sock, err := t.poller.Wait(int(timeout / time.Millisecond))
	if err != nil {
		return 0, "", nil, false, err
	}
	if sock == nil {
		return 0, "", nil, false, nil
	}

	frames, err := sock.RecvMessage()
	if err != nil {
		return 0, "", nil, false, err
	}
	if len(frames) < 2 {
		log.WithFields(log.Fields{"frames": len(frames)}).Warn("router message missing identity or envelope frame")
		return 0, "", nil, false, nil
	}

	ep := WorkerEndpoint
	if sock == t.clientSock {
		ep = ClientEndpoint
	}

	return ep, proto.Identity(frames[0]), frames[1], true, nil
}

// SendToClient implements Transport.
func (t *CzmqTransport) SendToClient(identity proto.Identity, envelope []byte) error {
	return t.clientSock.SendMessage([][]byte{[]byte(identity), envelope})
}

// SendToWorker implements Transport.
func (t *CzmqTransport) SendToWorker(identity proto.Identity, envelope []byte) error {
	return t.workerSock.SendMessage([][]byte{[]byte(identity), envelope})
}

// Close releases both sockets.
func (t *CzmqTransport) Close() error {
	if t.clientSock != nil {
		t.clientSock.Destroy()
		t.clientSock = nil
	}
	if t.workerSock != nil {
		t.workerSock.Destroy()
		t.workerSock = nil
	}
	return nil
}
