package broker

import (
	"time"

	"github.com/plantd/meshbroker/internal/proto"
)

type scriptedMessage struct {
	ep       Endpoint
	identity proto.Identity
	envelope []byte
}

type sentMessage struct {
	identity proto.Identity
	envelope []byte
}

// fakeTransport is a scripted, in-memory Transport for deterministic tests:
// Poll replays queued inbound messages one per call, returning a timeout
// (ok=false) once the script is exhausted, matching the normal
// heartbeat-interval wakeup Tick expects on an idle tick.
type fakeTransport struct {
	inbound []scriptedMessage

	toClient []sentMessage
	toWorker []sentMessage
}

func (f *fakeTransport) Poll(time.Duration) (Endpoint, proto.Identity, []byte, bool, error) {
	if len(f.inbound) == 0 {
		return 0, "", nil, false, nil
	}
	m := f.inbound[0]
	f.inbound = f.inbound[1:]
	return m.ep, m.identity, m.envelope, true, nil
}

func (f *fakeTransport) SendToClient(identity proto.Identity, envelope []byte) error {
	f.toClient = append(f.toClient, sentMessage{identity, envelope})
	return nil
}

func (f *fakeTransport) SendToWorker(identity proto.Identity, envelope []byte) error {
	f.toWorker = append(f.toWorker, sentMessage{identity, envelope})
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) queueClient(identity proto.Identity, envelope []byte) {
	f.inbound = append(f.inbound, scriptedMessage{ClientEndpoint, identity, envelope})
}

func (f *fakeTransport) queueWorker(identity proto.Identity, envelope []byte) {
	f.inbound = append(f.inbound, scriptedMessage{WorkerEndpoint, identity, envelope})
}

func (f *fakeTransport) lastToClient() sentMessage {
	return f.toClient[len(f.toClient)-1]
}

func (f *fakeTransport) lastToWorker() sentMessage {
	return f.toWorker[len(f.toWorker)-1]
}
