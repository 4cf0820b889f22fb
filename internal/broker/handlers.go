package broker

import (
	log "github.com/sirupsen/logrus"

	"github.com/plantd/meshbroker/internal/brokererr"
	"github.com/plantd/meshbroker/internal/codec"
	"github.com/plantd/meshbroker/internal/proto"
)

// handleClientMessage implements spec.md §4.6 step 2.
func (b *Broker) handleClientMessage(identity proto.Identity, envelope []byte) {
	msg, err := codec.Decode(envelope)
	if err != nil {
		b.state.setLastError(brokererr.MalformedFrame(err))
		log.WithFields(log.Fields{"peer": string(identity)}).Debug(brokererr.MalformedFrame(err).Error())
		b.replyClient(identity, codec.Invalid(proto.JobType{}))
		return
	}

	switch msg.Service {
	case proto.CanMesh:
		b.replyClient(identity, codec.Message{
			Version: proto.ProtocolVersion,
			Service: proto.CanMesh,
			Type:    msg.Type,
			Payload: codec.EncodeBool(b.canMesh(msg.Type)),
		})

	case proto.MakeMesh:
		if !b.canMesh(msg.Type) {
			b.replyClient(identity, codec.Invalid(msg.Type))
			return
		}
		id := newJobID()
		b.queue.AddJob(id, msg.Type, msg.Payload)
		b.replyClient(identity, codec.Message{
			Version: proto.ProtocolVersion,
			Service: proto.MakeMesh,
			Type:    msg.Type,
			Payload: codec.EncodeJobDescriptor(codec.JobDescriptor{ID: id, Type: msg.Type, Payload: msg.Payload}),
		})

	case proto.MeshStatus:
		id, err := proto.ParseJobId(string(msg.Payload))
		if err != nil {
			b.replyClient(identity, codec.Invalid(msg.Type))
			return
		}
		b.replyClient(identity, codec.Message{
			Version: proto.ProtocolVersion,
			Service: proto.MeshStatus,
			Type:    msg.Type,
			Payload: codec.EncodeJobStatus(codec.JobStatusWire{ID: id, Status: b.statusOf(id)}),
		})

	case proto.RetrieveMesh:
		id, err := proto.ParseJobId(string(msg.Payload))
		if err != nil {
			b.replyClient(identity, codec.Invalid(msg.Type))
			return
		}
		result := b.retrieve(id)
		b.replyClient(identity, codec.Message{
			Version: proto.ProtocolVersion,
			Service: proto.RetrieveMesh,
			Type:    msg.Type,
			Payload: codec.EncodeJobResult(codec.JobResultWire{ID: id, Result: result}),
		})

	case proto.Shutdown:
		id, err := proto.ParseJobId(string(msg.Payload))
		if err != nil {
			b.replyClient(identity, codec.Invalid(msg.Type))
			return
		}
		status := b.shutdownJob(id)
		b.replyClient(identity, codec.Message{
			Version: proto.ProtocolVersion,
			Service: proto.Shutdown,
			Type:    msg.Type,
			Payload: codec.EncodeJobStatus(codec.JobStatusWire{ID: id, Status: status}),
		})

	default:
		b.replyClient(identity, codec.Invalid(msg.Type))
	}
}

// canMesh implements the CanMesh predicate shared by CanMesh and MakeMesh:
// the factory supports the type, or the pool already has a ready worker for
// it (spec.md §4.6).
func (b *Broker) canMesh(jobType proto.JobType) bool {
	return b.factory.HaveSupport(jobType) || b.pool.HaveWaitingWorker(jobType)
}

// statusOf implements the MeshStatus lookup order: queued, then active,
// then Invalid.
func (b *Broker) statusOf(id proto.JobId) proto.Status {
	if b.queue.HaveId(id) {
		return proto.Queued
	}
	if status, err := b.active.Status(id); err == nil {
		return status
	}
	return proto.StatusInvalid
}

// retrieve implements RetrieveMesh: one-shot, terminal. A result is
// returned if stored; otherwise an empty result of the same id. The
// active-job entry is always removed afterward, including on a second
// retrieval of an id already removed by the first (spec.md §8 S1, §9).
func (b *Broker) retrieve(id proto.JobId) []byte {
	if !b.active.HaveId(id) {
		return []byte{}
	}
	result, err := b.active.Result(id)
	if err != nil || result == nil {
		result = []byte{}
	}
	b.active.Remove(id)
	return result
}

// shutdownJob implements the Shutdown operation: dequeue if only queued;
// otherwise detach from ActiveJobs and notify the worker out-of-band.
func (b *Broker) shutdownJob(id proto.JobId) proto.Status {
	if b.queue.HaveId(id) {
		b.queue.Remove(id)
		return proto.Failed
	}
	if b.active.HaveId(id) {
		worker, _ := b.active.WorkerAddress(id)
		b.active.Remove(id)
		if worker != "" {
			if err := b.transport.SendToWorker(worker, codec.Encode(codec.Message{
				Version: proto.ProtocolVersion,
				Service: proto.Shutdown,
				Payload: []byte(id.String()),
			})); err != nil {
				log.WithError(err).Warn("failed to deliver shutdown to worker")
			}
		}
		return proto.Failed
	}
	return proto.StatusInvalid
}

// handleWorkerMessage implements spec.md §4.6 step 3.
func (b *Broker) handleWorkerMessage(identity proto.Identity, envelope []byte) {
	msg, err := codec.Decode(envelope)
	if err != nil {
		b.state.setLastError(brokererr.MalformedFrame(err))
		log.WithFields(log.Fields{"peer": string(identity)}).Debug(brokererr.MalformedFrame(err).Error())
		b.replyWorker(identity, codec.Invalid(proto.JobType{}))
		return
	}

	switch msg.Service {
	case proto.CanMesh:
		b.pool.AddWorker(identity, msg.Type)

	case proto.MakeMesh:
		if !b.pool.HaveWorker(identity) {
			b.pool.AddWorker(identity, msg.Type)
		}
		if err := b.pool.ReadyForWork(identity); err != nil {
			log.WithFields(log.Fields{"peer": string(identity)}).Debug("ready-for-work from unregistered worker ignored")
		}

	case proto.MeshStatus:
		status, err := codec.DecodeJobStatus(msg.Payload)
		if err == nil {
			b.active.UpdateStatus(status.ID, status.Status)
		}

	case proto.RetrieveMesh:
		result, err := codec.DecodeJobResult(msg.Payload)
		if err == nil {
			b.active.UpdateResult(result.ID, result.Result)
		}

	default:
		log.WithFields(log.Fields{"peer": string(identity), "service": msg.Service}).Debug("unrecognized worker message")
	}

	b.active.Refresh(identity)
	b.pool.RefreshWorker(identity)
}

func (b *Broker) replyClient(identity proto.Identity, msg codec.Message) {
	if err := b.transport.SendToClient(identity, codec.Encode(msg)); err != nil {
		b.state.setLastError(err)
		log.WithError(err).Warn("failed to reply to client")
	}
}

func (b *Broker) replyWorker(identity proto.Identity, msg codec.Message) {
	if err := b.transport.SendToWorker(identity, codec.Encode(msg)); err != nil {
		b.state.setLastError(err)
		log.WithError(err).Warn("failed to reply to worker")
	}
}
