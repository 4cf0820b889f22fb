package broker

import (
	log "github.com/sirupsen/logrus"

	"github.com/plantd/meshbroker/internal/brokererr"
	"github.com/plantd/meshbroker/internal/codec"
	"github.com/plantd/meshbroker/internal/proto"
)

// dispatchAndMatch implements spec.md §4.7. Phase ordering (A before B
// before C) is load-bearing: it drains jobs already waiting on a
// previously requested worker before opportunistically matching other
// queued types, and only asks the factory to spawn once neither source of
// supply can satisfy a type, suppressing spawn storms (spec.md §8 S5).
func (b *Broker) dispatchAndMatch() {
	b.factory.UpdateCount()

	// Phase A: drain waiting-for-worker.
	for _, jobType := range b.queue.WaitingForWorkerTypes() {
		if identity, ok := b.pool.TakeWorker(jobType); ok {
			b.assignJobToWorker(jobType, identity)
		}
	}

	// Phase B: opportunistic match.
	for _, jobType := range b.queue.QueuedJobTypes() {
		if identity, ok := b.pool.TakeWorker(jobType); ok {
			b.assignJobToWorker(jobType, identity)
		}
	}

	// Phase C: request creation. Types already awaiting a previously
	// requested worker are skipped, or createWorker would be called again
	// every tick until the worker shows up (spec.md §8 S5).
	for _, jobType := range b.queue.QueuedJobTypes() {
		if b.queue.IsWaitingForWorker(jobType) {
			continue
		}
		ok := b.factory.CreateWorker(jobType)
		b.metrics.IncFactorySpawn(ok)
		if ok {
			b.queue.WorkerDispatched(jobType)
		} else {
			b.state.setLastError(brokererr.FactorySpawnFailed(jobType))
			log.Debug(brokererr.FactorySpawnFailed(jobType).Error())
		}
	}
}

// assignJobToWorker is the handoff primitive from spec.md §4.7: insert into
// ActiveJobs, then transmit a MakeMesh envelope carrying the job
// descriptor and payload to the worker's identity on the worker socket.
func (b *Broker) assignJobToWorker(jobType proto.JobType, worker proto.Identity) {
	job, err := b.queue.TakeJob(jobType)
	if err != nil {
		log.WithFields(log.Fields{"jobType": jobType.String(), "worker": string(worker)}).
			Error("matched worker but queue had no job of that type")
		return
	}

	b.active.Add(worker, job.ID)
	b.metrics.IncDispatch()

	envelope := codec.Encode(codec.Message{
		Version: proto.ProtocolVersion,
		Service: proto.MakeMesh,
		Type:    jobType,
		Payload: codec.EncodeJobDescriptor(codec.JobDescriptor{ID: job.ID, Type: jobType, Payload: job.Payload}),
	})

	if err := b.transport.SendToWorker(worker, envelope); err != nil {
		b.state.setLastError(err)
		log.WithError(err).Warn("failed to dispatch job to worker")
	}
}
