// Package broker implements the broker event loop described in spec.md
// §4.6/§4.7: the single-threaded, single-process core that mediates
// between clients submitting meshing jobs and workers that execute them.
//
// It owns the three unsynchronized registries (JobQueue, WorkerPool,
// ActiveJobs), a WorkerFactory collaborator, and a Transport spanning the
// two router sockets, and drives them all from one goroutine the way
// core/mdp/broker.go's Run loop drives a single MDP broker socket.
package broker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/plantd/meshbroker/internal/active"
	"github.com/plantd/meshbroker/internal/brokererr"
	"github.com/plantd/meshbroker/internal/factory"
	"github.com/plantd/meshbroker/internal/idgen"
	"github.com/plantd/meshbroker/internal/pool"
	"github.com/plantd/meshbroker/internal/proto"
	"github.com/plantd/meshbroker/internal/queue"
	"github.com/plantd/meshbroker/internal/statusapi"
)

// Metrics is the narrow surface the broker reports to on every tick. A
// no-op implementation is used when metrics aren't wired in.
type Metrics interface {
	ObserveTick(queueDepth, readyWorkers, activeJobs int)
	IncDispatch()
	IncFactorySpawn(ok bool)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTick(int, int, int) {}
func (noopMetrics) IncDispatch()              {}
func (noopMetrics) IncFactorySpawn(bool)      {}

// Broker is the event loop core.
type Broker struct {
	transport Transport
	factory   factory.Factory

	queue  *queue.Queue
	pool   *pool.Pool
	active *active.Registry

	heartbeatInterval time.Duration
	metrics           Metrics
	state             brokerState
}

// Option configures a Broker at construction.
type Option func(*Broker)

// WithMetrics wires a Metrics sink; without it, observations are dropped.
func WithMetrics(m Metrics) Option {
	return func(b *Broker) { b.metrics = m }
}

// New constructs a Broker. heartbeatInterval and expiryMultiplier feed both
// WorkerPool and ActiveJobs, per spec.md §4.3/§4.4 sharing one liveness
// model.
func New(transport Transport, f factory.Factory, heartbeatInterval time.Duration, expiryMultiplier int, opts ...Option) *Broker {
	b := &Broker{
		transport:         transport,
		factory:           f,
		queue:             queue.New(),
		pool:              pool.New(heartbeatInterval, expiryMultiplier),
		active:            active.New(heartbeatInterval, expiryMultiplier),
		heartbeatInterval: heartbeatInterval,
		metrics:           noopMetrics{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.state.setStatus(StatusStarting)
	return b
}

// Run drives the event loop until ctx is cancelled. It never returns under
// normal operation otherwise, per spec.md §4.6.
func (b *Broker) Run(ctx context.Context) {
	log.Debug("starting broker event loop")
	b.state.setStatus(StatusRunning)
	for {
		select {
		case <-ctx.Done():
			log.Info("broker event loop stopping")
			b.state.setStatus(StatusStopped)
			return
		default:
		}

		if err := b.Tick(time.Now()); err != nil {
			log.WithError(err).Error("broker tick failed")
			b.state.setLastError(err)
			b.state.setStatus(StatusStopped)
			return
		}
	}
}

// Tick executes exactly one iteration of the event loop: poll, handle at
// most one message, sweep expired state, then dispatch/match. It is
// exported so tests can drive the loop deterministically against a
// scripted Transport without running Run in a goroutine.
func (b *Broker) Tick(now time.Time) error {
	ep, identity, envelope, ok, err := b.transport.Poll(b.heartbeatInterval)
	if err != nil {
		return err
	}

	if ok {
		switch ep {
		case ClientEndpoint:
			b.handleClientMessage(identity, envelope)
		case WorkerEndpoint:
			b.handleWorkerMessage(identity, envelope)
		}
	}

	for _, id := range b.active.MarkExpired(now) {
		log.WithFields(log.Fields{"job": id.String()}).Debug("active job expired, marked Failed")
	}

	for _, deadWorker := range b.pool.PurgeDead(now) {
		failed := b.active.FailJobsForWorker(deadWorker)
		if len(failed) > 0 {
			log.WithFields(log.Fields{"jobs": len(failed)}).Info(brokererr.WorkerExpired(string(deadWorker)).Error())
		}
	}

	b.dispatchAndMatch()

	b.metrics.ObserveTick(b.queue.Len(), b.pool.ReadyCount(), b.active.Len())

	return nil
}

// Snapshot implements statusapi.Provider: a read-only point-in-time view
// of the three registries for the GET /status endpoint.
func (b *Broker) Snapshot() statusapi.Snapshot {
	queued := b.queue.CountByType()
	ready := b.pool.ReadyCountByType()

	types := make(map[proto.JobType]struct{}, len(queued)+len(ready))
	for t := range queued {
		types[t] = struct{}{}
	}
	for t := range ready {
		types[t] = struct{}{}
	}

	byType := make(map[proto.JobType]statusapi.TypeBreakdown, len(types))
	for t := range types {
		byType[t] = statusapi.TypeBreakdown{
			InputFormat:  t.InputFormat,
			OutputFormat: t.OutputFormat,
			Queued:       queued[t],
			ReadyWorkers: ready[t],
		}
	}

	var lastError string
	if err := b.state.getLastError(); err != nil {
		lastError = err.Error()
	}

	return statusapi.Snapshot{
		QueueDepth:   b.queue.Len(),
		ActiveJobs:   b.active.Len(),
		ReadyWorkers: b.pool.ReadyCount(),
		ByType:       byType,
		Status:       b.state.getStatus(),
		ErrorCount:   b.state.getErrorCount(),
		LastError:    lastError,
	}
}

// newJobID is a seam so tests can assert dispatch ordering without
// depending on random UUID generation details.
var newJobID = idgen.New
