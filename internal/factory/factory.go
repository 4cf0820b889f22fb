// Package factory defines the WorkerFactory external-collaborator contract
// from spec.md §4.5 and supplies one concrete implementation,
// ProcessFactory, that spawns workers as child OS processes.
package factory

import "github.com/plantd/meshbroker/internal/proto"

// Factory is the narrow contract the broker depends on (spec.md §4.5). The
// broker only asks and reaps counts; the factory alone manages its spawned
// children's lifecycle.
type Factory interface {
	// HaveSupport reports whether the factory knows how to produce a
	// worker for jobType.
	HaveSupport(jobType proto.JobType) bool

	// CurrentCount returns the number of workers currently believed to be
	// alive.
	CurrentCount() int

	// Cap returns the configured maximum number of concurrently live
	// workers.
	Cap() int

	// CreateWorker attempts to spawn a worker for jobType, returning
	// whether a new process was actually created. May return false if the
	// cap has been reached or the spawn failed (spec.md §7
	// FactorySpawnFailed).
	CreateWorker(jobType proto.JobType) bool

	// UpdateCount reaps finished child processes. Called once per broker
	// tick.
	UpdateCount()

	// AddEndpoint records the broker's externally reachable address so
	// spawned workers can connect back.
	AddEndpoint(uri string)
}
