// Package queue implements the JobQueue component of spec.md §4.2: jobs
// submitted by clients but not yet dispatched to a worker, held per
// JobType in FIFO order.
//
// Like every other broker registry (spec.md §5), JobQueue is owned
// exclusively by the broker's single-threaded event loop and is therefore
// deliberately unsynchronized — there is no mutex here, mirroring how
// core/mdp.Service holds its `requests [][]string` queue with no locking
// of its own.
package queue

import (
	"errors"

	"github.com/plantd/meshbroker/internal/proto"
)

// ErrNoJob is returned by TakeJob when the requested type has no queued
// job (spec.md §4.2).
var ErrNoJob = errors.New("queue: no job of that type")

// Job is the queued form of a submission: immutable once queued (spec.md
// §3).
type Job struct {
	ID      proto.JobId
	Type    proto.JobType
	Payload []byte
}

// Queue holds submitted, not-yet-dispatched jobs keyed by job type, plus a
// secondary id-to-type index for O(1) membership/removal lookups.
type Queue struct {
	byType         map[proto.JobType][]Job
	typeOf         map[proto.JobId]proto.JobType
	waitingForType map[proto.JobType]bool
}

// New creates an empty JobQueue.
func New() *Queue {
	return &Queue{
		byType:         make(map[proto.JobType][]Job),
		typeOf:         make(map[proto.JobId]proto.JobType),
		waitingForType: make(map[proto.JobType]bool),
	}
}

// AddJob appends a new job to the tail of its type's FIFO. Amortized
// constant time.
func (q *Queue) AddJob(id proto.JobId, jobType proto.JobType, payload []byte) {
	q.byType[jobType] = append(q.byType[jobType], Job{ID: id, Type: jobType, Payload: payload})
	q.typeOf[id] = jobType
}

// HaveId reports whether id is currently queued.
func (q *Queue) HaveId(id proto.JobId) bool {
	_, ok := q.typeOf[id]
	return ok
}

// QueuedJobTypes returns the set of types that currently have at least one
// queued job.
func (q *Queue) QueuedJobTypes() []proto.JobType {
	types := make([]proto.JobType, 0, len(q.byType))
	for t, jobs := range q.byType {
		if len(jobs) > 0 {
			types = append(types, t)
		}
	}
	return types
}

// WaitingForWorkerTypes returns the subset of queued types for which a
// factory request has already been issued but no worker has appeared yet.
// Used to avoid double-requesting (spec.md §4.2, §4.7 Phase C).
func (q *Queue) WaitingForWorkerTypes() []proto.JobType {
	types := make([]proto.JobType, 0, len(q.waitingForType))
	for t, waiting := range q.waitingForType {
		if waiting && len(q.byType[t]) > 0 {
			types = append(types, t)
		}
	}
	return types
}

// IsWaitingForWorker reports whether jobType has an outstanding factory
// request (spec.md §4.7 Phase C must not re-request while true).
func (q *Queue) IsWaitingForWorker(jobType proto.JobType) bool {
	return q.waitingForType[jobType]
}

// WorkerDispatched marks that a factory request has been issued for
// jobType, moving its queued jobs into the waiting-for-worker view.
func (q *Queue) WorkerDispatched(jobType proto.JobType) {
	q.waitingForType[jobType] = true
}

// TakeJob removes and returns the oldest job of the given type (FIFO within
// a type; no ordering is guaranteed across types). Fails with ErrNoJob if
// none is queued. Taking the last job of a type also clears its
// waiting-for-worker mark: dispatch resolved the wait.
func (q *Queue) TakeJob(jobType proto.JobType) (Job, error) {
	jobs := q.byType[jobType]
	if len(jobs) == 0 {
		return Job{}, ErrNoJob
	}
	job := jobs[0]
	remaining := jobs[1:]
	if len(remaining) == 0 {
		delete(q.byType, jobType)
	} else {
		q.byType[jobType] = remaining
	}
	delete(q.typeOf, job.ID)
	if len(q.byType[jobType]) == 0 {
		delete(q.waitingForType, jobType)
	}
	return job, nil
}

// Len returns the total number of queued jobs across all types, for
// diagnostics and metrics.
func (q *Queue) Len() int {
	return len(q.typeOf)
}

// CountByType returns the number of queued jobs per type, for the status
// API's per-type breakdown.
func (q *Queue) CountByType() map[proto.JobType]int {
	counts := make(map[proto.JobType]int, len(q.byType))
	for t, jobs := range q.byType {
		if len(jobs) > 0 {
			counts[t] = len(jobs)
		}
	}
	return counts
}

// Remove deletes a queued job by id, returning whether it was present.
func (q *Queue) Remove(id proto.JobId) bool {
	jobType, ok := q.typeOf[id]
	if !ok {
		return false
	}
	delete(q.typeOf, id)
	jobs := q.byType[jobType]
	for i, j := range jobs {
		if j.ID == id {
			jobs = append(jobs[:i], jobs[i+1:]...)
			break
		}
	}
	if len(jobs) == 0 {
		delete(q.byType, jobType)
		delete(q.waitingForType, jobType)
	} else {
		q.byType[jobType] = jobs
	}
	return true
}
