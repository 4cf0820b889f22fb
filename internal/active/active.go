// Package active implements the ActiveJobs component of spec.md §4.4: jobs
// that have been handed to a worker, keyed by JobId, tracking their status,
// result, and heartbeat-derived expiry.
package active

import (
	"errors"
	"time"

	"github.com/plantd/meshbroker/internal/proto"
)

// ErrUnknownJob is returned by the query operations when the id is not
// currently active (spec.md §4.4, §7).
var ErrUnknownJob = errors.New("active: unknown job")

// Job mirrors spec.md §3's ActiveJob record.
type Job struct {
	ID     proto.JobId
	Worker proto.Identity
	Status proto.Status
	Result []byte
}

type entry struct {
	job    Job
	expiry time.Time
}

// Registry tracks dispatched jobs.
type Registry struct {
	heartbeatInterval time.Duration
	expiryMultiplier  int

	jobs map[proto.JobId]*entry
}

// New creates an empty ActiveJobs registry.
func New(heartbeatInterval time.Duration, expiryMultiplier int) *Registry {
	return &Registry{
		heartbeatInterval: heartbeatInterval,
		expiryMultiplier:  expiryMultiplier,
		jobs:              make(map[proto.JobId]*entry),
	}
}

func (r *Registry) expiryFromNow() time.Time {
	return time.Now().Add(r.heartbeatInterval * time.Duration(r.expiryMultiplier))
}

// Add inserts a newly dispatched job, initial status InProgress, per
// spec.md §4.4.
func (r *Registry) Add(worker proto.Identity, jobID proto.JobId) {
	r.jobs[jobID] = &entry{
		job: Job{
			ID:     jobID,
			Worker: worker,
			Status: proto.InProgress,
		},
		expiry: r.expiryFromNow(),
	}
}

// HaveId reports whether jobID is currently active.
func (r *Registry) HaveId(jobID proto.JobId) bool {
	_, ok := r.jobs[jobID]
	return ok
}

// HaveResult reports whether jobID has a stored result.
func (r *Registry) HaveResult(jobID proto.JobId) bool {
	e, ok := r.jobs[jobID]
	return ok && e.job.Result != nil
}

// Status returns the current status of jobID.
func (r *Registry) Status(jobID proto.JobId) (proto.Status, error) {
	e, ok := r.jobs[jobID]
	if !ok {
		return proto.StatusInvalid, ErrUnknownJob
	}
	return e.job.Status, nil
}

// Result returns the stored result bytes for jobID.
func (r *Registry) Result(jobID proto.JobId) ([]byte, error) {
	e, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrUnknownJob
	}
	return e.job.Result, nil
}

// WorkerAddress returns the identity of the worker the job was dispatched
// to.
func (r *Registry) WorkerAddress(jobID proto.JobId) (proto.Identity, error) {
	e, ok := r.jobs[jobID]
	if !ok {
		return "", ErrUnknownJob
	}
	return e.job.Worker, nil
}

// UpdateStatus overwrites the status of jobID with status.
// Unknown ids are silently ignored: workers may briefly outlive removal
// (spec.md §4.4).
func (r *Registry) UpdateStatus(jobID proto.JobId, status proto.Status) {
	if e, ok := r.jobs[jobID]; ok {
		e.job.Status = status
	}
}

// UpdateResult stores result bytes for jobID and transitions it to
// Finished. A job reaches Finished only through this call (spec.md §8,
// testable property 5). Unknown ids are silently ignored for the same
// reason as UpdateStatus.
func (r *Registry) UpdateResult(jobID proto.JobId, result []byte) {
	if e, ok := r.jobs[jobID]; ok {
		if result == nil {
			result = []byte{}
		}
		e.job.Result = result
		e.job.Status = proto.Finished
	}
}

// Refresh extends the expiry on every active job owned by worker. Called
// on any message received from that worker (spec.md §4.4).
func (r *Registry) Refresh(worker proto.Identity) {
	next := r.expiryFromNow()
	for _, e := range r.jobs {
		if e.job.Worker == worker {
			e.expiry = next
		}
	}
}

// MarkExpired transitions every InProgress job whose expiry is past to
// Failed and detaches its worker, returning the ids transitioned. Jobs in
// any other status (Finished included) are left as they are. Detaching makes
// retry or client-visible failure possible (spec.md §4.4, §7
// WorkerExpired).
func (r *Registry) MarkExpired(now time.Time) []proto.JobId {
	var expired []proto.JobId
	for id, e := range r.jobs {
		if now.After(e.expiry) && e.job.Status == proto.InProgress {
			e.job.Status = proto.Failed
			e.job.Worker = ""
			expired = append(expired, id)
		}
	}
	return expired
}

// FailJobsForWorker transitions every InProgress job owned by worker to
// Failed, used when WorkerPool.PurgeDead reports a dead worker between
// heartbeat-driven sweeps (spec.md §8, testable property 3).
func (r *Registry) FailJobsForWorker(worker proto.Identity) []proto.JobId {
	var failed []proto.JobId
	for id, e := range r.jobs {
		if e.job.Worker == worker && e.job.Status == proto.InProgress {
			e.job.Status = proto.Failed
			e.job.Worker = ""
			failed = append(failed, id)
		}
	}
	return failed
}

// Len returns the number of currently active jobs.
func (r *Registry) Len() int {
	return len(r.jobs)
}

// Remove drops the job entirely, returning whether it was present.
func (r *Registry) Remove(jobID proto.JobId) bool {
	if _, ok := r.jobs[jobID]; ok {
		delete(r.jobs, jobID)
		return true
	}
	return false
}
