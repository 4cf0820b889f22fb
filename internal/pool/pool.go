// Package pool implements the WorkerPool component of spec.md §4.3: the
// registry of workers that have announced themselves, and the per-JobType
// FIFO of idle workers ready to accept work.
package pool

import (
	"errors"
	"time"

	"github.com/plantd/meshbroker/internal/proto"
)

// ErrUnknownWorker is returned by ReadyForWork when the identity has not
// first been registered via AddWorker (spec.md §4.3, §7).
var ErrUnknownWorker = errors.New("pool: unknown worker")

// MinExpiryMultiplier is the smallest expiry multiplier spec.md §4.3 allows:
// below 3, transient packet loss could cause a false death.
const MinExpiryMultiplier = 3

type knownWorker struct {
	identity proto.Identity
	jobType  proto.JobType
	expiry   time.Time
	ready    bool
}

// Pool tracks known workers and, per JobType, the FIFO of those currently
// idle and awaiting dispatch.
type Pool struct {
	heartbeatInterval time.Duration
	expiryMultiplier  int

	known     map[proto.Identity]*knownWorker
	readyFIFO map[proto.JobType][]proto.Identity
}

// New creates an empty WorkerPool. expiryMultiplier is clamped up to
// MinExpiryMultiplier if given smaller, per spec.md §4.3's invariant.
func New(heartbeatInterval time.Duration, expiryMultiplier int) *Pool {
	if expiryMultiplier < MinExpiryMultiplier {
		expiryMultiplier = MinExpiryMultiplier
	}
	return &Pool{
		heartbeatInterval: heartbeatInterval,
		expiryMultiplier:  expiryMultiplier,
		known:             make(map[proto.Identity]*knownWorker),
		readyFIFO:         make(map[proto.JobType][]proto.Identity),
	}
}

func (p *Pool) expiryFromNow() time.Time {
	return time.Now().Add(p.heartbeatInterval * time.Duration(p.expiryMultiplier))
}

// AddWorker idempotently registers identity for jobType, refreshing its
// expiry. Calling it again for an already-known worker just refreshes it
// (and updates the declared type, in case of a reconnect with a different
// capability). If the worker is already sitting in a ready queue under its
// old type, it is moved to the new type's queue so it isn't stranded under
// a type it no longer declares.
func (p *Pool) AddWorker(identity proto.Identity, jobType proto.JobType) {
	w, ok := p.known[identity]
	if !ok {
		w = &knownWorker{identity: identity}
		p.known[identity] = w
	}
	if w.ready && w.jobType != jobType {
		p.readyFIFO[w.jobType] = removeIdentity(p.readyFIFO[w.jobType], identity)
		if len(p.readyFIFO[w.jobType]) == 0 {
			delete(p.readyFIFO, w.jobType)
		}
		p.readyFIFO[jobType] = append(p.readyFIFO[jobType], identity)
	}
	w.jobType = jobType
	w.expiry = p.expiryFromNow()
}

// HaveWorker reports whether identity is currently known.
func (p *Pool) HaveWorker(identity proto.Identity) bool {
	_, ok := p.known[identity]
	return ok
}

// RefreshWorker resets identity's expiry to now + heartbeat*multiplier.
// A no-op if the identity isn't known (it may have just been purged).
func (p *Pool) RefreshWorker(identity proto.Identity) {
	if w, ok := p.known[identity]; ok {
		w.expiry = p.expiryFromNow()
	}
}

// ReadyForWork moves a known worker into the ready queue for its declared
// type. Fails with ErrUnknownWorker if the worker was never registered.
func (p *Pool) ReadyForWork(identity proto.Identity) error {
	w, ok := p.known[identity]
	if !ok {
		return ErrUnknownWorker
	}
	if w.ready {
		return nil
	}
	w.ready = true
	p.readyFIFO[w.jobType] = append(p.readyFIFO[w.jobType], identity)
	return nil
}

// HaveWaitingWorker reports whether any ready worker of jobType is
// available.
func (p *Pool) HaveWaitingWorker(jobType proto.JobType) bool {
	return len(p.readyFIFO[jobType]) > 0
}

// TakeWorker removes and returns the head of the ready queue for jobType.
// Dispatch transfers ownership to ActiveJobs, so the worker is also removed
// from the known-workers registry here: per spec.md §3's invariant, a
// dispatched worker's identity must no longer appear in WorkerPool.
func (p *Pool) TakeWorker(jobType proto.JobType) (proto.Identity, bool) {
	queue := p.readyFIFO[jobType]
	if len(queue) == 0 {
		return "", false
	}
	identity := queue[0]
	remaining := queue[1:]
	if len(remaining) == 0 {
		delete(p.readyFIFO, jobType)
	} else {
		p.readyFIFO[jobType] = remaining
	}
	delete(p.known, identity)
	return identity, true
}

// ReadyCount returns the total number of workers currently idle and
// awaiting dispatch, across all job types.
func (p *Pool) ReadyCount() int {
	count := 0
	for _, queue := range p.readyFIFO {
		count += len(queue)
	}
	return count
}

// ReadyCountByType returns the number of idle workers per type, for the
// status API's per-type breakdown.
func (p *Pool) ReadyCountByType() map[proto.JobType]int {
	counts := make(map[proto.JobType]int, len(p.readyFIFO))
	for t, queue := range p.readyFIFO {
		if len(queue) > 0 {
			counts[t] = len(queue)
		}
	}
	return counts
}

// PurgeDead drops every worker whose expiry has passed, from both the
// known-worker registry and every ready queue, returning the identities
// dropped so callers can reconcile ActiveJobs against them.
func (p *Pool) PurgeDead(now time.Time) []proto.Identity {
	var dead []proto.Identity
	for identity, w := range p.known {
		if now.After(w.expiry) {
			dead = append(dead, identity)
		}
	}
	for _, identity := range dead {
		w := p.known[identity]
		if w.ready {
			p.readyFIFO[w.jobType] = removeIdentity(p.readyFIFO[w.jobType], identity)
			if len(p.readyFIFO[w.jobType]) == 0 {
				delete(p.readyFIFO, w.jobType)
			}
		}
		delete(p.known, identity)
	}
	return dead
}

func removeIdentity(list []proto.Identity, target proto.Identity) []proto.Identity {
	for i, id := range list {
		if id == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
