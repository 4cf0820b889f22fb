package broker

import "sync"

// Broker lifecycle statuses, reported through Snapshot and surfaced on the
// status API (spec.md:160's "advertises ... external endpoint" extends to
// advertising the broker's own health the way plantd's broker package
// tracks it).
const (
	StatusStarting = "starting"
	StatusRunning  = "running"
	StatusStopped  = "stopped"
)

// brokerState tracks lifecycle status and the last operational error,
// grounded on _examples/geoffjay-plantd/broker/state.go's SetStatus/
// GetStatus/SetLastError/GetErrorCount/GetLastError. That package exposes
// them as package-level singletons guarded by one RWMutex; here the same
// fields and locking are scoped to a single Broker instance instead, since
// nothing else in this module is a process-wide singleton either.
type brokerState struct {
	mu         sync.RWMutex
	status     string
	errorCount int
	lastError  error
}

func (s *brokerState) setStatus(value string) {
	s.mu.Lock()
	s.status = value
	s.mu.Unlock()
}

func (s *brokerState) getStatus() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *brokerState) setLastError(err error) {
	s.mu.Lock()
	s.lastError = err
	s.errorCount++
	s.mu.Unlock()
}

func (s *brokerState) getErrorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorCount
}

func (s *brokerState) getLastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// SetStatus sets the broker's current lifecycle status.
func (b *Broker) SetStatus(value string) { b.state.setStatus(value) }

// GetStatus returns the broker's current lifecycle status.
func (b *Broker) GetStatus() string { return b.state.getStatus() }

// SetLastError records an operational error, incrementing the error count.
func (b *Broker) SetLastError(err error) { b.state.setLastError(err) }

// GetErrorCount returns the total number of errors recorded via
// SetLastError since the broker started.
func (b *Broker) GetErrorCount() int { return b.state.getErrorCount() }

// GetLastError returns the last error recorded via SetLastError, or nil.
func (b *Broker) GetLastError() error { return b.state.getLastError() }
