package factory

import "github.com/plantd/meshbroker/internal/proto"

// FakeFactory is a test-only Factory that never spawns real processes,
// letting broker tests exercise dispatch and matching logic deterministically.
type FakeFactory struct {
	Supported map[proto.JobType]bool
	CapVal    int

	created []proto.JobType
	count   int
	updates int
	endpoints []string
}

// NewFakeFactory builds a FakeFactory supporting the given job types, up to
// capVal concurrently created workers.
func NewFakeFactory(capVal int, supported ...proto.JobType) *FakeFactory {
	s := make(map[proto.JobType]bool, len(supported))
	for _, jt := range supported {
		s[jt] = true
	}
	return &FakeFactory{Supported: s, CapVal: capVal}
}

func (f *FakeFactory) HaveSupport(jobType proto.JobType) bool {
	return f.Supported[jobType]
}

func (f *FakeFactory) CurrentCount() int {
	return f.count
}

func (f *FakeFactory) Cap() int {
	return f.CapVal
}

func (f *FakeFactory) CreateWorker(jobType proto.JobType) bool {
	if !f.Supported[jobType] || f.count >= f.CapVal {
		return false
	}
	f.count++
	f.created = append(f.created, jobType)
	return true
}

func (f *FakeFactory) UpdateCount() {
	f.updates++
}

func (f *FakeFactory) AddEndpoint(uri string) {
	f.endpoints = append(f.endpoints, uri)
}

// Created returns the job types CreateWorker was called with and succeeded
// for, in order.
func (f *FakeFactory) Created() []proto.JobType {
	return f.created
}

// ReleaseOne simulates a spawned worker exiting, freeing a capacity slot.
func (f *FakeFactory) ReleaseOne() {
	if f.count > 0 {
		f.count--
	}
}
