package broker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantd/meshbroker/internal/codec"
	"github.com/plantd/meshbroker/internal/factory"
	"github.com/plantd/meshbroker/internal/proto"
)

var meshType = proto.JobType{InputFormat: 1, OutputFormat: 2}

func clientRequest(service proto.ServiceType, jobType proto.JobType, payload []byte) []byte {
	return codec.Encode(codec.Message{Version: proto.ProtocolVersion, Service: service, Type: jobType, Payload: payload})
}

func withFixedJobID(id proto.JobId, fn func()) {
	prev := newJobID
	newJobID = func() proto.JobId { return id }
	defer func() { newJobID = prev }()
	fn()
}

func TestCanMeshNoSupportNoWorker(t *testing.T) {
	tr := &fakeTransport{}
	f := factory.NewFakeFactory(4)
	b := New(tr, f, time.Second, 3)

	tr.queueClient("c1", clientRequest(proto.CanMesh, meshType, nil))
	require.NoError(t, b.Tick(time.Now()))

	reply, err := codec.Decode(tr.lastToClient().envelope)
	require.NoError(t, err)
	assert.Equal(t, proto.CanMesh, reply.Service)
	assert.False(t, codec.DecodeBool(reply.Payload))
}

func TestCanMeshFactorySupport(t *testing.T) {
	tr := &fakeTransport{}
	f := factory.NewFakeFactory(4, meshType)
	b := New(tr, f, time.Second, 3)

	tr.queueClient("c1", clientRequest(proto.CanMesh, meshType, nil))
	require.NoError(t, b.Tick(time.Now()))

	reply, err := codec.Decode(tr.lastToClient().envelope)
	require.NoError(t, err)
	assert.True(t, codec.DecodeBool(reply.Payload))
}

// TestMakeMeshNoSupportRepliesInvalid covers spec.md §8 S2.
func TestMakeMeshNoSupportRepliesInvalid(t *testing.T) {
	tr := &fakeTransport{}
	f := factory.NewFakeFactory(4)
	b := New(tr, f, time.Second, 3)

	tr.queueClient("c1", clientRequest(proto.MakeMesh, proto.JobType{InputFormat: 99, OutputFormat: 99}, []byte("x")))
	require.NoError(t, b.Tick(time.Now()))

	reply, err := codec.Decode(tr.lastToClient().envelope)
	require.NoError(t, err)
	assert.Equal(t, proto.Invalid, reply.Service)
	assert.Equal(t, 0, b.queue.Len())
}

// TestHappyPath covers spec.md §8 S1 end to end, driving one Tick per
// scripted message the way a real poll/dispatch cycle would.
func TestHappyPath(t *testing.T) {
	tr := &fakeTransport{}
	f := factory.NewFakeFactory(1, meshType)
	b := New(tr, f, time.Second, 3)

	jobID := uuid.New()

	// Client submits a job.
	withFixedJobID(jobID, func() {
		tr.queueClient("client-1", clientRequest(proto.MakeMesh, meshType, []byte("abc")))
		require.NoError(t, b.Tick(time.Now()))
	})
	reply, err := codec.Decode(tr.lastToClient().envelope)
	require.NoError(t, err)
	assert.Equal(t, proto.MakeMesh, reply.Service)
	descriptor, err := codec.DecodeJobDescriptor(reply.Payload)
	require.NoError(t, err)
	assert.Equal(t, jobID, descriptor.ID)
	assert.True(t, b.queue.HaveId(jobID))

	// The submitting tick's Phase C already asked the factory for a worker;
	// an idle tick must not ask again.
	require.NoError(t, b.Tick(time.Now()))
	assert.Equal(t, []proto.JobType{meshType}, f.Created())
	assert.True(t, b.queue.IsWaitingForWorker(meshType))

	// Worker connects and announces capability.
	tr.queueWorker("worker-1", clientRequest(proto.CanMesh, meshType, nil))
	require.NoError(t, b.Tick(time.Now()))
	assert.True(t, b.pool.HaveWorker("worker-1"))

	// Worker signals ready for work; Phase A should dispatch immediately.
	tr.queueWorker("worker-1", clientRequest(proto.MakeMesh, meshType, nil))
	require.NoError(t, b.Tick(time.Now()))

	assert.False(t, b.queue.HaveId(jobID))
	assert.True(t, b.active.HaveId(jobID))
	dispatched, err := codec.Decode(tr.lastToWorker().envelope)
	require.NoError(t, err)
	assert.Equal(t, proto.MakeMesh, dispatched.Service)
	dispatchedJob, err := codec.DecodeJobDescriptor(dispatched.Payload)
	require.NoError(t, err)
	assert.Equal(t, jobID, dispatchedJob.ID)
	assert.Equal(t, []byte("abc"), dispatchedJob.Payload)

	// Worker reports progress, then a result.
	tr.queueWorker("worker-1", clientRequest(proto.MeshStatus, proto.JobType{},
		codec.EncodeJobStatus(codec.JobStatusWire{ID: jobID, Status: proto.InProgress})))
	require.NoError(t, b.Tick(time.Now()))
	status, err := b.active.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, proto.InProgress, status)

	tr.queueWorker("worker-1", clientRequest(proto.RetrieveMesh, proto.JobType{},
		codec.EncodeJobResult(codec.JobResultWire{ID: jobID, Result: []byte("xyz")})))
	require.NoError(t, b.Tick(time.Now()))
	status, err = b.active.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, proto.Finished, status)

	// Client polls status.
	tr.queueClient("client-1", clientRequest(proto.MeshStatus, proto.JobType{}, []byte(jobID.String())))
	require.NoError(t, b.Tick(time.Now()))
	reply, err = codec.Decode(tr.lastToClient().envelope)
	require.NoError(t, err)
	gotStatus, err := codec.DecodeJobStatus(reply.Payload)
	require.NoError(t, err)
	assert.Equal(t, proto.Finished, gotStatus.Status)

	// Client retrieves the result.
	tr.queueClient("client-1", clientRequest(proto.RetrieveMesh, proto.JobType{}, []byte(jobID.String())))
	require.NoError(t, b.Tick(time.Now()))
	reply, err = codec.Decode(tr.lastToClient().envelope)
	require.NoError(t, err)
	gotResult, err := codec.DecodeJobResult(reply.Payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("xyz"), gotResult.Result)
	assert.False(t, b.active.HaveId(jobID))

	// Second retrieval: job already gone, empty result, not Invalid.
	tr.queueClient("client-1", clientRequest(proto.RetrieveMesh, proto.JobType{}, []byte(jobID.String())))
	require.NoError(t, b.Tick(time.Now()))
	reply, err = codec.Decode(tr.lastToClient().envelope)
	require.NoError(t, err)
	assert.Equal(t, proto.RetrieveMesh, reply.Service)
	gotResult, err = codec.DecodeJobResult(reply.Payload)
	require.NoError(t, err)
	assert.Empty(t, gotResult.Result)
}

// TestWorkerDeathFailsActiveJob covers spec.md §8 S3.
func TestWorkerDeathFailsActiveJob(t *testing.T) {
	tr := &fakeTransport{}
	f := factory.NewFakeFactory(4, meshType)
	heartbeat := time.Millisecond
	b := New(tr, f, heartbeat, 3)

	jobID := uuid.New()
	b.pool.AddWorker("worker-1", meshType)
	require.NoError(t, b.pool.ReadyForWork("worker-1"))
	worker, ok := b.pool.TakeWorker(meshType)
	require.True(t, ok)
	b.active.Add(worker, jobID)

	future := time.Now().Add(10 * heartbeat * 3)
	require.NoError(t, b.Tick(future))

	status, err := b.active.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, proto.Failed, status)
}

// TestShutdownActiveJob covers spec.md §8 S4.
func TestShutdownActiveJob(t *testing.T) {
	tr := &fakeTransport{}
	f := factory.NewFakeFactory(4, meshType)
	b := New(tr, f, time.Second, 3)

	jobID := uuid.New()
	b.active.Add("worker-1", jobID)

	tr.queueClient("client-1", clientRequest(proto.Shutdown, proto.JobType{}, []byte(jobID.String())))
	require.NoError(t, b.Tick(time.Now()))

	assert.False(t, b.active.HaveId(jobID))
	workerMsg, err := codec.Decode(tr.lastToWorker().envelope)
	require.NoError(t, err)
	assert.Equal(t, proto.Shutdown, workerMsg.Service)
	assert.Equal(t, jobID.String(), string(workerMsg.Payload))
	assert.Equal(t, proto.Identity("worker-1"), tr.toWorker[len(tr.toWorker)-1].identity)

	clientReply, err := codec.Decode(tr.lastToClient().envelope)
	require.NoError(t, err)
	status, err := codec.DecodeJobStatus(clientReply.Payload)
	require.NoError(t, err)
	assert.Equal(t, proto.Failed, status.Status)
}

// TestSpawnSuppression covers spec.md §8 S5: createWorker is called once
// and not re-requested on subsequent ticks while still waiting.
func TestSpawnSuppression(t *testing.T) {
	tr := &fakeTransport{}
	f := factory.NewFakeFactory(4, meshType)
	b := New(tr, f, time.Second, 3)

	withFixedJobID(uuid.New(), func() {
		tr.queueClient("c1", clientRequest(proto.MakeMesh, meshType, []byte("1")))
		require.NoError(t, b.Tick(time.Now()))
	})
	withFixedJobID(uuid.New(), func() {
		tr.queueClient("c2", clientRequest(proto.MakeMesh, meshType, []byte("2")))
		require.NoError(t, b.Tick(time.Now()))
	})

	require.NoError(t, b.Tick(time.Now()))
	require.NoError(t, b.Tick(time.Now()))

	assert.Equal(t, 1, len(f.Created()), "factory should be asked to spawn exactly once while no worker has appeared")
}

// TestDispatchOrdering covers spec.md §8 S6.
func TestDispatchOrdering(t *testing.T) {
	tr := &fakeTransport{}
	f := factory.NewFakeFactory(4, meshType)
	b := New(tr, f, time.Second, 3)

	a, bID, c := uuid.New(), uuid.New(), uuid.New()
	withFixedJobID(a, func() {
		tr.queueClient("c1", clientRequest(proto.MakeMesh, meshType, []byte("A")))
		require.NoError(t, b.Tick(time.Now()))
	})
	withFixedJobID(bID, func() {
		tr.queueClient("c1", clientRequest(proto.MakeMesh, meshType, []byte("B")))
		require.NoError(t, b.Tick(time.Now()))
	})
	withFixedJobID(c, func() {
		tr.queueClient("c1", clientRequest(proto.MakeMesh, meshType, []byte("C")))
		require.NoError(t, b.Tick(time.Now()))
	})

	b.pool.AddWorker("w1", meshType)
	require.NoError(t, b.pool.ReadyForWork("w1"))
	b.pool.AddWorker("w2", meshType)
	require.NoError(t, b.pool.ReadyForWork("w2"))

	require.NoError(t, b.Tick(time.Now()))

	require.Len(t, tr.toWorker, 2)
	first, err := codec.Decode(tr.toWorker[0].envelope)
	require.NoError(t, err)
	firstJob, err := codec.DecodeJobDescriptor(first.Payload)
	require.NoError(t, err)
	assert.Equal(t, a, firstJob.ID)

	second, err := codec.Decode(tr.toWorker[1].envelope)
	require.NoError(t, err)
	secondJob, err := codec.DecodeJobDescriptor(second.Payload)
	require.NoError(t, err)
	assert.Equal(t, bID, secondJob.ID)

	assert.True(t, b.queue.HaveId(c))
}
