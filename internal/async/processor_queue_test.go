package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pallet-tracker/constants"
	"github.com/joseph-ayodele/pallet-tracker/internal/common"
	"github.com/joseph-ayodele/pallet-tracker/internal/pipeline"
)

type fakeProcessor struct {
	mu       sync.Mutex
	paths    []string
	active   atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	failPath string
	sawDL    atomic.Bool
	reqIDs   []string
}

func (f *fakeProcessor) IngestPath(ctx context.Context, path, name string) (*pipeline.Run, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if _, ok := ctx.Deadline(); ok {
		f.sawDL.Store(true)
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.reqIDs = append(f.reqIDs, common.RequestIDFromContext(ctx))
	f.mu.Unlock()

	if path == f.failPath {
		return nil, errors.New("cannot read pdf")
	}
	return &pipeline.Run{DocumentName: name, Status: constants.RunStatusCompleted}, nil
}

func TestQueueProcessesAllJobs(t *testing.T) {
	proc := &fakeProcessor{delay: 20 * time.Millisecond, failPath: "bad.pdf"}

	var mu sync.Mutex
	var results []Result
	q, err := NewProcessorQueue(proc,
		WithWorkers(2),
		WithQueueSize(8),
		WithRunTimeout(time.Minute),
		WithOnComplete(func(r Result) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	paths := []string{"a.pdf", "b.pdf", "bad.pdf", "c.pdf", "d.pdf"}
	for _, p := range paths {
		job := NewJob(p, "")
		job.RequestID = "req-" + p
		require.NoError(t, q.Enqueue(context.Background(), job))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	require.Len(t, results, len(paths))
	assert.ElementsMatch(t, paths, proc.paths)
	assert.LessOrEqual(t, proc.peak.Load(), int32(2))
	assert.True(t, proc.sawDL.Load(), "runs get a deadline")
	assert.Contains(t, proc.reqIDs, "req-a.pdf")

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Equal(t, "bad.pdf", r.Job.Path)
			assert.Nil(t, r.Run)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q, err := NewProcessorQueue(&fakeProcessor{})
	require.NoError(t, err)

	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err = q.Enqueue(context.Background(), NewJob("late.pdf", ""))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestEnqueueRespectsContextWhenFull(t *testing.T) {
	block := make(chan struct{})
	proc := &blockingProcessor{release: block}
	q, err := NewProcessorQueue(proc, WithWorkers(1), WithQueueSize(1))
	require.NoError(t, err)
	defer func() {
		close(block)
		q.Shutdown(context.Background())
	}()

	// one job running, one held by the dispatcher waiting for the worker, one buffered
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(context.Background(), NewJob("x.pdf", "")))
	}
	require.Eventually(t, func() bool { return len(q.ch) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = q.Enqueue(ctx, NewJob("y.pdf", ""))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShutdownReleasesBlockedProducer(t *testing.T) {
	block := make(chan struct{})
	q, err := NewProcessorQueue(&blockingProcessor{release: block}, WithWorkers(1), WithQueueSize(1))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(context.Background(), NewJob("x.pdf", "")))
	}
	require.Eventually(t, func() bool { return len(q.ch) == 1 }, time.Second, 5*time.Millisecond)

	producer := make(chan error, 1)
	go func() { producer <- q.Enqueue(context.Background(), NewJob("blocked.pdf", "")) }()
	time.Sleep(20 * time.Millisecond)

	shutdown := make(chan struct{})
	go func() {
		q.Shutdown(context.Background())
		close(shutdown)
	}()

	select {
	case err := <-producer:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("producer still blocked after shutdown started")
	}

	close(block)
	select {
	case <-shutdown:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not drain")
	}
}

type blockingProcessor struct {
	release chan struct{}
}

func (b *blockingProcessor) IngestPath(context.Context, string, string) (*pipeline.Run, error) {
	<-b.release
	return &pipeline.Run{Status: constants.RunStatusCompleted}, nil
}
