package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var processed int32
	done := make(chan struct{}, 3)
	q := NewQueue[string]("test", func(ctx context.Context, job Job[string]) error {
		atomic.AddInt32(&processed, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, payload := range []string{"a", "b", "c"} {
		_, err := q.TryEnqueue(payload)
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&processed))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue[int]("retry", func(ctx context.Context, job Job[int]) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 5, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.TryEnqueue(1)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueRejectsWhenNotStarted(t *testing.T) {
	q := NewQueue[int]("idle", func(ctx context.Context, job Job[int]) error { return nil }, QueueConfig{})
	_, err := q.TryEnqueue(1)
	assert.Error(t, err)
}

func TestQueueReportsFullBuffer(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue[int]("full", func(ctx context.Context, job Job[int]) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	var fullErr error
	for i := 0; i < 5; i++ {
		if _, err := q.TryEnqueue(i); err != nil {
			fullErr = err
			break
		}
	}
	require.Error(t, fullErr)
	assert.ErrorIs(t, fullErr, ErrQueueFull)
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	var processed int32
	q := NewQueue[int]("drain", func(ctx context.Context, job Job[int]) error {
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, ctx.Err())
		atomic.AddInt32(&processed, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8, DrainTimeout: 2 * time.Second})
	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		_, err := q.TryEnqueue(i)
		require.NoError(t, err)
	}
	q.Stop()

	assert.Equal(t, int32(5), atomic.LoadInt32(&processed))
	_, err := q.TryEnqueue(6)
	assert.Error(t, err)
	q.Stop()
}

func TestQueueStopGivesUpAfterDrainTimeout(t *testing.T) {
	var processed int32
	q := NewQueue[int]("slow", func(ctx context.Context, job Job[int]) error {
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		atomic.AddInt32(&processed, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8, DrainTimeout: 20 * time.Millisecond})
	q.Start(context.Background())

	for i := 0; i < 4; i++ {
		_, err := q.TryEnqueue(i)
		require.NoError(t, err)
	}

	started := time.Now()
	q.Stop()
	assert.Less(t, time.Since(started), 500*time.Millisecond)
	assert.Less(t, atomic.LoadInt32(&processed), int32(4))
}
