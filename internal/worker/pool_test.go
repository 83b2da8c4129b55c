package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoReturnsResult(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	v, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = Do(context.Background(), p, func(ctx context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)
}

func TestHungJobBlocksItsSlot(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _ = Do(context.Background(), p, func(ctx context.Context) (struct{}, error) {
			close(started)
			<-release
			return struct{}{}, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	v, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 2, nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.NoError(t, p.Close())
}

func TestAbandonedJobRunsToCompletion(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	finished := make(chan error, 1)

	go func() {
		<-started
		cancel()
	}()
	_, err := Do(ctx, p, func(jobCtx context.Context) (int, error) {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished <- jobCtx.Err()
		return 7, nil
	})
	require.ErrorIs(t, err, context.Canceled)

	select {
	case jobErr := <-finished:
		require.NoError(t, jobErr)
	case <-time.After(time.Second):
		t.Fatal("abandoned job did not finish")
	}
}

func TestJobTimeout(t *testing.T) {
	p := NewPool(1, WithJobTimeout(20*time.Millisecond))
	defer p.Close()

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPanickingJob(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		panic("bad pixel")
	})
	require.ErrorContains(t, err, "bad pixel")

	v, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 3, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, v)
}

func TestCloseDrainsQueueAndRejects(t *testing.T) {
	p := NewPool(1, WithQueueSize(4))
	var ran atomic.Int32
	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
				time.Sleep(5 * time.Millisecond)
				ran.Add(1)
				return 0, nil
			})
			results <- err
		}()
	}
	for i := 0; i < 4; i++ {
		err := <-results
		require.NoError(t, err)
	}

	require.NoError(t, p.Close())
	require.Equal(t, int32(4), ran.Load())

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	require.ErrorIs(t, err, ErrPoolClosed)
	require.NoError(t, p.Close())
}
