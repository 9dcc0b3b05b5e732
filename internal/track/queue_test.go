package track_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lpforge/lpforge/internal/track"
)

func TestQueue_RunsSubmittedTasks(t *testing.T) {
	q := track.NewQueue(4, time.Second, zap.NewNop())

	var ran atomic.Int32
	for i := 0; i < 4; i++ {
		ok := q.Submit("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		assert.True(t, ok)
	}

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int32(4), ran.Load())
}

func TestQueue_DropsWhenSaturated(t *testing.T) {
	q := track.NewQueue(1, time.Second, zap.NewNop())

	block := make(chan struct{})
	ok := q.Submit("blocker", func(ctx context.Context) error {
		<-block
		return nil
	})
	require.True(t, ok)

	// The single slot is taken, further submissions are dropped
	assert.False(t, q.Submit("dropped", func(ctx context.Context) error {
		t.Error("dropped task must not run")
		return nil
	}))

	close(block)
	require.NoError(t, q.Close(context.Background()))
}

func TestQueue_RejectsAfterClose(t *testing.T) {
	q := track.NewQueue(4, time.Second, zap.NewNop())
	require.NoError(t, q.Close(context.Background()))

	assert.False(t, q.Submit("late", func(ctx context.Context) error {
		return nil
	}))
}

func TestQueue_CloseHonorsDeadline(t *testing.T) {
	q := track.NewQueue(1, time.Minute, zap.NewNop())

	block := make(chan struct{})
	defer close(block)
	require.True(t, q.Submit("stuck", func(ctx context.Context) error {
		<-block
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)
}

func TestQueue_TaskContextHasTimeout(t *testing.T) {
	q := track.NewQueue(1, time.Second, zap.NewNop())

	deadlineSet := make(chan bool, 1)
	require.True(t, q.Submit("deadline", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		deadlineSet <- ok
		return nil
	}))

	require.NoError(t, q.Close(context.Background()))
	assert.True(t, <-deadlineSet)
}
