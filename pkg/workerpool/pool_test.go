package workerpool

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMapKeepsInputOrder(t *testing.T) {
	items := []string{"c", "a", "b", "d", "e"}
	out, err := Map(context.Background(), Config{Workers: 3}, items,
		func(_ context.Context, s string) (string, error) {
			return strings.ToUpper(s), nil
		}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B", "D", "E"}, out)
}

func TestMapCollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	out, err := Map(context.Background(), Config{Workers: 2}, []int{1, 2, 3},
		func(_ context.Context, n int) (int, error) {
			if n == 2 {
				return 0, boom
			}
			return n * 10, nil
		}, nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "item 1")
	assert.Equal(t, []int{10, 0, 30}, out)
}

func TestMapEmpty(t *testing.T) {
	out, err := Map(context.Background(), DefaultConfig(), nil,
		func(context.Context, int) (int, error) { return 0, nil }, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSubmitWaitReturnsOwnResult(t *testing.T) {
	pool, err := New(Config{Workers: 4, QueueSize: 16}, func(_ context.Context, task *Task[int]) *Result[int] {
		return &Result[int]{Success: true, Data: task.Payload * 2}
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	pool.Start()
	defer pool.Stop()

	for i := 0; i < 10; i++ {
		res, err := pool.SubmitWait(context.Background(), &Task[int]{ID: "t", Payload: i})
		require.NoError(t, err)
		assert.Equal(t, i*2, res.Data)
	}
	assert.Equal(t, int64(10), pool.Stats().TasksCompleted)
	assert.True(t, pool.IsHealthy())
}

func TestRetries(t *testing.T) {
	var calls int32
	pool, err := New(Config{Workers: 1, QueueSize: 1, MaxRetries: 2, RetryDelay: time.Millisecond},
		func(context.Context, *Task[string]) *Result[string] {
			if atomic.AddInt32(&calls, 1) < 3 {
				return &Result[string]{Error: errors.New("transient")}
			}
			return &Result[string]{Success: true, Data: "ok"}
		}, nil)
	require.NoError(t, err)
	pool.Start()
	defer pool.Stop()

	res, err := pool.SubmitWait(context.Background(), &Task[string]{ID: "r"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "r", res.TaskID)
	assert.Equal(t, int64(2), pool.Stats().TasksRetried)
}

func TestSubmitAfterStop(t *testing.T) {
	pool, err := New(Config{Workers: 1}, func(context.Context, *Task[int]) *Result[int] {
		return &Result[int]{Success: true}
	}, nil)
	require.NoError(t, err)
	pool.Start()
	require.NoError(t, pool.Stop())
	require.NoError(t, pool.Stop())

	assert.ErrorIs(t, pool.Submit(&Task[int]{ID: "late"}), ErrShuttingDown)
}

func TestNewRequiresWorkerFunc(t *testing.T) {
	_, err := New[int, int](Config{}, nil, nil)
	assert.Error(t, err)
}
