package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, zap.NewNop()), mr
}

func TestQueuePushPopRoundTrip(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	err := q.Push(ctx,
		Task{JobID: "job-1", Email: "a@acme.test", CustomerID: "cust-1"},
		Task{JobID: "job-1", Email: "b@acme.test", CustomerID: "cust-1"},
	)
	require.NoError(t, err)

	first, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "a@acme.test", first.Email)
	assert.Equal(t, "job-1", first.JobID)
	assert.Equal(t, "cust-1", first.CustomerID)

	second, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "b@acme.test", second.Email)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestQueuePopTimeout(t *testing.T) {
	q, _ := testQueue(t)

	task, err := q.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestQueueDropsMalformedPayload(t *testing.T) {
	q, mr := testQueue(t)
	ctx := context.Background()

	_, err := mr.Lpush(TaskList, "{not json")
	require.NoError(t, err)
	require.NoError(t, q.Push(ctx, Task{JobID: "job-2", Email: "ok@acme.test", CustomerID: "cust-1"}))

	task, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, task)

	task, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "ok@acme.test", task.Email)
}

func TestQueueDepth(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx,
		Task{JobID: "j", Email: "1@x.test"},
		Task{JobID: "j", Email: "2@x.test"},
		Task{JobID: "j", Email: "3@x.test"},
	))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, depth)
}
