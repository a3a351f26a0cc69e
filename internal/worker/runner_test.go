package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
	"github.com/ranawaqas-khan/jumpingfox/internal/queue"
)

type stubVerifier struct{}

func (stubVerifier) VerifyOne(_ context.Context, email, _ string) models.VerifyResult {
	return models.VerifyResult{Email: email, Status: models.StatusValid, Confidence: 90}
}

type recordingSink struct {
	mu    sync.Mutex
	saved []string
	fail  map[string]bool
}

func (s *recordingSink) SaveResult(_ context.Context, jobID string, res *models.VerifyResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[res.Email] {
		return fmt.Errorf("insert failed")
	}
	s.saved = append(s.saved, jobID+"/"+res.Email)
	return nil
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saved...)
}

func testRunner(t *testing.T, sink Sink) (*Runner, *queue.Queue) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	q := queue.New(rdb, zap.NewNop())
	return New(q, sink, stubVerifier{}, zap.NewNop()), q
}

func TestRunnerProcessesTasks(t *testing.T) {
	sink := &recordingSink{}
	r, q := testRunner(t, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Push(ctx,
		queue.Task{JobID: "job-1", Email: "a@acme.test", CustomerID: "cust-1"},
		queue.Task{JobID: "job-1", Email: "b@acme.test", CustomerID: "cust-1"},
	))

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}

	assert.Equal(t, []string{"job-1/a@acme.test", "job-1/b@acme.test"}, sink.snapshot())
}

func TestRunnerSkipsFailedSave(t *testing.T) {
	sink := &recordingSink{fail: map[string]bool{"bad@acme.test": true}}
	r, q := testRunner(t, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Push(ctx,
		queue.Task{JobID: "job-2", Email: "bad@acme.test", CustomerID: "cust-1"},
		queue.Task{JobID: "job-2", Email: "good@acme.test", CustomerID: "cust-1"},
	))

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// The failed save drops that task; the next one still lands.
	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, []string{"job-2/good@acme.test"}, sink.snapshot())
}
