// Package worker drains the bulk task queue, verifies each address, and
// persists the outcome.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
	"github.com/ranawaqas-khan/jumpingfox/internal/queue"
)

const (
	popTimeout = 5 * time.Second
	// taskTimeout bounds one verification end to end, probe included.
	taskTimeout = 60 * time.Second
	errorPause  = time.Second
)

// Verifier runs the full pipeline for one address.
type Verifier interface {
	VerifyOne(ctx context.Context, email, customerID string) models.VerifyResult
}

// Sink persists finished verifications.
type Sink interface {
	SaveResult(ctx context.Context, jobID string, res *models.VerifyResult) error
}

type Runner struct {
	queue    *queue.Queue
	sink     Sink
	verifier Verifier
	log      *zap.Logger
}

func New(q *queue.Queue, sink Sink, verifier Verifier, logger *zap.Logger) *Runner {
	return &Runner{queue: q, sink: sink, verifier: verifier, log: logger.Named("worker")}
}

// Run consumes tasks until ctx is canceled. Queue errors back off and
// retry; a failed save drops that task only.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("worker started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		task, err := r.queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Error("queue pop failed", zap.Error(err))
			r.pause(ctx, errorPause)
			continue
		}
		if task == nil {
			continue
		}
		r.process(ctx, task)
	}
}

func (r *Runner) process(ctx context.Context, task *queue.Task) {
	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	res := r.verifier.VerifyOne(taskCtx, task.Email, task.CustomerID)

	if err := r.sink.SaveResult(taskCtx, task.JobID, &res); err != nil {
		r.log.Error("save result failed",
			zap.String("job_id", task.JobID),
			zap.String("email", task.Email),
			zap.Error(err))
		return
	}

	r.log.Info("task done",
		zap.String("job_id", task.JobID),
		zap.String("email", task.Email),
		zap.String("status", string(res.Status)),
		zap.Int("confidence", res.Confidence))
}

func (r *Runner) pause(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
