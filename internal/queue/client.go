// Package queue moves bulk verification tasks from the API to the
// workers over a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TaskList is the Redis list the workers block on.
const TaskList = "verify:tasks"

// Task is one address from a bulk job.
type Task struct {
	JobID      string `json:"job_id"`
	Email      string `json:"email"`
	CustomerID string `json:"customer_id"`
}

type Queue struct {
	rdb *redis.Client
	log *zap.Logger
}

func New(rdb *redis.Client, logger *zap.Logger) *Queue {
	return &Queue{rdb: rdb, log: logger.Named("queue")}
}

// Push appends tasks for the workers in one round trip.
func (q *Queue) Push(ctx context.Context, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}
	payloads := make([]interface{}, 0, len(tasks))
	for _, t := range tasks {
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode task: %w", err)
		}
		payloads = append(payloads, raw)
	}
	if err := q.rdb.RPush(ctx, TaskList, payloads...).Err(); err != nil {
		return fmt.Errorf("push tasks: %w", err)
	}
	return nil
}

// Pop blocks until a task arrives or timeout passes. A nil task with a
// nil error means the timeout hit; callers just loop. A payload that does
// not decode is dropped, not retried, so one bad entry cannot wedge the
// list.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := q.rdb.BLPop(ctx, timeout, TaskList).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop task: %w", err)
	}

	// BLPOP returns [list, value].
	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		q.log.Warn("dropping malformed task", zap.String("raw", res[1]))
		return nil, nil
	}
	return &task, nil
}

// Depth reports how many tasks are waiting.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, TaskList).Result()
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}
