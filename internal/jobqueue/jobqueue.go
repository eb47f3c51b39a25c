// Package jobqueue is the Redis-backed verification task queue the
// Job Executor (C11) consumes from. A task carries just enough to
// load everything else from Postgres: (workspace_id, lead_id, job_id).
//
// Grounded on the teacher's Redis key-prefix convention
// ("validation:result:", "mx:records:" in smtp-verifier.go) and on
// go-redis/v9's list-based queue idiom (RPush/BLPop), the same
// pattern the teacher already imports go-redis for.
package jobqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const queueKey = "verify:tasks"

// Task is one unit of queued verification work.
type Task struct {
	WorkspaceID string `json:"workspace_id"`
	LeadID      string `json:"lead_id"`
	JobID       string `json:"job_id"`
}

// Queue wraps a Redis client with Enqueue/Dequeue for Task.
type Queue struct {
	rdb *redis.Client
}

// New wraps an existing Redis client.
func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Enqueue pushes t onto the tail of the task list.
func (q *Queue) Enqueue(ctx context.Context, t Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, queueKey, data).Err()
}

// Dequeue blocks up to timeout for the next task, matching worker
// prefetch=1: one task in flight per call. A zero Task and ok=false
// means the timeout elapsed with nothing queued.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (Task, bool, error) {
	res, err := q.rdb.BLPop(ctx, timeout, queueKey).Result()
	if err == redis.Nil {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, err
	}
	// BLPop returns [key, value]; value is the second element.
	if len(res) != 2 {
		return Task{}, false, nil
	}
	var t Task
	if err := json.Unmarshal([]byte(res[1]), &t); err != nil {
		return Task{}, false, err
	}
	return t, true, nil
}
