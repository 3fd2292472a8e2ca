package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/switchboard/pkg/domain/model"
)

// TaskRepository is a durable queue of background tasks with leases
type TaskRepository interface {
	// Enqueue stores a new task
	Enqueue(ctx context.Context, task *model.Task) error

	// Acquire leases up to limit due tasks: each one is marked RUNNING, its
	// attempt counter incremented and its lease set to now+lease.
	Acquire(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.Task, error)

	// Complete marks a task DONE
	Complete(ctx context.Context, id model.TaskID, now time.Time) error

	// Retry puts a task back to PENDING, due at next
	Retry(ctx context.Context, id model.TaskID, next time.Time, reason string, now time.Time) error

	// Bury marks a task DEAD; it is never handed out again
	Bury(ctx context.Context, id model.TaskID, reason string, now time.Time) error

	// Get retrieves a task by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id model.TaskID) (*model.Task, error)

	// List returns all tasks ordered by creation time
	List(ctx context.Context) ([]*model.Task, error)
}
