package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

// DefaultTaskMaxAttempts is used when a task is enqueued without a limit
const DefaultTaskMaxAttempts = 5

// TaskID is a UUID-based identifier for Task
type TaskID string

// NewTaskID generates a new UUID v4 TaskID
func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

// String returns the string representation of TaskID
func (id TaskID) String() string {
	return string(id)
}

// Task is a durable unit of background work. Delivery is at least once:
// a RUNNING task whose lease expired is handed out again.
type Task struct {
	ID            TaskID
	Kind          types.TaskKind
	CustomerID    types.CustomerID
	Status        types.TaskStatus
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
	LeaseUntil    time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewTask returns a PENDING task due now
func NewTask(kind types.TaskKind, customerID types.CustomerID, now time.Time) *Task {
	return &Task{
		ID:            NewTaskID(),
		Kind:          kind,
		CustomerID:    customerID,
		Status:        types.TaskStatusPending,
		MaxAttempts:   DefaultTaskMaxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsDue reports whether the task can be acquired at now
func (t *Task) IsDue(now time.Time) bool {
	switch t.Status {
	case types.TaskStatusPending:
		return !t.NextAttemptAt.After(now)
	case types.TaskStatusRunning:
		return !t.LeaseUntil.After(now)
	default:
		return false
	}
}

// Exhausted reports whether no attempt is left
func (t *Task) Exhausted() bool {
	return t.MaxAttempts > 0 && t.Attempts >= t.MaxAttempts
}
