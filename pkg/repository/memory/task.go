package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/interfaces"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

type taskRepository struct {
	mu    sync.Mutex
	tasks map[model.TaskID]*model.Task
}

var _ interfaces.TaskRepository = &taskRepository{}

func newTaskRepository() *taskRepository {
	return &taskRepository{
		tasks: make(map[model.TaskID]*model.Task),
	}
}

func copyTask(t *model.Task) *model.Task {
	copied := *t
	return &copied
}

func (r *taskRepository) Enqueue(ctx context.Context, task *model.Task) error {
	if task == nil || task.ID == "" {
		return goerr.New("task ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[task.ID]; exists {
		return goerr.New("task already exists", goerr.V("task_id", task.ID))
	}
	r.tasks[task.ID] = copyTask(task)
	return nil
}

// sortedLocked returns tasks ordered by creation time. Caller holds mu.
func (r *taskRepository) sortedLocked() []*model.Task {
	tasks := make([]*model.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

func (r *taskRepository) Acquire(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.Task, error) {
	if limit <= 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var acquired []*model.Task
	for _, t := range r.sortedLocked() {
		if len(acquired) >= limit {
			break
		}
		if !t.IsDue(now) {
			continue
		}
		t.Status = types.TaskStatusRunning
		t.Attempts++
		t.LeaseUntil = now.Add(lease)
		t.UpdatedAt = now
		acquired = append(acquired, copyTask(t))
	}
	return acquired, nil
}

func (r *taskRepository) update(id model.TaskID, fn func(t *model.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("task_id", id))
	}
	fn(t)
	return nil
}

func (r *taskRepository) Complete(ctx context.Context, id model.TaskID, now time.Time) error {
	return r.update(id, func(t *model.Task) {
		t.Status = types.TaskStatusDone
		t.LeaseUntil = time.Time{}
		t.UpdatedAt = now
	})
}

func (r *taskRepository) Retry(ctx context.Context, id model.TaskID, next time.Time, reason string, now time.Time) error {
	return r.update(id, func(t *model.Task) {
		t.Status = types.TaskStatusPending
		t.NextAttemptAt = next
		t.LeaseUntil = time.Time{}
		t.LastError = reason
		t.UpdatedAt = now
	})
}

func (r *taskRepository) Bury(ctx context.Context, id model.TaskID, reason string, now time.Time) error {
	return r.update(id, func(t *model.Task) {
		t.Status = types.TaskStatusDead
		t.LeaseUntil = time.Time{}
		t.LastError = reason
		t.UpdatedAt = now
	})
}

func (r *taskRepository) Get(ctx context.Context, id model.TaskID) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("task_id", id))
	}
	return copyTask(t), nil
}

func (r *taskRepository) List(ctx context.Context) ([]*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := r.sortedLocked()
	tasks := make([]*model.Task, len(sorted))
	for i, t := range sorted {
		tasks[i] = copyTask(t)
	}
	return tasks, nil
}
