package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/interfaces"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type taskRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.TaskRepository = &taskRepository{}

func newTaskRepository(client *firestore.Client) *taskRepository {
	return &taskRepository{
		client: client,
	}
}

func (r *taskRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "tasks"))
}

func decodeTask(doc *firestore.DocumentSnapshot) (*model.Task, error) {
	var t model.Task
	if err := doc.DataTo(&t); err != nil {
		return nil, goerr.Wrap(err, "failed to decode task", goerr.V("doc_id", doc.Ref.ID))
	}
	return &t, nil
}

func sortTasks(tasks []*model.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

func (r *taskRepository) Enqueue(ctx context.Context, task *model.Task) error {
	if task == nil || task.ID == "" {
		return goerr.New("task ID is required")
	}

	if _, err := r.collection().Doc(task.ID.String()).Create(ctx, task); err != nil {
		return goerr.Wrap(err, "failed to enqueue task",
			goerr.V("task_id", task.ID),
			goerr.V("kind", task.Kind),
		)
	}
	return nil
}

func (r *taskRepository) Acquire(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.Task, error) {
	if limit <= 0 {
		return nil, nil
	}

	iter := r.collection().
		Where("Status", "in", []string{
			types.TaskStatusPending.String(),
			types.TaskStatusRunning.String(),
		}).
		Documents(ctx)
	defer iter.Stop()

	var candidates []*model.Task
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query tasks")
		}

		t, err := decodeTask(doc)
		if err != nil {
			return nil, err
		}
		if t.IsDue(now) {
			candidates = append(candidates, t)
		}
	}
	sortTasks(candidates)

	var acquired []*model.Task
	for _, candidate := range candidates {
		if len(acquired) >= limit {
			break
		}

		ref := r.collection().Doc(candidate.ID.String())
		var leased *model.Task
		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			leased = nil
			doc, err := tx.Get(ref)
			if err != nil {
				return goerr.Wrap(err, "failed to get task")
			}

			t, err := decodeTask(doc)
			if err != nil {
				return err
			}
			// Another worker may have taken it since the query
			if !t.IsDue(now) {
				return nil
			}

			t.Status = types.TaskStatusRunning
			t.Attempts++
			t.LeaseUntil = now.Add(lease)
			t.UpdatedAt = now
			if err := tx.Set(ref, t); err != nil {
				return goerr.Wrap(err, "failed to lease task")
			}
			leased = t
			return nil
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to acquire task", goerr.V("task_id", candidate.ID))
		}
		if leased != nil {
			acquired = append(acquired, leased)
		}
	}

	return acquired, nil
}

func (r *taskRepository) update(ctx context.Context, id model.TaskID, fn func(t *model.Task)) error {
	ref := r.collection().Doc(id.String())
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return interfaces.ErrNotFound
			}
			return goerr.Wrap(err, "failed to get task")
		}

		t, err := decodeTask(doc)
		if err != nil {
			return err
		}
		fn(t)
		return tx.Set(ref, t)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to update task", goerr.V("task_id", id))
	}
	return nil
}

func (r *taskRepository) Complete(ctx context.Context, id model.TaskID, now time.Time) error {
	return r.update(ctx, id, func(t *model.Task) {
		t.Status = types.TaskStatusDone
		t.LeaseUntil = time.Time{}
		t.UpdatedAt = now
	})
}

func (r *taskRepository) Retry(ctx context.Context, id model.TaskID, next time.Time, reason string, now time.Time) error {
	return r.update(ctx, id, func(t *model.Task) {
		t.Status = types.TaskStatusPending
		t.NextAttemptAt = next
		t.LeaseUntil = time.Time{}
		t.LastError = reason
		t.UpdatedAt = now
	})
}

func (r *taskRepository) Bury(ctx context.Context, id model.TaskID, reason string, now time.Time) error {
	return r.update(ctx, id, func(t *model.Task) {
		t.Status = types.TaskStatusDead
		t.LeaseUntil = time.Time{}
		t.LastError = reason
		t.UpdatedAt = now
	})
}

func (r *taskRepository) Get(ctx context.Context, id model.TaskID) (*model.Task, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("task_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get task", goerr.V("task_id", id))
	}
	return decodeTask(doc)
}

func (r *taskRepository) List(ctx context.Context) ([]*model.Task, error) {
	iter := r.collection().Documents(ctx)
	defer iter.Stop()

	var tasks []*model.Task
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate tasks")
		}

		t, err := decodeTask(doc)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	sortTasks(tasks)
	return tasks, nil
}
