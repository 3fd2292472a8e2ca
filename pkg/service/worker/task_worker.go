package worker

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/interfaces"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/utils/errutil"
	"github.com/secmon-lab/switchboard/pkg/utils/logging"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
)

const (
	DefaultInterval     = 2 * time.Second
	DefaultLease        = time.Minute
	DefaultBatchSize    = 10
	DefaultRetryInitial = 5 * time.Second
	DefaultRetryMax     = 5 * time.Minute
)

// TaskHandler executes tasks
type TaskHandler interface {
	// Run executes one attempt of task
	Run(ctx context.Context, task *model.Task) error
	// Abandon is called once a task ran out of attempts
	Abandon(ctx context.Context, task *model.Task, cause error)
}

// TaskWorker polls the task queue and runs due tasks.
//
// Delivery is at least once: a task whose lease expires while running, for
// example because the process died, is handed out again. Handlers must
// tolerate repeats.
type TaskWorker struct {
	repo         interfaces.Repository
	handler      TaskHandler
	interval     time.Duration
	lease        time.Duration
	batchSize    int
	retryInitial time.Duration
	retryMax     time.Duration
	now          func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// TaskWorkerOption is a functional option for TaskWorker
type TaskWorkerOption func(*TaskWorker)

// WithInterval sets the polling interval
func WithInterval(d time.Duration) TaskWorkerOption {
	return func(w *TaskWorker) {
		w.interval = d
	}
}

// WithLease sets how long a task is reserved for a running attempt
func WithLease(d time.Duration) TaskWorkerOption {
	return func(w *TaskWorker) {
		w.lease = d
	}
}

// WithBatchSize sets how many tasks are acquired per poll
func WithBatchSize(n int) TaskWorkerOption {
	return func(w *TaskWorker) {
		w.batchSize = n
	}
}

// WithRetryBackoff sets the delay before the second attempt and its cap
func WithRetryBackoff(initial, max time.Duration) TaskWorkerOption {
	return func(w *TaskWorker) {
		w.retryInitial = initial
		w.retryMax = max
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) TaskWorkerOption {
	return func(w *TaskWorker) {
		w.now = now
	}
}

// NewTaskWorker creates a new worker running tasks with handler
func NewTaskWorker(repo interfaces.Repository, handler TaskHandler, opts ...TaskWorkerOption) *TaskWorker {
	w := &TaskWorker{
		repo:         repo,
		handler:      handler,
		interval:     DefaultInterval,
		lease:        DefaultLease,
		batchSize:    DefaultBatchSize,
		retryInitial: DefaultRetryInitial,
		retryMax:     DefaultRetryMax,
		now:          time.Now,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start begins the background polling loop. It does not block.
func (w *TaskWorker) Start(ctx context.Context) error {
	logging.Default().Info("Task worker starting",
		"interval", w.interval.String(),
		"lease", w.lease.String(),
	)

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for the running batch to finish
func (w *TaskWorker) Stop() {
	w.stopOnce.Do(func() {
		logging.Default().Info("Task worker stopping")
		close(w.stopCh)
		<-w.doneCh
		logging.Default().Info("Task worker stopped")
	})
}

// run is the main worker loop (runs in goroutine)
func (w *TaskWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			// Log error but continue worker
			errutil.Handle(ctx, err, "Task poll failed (will retry next interval)")
		}

		select {
		case <-ticker.C:
		case <-w.stopCh:
			logging.Default().Info("Task worker received stop signal")
			return
		case <-ctx.Done():
			logging.Default().Info("Task worker context cancelled")
			return
		}
	}
}

// RunOnce acquires due tasks and runs them. It returns the number of tasks
// attempted.
func (w *TaskWorker) RunOnce(ctx context.Context) (int, error) {
	tasks, err := w.repo.Task().Acquire(ctx, w.now().UTC(), w.lease, w.batchSize)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to acquire tasks")
	}

	for _, task := range tasks {
		w.attempt(ctx, task)
	}
	return len(tasks), nil
}

func (w *TaskWorker) attempt(ctx context.Context, task *model.Task) {
	logger := logging.From(ctx).With(
		"task_id", task.ID.String(),
		"kind", task.Kind.String(),
		"attempt", task.Attempts,
	)

	runErr := w.handler.Run(ctx, task)
	now := w.now().UTC()

	if runErr == nil {
		if err := w.repo.Task().Complete(ctx, task.ID, now); err != nil {
			errutil.Handle(ctx, err, "failed to complete task")
		}
		logger.Info("Task done")
		return
	}

	if task.Exhausted() {
		errutil.Handle(ctx, runErr, "Task failed permanently")
		if err := w.repo.Task().Bury(ctx, task.ID, runErr.Error(), now); err != nil {
			errutil.Handle(ctx, err, "failed to bury task")
		}
		w.handler.Abandon(ctx, task, runErr)
		return
	}

	next := now.Add(retry.Delay(task.Attempts, w.retryInitial, w.retryMax))
	logger.Warn("Task failed, rescheduled",
		"error", runErr.Error(),
		"next_attempt_at", next,
	)
	if err := w.repo.Task().Retry(ctx, task.ID, next, runErr.Error(), now); err != nil {
		errutil.Handle(ctx, err, "failed to reschedule task")
	}
}
