package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"github.com/secmon-lab/switchboard/pkg/utils/errutil"
	"github.com/secmon-lab/switchboard/pkg/utils/logging"
)

// TaskUseCase runs the background side effects of a signup
type TaskUseCase struct {
	uc *UseCases
}

// NewTaskUseCase creates a new TaskUseCase instance
func NewTaskUseCase(uc *UseCases) *TaskUseCase {
	return &TaskUseCase{uc: uc}
}

// Run executes one attempt of task and records success on its signup step
func (t *TaskUseCase) Run(ctx context.Context, task *model.Task) error {
	var err error
	switch task.Kind {
	case types.TaskKindWelcomeSMS:
		err = t.sendWelcome(ctx, task)
	case types.TaskKindSignupLog:
		err = t.logSignup(ctx, task)
	case types.TaskKindSignupNotify:
		err = t.notifySignup(ctx, task)
	default:
		err = goerr.New("unknown task kind", goerr.V("kind", task.Kind))
	}
	if err != nil {
		return goerr.Wrap(err, "task attempt failed",
			goerr.V(TaskIDKey, task.ID),
			goerr.V(CustomerIDKey, task.CustomerID),
			goerr.V("attempt", task.Attempts),
		)
	}

	t.markStep(ctx, task, types.SignupStepSucceeded, nil)
	return nil
}

// Abandon records that task will not be attempted again
func (t *TaskUseCase) Abandon(ctx context.Context, task *model.Task, cause error) {
	t.markStep(ctx, task, types.SignupStepFailed, cause)
}

func (t *TaskUseCase) markStep(ctx context.Context, task *model.Task, status types.SignupStepStatus, cause error) {
	if err := t.uc.repo.Signup().MarkStep(ctx, task.CustomerID, task.Kind.SignupStep(), status, cause, t.uc.clock()); err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to record task outcome",
			goerr.V(TaskIDKey, task.ID),
			goerr.V("status", status),
		), "failed to update signup report")
	}
}

func (t *TaskUseCase) sendWelcome(ctx context.Context, task *model.Task) error {
	if t.uc.tropo == nil {
		return goerr.Wrap(ErrNotConfigured, "SMS client is required for welcome message")
	}

	delivery, err := t.uc.tropo.SendSMS(ctx, task.CustomerID, t.uc.messages.Welcome)
	if err != nil {
		return goerr.Wrap(upstream(err), "failed to send welcome SMS")
	}

	logging.From(ctx).Info("welcome SMS sent",
		CustomerIDKey, task.CustomerID.String(),
		"session_id", delivery.SessionID,
	)
	return nil
}

func (t *TaskUseCase) logSignup(ctx context.Context, task *model.Task) error {
	if t.uc.sheets == nil {
		return goerr.Wrap(ErrNotConfigured, "spreadsheet client is required for signup log")
	}

	// The signup time is when the task was created, not when it finally ran
	if err := t.uc.sheets.LogSignup(ctx, task.CustomerID, task.CreatedAt); err != nil {
		return goerr.Wrap(upstream(err), "failed to log signup")
	}
	return nil
}

func (t *TaskUseCase) notifySignup(ctx context.Context, task *model.Task) error {
	if t.uc.slack == nil {
		return goerr.Wrap(ErrNotConfigured, "Slack client is required for signup notice")
	}

	text := fmt.Sprintf(t.uc.messages.SignupNotice, task.CustomerID.String())
	if _, err := t.uc.slack.PostMessage(ctx, text); err != nil {
		return goerr.Wrap(upstream(err), "failed to post signup notice")
	}
	return nil
}
