package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/interfaces"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"github.com/secmon-lab/switchboard/pkg/utils/errutil"
	"github.com/secmon-lab/switchboard/pkg/utils/logging"
)

// SignupUseCase creates the room of a first-contact customer and dispatches
// the follow-up side effects as durable tasks
type SignupUseCase struct {
	uc *UseCases
}

// NewSignupUseCase creates a new SignupUseCase instance
func NewSignupUseCase(uc *UseCases) *SignupUseCase {
	return &SignupUseCase{uc: uc}
}

// taskEnabled reports whether the task kind has a service to run it
func (s *SignupUseCase) taskEnabled(kind types.TaskKind) bool {
	switch kind {
	case types.TaskKindWelcomeSMS:
		return s.uc.tropo != nil
	case types.TaskKindSignupLog:
		return s.uc.sheets != nil
	case types.TaskKindSignupNotify:
		return s.uc.slack != nil
	}
	return false
}

// Signup runs the signup workflow for a customer whose ID is reserved by
// reservation.ReservedBy. The returned report records the outcome of every
// step, also on failure. Room or webhook failure leaves no room behind.
func (s *SignupUseCase) Signup(ctx context.Context, reservation *model.Customer) (*model.Room, *model.SignupReport, error) {
	if reservation == nil || reservation.ReservedBy == "" {
		return nil, nil, goerr.New("signup requires a reservation")
	}
	if s.uc.webex == nil {
		return nil, nil, goerr.Wrap(ErrNotConfigured, "messaging client is required for signup")
	}

	logger := logging.From(ctx).With(CustomerIDKey, reservation.ID.String())
	id := reservation.ID
	report := model.NewSignupReport(id, s.uc.clock())

	fail := func(cause error, msg string) (*model.Room, *model.SignupReport, error) {
		for _, step := range report.Steps {
			if step.Status == types.SignupStepPending {
				report.Mark(step.Name, types.SignupStepSkipped, nil, s.uc.clock())
			}
		}
		s.saveReport(ctx, report)
		return nil, report, goerr.Wrap(errors.Join(ErrSignupFailed, cause), msg,
			goerr.V(CustomerIDKey, id),
			goerr.V("failed_steps", report.Failed()),
		)
	}

	// 1. room
	room, err := s.uc.webex.CreateRoom(ctx, id.String(), reservation.TeamID)
	if err != nil {
		report.Mark(types.SignupStepRoom, types.SignupStepFailed, err, s.uc.clock())
		return fail(upstream(err), "failed to create customer room")
	}
	report.RoomID = room.ID
	report.Mark(types.SignupStepRoom, types.SignupStepSucceeded, nil, s.uc.clock())
	logger.Info("customer room created", RoomIDKey, room.ID)

	// 2. webhook
	hook, err := model.NewRoomWebhook(room, s.uc.webhookURL)
	if err == nil {
		hook, err = s.uc.webex.CreateWebhook(ctx, hook)
	}
	if err != nil {
		report.Mark(types.SignupStepWebhook, types.SignupStepFailed, err, s.uc.clock())
		s.compensateRoom(ctx, report, room)
		return fail(upstream(err), "failed to register room webhook")
	}
	report.Mark(types.SignupStepWebhook, types.SignupStepSucceeded, nil, s.uc.clock())

	// 3. bind the customer record
	customer := *reservation
	customer.Activate(room, hook, s.uc.clock())
	if err := s.uc.repo.Customer().Activate(ctx, reservation.ReservedBy, &customer); err != nil {
		// Without the mapping the room would be orphaned, or duplicate
		// another signup's room when the reservation was lost
		s.compensateRoom(ctx, report, room)
		if errors.Is(err, interfaces.ErrReservationLost) {
			return fail(err, "reservation lost during signup")
		}
		return fail(err, "failed to store customer")
	}

	// 4-6. follow-up tasks. Steps turn QUEUED before the task exists so a
	// fast worker's result is never overwritten.
	var queued []types.TaskKind
	for _, kind := range types.AllTaskKinds() {
		if !s.taskEnabled(kind) {
			report.Mark(kind.SignupStep(), types.SignupStepSkipped, nil, s.uc.clock())
			continue
		}
		report.Mark(kind.SignupStep(), types.SignupStepQueued, nil, s.uc.clock())
		queued = append(queued, kind)
	}
	s.saveReport(ctx, report)

	for _, kind := range queued {
		task := model.NewTask(kind, id, s.uc.clock())
		if err := s.uc.repo.Task().Enqueue(ctx, task); err != nil {
			errutil.Handle(ctx, err, "failed to enqueue signup task")
			report.Mark(kind.SignupStep(), types.SignupStepFailed, err, s.uc.clock())
			if err := s.uc.repo.Signup().MarkStep(ctx, id, kind.SignupStep(), types.SignupStepFailed, err, s.uc.clock()); err != nil {
				errutil.Handle(ctx, err, "failed to record enqueue failure")
			}
			continue
		}
		logger.Debug("signup task queued", TaskIDKey, task.ID.String(), "kind", kind.String())
	}

	logger.Info("customer signed up",
		RoomIDKey, room.ID,
		"failed_steps", report.Failed(),
	)
	return room, report, nil
}

// compensateRoom deletes a room the failed signup created
func (s *SignupUseCase) compensateRoom(ctx context.Context, report *model.SignupReport, room *model.Room) {
	// Compensation must run even if the request was cancelled
	ctx = context.WithoutCancel(ctx)

	if err := s.uc.webex.DeleteRoom(ctx, room.ID); err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to delete room of failed signup",
			goerr.V(RoomIDKey, room.ID),
			goerr.V(CustomerIDKey, report.CustomerID),
		), "signup compensation failed")
		report.Mark(types.SignupStepRoom, types.SignupStepFailed, err, s.uc.clock())
		return
	}
	report.Mark(types.SignupStepRoom, types.SignupStepCompensated, nil, s.uc.clock())
}

func (s *SignupUseCase) saveReport(ctx context.Context, report *model.SignupReport) {
	if err := s.uc.repo.Signup().Put(context.WithoutCancel(ctx), report); err != nil {
		errutil.Handle(ctx, err, "failed to save signup report")
	}
}

// Report returns the stored signup report of a customer, or nil
func (s *SignupUseCase) Report(ctx context.Context, id types.CustomerID) (*model.SignupReport, error) {
	report, err := s.uc.repo.Signup().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get signup report", goerr.V(CustomerIDKey, id))
	}
	return report, nil
}
