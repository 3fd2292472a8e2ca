package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"github.com/secmon-lab/switchboard/pkg/utils/errutil"
	"github.com/secmon-lab/switchboard/pkg/utils/logging"
	"golang.org/x/sync/singleflight"
)

// CustomerUseCase maps customers to their rooms
type CustomerUseCase struct {
	uc     *UseCases
	signup *SignupUseCase
	group  singleflight.Group

	// reservation wait backoff
	waitInitial time.Duration
	waitMax     time.Duration
}

// NewCustomerUseCase creates a new CustomerUseCase instance
func NewCustomerUseCase(uc *UseCases, signup *SignupUseCase) *CustomerUseCase {
	return &CustomerUseCase{
		uc:          uc,
		signup:      signup,
		waitInitial: 50 * time.Millisecond,
		waitMax:     time.Second,
	}
}

// Resolution is the room of a customer. Report is set when the room was
// created by this call.
type Resolution struct {
	Room    *model.Room
	Created bool
	Report  *model.SignupReport
}

// ResolveOrCreate returns the room of customerID, creating it through the
// signup workflow on first contact. At most one room is created per
// customer ID, also under concurrent calls.
func (c *CustomerUseCase) ResolveOrCreate(ctx context.Context, customerID types.CustomerID) (*Resolution, error) {
	if err := customerID.Validate(); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrValidation, err), "invalid customer ID")
	}

	existing, err := c.uc.repo.Customer().Get(ctx, customerID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get customer", goerr.V(CustomerIDKey, customerID))
	}
	if existing.IsActive() {
		return &Resolution{Room: existing.Room()}, nil
	}

	v, err, _ := c.group.Do(customerID.String(), func() (any, error) {
		return c.resolve(ctx, customerID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Resolution), nil
}

func (c *CustomerUseCase) resolve(ctx context.Context, customerID types.CustomerID) (*Resolution, error) {
	owner := uuid.NewString()

	reservation, res, err := c.reserve(ctx, customerID, owner)
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}

	res, err = c.bind(ctx, reservation)
	if err != nil {
		if relErr := c.uc.repo.Customer().Release(context.WithoutCancel(ctx), customerID, owner); relErr != nil {
			errutil.Handle(ctx, relErr, "failed to release customer reservation")
		}
		return nil, err
	}
	return res, nil
}

// reserve claims customerID for owner. When another signup holds the claim
// it waits until that signup finishes and returns its room instead.
func (c *CustomerUseCase) reserve(ctx context.Context, customerID types.CustomerID, owner string) (*model.Customer, *Resolution, error) {
	type outcome struct {
		reservation *model.Customer
		resolution  *Resolution
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.waitInitial
	b.MaxInterval = c.waitMax

	op := func() (*outcome, error) {
		until := c.uc.clock().Add(c.uc.reservationTTL)
		current, claimed, err := c.uc.repo.Customer().Reserve(ctx, customerID, c.uc.teamID, owner, until)
		if err != nil {
			return nil, backoff.Permanent(goerr.Wrap(err, "failed to reserve customer", goerr.V(CustomerIDKey, customerID)))
		}
		if claimed {
			return &outcome{reservation: current}, nil
		}
		if current.IsActive() {
			return &outcome{resolution: &Resolution{Room: current.Room()}}, nil
		}
		return nil, errStillReserved
	}

	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(c.uc.resolveTimeout),
	)
	if err != nil {
		if errors.Is(err, errStillReserved) {
			return nil, nil, goerr.Wrap(ErrResolveTimeout, "customer is still reserved",
				goerr.V(CustomerIDKey, customerID),
				goerr.V("timeout", c.uc.resolveTimeout.String()),
			)
		}
		return nil, nil, err
	}

	return result.reservation, result.resolution, nil
}

// bind maps the reserved customer to its room: an existing room titled
// with the customer ID, or a new one from the signup workflow
func (c *CustomerUseCase) bind(ctx context.Context, reservation *model.Customer) (*Resolution, error) {
	if c.uc.webex == nil {
		return nil, goerr.Wrap(ErrNotConfigured, "messaging client is required to resolve customers")
	}

	logger := logging.From(ctx).With(CustomerIDKey, reservation.ID.String())

	rooms, err := c.uc.webex.ListRooms(ctx, reservation.TeamID, model.RoomTypeGroup)
	if err != nil {
		return nil, goerr.Wrap(upstream(err), "failed to list rooms", goerr.V(CustomerIDKey, reservation.ID))
	}

	selected, duplicates := model.SelectCustomerRoom(rooms, reservation.ID)
	if len(duplicates) > 0 {
		ids := make([]string, 0, len(duplicates))
		for _, d := range duplicates {
			ids = append(ids, d.ID)
		}
		logger.Warn("duplicate customer rooms, using the most recently created",
			RoomIDKey, selected.ID,
			"duplicate_room_ids", ids,
		)
	}

	if selected != nil {
		customer := *reservation
		customer.Activate(selected, nil, c.uc.clock())
		if err := c.uc.repo.Customer().Activate(ctx, reservation.ReservedBy, &customer); err != nil {
			return nil, goerr.Wrap(err, "failed to bind existing room", goerr.V(CustomerIDKey, reservation.ID))
		}
		logger.Info("customer bound to existing room", RoomIDKey, selected.ID)
		return &Resolution{Room: selected}, nil
	}

	room, report, err := c.signup.Signup(ctx, reservation)
	if err != nil {
		return nil, err
	}
	return &Resolution{Room: room, Created: true, Report: report}, nil
}

// PostResult is the outcome of posting into a customer room
type PostResult struct {
	MessageID string
	Room      *model.Room
	Created   bool
}

// PostMessage posts msg into the room of customerID, creating the room on
// first contact
func (c *CustomerUseCase) PostMessage(ctx context.Context, customerID types.CustomerID, msg *model.OutboundMessage) (*PostResult, error) {
	if msg == nil || msg.IsEmpty() {
		return nil, goerr.Wrap(ErrValidation, "message has no text, markdown or files", goerr.V(CustomerIDKey, customerID))
	}

	res, err := c.ResolveOrCreate(ctx, customerID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve customer room")
	}

	messageID, err := c.uc.webex.CreateMessage(ctx, res.Room.ID, msg)
	if err != nil {
		return nil, goerr.Wrap(upstream(err), "failed to post message to customer room",
			goerr.V(CustomerIDKey, customerID),
			goerr.V(RoomIDKey, res.Room.ID),
		)
	}

	logging.From(ctx).Info("message posted to customer room",
		CustomerIDKey, customerID.String(),
		RoomIDKey, res.Room.ID,
		"created", res.Created,
	)

	return &PostResult{
		MessageID: messageID,
		Room:      res.Room,
		Created:   res.Created,
	}, nil
}
