package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"github.com/secmon-lab/switchboard/pkg/service/tropo"
	"github.com/secmon-lab/switchboard/pkg/service/webex"
	"github.com/secmon-lab/switchboard/pkg/utils/async"
	"github.com/secmon-lab/switchboard/pkg/utils/errutil"
	"github.com/secmon-lab/switchboard/pkg/utils/logging"
)

// RelayOutcome tells what happened to an inbound chat message
type RelayOutcome string

const (
	// RelayOutcomeSent means the message was sent to the customer by SMS
	RelayOutcomeSent RelayOutcome = "sent"
	// RelayOutcomeWhisper means the message was an agent note
	RelayOutcomeWhisper RelayOutcome = "whisper"
	// RelayOutcomeEcho means the message was posted by this service itself
	RelayOutcomeEcho RelayOutcome = "echo"
	// RelayOutcomeEmpty means the message had no text to send
	RelayOutcomeEmpty RelayOutcome = "empty"
)

// RelayUseCase relays agent messages from customer rooms to customers
type RelayUseCase struct {
	uc *UseCases
}

// NewRelayUseCase creates a new RelayUseCase instance
func NewRelayUseCase(uc *UseCases) *RelayUseCase {
	return &RelayUseCase{uc: uc}
}

// SecretFor returns the secret that signs webhook deliveries of roomID: the
// stored per-room secret of a customer room, else the shared secret. An
// empty result means signatures are not checked.
func (r *RelayUseCase) SecretFor(ctx context.Context, roomID string) string {
	if roomID != "" {
		customer, err := r.uc.repo.Customer().GetByRoomID(ctx, roomID)
		if err != nil {
			errutil.Handle(ctx, err, "failed to look up room secret")
		} else if secret := customer.WebhookSecret(); secret != "" {
			return secret
		}
	}
	return r.uc.sharedSecret
}

// RelayResult is the outcome of HandleChatMessage
type RelayResult struct {
	Outcome    RelayOutcome
	CustomerID types.CustomerID
	Delivery   *tropo.Delivery
}

// HandleChatMessage sends msg to the customer owning its room. Agent notes
// and messages posted by this service are not sent.
func (r *RelayUseCase) HandleChatMessage(ctx context.Context, msg *model.ChatMessage) (*RelayResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrValidation, err), "invalid chat message")
	}
	if msg.IsWhisper() {
		return &RelayResult{Outcome: RelayOutcomeWhisper}, nil
	}
	if r.uc.webex == nil || r.uc.tropo == nil {
		return nil, goerr.Wrap(ErrNotConfigured, "messaging and SMS clients are required to relay")
	}

	logger := logging.From(ctx).With(RoomIDKey, msg.RoomID)

	// Webhook deliveries carry IDs only
	if msg.Text == "" {
		full, err := r.uc.webex.GetMessage(ctx, msg.ID)
		if err != nil {
			return nil, goerr.Wrap(upstream(err), "failed to fetch chat message", goerr.V("message_id", msg.ID))
		}
		if full.RoomID == "" {
			full.RoomID = msg.RoomID
		}
		if full.RoomID != msg.RoomID {
			return nil, goerr.Wrap(ErrValidation, "message belongs to another room",
				goerr.V("message_id", msg.ID),
				goerr.V(RoomIDKey, msg.RoomID),
			)
		}
		msg = full
		if msg.IsWhisper() {
			return &RelayResult{Outcome: RelayOutcomeWhisper}, nil
		}
	}

	me, err := r.uc.webex.GetMe(ctx)
	if err != nil {
		return nil, goerr.Wrap(upstream(err), "failed to identify own account")
	}
	if msg.PersonID != "" && msg.PersonID == me.ID {
		logger.Debug("skip message posted by this service", "message_id", msg.ID)
		return &RelayResult{Outcome: RelayOutcomeEcho}, nil
	}

	customerID, err := r.customerOf(ctx, msg.RoomID)
	if err != nil {
		return nil, err
	}

	if msg.Text == "" {
		logger.Info("skip chat message without text", "message_id", msg.ID)
		return &RelayResult{Outcome: RelayOutcomeEmpty, CustomerID: customerID}, nil
	}

	delivery, err := r.uc.tropo.SendSMS(ctx, customerID, msg.Text)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(ErrDeliveryFailed, ErrUpstream, err), "failed to send SMS to customer",
			goerr.V(CustomerIDKey, customerID),
			goerr.V(RoomIDKey, msg.RoomID),
		)
	}

	logger.Info("chat message sent to customer",
		CustomerIDKey, customerID.String(),
		"session_id", delivery.SessionID,
	)

	return &RelayResult{
		Outcome:    RelayOutcomeSent,
		CustomerID: customerID,
		Delivery:   delivery,
	}, nil
}

// customerOf returns the customer whose room is roomID. Rooms unknown to the
// store are recognized by title and recorded for the next lookup.
func (r *RelayUseCase) customerOf(ctx context.Context, roomID string) (types.CustomerID, error) {
	customer, err := r.uc.repo.Customer().GetByRoomID(ctx, roomID)
	if err != nil {
		return "", goerr.Wrap(err, "failed to look up customer by room", goerr.V(RoomIDKey, roomID))
	}
	if customer.IsActive() {
		return customer.ID, nil
	}

	room, err := r.uc.webex.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, webex.ErrNotFound) {
			return "", goerr.Wrap(ErrNotFound, "room not found", goerr.V(RoomIDKey, roomID))
		}
		return "", goerr.Wrap(upstream(err), "failed to get room", goerr.V(RoomIDKey, roomID))
	}
	if r.uc.teamID != "" && room.TeamID != r.uc.teamID {
		return "", goerr.Wrap(ErrNotFound, "room is not a customer room",
			goerr.V(RoomIDKey, roomID),
			goerr.V("team_id", room.TeamID),
		)
	}

	customerID, err := types.NewCustomerID(room.Title)
	if err != nil {
		return "", goerr.Wrap(errors.Join(ErrNotFound, err), "room title is not a customer ID", goerr.V(RoomIDKey, roomID))
	}

	backfill := &model.Customer{ID: customerID}
	backfill.Activate(room, nil, r.uc.clock())
	async.Dispatch(ctx, func(ctx context.Context) error {
		created, err := r.uc.repo.Customer().Register(ctx, backfill)
		if err != nil {
			return goerr.Wrap(err, "failed to record customer room", goerr.V(CustomerIDKey, customerID))
		}
		if created {
			logging.From(ctx).Info("customer room recorded", CustomerIDKey, customerID.String(), RoomIDKey, roomID)
		}
		return nil
	})

	return customerID, nil
}
