package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/usecase"
	"github.com/secmon-lab/switchboard/pkg/utils/errutil"
	"github.com/secmon-lab/switchboard/pkg/utils/logging"
)

const (
	sparkEventMessage     = "message"
	sparkEventCreated     = "created"
	sparkResourceMessages = "messages"
)

// sparkEnvelope is the webhook delivery document of the messaging platform
type sparkEnvelope struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Resource string          `json:"resource"`
	Event    *string         `json:"event"`
	Data     json.RawMessage `json:"data"`
}

// parseSparkWebhook validates the delivery and decodes its message
func parseSparkWebhook(body []byte) (*model.ChatMessage, error) {
	var env sparkEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, goerr.Wrap(usecase.ErrValidation, "webhook body is not a JSON object", goerr.V("cause", err.Error()))
	}
	if env.Event == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, goerr.Wrap(usecase.ErrValidation, "webhook body requires event and data")
	}

	// Registered room webhooks deliver resource=messages, event=created
	event := *env.Event
	if event != sparkEventMessage && !(event == sparkEventCreated && env.Resource == sparkResourceMessages) {
		return nil, goerr.Wrap(usecase.ErrValidation, "unsupported webhook event",
			goerr.V("event", event),
			goerr.V("resource", env.Resource),
		)
	}

	var msg model.ChatMessage
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return nil, goerr.Wrap(usecase.ErrValidation, "webhook data is not a message", goerr.V("cause", err.Error()))
	}
	if err := msg.Validate(); err != nil {
		return nil, goerr.Wrap(errors.Join(usecase.ErrValidation, err), "invalid webhook message")
	}
	return &msg, nil
}

func (s *Server) sparkWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}

	msg, err := parseSparkWebhook(body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	secret := s.relayUC.SecretFor(ctx, msg.RoomID)
	if err := model.VerifySignature(secret, body, r.Header.Get(model.SignatureHeader)); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(errors.Join(usecase.ErrAuthentication, err), "spark signature verification failed",
			goerr.V("room_id", msg.RoomID),
		), http.StatusBadRequest)
		return
	}

	result, err := s.relayUC.HandleChatMessage(ctx, msg)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, relayStatus(err))
		return
	}

	logging.From(ctx).Debug("chat message handled",
		"outcome", string(result.Outcome),
		"room_id", msg.RoomID,
	)
	writeOK(w, r)
}

// relayStatus maps relay errors to response codes
func relayStatus(err error) int {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrDeliveryFailed), errors.Is(err, usecase.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
