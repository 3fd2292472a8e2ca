package http

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/service/tropo"
	"github.com/secmon-lab/switchboard/pkg/utils/errutil"
	"github.com/secmon-lab/switchboard/pkg/utils/logging"
	"github.com/secmon-lab/switchboard/pkg/utils/safe"
)

// tropoWebhookHandler posts an inbound SMS into the customer room. Tropo
// always gets a document to say back; failures only change the phrase.
func (s *Server) tropoWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	phrase := s.messages.Received
	if err := s.postInboundSMS(r); err != nil {
		errutil.Handle(ctx, err, "failed to handle inbound SMS")
		phrase = s.messages.Failed
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	safe.Write(ctx, w, tropo.NewSayResponse(phrase).Render())
}

func (s *Server) postInboundSMS(r *http.Request) error {
	ctx := r.Context()

	session, err := tropo.ParseSession(r.Body)
	if err != nil {
		return goerr.Wrap(err, "invalid tropo session")
	}
	customerID, err := session.CustomerID()
	if err != nil {
		return err
	}

	result, err := s.customerUC.PostMessage(ctx, customerID, &model.OutboundMessage{Text: session.InitialText})
	if err != nil {
		return goerr.Wrap(err, "failed to post inbound SMS", goerr.V("session_id", session.ID))
	}

	logging.From(ctx).Info("inbound SMS posted",
		"customer_id", customerID.String(),
		"room_id", result.Room.ID,
		"new_customer", result.Created,
	)
	return nil
}
