package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"github.com/secmon-lab/switchboard/pkg/usecase"
	"github.com/secmon-lab/switchboard/pkg/utils/errutil"
)

type customerRoomMessageRequest struct {
	CustomerID string   `json:"customer_id"`
	Text       string   `json:"text"`
	Markdown   string   `json:"markdown"`
	Files      []string `json:"files"`
}

func (s *Server) customerRoomMessagePostHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req customerRoomMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes)).Decode(&req); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(usecase.ErrValidation, "request body is not a JSON object", goerr.V("cause", err.Error())), http.StatusBadRequest)
		return
	}

	customerID, err := types.NewCustomerID(req.CustomerID)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(errors.Join(usecase.ErrValidation, err), "invalid customer_id"), http.StatusBadRequest)
		return
	}

	msg := &model.OutboundMessage{
		Text:     req.Text,
		Markdown: req.Markdown,
		Files:    req.Files,
	}
	if msg.IsEmpty() {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(usecase.ErrValidation, "text, markdown or files is required",
			goerr.V("customer_id", customerID),
		), http.StatusBadRequest)
		return
	}

	if _, err := s.customerUC.PostMessage(ctx, customerID, msg); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrValidation) {
			status = http.StatusBadRequest
		}
		errutil.HandleHTTP(ctx, w, err, status)
		return
	}

	writeOK(w, r)
}
