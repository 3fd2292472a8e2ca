package tropo

import (
	"context"
	"errors"

	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

// ErrUnexpectedStatus is returned when Tropo answers with a non-2xx status
var ErrUnexpectedStatus = errors.New("unexpected tropo response status")

// Service sends outbound SMS through the Tropo session API
type Service interface {
	// SendSMS sends text to the customer's number. A non-2xx answer is an
	// error wrapping ErrUnexpectedStatus.
	SendSMS(ctx context.Context, to types.CustomerID, text string) (*Delivery, error)
}

// Delivery is the outcome of an accepted send request
type Delivery struct {
	StatusCode int
	SessionID  string
	Success    bool
}
