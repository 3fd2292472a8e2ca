package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

// SignupRepository stores signup reports keyed by customer ID
type SignupRepository interface {
	// Put saves the report (upsert)
	Put(ctx context.Context, report *model.SignupReport) error

	// Get retrieves the report of a customer.
	// Returns nil, nil if no report is found.
	Get(ctx context.Context, id types.CustomerID) (*model.SignupReport, error)

	// MarkStep atomically updates one step of an existing report
	MarkStep(ctx context.Context, id types.CustomerID, step types.SignupStepName, status types.SignupStepStatus, stepErr error, now time.Time) error
}
