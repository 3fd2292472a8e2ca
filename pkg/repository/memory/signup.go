package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/interfaces"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

type signupRepository struct {
	mu      sync.RWMutex
	reports map[types.CustomerID]*model.SignupReport
}

var _ interfaces.SignupRepository = &signupRepository{}

func newSignupRepository() *signupRepository {
	return &signupRepository{
		reports: make(map[types.CustomerID]*model.SignupReport),
	}
}

func copyReport(r *model.SignupReport) *model.SignupReport {
	copied := *r
	copied.Steps = make([]model.SignupStep, len(r.Steps))
	copy(copied.Steps, r.Steps)
	return &copied
}

func (r *signupRepository) Put(ctx context.Context, report *model.SignupReport) error {
	if report == nil {
		return goerr.New("signup report is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports[report.CustomerID] = copyReport(report)
	return nil
}

func (r *signupRepository) Get(ctx context.Context, id types.CustomerID) (*model.SignupReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, nil
	}
	return copyReport(report), nil
}

func (r *signupRepository) MarkStep(ctx context.Context, id types.CustomerID, step types.SignupStepName, status types.SignupStepStatus, stepErr error, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.reports[id]
	if !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "signup report not found", goerr.V("customer_id", id))
	}

	report.Mark(step, status, stepErr, now)
	return nil
}
