package model

import (
	"time"

	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

// SignupStep is the tagged outcome of one signup workflow step
type SignupStep struct {
	Name      types.SignupStepName
	Status    types.SignupStepStatus
	Error     string
	UpdatedAt time.Time
}

// SignupReport records what each step of a customer signup did
type SignupReport struct {
	CustomerID types.CustomerID
	RoomID     string
	Steps      []SignupStep
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewSignupReport returns a report with every step PENDING
func NewSignupReport(customerID types.CustomerID, now time.Time) *SignupReport {
	steps := make([]SignupStep, 0, len(types.AllSignupSteps()))
	for _, name := range types.AllSignupSteps() {
		steps = append(steps, SignupStep{
			Name:      name,
			Status:    types.SignupStepPending,
			UpdatedAt: now,
		})
	}
	return &SignupReport{
		CustomerID: customerID,
		Steps:      steps,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Step returns the step with name, or nil
func (r *SignupReport) Step(name types.SignupStepName) *SignupStep {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// Mark records the outcome of a step. err may be nil.
func (r *SignupReport) Mark(name types.SignupStepName, status types.SignupStepStatus, err error, now time.Time) {
	step := r.Step(name)
	if step == nil {
		r.Steps = append(r.Steps, SignupStep{Name: name})
		step = &r.Steps[len(r.Steps)-1]
	}
	step.Status = status
	step.Error = ""
	if err != nil {
		step.Error = err.Error()
	}
	step.UpdatedAt = now
	r.UpdatedAt = now
}

// Failed returns the names of failed steps
func (r *SignupReport) Failed() []types.SignupStepName {
	var failed []types.SignupStepName
	for _, step := range r.Steps {
		if step.Status == types.SignupStepFailed {
			failed = append(failed, step.Name)
		}
	}
	return failed
}

// Succeeded returns the names of succeeded steps
func (r *SignupReport) Succeeded() []types.SignupStepName {
	var succeeded []types.SignupStepName
	for _, step := range r.Steps {
		if step.Status == types.SignupStepSucceeded {
			succeeded = append(succeeded, step.Name)
		}
	}
	return succeeded
}

// Complete reports whether every step reached a final status
func (r *SignupReport) Complete() bool {
	for _, step := range r.Steps {
		if !step.Status.IsFinal() {
			return false
		}
	}
	return true
}
