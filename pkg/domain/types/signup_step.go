package types

// SignupStepName identifies one step of the signup workflow
type SignupStepName string

const (
	SignupStepRoom       SignupStepName = "room"
	SignupStepWebhook    SignupStepName = "webhook"
	SignupStepWelcomeSMS SignupStepName = "welcome_sms"
	SignupStepLog        SignupStepName = "signup_log"
	SignupStepNotify     SignupStepName = "signup_notify"
)

// AllSignupSteps returns signup steps in execution order
func AllSignupSteps() []SignupStepName {
	return []SignupStepName{
		SignupStepRoom,
		SignupStepWebhook,
		SignupStepWelcomeSMS,
		SignupStepLog,
		SignupStepNotify,
	}
}

// String returns the string representation of the step name
func (s SignupStepName) String() string {
	return string(s)
}

// SignupStepStatus is the tagged outcome of a signup step
type SignupStepStatus string

const (
	SignupStepPending     SignupStepStatus = "PENDING"
	SignupStepSucceeded   SignupStepStatus = "SUCCEEDED"
	SignupStepFailed      SignupStepStatus = "FAILED"
	SignupStepQueued      SignupStepStatus = "QUEUED"
	SignupStepSkipped     SignupStepStatus = "SKIPPED"
	SignupStepCompensated SignupStepStatus = "COMPENSATED"
)

// IsFinal reports whether no further transition is expected
func (s SignupStepStatus) IsFinal() bool {
	switch s {
	case SignupStepSucceeded, SignupStepFailed, SignupStepSkipped, SignupStepCompensated:
		return true
	default:
		return false
	}
}

// String returns the string representation of the step status
func (s SignupStepStatus) String() string {
	return string(s)
}
