package types

import "fmt"

// TaskKind identifies the handler of a background task
type TaskKind string

const (
	TaskKindWelcomeSMS   TaskKind = "welcome_sms"
	TaskKindSignupLog    TaskKind = "signup_log"
	TaskKindSignupNotify TaskKind = "signup_notify"
)

// AllTaskKinds returns all valid task kinds
func AllTaskKinds() []TaskKind {
	return []TaskKind{
		TaskKindWelcomeSMS,
		TaskKindSignupLog,
		TaskKindSignupNotify,
	}
}

// IsValid checks if the task kind is valid
func (k TaskKind) IsValid() bool {
	switch k {
	case TaskKindWelcomeSMS, TaskKindSignupLog, TaskKindSignupNotify:
		return true
	default:
		return false
	}
}

// SignupStep returns the signup step the task completes
func (k TaskKind) SignupStep() SignupStepName {
	switch k {
	case TaskKindWelcomeSMS:
		return SignupStepWelcomeSMS
	case TaskKindSignupLog:
		return SignupStepLog
	case TaskKindSignupNotify:
		return SignupStepNotify
	default:
		return ""
	}
}

// String returns the string representation of the task kind
func (k TaskKind) String() string {
	return string(k)
}

// ParseTaskKind parses a string into a TaskKind
func ParseTaskKind(s string) (TaskKind, error) {
	kind := TaskKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid task kind: %s", s)
	}
	return kind, nil
}

// TaskStatus represents the state of a background task
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusRunning TaskStatus = "RUNNING"
	TaskStatusDone    TaskStatus = "DONE"
	TaskStatusDead    TaskStatus = "DEAD"
)

// IsValid checks if the task status is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusDone, TaskStatusDead:
		return true
	default:
		return false
	}
}

// String returns the string representation of the task status
func (s TaskStatus) String() string {
	return string(s)
}
