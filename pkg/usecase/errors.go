package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Boundary errors, rejected before use case logic runs
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")

	// A third-party API call failed
	ErrUpstream = errors.New("upstream call failed")

	// A referenced room or customer is absent
	ErrNotFound = errors.New("not found")

	// Workflow errors
	ErrSignupFailed   = errors.New("customer signup failed")
	ErrDeliveryFailed = errors.New("SMS delivery failed")
	ErrResolveTimeout = errors.New("timed out waiting for concurrent signup")
	ErrNotConfigured  = errors.New("service is not configured")
	errStillReserved  = errors.New("customer is reserved by another signup")
)

// Context keys for error values
const (
	CustomerIDKey = "customer_id"
	RoomIDKey     = "room_id"
	TaskIDKey     = "task_id"
)

// upstream tags err as a failed third-party call
func upstream(err error) error {
	return errors.Join(ErrUpstream, err)
}
