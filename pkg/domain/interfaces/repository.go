package interfaces

import "errors"

// Sentinel errors returned by repository implementations
var (
	ErrNotFound        = errors.New("not found")
	ErrReservationLost = errors.New("customer reservation is held by another owner")
)

// Repository defines the interface for data persistence
type Repository interface {
	Customer() CustomerRepository
	Signup() SignupRepository
	Task() TaskRepository

	Close() error
}
