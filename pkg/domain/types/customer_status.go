package types

import "fmt"

// CustomerStatus represents the lifecycle state of a customer record
type CustomerStatus string

const (
	// CustomerStatusReserved means a signup holds the claim on the customer ID
	CustomerStatusReserved CustomerStatus = "RESERVED"
	// CustomerStatusActive means the customer ID is bound to a room
	CustomerStatusActive CustomerStatus = "ACTIVE"
)

// IsValid checks if the customer status is valid
func (s CustomerStatus) IsValid() bool {
	switch s {
	case CustomerStatusReserved, CustomerStatusActive:
		return true
	default:
		return false
	}
}

// String returns the string representation of the customer status
func (s CustomerStatus) String() string {
	return string(s)
}

// ParseCustomerStatus parses a string into a CustomerStatus
func ParseCustomerStatus(s string) (CustomerStatus, error) {
	status := CustomerStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid customer status: %s", s)
	}
	return status, nil
}
