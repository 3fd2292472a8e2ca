package types

import (
	"strings"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
)

// MaxCustomerIDLength bounds the identifier since it doubles as a room title
const MaxCustomerIDLength = 64

// CustomerID is the opaque identifier correlating an SMS conversation with
// a chat room. In practice it is the customer's phone number.
type CustomerID string

// NewCustomerID trims surrounding whitespace and validates the identifier
func NewCustomerID(s string) (CustomerID, error) {
	id := CustomerID(strings.TrimSpace(s))
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate checks if the CustomerID is valid
func (c CustomerID) Validate() error {
	if c == "" {
		return goerr.New("customer ID cannot be empty")
	}
	if len(c) > MaxCustomerIDLength {
		return goerr.New("customer ID is too long", goerr.V("length", len(c)))
	}
	for _, r := range string(c) {
		if unicode.IsControl(r) {
			return goerr.New("customer ID contains control characters", goerr.V("id", string(c)))
		}
	}
	return nil
}

// String returns the string representation of CustomerID
func (c CustomerID) String() string {
	return string(c)
}
