package config

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Default customer-facing phrases
const (
	DefaultWelcomeMessage  = "Thanks for signing up! To get in touch, reply to this message or call this number during business hours."
	DefaultReceivedMessage = "We received your message and an agent will get back to you soon."
	DefaultFailedMessage   = "There was a problem receiving your request, please try again later."
	DefaultSignupNotice    = "New customer signed up: %s"
)

// Messages holds the phrases sent to customers and agents
type Messages struct {
	// Welcome is sent by SMS to a new customer
	Welcome string
	// Received acknowledges an inbound SMS that was posted to the room
	Received string
	// Failed acknowledges an inbound SMS that could not be posted
	Failed string
	// SignupNotice is a format string with one %s verb for the customer ID
	SignupNotice string
}

// DefaultMessages returns the built-in phrases
func DefaultMessages() *Messages {
	return &Messages{
		Welcome:      DefaultWelcomeMessage,
		Received:     DefaultReceivedMessage,
		Failed:       DefaultFailedMessage,
		SignupNotice: DefaultSignupNotice,
	}
}

// WithDefaults returns a copy where empty phrases are filled with defaults
func (m *Messages) WithDefaults() *Messages {
	d := DefaultMessages()
	if m == nil {
		return d
	}
	out := *m
	if out.Welcome == "" {
		out.Welcome = d.Welcome
	}
	if out.Received == "" {
		out.Received = d.Received
	}
	if out.Failed == "" {
		out.Failed = d.Failed
	}
	if out.SignupNotice == "" {
		out.SignupNotice = d.SignupNotice
	}
	return &out
}

// ValidateSignupNotice checks that a custom notice formats the customer ID
// exactly once. Empty means the default.
func ValidateSignupNotice(notice string) error {
	if notice == "" {
		return nil
	}
	if n := strings.Count(notice, "%s"); n != 1 || strings.Count(notice, "%") != strings.Count(notice, "%%")*2+1 {
		return goerr.New("signup notice must contain exactly one %s verb", goerr.V("notice", notice))
	}
	return nil
}
