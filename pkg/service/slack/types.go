package slack

import (
	"context"
)

// Service posts operational notices to a Slack channel
type Service interface {
	// PostMessage posts text to the configured channel and returns the
	// message timestamp
	PostMessage(ctx context.Context, text string) (string, error)
}
