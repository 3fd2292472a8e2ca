package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

const (
	WebhookResourceMessages = "messages"
	WebhookEventCreated     = "created"

	webhookSecretBytes = 32
)

// Webhook is a messaging platform subscription delivering created messages
// of one room to the chat webhook endpoint
type Webhook struct {
	ID        string
	Name      string
	TargetURL string
	Resource  string
	Event     string
	Filter    string
	Secret    string
}

// NewRoomWebhook builds the registration for a customer room with a fresh
// random secret
func NewRoomWebhook(room *Room, targetURL string) (*Webhook, error) {
	if room == nil || room.ID == "" {
		return nil, goerr.New("room ID is required for webhook")
	}
	if targetURL == "" {
		return nil, goerr.New("webhook target URL is required", goerr.V("room_id", room.ID))
	}

	secret, err := NewWebhookSecret()
	if err != nil {
		return nil, err
	}

	return &Webhook{
		Name:      room.Title + " messages created",
		TargetURL: targetURL,
		Resource:  WebhookResourceMessages,
		Event:     WebhookEventCreated,
		Filter:    fmt.Sprintf("roomId=%s", room.ID),
		Secret:    secret,
	}, nil
}

// NewWebhookSecret returns a hex encoded secret from crypto/rand
func NewWebhookSecret() (string, error) {
	buf := make([]byte, webhookSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerr.Wrap(err, "failed to generate webhook secret")
	}
	return hex.EncodeToString(buf), nil
}
