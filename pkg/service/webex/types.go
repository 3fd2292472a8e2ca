package webex

import (
	"context"
	"errors"

	"github.com/secmon-lab/switchboard/pkg/domain/model"
)

var (
	// ErrNotFound is returned when the requested resource does not exist
	ErrNotFound = errors.New("webex resource not found")

	// ErrUnexpectedStatus is returned for any other non-2xx response
	ErrUnexpectedStatus = errors.New("unexpected webex response status")
)

// Service provides interface to the Webex REST API used to manage customer
// rooms and relay messages
type Service interface {
	// ListRooms retrieves all rooms of roomType in teamID, following pagination
	ListRooms(ctx context.Context, teamID, roomType string) ([]*model.Room, error)

	// GetRoom retrieves a room by ID. Returns ErrNotFound for unknown rooms.
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)

	// CreateRoom creates a group room titled title in teamID
	CreateRoom(ctx context.Context, title, teamID string) (*model.Room, error)

	// DeleteRoom deletes a room. Deleting an unknown room is not an error.
	DeleteRoom(ctx context.Context, roomID string) error

	// CreateMessage posts msg into roomID and returns the message ID
	CreateMessage(ctx context.Context, roomID string, msg *model.OutboundMessage) (string, error)

	// GetMessage retrieves a message by ID, including its text
	GetMessage(ctx context.Context, messageID string) (*model.ChatMessage, error)

	// CreateWebhook registers hook and returns it with the assigned ID
	CreateWebhook(ctx context.Context, hook *model.Webhook) (*model.Webhook, error)

	// GetMe retrieves the person the access token belongs to.
	// The result is cached for the lifetime of the service instance.
	GetMe(ctx context.Context) (*Person, error)
}

// Person is a Webex user or bot
type Person struct {
	ID          string
	Emails      []string
	DisplayName string
}
