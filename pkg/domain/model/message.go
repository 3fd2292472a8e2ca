package model

import (
	"github.com/m-mizutani/goerr/v2"
)

// ChatMessage is a message created in a chat room, as delivered by the
// messaging platform webhook
type ChatMessage struct {
	ID              string   `json:"id"`
	RoomID          string   `json:"roomId"`
	PersonID        string   `json:"personId"`
	PersonEmail     string   `json:"personEmail"`
	Text            string   `json:"text"`
	Markdown        string   `json:"markdown"`
	MentionedPeople []string `json:"mentionedPeople"`
}

// IsWhisper reports whether the message is an internal agent note.
// Agents mention each other to exchange notes the customer must not see.
func (m *ChatMessage) IsWhisper() bool {
	return len(m.MentionedPeople) > 0
}

// Validate checks that the message can be routed to a customer
func (m *ChatMessage) Validate() error {
	if m.RoomID == "" {
		return goerr.New("room ID is required")
	}
	if m.Text == "" && m.ID == "" {
		return goerr.New("message text or ID is required", goerr.V("room_id", m.RoomID))
	}
	return nil
}

// OutboundMessage is a message to post into a customer room
type OutboundMessage struct {
	Text     string
	Markdown string
	Files    []string
}

// IsEmpty reports whether the message has nothing to post
func (m *OutboundMessage) IsEmpty() bool {
	return m.Text == "" && m.Markdown == "" && len(m.Files) == 0
}
