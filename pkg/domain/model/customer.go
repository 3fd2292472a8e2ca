package model

import (
	"time"

	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

// Customer maps a customer ID to its chat room. The record exists in
// RESERVED state while a signup owns the customer ID and becomes ACTIVE
// once the room is bound.
type Customer struct {
	ID            types.CustomerID
	TeamID        string
	RoomID        string
	Status        types.CustomerStatus
	ReservedBy    string
	ReservedUntil time.Time
	Webhook       *Webhook
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive reports whether the customer is bound to a room
func (c *Customer) IsActive() bool {
	return c != nil && c.Status == types.CustomerStatusActive && c.RoomID != ""
}

// ReservationExpired reports whether a RESERVED record can be taken over
func (c *Customer) ReservationExpired(now time.Time) bool {
	return c.Status == types.CustomerStatusReserved && !c.ReservedUntil.After(now)
}

// Room returns the bound room of an active customer
func (c *Customer) Room() *Room {
	if !c.IsActive() {
		return nil
	}
	return &Room{
		ID:     c.RoomID,
		Title:  c.ID.String(),
		TeamID: c.TeamID,
		Type:   RoomTypeGroup,
	}
}

// WebhookSecret returns the secret of the registered room webhook, if any
func (c *Customer) WebhookSecret() string {
	if c == nil || c.Webhook == nil {
		return ""
	}
	return c.Webhook.Secret
}

// Activate binds the customer to room and clears the reservation
func (c *Customer) Activate(room *Room, webhook *Webhook, now time.Time) {
	c.RoomID = room.ID
	c.TeamID = room.TeamID
	c.Status = types.CustomerStatusActive
	c.Webhook = webhook
	c.ReservedBy = ""
	c.ReservedUntil = time.Time{}
	c.UpdatedAt = now
}
