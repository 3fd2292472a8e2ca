package model

import (
	"time"

	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

// RoomTypeGroup is the Webex room type of team spaces
const RoomTypeGroup = "group"

// Room is a chat room owned by the messaging platform. The title of a
// customer room is the customer ID.
type Room struct {
	ID        string
	Title     string
	TeamID    string
	Type      string
	CreatedAt time.Time
}

// CustomerID returns the customer ID a customer room is titled with
func (r *Room) CustomerID() types.CustomerID {
	return types.CustomerID(r.Title)
}

// SelectCustomerRoom returns the room titled customerID. When several rooms
// share the title, the most recently created one wins; the remaining
// candidates are returned as duplicates for the caller to report.
func SelectCustomerRoom(rooms []*Room, customerID types.CustomerID) (selected *Room, duplicates []*Room) {
	for _, room := range rooms {
		if room == nil || room.Title != customerID.String() {
			continue
		}
		if selected == nil {
			selected = room
			continue
		}
		if room.CreatedAt.After(selected.CreatedAt) {
			duplicates = append(duplicates, selected)
			selected = room
		} else {
			duplicates = append(duplicates, room)
		}
	}
	return selected, duplicates
}
