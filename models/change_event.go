package models

import "time"

// Table names used in change events
const (
	TableRooms    = "rooms"
	TableMessages = "messages"
)

// EventType is the kind of row change carried by a ChangeEvent
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is a notification that a row in one of the room tables changed.
// Message is set for message inserts, Room for room updates and OldID for deletes.
type ChangeEvent struct {
	Table      string    `json:"table"`
	Type       EventType `json:"type"`
	RoomID     string    `json:"room_id"`
	Message    *Message  `json:"message,omitempty"`
	Room       *Room     `json:"room,omitempty"`
	OldID      string    `json:"old_id,omitempty"`
	CommitDate time.Time `json:"commit_date"`
}

// Topic identifies a stream of change events for a single room
type Topic struct {
	Table  string
	Type   EventType
	RoomID string
}

// Topic returns the topic the event belongs to
func (e *ChangeEvent) Topic() Topic {
	return Topic{
		Table:  e.Table,
		Type:   e.Type,
		RoomID: e.RoomID,
	}
}
