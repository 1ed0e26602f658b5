package session

import "time"

// Message is a chat message as the client sees it
type Message struct {
	ID        string
	RoomID    string
	Sender    string
	Text      string
	Timestamp time.Time
}

// Room is the local copy of the room the user is in. Members is not tracked by
// the backend: it holds the local user and everyone seen sending a message.
type Room struct {
	ID       string
	Code     string
	Creator  string
	IsActive bool
	Members  []string
	Messages []Message
}

// RoomInfo is what the backend reports about a room
type RoomInfo struct {
	ID       string
	Code     string
	Creator  string
	IsActive bool
}

func (r *Room) clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Members = append([]string(nil), r.Members...)
	c.Messages = append([]Message(nil), r.Messages...)
	return &c
}

func (r *Room) indexOf(messageID string) int {
	for i := range r.Messages {
		if r.Messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

func (r *Room) hasMember(nickname string) bool {
	for _, m := range r.Members {
		if m == nickname {
			return true
		}
	}
	return false
}
