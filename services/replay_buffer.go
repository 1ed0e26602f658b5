package services

import (
	"context"
	"sync"
	"time"

	"github.com/godocompany/tempchat/models"
)

// RecentEventBuffer holds the last few change events of a single room
type RecentEventBuffer struct {
	MaxLength int
	items     []*models.ChangeEvent
}

// Push appends an event, dropping the oldest one when the buffer is full
func (buf *RecentEventBuffer) Push(event *models.ChangeEvent) {

	if buf.MaxLength <= 0 {
		return
	}

	// If there is still room under the max, add it
	if len(buf.items) < buf.MaxLength {
		buf.items = append(buf.items, event)
		return
	}

	// Move everything over one space and put the new event in the last slot
	copy(buf.items, buf.items[1:])
	buf.items[len(buf.items)-1] = event

}

// GetCopy returns the buffered events, oldest first
func (buf *RecentEventBuffer) GetCopy() []*models.ChangeEvent {
	items := make([]*models.ChangeEvent, len(buf.items))
	copy(items, buf.items)
	return items
}

// ReplayFeed wraps a Feed and remembers the most recent events of every room,
// so the realtime bridges can replay them to a client that subscribes a moment
// after something happened. Clients drop replayed events they already have.
type ReplayFeed struct {
	Feed
	MaxLength int

	// EndedRetention is how long the buffer of an ended room is kept
	EndedRetention time.Duration

	buffers    map[string]*RecentEventBuffer
	buffersMut sync.RWMutex
}

// NewReplayFeed wraps the feed with a replay buffer of the given size per room
func NewReplayFeed(feed Feed, maxLength int) *ReplayFeed {
	return &ReplayFeed{
		Feed:           feed,
		MaxLength:      maxLength,
		EndedRetention: time.Minute,
		buffers:        map[string]*RecentEventBuffer{},
	}
}

func (f *ReplayFeed) Publish(ctx context.Context, event *models.ChangeEvent) error {
	if err := f.Feed.Publish(ctx, event); err != nil {
		return err
	}
	f.push(event)
	if event.Table == models.TableRooms && event.Room != nil && !event.Room.IsActive {
		roomID := event.RoomID
		time.AfterFunc(f.EndedRetention, func() {
			f.Forget(roomID)
		})
	}
	return nil
}

func (f *ReplayFeed) push(event *models.ChangeEvent) {

	f.buffersMut.Lock()
	defer f.buffersMut.Unlock()

	buf, ok := f.buffers[event.RoomID]
	if !ok {
		buf = &RecentEventBuffer{
			MaxLength: f.MaxLength,
		}
		f.buffers[event.RoomID] = buf
	}
	buf.Push(event)

}

// Recent returns the buffered events of a room that belong to the topic
func (f *ReplayFeed) Recent(topic models.Topic) []*models.ChangeEvent {

	f.buffersMut.RLock()
	buf, ok := f.buffers[topic.RoomID]
	var events []*models.ChangeEvent
	if ok {
		events = buf.GetCopy()
	}
	f.buffersMut.RUnlock()

	matching := []*models.ChangeEvent{}
	for _, event := range events {
		if event.Topic() == topic {
			matching = append(matching, event)
		}
	}
	return matching

}

// Forget drops the buffer of a room
func (f *ReplayFeed) Forget(roomID string) {
	f.buffersMut.Lock()
	defer f.buffersMut.Unlock()
	delete(f.buffers, roomID)
}
