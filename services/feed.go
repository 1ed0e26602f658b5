package services

import (
	"context"
	"errors"
	"sync"

	"github.com/godocompany/tempchat/models"
	"go.uber.org/zap"
)

// ErrFeedClosed is returned when publishing or subscribing on a closed feed
var ErrFeedClosed = errors.New("change feed is closed")

// Feed delivers row change events to the subscribers of a room topic. Each
// subscription receives its events in publish order, on its own goroutine.
type Feed interface {
	Publish(ctx context.Context, event *models.ChangeEvent) error
	Subscribe(topic models.Topic, fn func(*models.ChangeEvent)) (Subscription, error)
	Close() error
}

// Subscription is a live registration on a Feed
type Subscription interface {
	Unsubscribe()
}

// MemoryFeed is a Feed that only reaches subscribers in the same process
type MemoryFeed struct {
	Logger *zap.Logger

	mut    sync.RWMutex
	subs   map[models.Topic]map[*memorySubscription]struct{}
	closed bool
}

// NewMemoryFeed creates an empty in-process feed
func NewMemoryFeed(logger *zap.Logger) *MemoryFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryFeed{
		Logger: logger,
		subs:   map[models.Topic]map[*memorySubscription]struct{}{},
	}
}

type memorySubscription struct {
	feed     *MemoryFeed
	topic    models.Topic
	events   chan *models.ChangeEvent
	done     chan struct{}
	stopOnce sync.Once
}

func (f *MemoryFeed) Publish(ctx context.Context, event *models.ChangeEvent) error {

	f.mut.RLock()
	defer f.mut.RUnlock()

	if f.closed {
		return ErrFeedClosed
	}

	for sub := range f.subs[event.Topic()] {
		select {
		case sub.events <- event:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil

}

func (f *MemoryFeed) Subscribe(topic models.Topic, fn func(*models.ChangeEvent)) (Subscription, error) {

	f.mut.Lock()
	defer f.mut.Unlock()

	if f.closed {
		return nil, ErrFeedClosed
	}

	sub := &memorySubscription{
		feed:   f,
		topic:  topic,
		events: make(chan *models.ChangeEvent, 64),
		done:   make(chan struct{}),
	}
	if f.subs[topic] == nil {
		f.subs[topic] = map[*memorySubscription]struct{}{}
	}
	f.subs[topic][sub] = struct{}{}

	go sub.run(fn)

	f.Logger.Debug("feed subscription added",
		zap.String("table", topic.Table),
		zap.String("type", string(topic.Type)),
		zap.String("room_id", topic.RoomID),
	)
	return sub, nil

}

// Close stops every subscription. Publishing afterwards fails.
func (f *MemoryFeed) Close() error {
	f.mut.Lock()
	f.closed = true
	subs := f.subs
	f.subs = map[models.Topic]map[*memorySubscription]struct{}{}
	f.mut.Unlock()

	for _, set := range subs {
		for sub := range set {
			sub.stop()
		}
	}
	return nil
}

// SubscriberCount returns how many subscriptions are registered on a topic
func (f *MemoryFeed) SubscriberCount(topic models.Topic) int {
	f.mut.RLock()
	defer f.mut.RUnlock()
	return len(f.subs[topic])
}

func (s *memorySubscription) run(fn func(*models.ChangeEvent)) {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			fn(event)
		}
	}
}

func (s *memorySubscription) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *memorySubscription) Unsubscribe() {

	// Stop first so a publisher blocked on this subscription lets go of the read lock
	s.stop()

	s.feed.mut.Lock()
	defer s.feed.mut.Unlock()
	if set, ok := s.feed.subs[s.topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(s.feed.subs, s.topic)
		}
	}

}
