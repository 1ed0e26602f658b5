package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/godocompany/tempchat/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisFeed is a Feed shared by every server connected to the same Redis,
// using one Pub/Sub channel per topic
type RedisFeed struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisFeed connects to the Redis server at the URL, e.g. redis://localhost:6379/0
func NewRedisFeed(ctx context.Context, url string, logger *zap.Logger) (*RedisFeed, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisFeedWithClient(client, logger), nil
}

// NewRedisFeedWithClient creates a feed on an existing client. Closing the feed
// closes the client.
func NewRedisFeedWithClient(client *redis.Client, logger *zap.Logger) *RedisFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisFeed{
		client: client,
		prefix: "tempchat",
		logger: logger,
	}
}

// Channel is the Pub/Sub channel name for a topic
func (f *RedisFeed) Channel(topic models.Topic) string {
	return fmt.Sprintf("%s:%s:%s:%s", f.prefix, topic.Table, topic.Type, topic.RoomID)
}

func (f *RedisFeed) Publish(ctx context.Context, event *models.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := f.client.Publish(ctx, f.Channel(event.Topic()), data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(topic models.Topic, fn func(*models.ChangeEvent)) (Subscription, error) {

	ctx, cancel := context.WithCancel(context.Background())
	pubsub := f.client.Subscribe(ctx, f.Channel(topic))

	// Wait for the subscription to be confirmed so events published after
	// Subscribe returns are not missed
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", f.Channel(topic), err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go sub.run(ctx, fn, f.logger)
	return sub, nil

}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

type redisSubscription struct {
	pubsub   *redis.PubSub
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func (s *redisSubscription) run(ctx context.Context, fn func(*models.ChangeEvent), logger *zap.Logger) {
	defer close(s.done)
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event models.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Error("failed to decode change event",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			fn(&event)
		}
	}
}

func (s *redisSubscription) Unsubscribe() {
	s.stopOnce.Do(func() {
		s.cancel()
		_ = s.pubsub.Close()
	})
}
