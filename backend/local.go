package backend

import (
	"context"
	"sync"

	"github.com/godocompany/tempchat/models"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/session"
)

// Local runs the chat service in the same process as the session
type Local struct {
	ChatService *services.ChatService
}

var _ session.Backend = (*Local)(nil)

func (b *Local) CreateRoom(ctx context.Context, nickname, password string) (*session.RoomInfo, error) {
	room, err := b.ChatService.CreateRoom(ctx, nickname, password)
	if err != nil {
		return nil, sessionError(err)
	}
	return toRoomInfo(room), nil
}

func (b *Local) JoinRoom(ctx context.Context, code, password, nickname string) (*session.RoomInfo, error) {
	if err := services.ValidateNickname(nickname); err != nil {
		return nil, sessionError(err)
	}
	room, err := b.ChatService.JoinRoom(ctx, code, password)
	if err != nil {
		return nil, sessionError(err)
	}
	return toRoomInfo(room), nil
}

func (b *Local) ListMessages(ctx context.Context, roomID string) ([]session.Message, error) {
	msgs, err := b.ChatService.ListMessages(ctx, roomID)
	if err != nil {
		return nil, sessionError(err)
	}
	out := make([]session.Message, len(msgs))
	for i, msg := range msgs {
		out[i] = toMessage(msg)
	}
	return out, nil
}

func (b *Local) SendMessage(ctx context.Context, roomID, sender, text string) (*session.Message, error) {
	msg, err := b.ChatService.SendMessage(ctx, roomID, sender, text)
	if err != nil {
		return nil, sessionError(err)
	}
	out := toMessage(msg)
	return &out, nil
}

func (b *Local) DeleteMessage(ctx context.Context, roomID, messageID, sender string) error {
	return sessionError(b.ChatService.DeleteMessage(ctx, roomID, messageID, sender))
}

func (b *Local) EndSession(ctx context.Context, roomID string) error {
	_, err := b.ChatService.EndSession(ctx, roomID)
	return sessionError(err)
}

func (b *Local) SubscribeMessages(roomID string, fn func(session.Message)) (session.Subscription, error) {
	return b.subscribe(roomID, models.TableMessages, models.EventInsert, func(event *models.ChangeEvent) {
		if event.Message != nil {
			fn(toMessage(event.Message))
		}
	})
}

func (b *Local) SubscribeRoomStatus(roomID string, fn func(session.RoomInfo)) (session.Subscription, error) {
	return b.subscribe(roomID, models.TableRooms, models.EventUpdate, func(event *models.ChangeEvent) {
		if event.Room != nil {
			fn(*toRoomInfo(event.Room))
		}
	})
}

func (b *Local) SubscribeDeletions(roomID string, fn func(string)) (session.Subscription, error) {
	return b.subscribe(roomID, models.TableMessages, models.EventDelete, func(event *models.ChangeEvent) {
		fn(event.OldID)
	})
}

func (b *Local) subscribe(
	roomID string,
	table string,
	eventType models.EventType,
	fn func(*models.ChangeEvent),
) (session.Subscription, error) {
	topic := models.Topic{Table: table, Type: eventType, RoomID: roomID}
	sub, err := b.ChatService.Subscribe(topic, fn)
	if err != nil {
		return nil, err
	}
	b.ChatService.Metrics.SubscriptionOpened("local")
	return &localSubscription{sub: sub, metrics: b.ChatService.Metrics}, nil
}

type localSubscription struct {
	sub     services.Subscription
	metrics *services.Metrics
	once    sync.Once
}

func (s *localSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.sub.Unsubscribe()
		s.metrics.SubscriptionClosed("local")
	})
}
