package session

import "context"

// Backend is the service that stores rooms and messages and pushes changes to
// subscribers. Subscriptions are scoped to one room and deliver events in order.
type Backend interface {
	CreateRoom(ctx context.Context, nickname, password string) (*RoomInfo, error)
	JoinRoom(ctx context.Context, code, password, nickname string) (*RoomInfo, error)
	ListMessages(ctx context.Context, roomID string) ([]Message, error)
	SendMessage(ctx context.Context, roomID, sender, text string) (*Message, error)
	DeleteMessage(ctx context.Context, roomID, messageID, sender string) error
	EndSession(ctx context.Context, roomID string) error

	SubscribeMessages(roomID string, fn func(Message)) (Subscription, error)
	SubscribeRoomStatus(roomID string, fn func(RoomInfo)) (Subscription, error)
	SubscribeDeletions(roomID string, fn func(messageID string)) (Subscription, error)
}

// Subscription is an open change feed subscription
type Subscription interface {
	Unsubscribe()
}
