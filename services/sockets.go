package services

import (
	"fmt"
	"sync"

	"github.com/godocompany/tempchat/models"
	socketio "github.com/googollee/go-socket.io"
	"go.uber.org/zap"
)

// Socket.IO event names pushed to clients, one per change feed topic
const (
	SocketEventMessageInsert = "messages.insert"
	SocketEventRoomUpdate    = "rooms.update"
	SocketEventMessageDelete = "messages.delete"
)

// FeedTopics returns the three topics a client follows for a room, keyed by the
// socket event they are relayed as
func FeedTopics(roomID string) map[string]models.Topic {
	return map[string]models.Topic{
		SocketEventMessageInsert: {Table: models.TableMessages, Type: models.EventInsert, RoomID: roomID},
		SocketEventRoomUpdate:    {Table: models.TableRooms, Type: models.EventUpdate, RoomID: roomID},
		SocketEventMessageDelete: {Table: models.TableMessages, Type: models.EventDelete, RoomID: roomID},
	}
}

type SocketContext struct {
	Claims *RoomClaims
}

// SocketsService relays the change feed to Socket.IO clients. Each server holds
// one set of feed subscriptions per room that has at least one socket in it.
type SocketsService struct {
	Server      *socketio.Server
	ChatService *ChatService
	Tokens      *RoomTokensService
	Replay      *ReplayFeed
	Metrics     *Metrics
	Logger      *zap.Logger

	relays    map[string]*roomRelay
	relaysMut sync.Mutex
}

type roomRelay struct {
	subs    []Subscription
	sockets int
}

func (s *SocketsService) Setup() {

	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	s.relays = map[string]*roomRelay{}

	// Add handlers to the socket server
	s.Server.OnConnect("/", func(conn socketio.Conn) error {
		s.Logger.Debug("socket connected", zap.String("remote_addr", conn.RemoteAddr().String()))
		conn.SetContext(&SocketContext{})
		return nil
	})

	// When a socket disconnects
	s.Server.OnDisconnect("/", func(conn socketio.Conn, reason string) {
		s.Logger.Debug("socket disconnected",
			zap.String("remote_addr", conn.RemoteAddr().String()),
			zap.String("reason", reason),
		)
		s.leave(conn)
		conn.LeaveAll()
	})

	s.Server.OnError("/", func(conn socketio.Conn, err error) {
		s.Logger.Warn("socket error", zap.Error(err))
	})

	// Register all of the event handlers
	s.Server.OnEvent("/", "room.subscribe", s.OnRoomSubscribe)
	s.Server.OnEvent("/", "room.unsubscribe", s.OnRoomUnsubscribe)

}

// SocketRoomName is the Socket.IO room that receives a chat room's events
func SocketRoomName(roomID string) string {
	return fmt.Sprintf("room_%s", roomID)
}

//====================================================================================================
// room.subscribe event handler
// Called when a client starts following a room
//====================================================================================================

type RoomSubscribeMsg struct {
	Token string `json:"token"`
}

func (s *SocketsService) OnRoomSubscribe(conn socketio.Conn, data RoomSubscribeMsg) error {

	claims, err := s.Tokens.ParseToken(data.Token)
	if err != nil {
		return err
	}

	// A socket follows one room at a time
	s.leave(conn)

	if err := s.retainRelay(claims.RoomID); err != nil {
		return err
	}
	conn.Join(SocketRoomName(claims.RoomID))
	conn.SetContext(&SocketContext{Claims: claims})
	s.Metrics.SubscriptionOpened("socketio")

	// Emit the recent events to the new subscriber, so it doesn't miss anything
	// that happened between loading the room and subscribing
	if s.Replay != nil {
		for event, topic := range FeedTopics(claims.RoomID) {
			for _, change := range s.Replay.Recent(topic) {
				conn.Emit(event, change)
			}
		}
	}

	s.Logger.Debug("socket subscribed",
		zap.String("room_id", claims.RoomID),
		zap.String("nickname", claims.Nickname),
	)
	return nil

}

//====================================================================================================
// room.unsubscribe event handler
// Called when a client leaves a room but keeps the socket open
//====================================================================================================

func (s *SocketsService) OnRoomUnsubscribe(conn socketio.Conn) error {
	s.leave(conn)
	return nil
}

func (s *SocketsService) leave(conn socketio.Conn) {
	ctx, ok := conn.Context().(*SocketContext)
	if !ok || ctx == nil || ctx.Claims == nil {
		return
	}
	conn.Leave(SocketRoomName(ctx.Claims.RoomID))
	s.releaseRelay(ctx.Claims.RoomID)
	s.Metrics.SubscriptionClosed("socketio")
	conn.SetContext(&SocketContext{})
}

// retainRelay makes sure the room's feed topics are relayed to its socket room
func (s *SocketsService) retainRelay(roomID string) error {

	s.relaysMut.Lock()
	defer s.relaysMut.Unlock()

	if relay, ok := s.relays[roomID]; ok {
		relay.sockets++
		return nil
	}

	relay := &roomRelay{sockets: 1}
	for event, topic := range FeedTopics(roomID) {
		event := event
		sub, err := s.ChatService.Subscribe(topic, func(change *models.ChangeEvent) {
			s.Server.BroadcastToRoom("/", SocketRoomName(roomID), event, change)
		})
		if err != nil {
			for _, sub := range relay.subs {
				sub.Unsubscribe()
			}
			return err
		}
		relay.subs = append(relay.subs, sub)
	}
	s.relays[roomID] = relay
	return nil

}

func (s *SocketsService) releaseRelay(roomID string) {

	s.relaysMut.Lock()
	defer s.relaysMut.Unlock()

	relay, ok := s.relays[roomID]
	if !ok {
		return
	}
	relay.sockets--
	if relay.sockets > 0 {
		return
	}
	for _, sub := range relay.subs {
		sub.Unsubscribe()
	}
	delete(s.relays, roomID)

}

// RelayCount returns how many rooms currently have feed relays
func (s *SocketsService) RelayCount() int {
	s.relaysMut.Lock()
	defer s.relaysMut.Unlock()
	return len(s.relays)
}
