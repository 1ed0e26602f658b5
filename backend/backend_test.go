package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/session"
	v1 "github.com/godocompany/tempchat/v1"
	"github.com/godocompany/tempchat/v1/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newChatService(t *testing.T) *services.ChatService {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store, err := services.NewGormStore(db)
	require.NoError(t, err)
	feed := services.NewMemoryFeed(nil)
	t.Cleanup(func() {
		_ = feed.Close()
		_ = store.Close()
	})

	return &services.ChatService{
		Store:      store,
		Feed:       services.NewReplayFeed(feed, 25),
		Metrics:    services.NewMetrics(),
		BcryptCost: bcrypt.MinCost,
	}
}

func newRemoteServer(t *testing.T, chat *services.ChatService) *httptest.Server {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := &v1.Server{
		ChatService: chat,
		RoomTokensService: &services.RoomTokensService{
			SigningSecret: "test-secret",
			TTL:           time.Hour,
			Issuer:        "tempchat",
		},
		Replay:      chat.Feed.(*services.ReplayFeed),
		Metrics:     chat.Metrics,
		JoinLimiter: middleware.NewIPRateLimiter(100, 100),
	}
	api.Setup(r.Group("v1"))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newSession(t *testing.T, b session.Backend) *session.Session {
	s := session.New(b, session.WithEndDelay(100*time.Millisecond))
	t.Cleanup(s.Close)
	return s
}

func hasText(s *session.Session, text string) bool {
	room := s.Room()
	if room == nil {
		return false
	}
	for _, msg := range room.Messages {
		if msg.Text == text {
			return true
		}
	}
	return false
}

// runConversation drives a creator and a guest through a whole session
func runConversation(t *testing.T, creator, guest *session.Session) {
	ctx := context.Background()

	code, err := creator.Create(ctx, "alice", "hunter2")
	require.NoError(t, err)
	require.Len(t, code, services.RoomCodeLength)

	require.NoError(t, creator.Send(ctx, "before you came"))

	err = guest.Join(ctx, code, "wrong", "bob")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)

	require.NoError(t, guest.Join(ctx, code, "hunter2", "bob"))
	assert.True(t, hasText(guest, "before you came"))

	// Messages reach the other side through the feed
	require.NoError(t, guest.Send(ctx, "hi alice"))
	assert.Eventually(t, func() bool { return hasText(creator, "hi alice") }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, creator.Send(ctx, "hi bob"))
	assert.Eventually(t, func() bool { return hasText(guest, "hi bob") }, 2*time.Second, 10*time.Millisecond)

	// Each side sees every message once
	assert.Eventually(t, func() bool {
		return len(creator.Room().Messages) == 3 && len(guest.Room().Messages) == 3
	}, 2*time.Second, 10*time.Millisecond)

	// Only the sender can delete
	var bobMsg string
	for _, msg := range creator.Room().Messages {
		if msg.Sender == "bob" {
			bobMsg = msg.ID
		}
	}
	require.NotEmpty(t, bobMsg)
	assert.ErrorIs(t, creator.Delete(ctx, bobMsg), session.ErrNotMessageSender)

	require.NoError(t, guest.Delete(ctx, bobMsg))
	assert.Eventually(t, func() bool { return !hasText(creator, "hi alice") }, 2*time.Second, 10*time.Millisecond)

	// Only the creator can end
	assert.ErrorIs(t, guest.End(ctx), session.ErrNotCreator)
	require.NoError(t, creator.End(ctx))
	assert.Eventually(t, func() bool {
		room := guest.Room()
		return room != nil && !room.IsActive
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return creator.Room() == nil }, 2*time.Second, 10*time.Millisecond)

	// The code no longer opens the room
	guest.Leave()
	assert.ErrorIs(t, guest.Join(ctx, code, "hunter2", "carol"), session.ErrInvalidCredentials)
}

func TestLocalConversation(t *testing.T) {
	chat := newChatService(t)
	b := &Local{ChatService: chat}
	runConversation(t, newSession(t, b), newSession(t, b))
}

func TestRemoteConversation(t *testing.T) {
	chat := newChatService(t)
	srv := newRemoteServer(t, chat)
	creator := newSession(t, NewRemote(srv.URL, nil))
	guest := newSession(t, NewRemote(srv.URL, nil))
	runConversation(t, creator, guest)
}

// joinWithPaddedPassword creates and joins a room typing the password with
// surrounding spaces on both sides
func joinWithPaddedPassword(t *testing.T, creator, guest *session.Session) {
	ctx := context.Background()

	code, err := creator.Create(ctx, "alice", "secret ")
	require.NoError(t, err)
	require.NoError(t, guest.Join(ctx, code, "secret ", "bob"))
	assert.Equal(t, code, guest.Room().Code)

	guest.Leave()
	require.NoError(t, guest.Join(ctx, code, "  secret", "bob"))
	guest.Leave()
	assert.ErrorIs(t, guest.Join(ctx, code, "    ", "bob"), session.ErrMissingFields)
}

func TestLocalPaddedPassword(t *testing.T) {
	b := &Local{ChatService: newChatService(t)}
	joinWithPaddedPassword(t, newSession(t, b), newSession(t, b))
}

func TestRemotePaddedPassword(t *testing.T) {
	srv := newRemoteServer(t, newChatService(t))
	joinWithPaddedPassword(t, newSession(t, NewRemote(srv.URL, nil)), newSession(t, NewRemote(srv.URL, nil)))
}

func TestLocalUnsubscribe(t *testing.T) {
	chat := newChatService(t)
	b := &Local{ChatService: chat}

	room, err := b.CreateRoom(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	received := make(chan session.Message, 4)
	sub, err := b.SubscribeMessages(room.ID, func(msg session.Message) {
		received <- msg
	})
	require.NoError(t, err)

	_, err = b.SendMessage(context.Background(), room.ID, "alice", "one")
	require.NoError(t, err)
	select {
	case msg := <-received:
		assert.Equal(t, "one", msg.Text)
	case <-time.After(time.Second):
		t.Fatal("expected a message")
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	_, err = b.SendMessage(context.Background(), room.ID, "alice", "two")
	require.NoError(t, err)
	select {
	case msg := <-received:
		t.Fatalf("unexpected message %q after unsubscribe", msg.Text)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLocalErrors(t *testing.T) {
	chat := newChatService(t)
	b := &Local{ChatService: chat}
	ctx := context.Background()

	_, err := b.JoinRoom(ctx, "ZZZZZZ", "hunter2", "bob")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)

	room, err := b.CreateRoom(ctx, "alice", "hunter2")
	require.NoError(t, err)
	_, err = b.JoinRoom(ctx, room.Code, "hunter2", "b")
	assert.ErrorIs(t, err, session.ErrNicknameTooShort)

	err = b.DeleteMessage(ctx, room.ID, "missing", "alice")
	assert.ErrorIs(t, err, session.ErrMessageNotFound)

	require.NoError(t, b.EndSession(ctx, room.ID))
	_, err = b.SendMessage(ctx, room.ID, "alice", "hello")
	assert.ErrorIs(t, err, session.ErrSessionEnded)
}

func TestRemoteNetworkError(t *testing.T) {
	srv := httptest.NewServer(gin.New())
	addr := srv.URL
	srv.Close()

	b := NewRemote(addr, nil)
	_, err := b.CreateRoom(context.Background(), "alice", "hunter2")
	assert.ErrorIs(t, err, session.ErrNetwork)
	assert.Equal(t, "Network error - please check your connection", err.Error())

	_, err = b.SubscribeMessages("room", func(session.Message) {})
	assert.ErrorIs(t, err, session.ErrNetwork)
}

func TestRemoteRequiresToken(t *testing.T) {
	srv := newRemoteServer(t, newChatService(t))
	b := NewRemote(srv.URL, nil)

	err := b.EndSession(context.Background(), "room")
	require.Error(t, err)
	assert.Equal(t, "a valid room token is required", err.Error())
}

func TestSessionErrorText(t *testing.T) {
	assert.Equal(t, session.ErrInvalidCredentials, sessionErrorText("Invalid code or password"))
	assert.Equal(t, session.ErrNotMessageSender, sessionErrorText("You can only delete your own messages"))
	assert.Equal(t, session.ErrSessionEnded, sessionErrorText("This session has ended"))
	assert.Equal(t, session.ErrMissingFields, sessionErrorText("Please fill in all fields"))
	assert.Equal(t, "something else", sessionErrorText("something else").Error())

	assert.Nil(t, sessionError(nil))
	wrapped := fmt.Errorf("lookup: %w", services.ErrMessageNotFound)
	assert.True(t, errors.Is(sessionError(wrapped), session.ErrMessageNotFound))
}
