package services

import (
	"context"
	"strings"
	"testing"

	"github.com/godocompany/tempchat/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	chat, _ := newTestChat(t)

	room, err := chat.CreateRoom(context.Background(), "  alice  ", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, "alice", room.CreatedBy)
	assert.True(t, room.IsActive)
	assert.Len(t, room.RoomCode, RoomCodeLength)
	assert.NotEqual(t, "hunter2", room.PasswordHash)
	assert.False(t, room.EndedDate.Valid)
	for _, c := range room.RoomCode {
		assert.True(t, strings.ContainsRune(RoomCodeAlphabet, c))
	}

	stored, err := chat.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.RoomCode, stored.RoomCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(chat.Metrics.roomsCreated))
}

func TestCreateRoomValidation(t *testing.T) {
	chat, _ := newTestChat(t)
	ctx := context.Background()

	_, err := chat.CreateRoom(ctx, "a", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidNickname)
	_, err = chat.CreateRoom(ctx, strings.Repeat("a", MaxNicknameLength+1), "hunter2")
	assert.ErrorIs(t, err, ErrNicknameTooLong)
	_, err = chat.CreateRoom(ctx, "alice", " abc ")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestJoinRoom(t *testing.T) {
	chat, _ := newTestChat(t)
	ctx := context.Background()

	room, err := chat.CreateRoom(ctx, "alice", "hunter2")
	require.NoError(t, err)

	joined, err := chat.JoinRoom(ctx, " "+strings.ToLower(room.RoomCode)+" ", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, room.ID, joined.ID)

	_, err = chat.JoinRoom(ctx, room.RoomCode, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = chat.JoinRoom(ctx, "NOPE00", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, 1.0, testutil.ToFloat64(chat.Metrics.roomJoins.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(chat.Metrics.roomJoins.WithLabelValues("rejected")))

	// Ended rooms can't be joined
	_, err = chat.EndSession(ctx, room.ID)
	require.NoError(t, err)
	_, err = chat.JoinRoom(ctx, room.RoomCode, "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJoinRoomTrimsPassword(t *testing.T) {
	chat, _ := newTestChat(t)
	ctx := context.Background()

	room, err := chat.CreateRoom(ctx, "alice", " secret ")
	require.NoError(t, err)

	for _, password := range []string{"secret", "secret ", "\tsecret"} {
		joined, err := chat.JoinRoom(ctx, room.RoomCode, password)
		require.NoError(t, err, "password %q", password)
		assert.Equal(t, room.ID, joined.ID)
	}

	_, err = chat.JoinRoom(ctx, room.RoomCode, "    ")
	assert.ErrorIs(t, err, ErrMissingFields)
	_, err = chat.JoinRoom(ctx, "  ", "secret")
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Equal(t, 3.0, testutil.ToFloat64(chat.Metrics.roomJoins.WithLabelValues("ok")))
}

func TestSendMessage(t *testing.T) {
	chat, feed := newTestChat(t)
	ctx := context.Background()

	room, err := chat.CreateRoom(ctx, "alice", "hunter2")
	require.NoError(t, err)
	events := collect(t, feed, models.Topic{Table: models.TableMessages, Type: models.EventInsert, RoomID: room.ID})

	msg, err := chat.SendMessage(ctx, room.ID, "alice", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, room.ID, msg.RoomID)

	event := nextEvent(t, events)
	assert.Equal(t, models.EventInsert, event.Type)
	assert.Equal(t, msg.ID, event.Message.ID)

	_, err = chat.SendMessage(ctx, room.ID, "alice", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = chat.SendMessage(ctx, room.ID, "alice", strings.Repeat("é", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)
	_, err = chat.SendMessage(ctx, room.ID, "alice", strings.Repeat("é", MaxMessageLength))
	assert.NoError(t, err)
	_, err = chat.SendMessage(ctx, "missing", "alice", "hello")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	msgs, err := chat.ListMessages(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, msg.ID, msgs[0].ID)
	assert.Equal(t, 2.0, testutil.ToFloat64(chat.Metrics.messagesSent))
}

func TestDeleteMessage(t *testing.T) {
	chat, feed := newTestChat(t)
	ctx := context.Background()

	room, err := chat.CreateRoom(ctx, "alice", "hunter2")
	require.NoError(t, err)
	other, err := chat.CreateRoom(ctx, "carol", "hunter2")
	require.NoError(t, err)
	msg, err := chat.SendMessage(ctx, room.ID, "bob", "hi")
	require.NoError(t, err)
	events := collect(t, feed, models.Topic{Table: models.TableMessages, Type: models.EventDelete, RoomID: room.ID})

	assert.ErrorIs(t, chat.DeleteMessage(ctx, room.ID, "missing", "bob"), ErrMessageNotFound)
	assert.ErrorIs(t, chat.DeleteMessage(ctx, other.ID, msg.ID, "bob"), ErrMessageNotFound)
	assert.ErrorIs(t, chat.DeleteMessage(ctx, room.ID, msg.ID, "alice"), ErrNotMessageSender)
	noEvent(t, events)

	require.NoError(t, chat.DeleteMessage(ctx, room.ID, msg.ID, "bob"))
	event := nextEvent(t, events)
	assert.Equal(t, msg.ID, event.OldID)

	msgs, err := chat.ListMessages(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.ErrorIs(t, chat.DeleteMessage(ctx, room.ID, msg.ID, "bob"), ErrMessageNotFound)
}

func TestEndSession(t *testing.T) {
	chat, feed := newTestChat(t)
	ctx := context.Background()

	room, err := chat.CreateRoom(ctx, "alice", "hunter2")
	require.NoError(t, err)
	events := collect(t, feed, models.Topic{Table: models.TableRooms, Type: models.EventUpdate, RoomID: room.ID})

	ended, err := chat.EndSession(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, ended.IsActive)
	assert.True(t, ended.EndedDate.Valid)

	event := nextEvent(t, events)
	require.NotNil(t, event.Room)
	assert.False(t, event.Room.IsActive)

	// Ending again changes nothing and announces nothing
	again, err := chat.EndSession(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, again.IsActive)
	noEvent(t, events)
	assert.Equal(t, 1.0, testutil.ToFloat64(chat.Metrics.sessionsEnded))

	_, err = chat.SendMessage(ctx, room.ID, "alice", "hello?")
	assert.ErrorIs(t, err, ErrRoomInactive)
	_, err = chat.EndSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGenerateRoomCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := GenerateRoomCode()
		require.NoError(t, err)
		require.Len(t, code, RoomCodeLength)
		assert.Equal(t, strings.ToUpper(code), code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateNickname("al"))
	assert.ErrorIs(t, ValidateNickname("é"), ErrInvalidNickname)
	assert.NoError(t, ValidateNickname(strings.Repeat("é", MaxNicknameLength)))
	assert.NoError(t, ValidatePassword("abcd"))
	assert.ErrorIs(t, ValidatePassword("abc"), ErrInvalidPassword)
	assert.ErrorIs(t, ValidateMessageText(""), ErrEmptyMessage)
	assert.Equal(t, "ABC123", NormalizeRoomCode(" abc123\n"))
}

func TestNilMetrics(t *testing.T) {
	chat, _ := newTestChat(t)
	chat.Metrics = nil

	room, err := chat.CreateRoom(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	_, err = chat.SendMessage(context.Background(), room.ID, "alice", "still works")
	assert.NoError(t, err)
}
