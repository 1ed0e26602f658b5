package services

import (
	"testing"

	"github.com/godocompany/tempchat/models"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedTopics(t *testing.T) {
	topics := FeedTopics("room-1")
	require.Len(t, topics, 3)
	assert.Equal(t, models.Topic{Table: models.TableMessages, Type: models.EventInsert, RoomID: "room-1"}, topics[SocketEventMessageInsert])
	assert.Equal(t, models.Topic{Table: models.TableRooms, Type: models.EventUpdate, RoomID: "room-1"}, topics[SocketEventRoomUpdate])
	assert.Equal(t, models.Topic{Table: models.TableMessages, Type: models.EventDelete, RoomID: "room-1"}, topics[SocketEventMessageDelete])
	assert.Equal(t, "room_room-1", SocketRoomName("room-1"))
}

func TestSocketRelays(t *testing.T) {
	chat, feed := newTestChat(t)
	server := socketio.NewServer(&engineio.Options{})
	t.Cleanup(func() { _ = server.Close() })

	sockets := &SocketsService{Server: server, ChatService: chat}
	sockets.Setup()

	topic := FeedTopics("room-1")[SocketEventMessageInsert]
	require.NoError(t, sockets.retainRelay("room-1"))
	require.NoError(t, sockets.retainRelay("room-1"))
	assert.Equal(t, 1, sockets.RelayCount())
	assert.Equal(t, 1, feed.SubscriberCount(topic))

	sockets.releaseRelay("room-1")
	assert.Equal(t, 1, sockets.RelayCount())
	sockets.releaseRelay("room-1")
	assert.Equal(t, 0, sockets.RelayCount())
	assert.Equal(t, 0, feed.SubscriberCount(topic))

	// Releasing an unknown room is harmless
	sockets.releaseRelay("room-2")
	assert.Equal(t, 0, sockets.RelayCount())
}
