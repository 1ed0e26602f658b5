package hooks

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/models"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/v1/utils"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
)

// FeedStream upgrades the request to a websocket and streams the change events
// of one topic of the token's room, e.g. GET /v1/feed?token=...&table=messages&type=INSERT
func FeedStream(
	chatService *services.ChatService,
	replay *services.ReplayFeed,
	metrics *services.Metrics,
	checkOrigin func(r *http.Request) bool,
	logger *zap.Logger,
) gin.HandlerFunc {

	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
	}

	return func(c *gin.Context) {

		claims := utils.CtxGetRoomClaims(c)
		topic := models.Topic{
			Table:  c.Query("table"),
			Type:   models.EventType(c.Query("type")),
			RoomID: claims.RoomID,
		}
		if !validTopic(topic) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown feed topic"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("failed to upgrade feed connection", zap.Error(err))
			return
		}

		// Subscribe before replaying, so nothing falls in between. The client
		// drops whatever it receives twice.
		send := make(chan *models.ChangeEvent, 64)
		done := make(chan struct{})
		sub, err := chatService.Subscribe(topic, func(event *models.ChangeEvent) {
			select {
			case send <- event:
			case <-done:
			}
		})
		if err != nil {
			logger.Error("failed to subscribe feed connection", zap.Error(err))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"))
			_ = conn.Close()
			return
		}
		metrics.SubscriptionOpened("websocket")

		var backlog []*models.ChangeEvent
		if replay != nil {
			backlog = replay.Recent(topic)
		}

		go readFeedConn(conn, done)
		writeFeedConn(conn, backlog, send, done)

		sub.Unsubscribe()
		metrics.SubscriptionClosed("websocket")
		_ = conn.Close()
		logger.Debug("feed connection closed",
			zap.String("room_id", topic.RoomID),
			zap.String("table", topic.Table),
			zap.String("type", string(topic.Type)),
		)

	}
}

func validTopic(topic models.Topic) bool {
	for _, t := range services.FeedTopics(topic.RoomID) {
		if t == topic {
			return true
		}
	}
	return false
}

// readFeedConn only handles control frames, and closes done once the client goes away
func readFeedConn(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeFeedConn(
	conn *websocket.Conn,
	backlog []*models.ChangeEvent,
	send chan *models.ChangeEvent,
	done chan struct{},
) {

	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	write := func(event *models.ChangeEvent) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		return conn.WriteJSON(event) == nil
	}

	for _, event := range backlog {
		if !write(event) {
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case event := <-send:
			if !write(event) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}

}
