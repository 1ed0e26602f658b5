package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/godocompany/tempchat/models"
	"github.com/godocompany/tempchat/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Remote talks to a tempchat server over its HTTP API and websocket feed.
// It holds the room token of the last created or joined room, so one Remote
// serves one session.
type Remote struct {
	BaseURL string
	Client  *http.Client
	Dialer  *websocket.Dialer
	Logger  *zap.Logger

	mut   sync.RWMutex
	token string
}

var _ session.Backend = (*Remote)(nil)

// NewRemote creates a backend for the server at baseURL, e.g. http://localhost:8080
func NewRemote(baseURL string, logger *zap.Logger) *Remote {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		Logger: logger,
	}
}

// Token returns the room token in use
func (b *Remote) Token() string {
	b.mut.RLock()
	defer b.mut.RUnlock()
	return b.token
}

func (b *Remote) setToken(token string) {
	b.mut.Lock()
	defer b.mut.Unlock()
	b.token = token
}

type wireRoom struct {
	ID        string `json:"id"`
	RoomCode  string `json:"room_code"`
	CreatedBy string `json:"created_by"`
	IsActive  bool   `json:"is_active"`
}

type roomResponse struct {
	Room  wireRoom `json:"room"`
	Token string   `json:"token"`
}

func (r *wireRoom) info() *session.RoomInfo {
	return &session.RoomInfo{
		ID:       r.ID,
		Code:     r.RoomCode,
		Creator:  r.CreatedBy,
		IsActive: r.IsActive,
	}
}

func (b *Remote) CreateRoom(ctx context.Context, nickname, password string) (*session.RoomInfo, error) {
	var res roomResponse
	err := b.call(ctx, "/v1/rooms/create", map[string]string{
		"nickname": nickname,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	b.setToken(res.Token)
	return res.Room.info(), nil
}

func (b *Remote) JoinRoom(ctx context.Context, code, password, nickname string) (*session.RoomInfo, error) {
	var res roomResponse
	err := b.call(ctx, "/v1/rooms/join", map[string]string{
		"room_code": code,
		"password":  password,
		"nickname":  nickname,
	}, &res)
	if err != nil {
		return nil, err
	}
	b.setToken(res.Token)
	return res.Room.info(), nil
}

func (b *Remote) ListMessages(ctx context.Context, roomID string) ([]session.Message, error) {
	var res struct {
		Messages []*models.Message `json:"messages"`
	}
	if err := b.call(ctx, "/v1/rooms/messages", struct{}{}, &res); err != nil {
		return nil, err
	}
	out := make([]session.Message, len(res.Messages))
	for i, msg := range res.Messages {
		out[i] = toMessage(msg)
	}
	return out, nil
}

func (b *Remote) SendMessage(ctx context.Context, roomID, sender, text string) (*session.Message, error) {
	var res struct {
		Message *models.Message `json:"message"`
	}
	if err := b.call(ctx, "/v1/messages/send", map[string]string{"text": text}, &res); err != nil {
		return nil, err
	}
	if res.Message == nil {
		return nil, errors.New("server returned no message")
	}
	msg := toMessage(res.Message)
	return &msg, nil
}

func (b *Remote) DeleteMessage(ctx context.Context, roomID, messageID, sender string) error {
	return b.call(ctx, "/v1/messages/delete", map[string]string{"message_id": messageID}, nil)
}

func (b *Remote) EndSession(ctx context.Context, roomID string) error {
	return b.call(ctx, "/v1/rooms/end", struct{}{}, nil)
}

// call posts a JSON request to the API and decodes the data of the response into out
func (b *Remote) call(ctx context.Context, path string, body interface{}, out interface{}) error {

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := b.Token(); len(token) > 0 {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := b.Client.Do(req)
	if err != nil {
		b.Logger.Warn("request failed", zap.String("path", path), zap.Error(err))
		return session.ErrNetwork
	}
	defer res.Body.Close()

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		b.Logger.Warn("unreadable response",
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
			zap.Error(err),
		)
		return session.ErrNetwork
	}
	if len(envelope.Error) > 0 {
		return sessionErrorText(envelope.Error)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server responded with status %d", res.StatusCode)
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)

}

//================================================================================
// Change feed subscriptions
//================================================================================

func (b *Remote) SubscribeMessages(roomID string, fn func(session.Message)) (session.Subscription, error) {
	return b.subscribe(roomID, models.TableMessages, models.EventInsert, func(event *models.ChangeEvent) {
		if event.Message != nil {
			fn(toMessage(event.Message))
		}
	})
}

func (b *Remote) SubscribeRoomStatus(roomID string, fn func(session.RoomInfo)) (session.Subscription, error) {
	return b.subscribe(roomID, models.TableRooms, models.EventUpdate, func(event *models.ChangeEvent) {
		if event.Room != nil {
			fn(*toRoomInfo(event.Room))
		}
	})
}

func (b *Remote) SubscribeDeletions(roomID string, fn func(string)) (session.Subscription, error) {
	return b.subscribe(roomID, models.TableMessages, models.EventDelete, func(event *models.ChangeEvent) {
		fn(event.OldID)
	})
}

// feedURL builds the websocket address of one feed topic
func (b *Remote) feedURL(table string, eventType models.EventType) (string, error) {
	u, err := url.Parse(b.BaseURL + "/v1/feed")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", b.Token())
	q.Set("table", table)
	q.Set("type", string(eventType))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (b *Remote) subscribe(
	roomID string,
	table string,
	eventType models.EventType,
	fn func(*models.ChangeEvent),
) (session.Subscription, error) {

	addr, err := b.feedURL(table, eventType)
	if err != nil {
		return nil, err
	}

	conn, res, err := b.Dialer.Dial(addr, nil)
	if err != nil {
		if res != nil {
			res.Body.Close()
		}
		b.Logger.Warn("failed to open feed", zap.String("table", table), zap.Error(err))
		return nil, session.ErrNetwork
	}

	sub := &remoteSubscription{conn: conn, done: make(chan struct{})}
	go sub.read(roomID, fn, b.Logger)
	return sub, nil

}

type remoteSubscription struct {
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

// read delivers events in the order the server sent them until the
// connection closes
func (s *remoteSubscription) read(roomID string, fn func(*models.ChangeEvent), logger *zap.Logger) {
	for {
		var event models.ChangeEvent
		if err := s.conn.ReadJSON(&event); err != nil {
			select {
			case <-s.done:
			default:
				logger.Warn("feed connection lost", zap.String("room_id", roomID), zap.Error(err))
			}
			return
		}
		if event.RoomID != roomID {
			continue
		}
		fn(&event)
	}
}

func (s *remoteSubscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = s.conn.Close()
	})
}
