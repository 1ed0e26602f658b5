package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/godocompany/tempchat/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Limits shared by the API and the clients
const (
	RoomCodeLength    = 6
	RoomCodeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	MaxMessageLength  = 500
	MinNicknameLength = 2
	MaxNicknameLength = 50
	MinPasswordLength = 4

	roomCodeAttempts = 5
)

// ChatService manages rooms and messages, and announces every change on the feed
type ChatService struct {
	Store      Store
	Feed       Feed
	Metrics    *Metrics
	Logger     *zap.Logger
	BcryptCost int
	Now        func() time.Time
}

func (s *ChatService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *ChatService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// CreateRoom creates a new active room owned by the nickname, protected by the password
func (s *ChatService) CreateRoom(ctx context.Context, nickname, password string) (*models.Room, error) {

	nickname = strings.TrimSpace(nickname)
	password = strings.TrimSpace(password)
	if err := ValidateNickname(nickname); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	// Hash the password before anything touches the store
	cost := s.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}

	// Find a code that no active room is using right now
	code, err := s.unusedRoomCode(ctx)
	if err != nil {
		return nil, err
	}

	room := &models.Room{
		ID:           uuid.NewString(),
		RoomCode:     code,
		PasswordHash: string(hash),
		CreatedBy:    nickname,
		IsActive:     true,
		CreatedDate:  s.now(),
	}
	if err := s.Store.InsertRoom(ctx, room); err != nil {
		return nil, err
	}

	s.Metrics.roomCreated()
	s.logger().Info("room created",
		zap.String("room_id", room.ID),
		zap.String("room_code", room.RoomCode),
	)
	return room, nil

}

func (s *ChatService) unusedRoomCode(ctx context.Context) (string, error) {
	for i := 0; i < roomCodeAttempts; i++ {
		code, err := GenerateRoomCode()
		if err != nil {
			return "", err
		}
		existing, err := s.Store.GetActiveRoomByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

// JoinRoom checks the code and password against the active rooms. A missing
// room and a wrong password give the same error.
func (s *ChatService) JoinRoom(ctx context.Context, code, password string) (*models.Room, error) {

	code = NormalizeRoomCode(code)
	password = strings.TrimSpace(password)
	if len(code) == 0 || len(password) == 0 {
		return nil, ErrMissingFields
	}

	room, err := s.Store.GetActiveRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if room == nil {
		s.Metrics.joinFailed()
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)) != nil {
		s.Metrics.joinFailed()
		return nil, ErrInvalidCredentials
	}

	s.Metrics.roomJoined()
	return room, nil

}

// GetRoom gets a room by ID, whether or not it is still active
func (s *ChatService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.Store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// ListMessages gets the history of a room, oldest first
func (s *ChatService) ListMessages(ctx context.Context, roomID string) ([]*models.Message, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.Store.ListMessages(ctx, roomID)
}

// SendMessage stores a message from the sender and publishes the insert
func (s *ChatService) SendMessage(ctx context.Context, roomID, sender, text string) (*models.Message, error) {

	text = strings.TrimSpace(text)
	if err := ValidateMessageText(text); err != nil {
		return nil, err
	}

	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, ErrRoomInactive
	}

	msg := &models.Message{
		ID:          uuid.NewString(),
		RoomID:      room.ID,
		Sender:      sender,
		Text:        text,
		CreatedDate: s.now(),
	}
	if err := s.Store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.Metrics.messageSent()
	s.publish(ctx, &models.ChangeEvent{
		Table:      models.TableMessages,
		Type:       models.EventInsert,
		RoomID:     room.ID,
		Message:    msg,
		CommitDate: msg.CreatedDate,
	})
	return msg, nil

}

// DeleteMessage removes a message, but only for the person who sent it
func (s *ChatService) DeleteMessage(ctx context.Context, roomID, messageID, sender string) error {

	msg, err := s.Store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.RoomID != roomID {
		return ErrMessageNotFound
	}
	if msg.Sender != sender {
		return ErrNotMessageSender
	}

	if err := s.Store.DeleteMessage(ctx, messageID); err != nil {
		return err
	}

	s.Metrics.messageDeleted()
	s.publish(ctx, &models.ChangeEvent{
		Table:      models.TableMessages,
		Type:       models.EventDelete,
		RoomID:     roomID,
		OldID:      messageID,
		CommitDate: s.now(),
	})
	return nil

}

// EndSession marks the room inactive and publishes the update. Ending a room
// that already ended does nothing and publishes nothing.
func (s *ChatService) EndSession(ctx context.Context, roomID string) (*models.Room, error) {

	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return room, nil
	}

	now := s.now()
	room.IsActive = false
	room.EndedDate = sql.NullTime{Valid: true, Time: now}
	if err := s.Store.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	s.Metrics.sessionEnded()
	s.logger().Info("session ended", zap.String("room_id", room.ID))
	s.publish(ctx, &models.ChangeEvent{
		Table:      models.TableRooms,
		Type:       models.EventUpdate,
		RoomID:     room.ID,
		Room:       room,
		CommitDate: now,
	})
	return room, nil

}

// Subscribe registers fn for one kind of change in one room
func (s *ChatService) Subscribe(topic models.Topic, fn func(*models.ChangeEvent)) (Subscription, error) {
	return s.Feed.Subscribe(topic, fn)
}

// publish announces a change. The row is already written at this point, so a
// failure is logged rather than returned.
func (s *ChatService) publish(ctx context.Context, event *models.ChangeEvent) {
	if s.Feed == nil {
		return
	}
	if err := s.Feed.Publish(ctx, event); err != nil {
		s.logger().Error("failed to publish change event",
			zap.String("table", event.Table),
			zap.String("type", string(event.Type)),
			zap.String("room_id", event.RoomID),
			zap.Error(err),
		)
	}
}

// GenerateRoomCode returns a random code of RoomCodeLength characters from RoomCodeAlphabet
func GenerateRoomCode() (string, error) {
	max := big.NewInt(int64(len(RoomCodeAlphabet)))
	code := make([]byte, RoomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = RoomCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// NormalizeRoomCode trims and upper-cases a code typed by a user
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateNickname checks an already trimmed nickname
func ValidateNickname(nickname string) error {
	n := utf8.RuneCountInString(nickname)
	if n < MinNicknameLength {
		return ErrInvalidNickname
	}
	if n > MaxNicknameLength {
		return ErrNicknameTooLong
	}
	return nil
}

// ValidatePassword checks an already trimmed password
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}

// ValidateMessageText checks an already trimmed message
func ValidateMessageText(text string) error {
	if len(text) == 0 {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}
