package services

import (
	"context"
	"errors"

	"github.com/godocompany/tempchat/models"
	"gorm.io/gorm"
)

// GormStore keeps rooms and messages in a SQL database through gorm
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore wraps the database and migrates the chat tables
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.Room{}, &models.Message{}); err != nil {
		return nil, err
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) InsertRoom(ctx context.Context, room *models.Room) error {
	return s.DB.WithContext(ctx).Create(room).Error
}

// GetRoomByID gets the room with the provided ID, active or not
func (s *GormStore) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	err := s.DB.
		WithContext(ctx).
		Where("id = ?", id).
		First(&room).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// GetActiveRoomByCode gets the active room using the provided code
func (s *GormStore) GetActiveRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := s.DB.
		WithContext(ctx).
		Where("room_code = ?", code).
		Where("is_active = ?", true).
		First(&room).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (s *GormStore) UpdateRoom(ctx context.Context, room *models.Room) error {
	return s.DB.
		WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", room.ID).
		Updates(map[string]interface{}{
			"is_active":  room.IsActive,
			"ended_date": room.EndedDate,
		}).
		Error
}

func (s *GormStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	return s.DB.WithContext(ctx).Omit("Room").Create(msg).Error
}

func (s *GormStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.
		WithContext(ctx).
		Where("id = ?", id).
		First(&msg).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (s *GormStore) DeleteMessage(ctx context.Context, id string) error {
	return s.DB.
		WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Message{}).
		Error
}

// ListMessages gets every message in a room, oldest first
func (s *GormStore) ListMessages(ctx context.Context, roomID string) ([]*models.Message, error) {
	var messages []*models.Message
	err := s.DB.
		WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_date ASC").
		Order("id ASC").
		Find(&messages).
		Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
