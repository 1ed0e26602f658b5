package services

import (
	"context"

	"github.com/godocompany/tempchat/models"
)

// Store is the persistence behind the chat service. Lookups return (nil, nil)
// when the row does not exist.
type Store interface {
	InsertRoom(ctx context.Context, room *models.Room) error
	GetRoomByID(ctx context.Context, id string) (*models.Room, error)
	GetActiveRoomByCode(ctx context.Context, code string) (*models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error
	InsertMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ListMessages(ctx context.Context, roomID string) ([]*models.Message, error)
	Close() error
}
