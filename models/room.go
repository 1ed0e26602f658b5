package models

import (
	"database/sql"
	"time"
)

// Room is a temporary chat session shared between the people who know its code
// and password. Rooms are never deleted, only marked inactive when the session ends.
type Room struct {
	ID           string       `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	RoomCode     string       `gorm:"size:6;index" bson:"room_code" json:"room_code"`
	PasswordHash string       `bson:"password_hash" json:"-"`
	CreatedBy    string       `gorm:"size:50" bson:"created_by" json:"created_by"`
	IsActive     bool         `gorm:"index" bson:"is_active" json:"is_active"`
	CreatedDate  time.Time    `bson:"created_date" json:"created_at"`
	EndedDate    sql.NullTime `bson:"ended_date" json:"-"`
}
