package models

import "time"

// Message is a single line of text sent into a room
type Message struct {
	ID          string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	RoomID      string    `gorm:"size:36;index" bson:"room_id" json:"room_id"`
	Room        *Room     `bson:"-" json:"-"`
	Sender      string    `gorm:"size:50" bson:"sender" json:"sender"`
	Text        string    `gorm:"size:2000" bson:"text" json:"text"`
	CreatedDate time.Time `gorm:"index" bson:"created_date" json:"created_at"`
}
