package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/godocompany/tempchat/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSqliteStore(t *testing.T) *GormStore {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store, err := NewGormStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestChat(t *testing.T) (*ChatService, *MemoryFeed) {
	feed := NewMemoryFeed(nil)
	t.Cleanup(func() { _ = feed.Close() })
	return &ChatService{
		Store:      newSqliteStore(t),
		Feed:       feed,
		Metrics:    NewMetrics(),
		BcryptCost: bcrypt.MinCost,
	}, feed
}

// collect subscribes to a topic and returns the channel its events land on
func collect(t *testing.T, feed Feed, topic models.Topic) <-chan *models.ChangeEvent {
	events := make(chan *models.ChangeEvent, 16)
	sub, err := feed.Subscribe(topic, func(event *models.ChangeEvent) {
		events <- event
	})
	require.NoError(t, err)
	t.Cleanup(sub.Unsubscribe)
	return events
}

func nextEvent(t *testing.T, events <-chan *models.ChangeEvent) *models.ChangeEvent {
	select {
	case event := <-events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a change event")
		return nil
	}
}

func noEvent(t *testing.T, events <-chan *models.ChangeEvent) {
	select {
	case event := <-events:
		t.Fatalf("unexpected %s %s event", event.Table, event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}
