package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godocompany/tempchat/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps rooms and messages in MongoDB collections
type MongoStore struct {
	client   *mongo.Client
	rooms    *mongo.Collection
	messages *mongo.Collection
}

// NewMongoStore connects to MongoDB and makes sure the lookup indexes exist
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		rooms:    db.Collection(models.TableRooms),
		messages: db.Collection(models.TableMessages),
	}
	if err := s.createIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil

}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.rooms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room_code", Value: 1}, {Key: "is_active", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create room index: %w", err)
	}
	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "created_date", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create message index: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertRoom(ctx context.Context, room *models.Room) error {
	_, err := s.rooms.InsertOne(ctx, room)
	return err
}

func (s *MongoStore) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	return s.findRoom(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetActiveRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	return s.findRoom(ctx, bson.M{"room_code": code, "is_active": true})
}

func (s *MongoStore) findRoom(ctx context.Context, filter bson.M) (*models.Room, error) {
	var room models.Room
	if err := s.rooms.FindOne(ctx, filter).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (s *MongoStore) UpdateRoom(ctx context.Context, room *models.Room) error {
	_, err := s.rooms.UpdateByID(ctx, room.ID, bson.M{
		"$set": bson.M{
			"is_active":  room.IsActive,
			"ended_date": room.EndedDate,
		},
	})
	return err
}

func (s *MongoStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	_, err := s.messages.InsertOne(ctx, msg)
	return err
}

func (s *MongoStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := s.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (s *MongoStore) DeleteMessage(ctx context.Context, id string) error {
	_, err := s.messages.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) ListMessages(ctx context.Context, roomID string) ([]*models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_date", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []*models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
