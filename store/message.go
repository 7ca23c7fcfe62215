package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

// MessageStore - chat history between two users
type MessageStore interface {
	AddMessage(message *schema.ChatMessage) error
	ListMessages(userA, userB string, limit int64) ([]schema.ChatMessage, error)
}

// AddMessage persists a chat message. Message ids are object ids, they
// grow with insertion order.
func (m *mongoDB) AddMessage(message *schema.ChatMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if message.ID == "" {
		message.ID = primitive.NewObjectID().Hex()
	}

	_, err := m.collection(schema.MessageCollection).InsertOne(ctx, message)
	return err
}

// ListMessages returns the latest messages exchanged by two users in
// ascending time order. A limit of zero returns the whole history.
func (m *mongoDB) ListMessages(userA, userB string, limit int64) ([]schema.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := bson.M{
		"$or": bson.A{
			bson.M{"sender_id": userA, "receiver_id": userB},
			bson.M{"sender_id": userB, "receiver_id": userA},
		},
	}

	// newest first so the limit keeps the latest ones, _id breaks ties of
	// messages stored within the same millisecond by insertion order
	opts := options.Find().SetSort(bson.D{
		{Key: "ts", Value: -1},
		{Key: "_id", Value: -1},
	})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := m.collection(schema.MessageCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	messages := make([]schema.ChatMessage, 0)
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
