package schema

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDBIndexer struct {
	ctx      context.Context
	dbName   string
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDBIndexer(connectionString, dbName string) *MongoDBIndexer {
	ctx := context.Background()
	opts := options.Client().ApplyURI(connectionString)
	client, err := mongo.NewClient(opts)
	if err != nil {
		panic(err)
	}
	if err := client.Connect(ctx); err != nil {
		panic(err)
	}

	return &MongoDBIndexer{
		ctx:      ctx,
		dbName:   dbName,
		Client:   client,
		Database: client.Database(dbName),
	}
}

func (m *MongoDBIndexer) createIndex(collection string, index mongo.IndexModel) error {
	c := m.Database.Collection(collection)
	_, err := c.Indexes().CreateOne(m.ctx, index)
	return err
}

func panicIfError(err error) {
	if err != nil {
		panic(err)
	}
}

func (m *MongoDBIndexer) IndexAll() {
	panicIfError(m.IndexUserCollection())
	panicIfError(m.IndexDonationCollection())
	panicIfError(m.IndexMessageCollection())
	panicIfError(m.IndexNotificationCollection())
}

func (m *MongoDBIndexer) IndexUserCollection() error {
	if err := m.createIndex(UserCollection, mongo.IndexModel{
		Keys: bson.M{
			"email": 1,
		},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}

	if err := m.createIndex(UserCollection, mongo.IndexModel{
		Keys: bson.D{
			{Key: "role", Value: 1},
			{Key: "is_available", Value: 1},
			{Key: "blood_group", Value: 1},
		},
	}); err != nil {
		return err
	}

	return m.createIndex(UserCollection, mongo.IndexModel{
		Keys: bson.M{
			"point": "2dsphere",
		},
	})
}

func (m *MongoDBIndexer) IndexDonationCollection() error {
	if err := m.createIndex(DonationCollection, mongo.IndexModel{
		Keys: bson.D{
			{Key: "donor_id", Value: 1},
			{Key: "requester_id", Value: 1},
			{Key: "status", Value: 1},
		},
	}); err != nil {
		return err
	}

	// at most one live request per (donor, requester) pair
	if err := m.createIndex(DonationCollection, mongo.IndexModel{
		Keys: bson.D{
			{Key: "donor_id", Value: 1},
			{Key: "requester_id", Value: 1},
		},
		Options: options.Index().
			SetName("donation_unique_if_live").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"status": bson.M{"$in": LiveDonationStatuses},
			}),
	}); err != nil {
		return err
	}

	if err := m.createIndex(DonationCollection, mongo.IndexModel{
		Keys: bson.D{
			{Key: "requester_id", Value: 1},
			{Key: "date", Value: -1},
		},
	}); err != nil {
		return err
	}

	return m.createIndex(DonationCollection, mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "date", Value: 1},
		},
	})
}

func (m *MongoDBIndexer) IndexMessageCollection() error {
	return m.createIndex(MessageCollection, mongo.IndexModel{
		Keys: bson.D{
			{Key: "sender_id", Value: 1},
			{Key: "receiver_id", Value: 1},
			{Key: "ts", Value: 1},
		},
	})
}

func (m *MongoDBIndexer) IndexNotificationCollection() error {
	return m.createIndex(NotificationCollection, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "is_read", Value: 1},
			{Key: "created_at", Value: -1},
		},
	})
}
