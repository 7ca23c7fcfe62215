package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

var (
	ErrNotificationNotFound = fmt.Errorf("notification not found")
)

// NotificationStore - informational records addressed to users
type NotificationStore interface {
	AddNotification(notification *schema.Notification) error
	ListNotifications(userID string, limit int64) ([]schema.Notification, error)
	MarkNotificationRead(userID, notificationID string) (*schema.Notification, error)
	MarkAllNotificationsRead(userID string) (int64, error)
	CountUnreadNotifications(userID string) (int64, error)
}

// AddNotification persists a notification
func (m *mongoDB) AddNotification(notification *schema.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if notification.ID == "" {
		notification.ID = newID()
	}

	_, err := m.collection(schema.NotificationCollection).InsertOne(ctx, notification)
	return err
}

// ListNotifications returns the newest notifications of a user
func (m *mongoDB) ListNotifications(userID string, limit int64) ([]schema.Notification, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := m.collection(schema.NotificationCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}

	notifications := make([]schema.Notification, 0)
	if err := cur.All(ctx, &notifications); err != nil {
		return nil, err
	}

	return notifications, nil
}

// MarkNotificationRead marks one notification of its owner as read
func (m *mongoDB) MarkNotificationRead(userID, notificationID string) (*schema.Notification, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var notification schema.Notification
	if err := m.collection(schema.NotificationCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": notificationID, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&notification); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	return &notification, nil
}

// MarkAllNotificationsRead marks every unread notification of a user
func (m *mongoDB) MarkAllNotificationsRead(userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result, err := m.collection(schema.NotificationCollection).UpdateMany(ctx,
		bson.M{"user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}

// CountUnreadNotifications counts unread notifications of a user
func (m *mongoDB) CountUnreadNotifications(userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	return m.collection(schema.NotificationCollection).CountDocuments(ctx,
		bson.M{"user_id": userID, "is_read": false})
}
