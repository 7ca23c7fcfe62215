package schema

import "time"

const (
	NotificationCollection = "notifications"
)

const (
	NotificationRequest      = "request"
	NotificationConfirmation = "confirmation"
	NotificationChat         = "chat"
	NotificationSystem       = "system"
)

// Notification is an informational record addressed to one user
type Notification struct {
	ID               string    `json:"id" bson:"_id"`
	UserID           string    `json:"userId" bson:"user_id"`
	Title            string    `json:"title" bson:"title"`
	Message          string    `json:"message" bson:"message"`
	Type             string    `json:"type" bson:"type"`
	RelatedUserID    string    `json:"relatedUserId,omitempty" bson:"related_user_id,omitempty"`
	RelatedRequestID string    `json:"relatedRequestId,omitempty" bson:"related_request_id,omitempty"`
	IsRead           bool      `json:"isRead" bson:"is_read"`
	CreatedAt        time.Time `json:"createdAt" bson:"created_at"`
}
