package schema

import "time"

const (
	MessageCollection = "messages"
)

// ChatMessage is one immutable message between two matched users
type ChatMessage struct {
	ID         string    `json:"id" bson:"_id"`
	SenderID   string    `json:"senderId" bson:"sender_id"`
	ReceiverID string    `json:"receiverId" bson:"receiver_id"`
	Message    string    `json:"message" bson:"message"`
	Timestamp  time.Time `json:"timestamp" bson:"ts"`
}
