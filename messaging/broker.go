package messaging

//go:generate mockgen -source=broker.go -destination=mocks/broker.go -package=mocks

import (
	"context"
)

const (
	EventReceiveMessage = "receiveMessage"
	EventMessageSent    = "messageSent"
	EventNotification   = "notification"
	EventError          = "error"
)

// Broker - publish/subscribe on named topics. Delivery is at most once,
// a topic without subscribers drops the message.
type Broker interface {
	Publish(ctx context.Context, topic string, message interface{}) error
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
	Close() error
}

// Envelope is the frame carried on a user topic
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// UserTopic is the private topic of a user, every session of the user
// subscribes to it
func UserTopic(userID string) string {
	return "plasmalink:user:" + userID
}
