package notification

//go:generate mockgen -source=event.go -destination=mocks/publisher.go -package=mocks

import (
	"encoding/json"
	"fmt"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

// Templates select the localized title and message of an event
const (
	TemplateRequestReceived   = "request_received"
	TemplateRequestConfirmed  = "request_confirmed"
	TemplateRequestCancelled  = "request_cancelled"
	TemplateDonationFulfilled = "donation_fulfilled"
)

var ErrInvalidEvent = fmt.Errorf("invalid notification event")

// Event is a state change a user should be told about. Params feed the
// message template.
type Event struct {
	Type             string            `json:"type"`
	Template         string            `json:"template"`
	UserID           string            `json:"userId"`
	RelatedUserID    string            `json:"relatedUserId,omitempty"`
	RelatedRequestID string            `json:"relatedRequestId,omitempty"`
	Params           map[string]string `json:"params,omitempty"`
}

func (e Event) Validate() error {
	if e.UserID == "" {
		return ErrInvalidEvent
	}
	if _, ok := defaultMessages[e.Template]; !ok {
		return ErrInvalidEvent
	}

	switch e.Type {
	case schema.NotificationRequest, schema.NotificationConfirmation,
		schema.NotificationChat, schema.NotificationSystem:
		return nil
	default:
		return ErrInvalidEvent
	}
}

func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	return string(b), err
}

func DecodeEvent(payload string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return e, err
	}
	return e, e.Validate()
}

// Publisher - outbound queue of notification events. Publishing does not
// wait for the notification to be stored.
type Publisher interface {
	Publish(event Event) error
}
