package notification

import (
	"context"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/bitmark-inc/plasmalink-api/messaging"
	"github.com/bitmark-inc/plasmalink-api/schema"
	"github.com/bitmark-inc/plasmalink-api/store"
	"github.com/bitmark-inc/plasmalink-api/utils"
)

const (
	logPrefix      = "notification"
	publishTimeout = 5 * time.Second
)

// fallback texts used when a template is missing from the bundle
var defaultMessages = map[string][2]string{
	TemplateRequestReceived: {
		"New Blood Request",
		"{{.Name}} has requested your blood donation ({{.BloodGroup}}). Check your dashboard to respond.",
	},
	TemplateRequestConfirmed: {
		"Request Confirmed!",
		"{{.Name}} has confirmed your blood donation request. You can now chat with them.",
	},
	TemplateRequestCancelled: {
		"Request Cancelled",
		"{{.Name}} has cancelled the blood donation request.",
	},
	TemplateDonationFulfilled: {
		"Donation Completed",
		"{{.Name}} has marked your blood donation as completed. Thank you!",
	},
}

// Consumer turns queued events into stored notifications and pushes them
// to the live sessions of the target user
type Consumer struct {
	store    store.NotificationStore
	broker   messaging.Broker
	language string

	delivered tally.Counter
	failed    tally.Counter
}

func NewConsumer(s store.NotificationStore, broker messaging.Broker, language string, scope tally.Scope) *Consumer {
	if scope == nil {
		scope = tally.NoopScope
	}
	return &Consumer{
		store:     s,
		broker:    broker,
		language:  language,
		delivered: scope.Counter("notifications_delivered"),
		failed:    scope.Counter("notifications_failed"),
	}
}

// Deliver is the deliver_notification task
func (c *Consumer) Deliver(payload string) error {
	event, err := DecodeEvent(payload)
	if err != nil {
		log.WithField("prefix", logPrefix).WithError(err).Errorf("drop malformed event: %s", payload)
		c.failed.Inc(1)
		return err
	}

	_, err = c.Handle(event)
	return err
}

// Handle stores the notification of an event. The live push is best effort.
func (c *Consumer) Handle(event Event) (*schema.Notification, error) {
	title, message := c.localize(event)

	n := &schema.Notification{
		UserID:           event.UserID,
		Title:            title,
		Message:          message,
		Type:             event.Type,
		RelatedUserID:    event.RelatedUserID,
		RelatedRequestID: event.RelatedRequestID,
		IsRead:           false,
		CreatedAt:        time.Now().UTC(),
	}

	if err := c.store.AddNotification(n); err != nil {
		log.WithFields(log.Fields{
			"prefix":  logPrefix,
			"user_id": event.UserID,
		}).WithError(err).Error("store notification")
		c.failed.Inc(1)
		return nil, err
	}
	c.delivered.Inc(1)

	if c.broker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := c.broker.Publish(ctx, messaging.UserTopic(event.UserID), messaging.Envelope{
			Event: messaging.EventNotification,
			Data:  n,
		}); err != nil {
			log.WithField("prefix", logPrefix).WithError(err).Warn("push notification")
		}
	}

	return n, nil
}

func (c *Consumer) localize(event Event) (string, string) {
	loc := utils.NewLocalizer(c.language)
	defaults := defaultMessages[event.Template]

	data := make(map[string]interface{}, len(event.Params))
	for k, v := range event.Params {
		data[k] = v
	}

	text := func(part, fallback string) string {
		id := "notification." + event.Template + "." + part
		s, err := loc.Localize(&i18n.LocalizeConfig{
			DefaultMessage: &i18n.Message{ID: id, Other: fallback},
			TemplateData:   data,
		})
		if err != nil {
			log.WithField("prefix", logPrefix).WithError(err).Warnf("localize %s", id)
		}
		return s
	}

	return text("title", defaults[0]), text("message", defaults[1])
}
