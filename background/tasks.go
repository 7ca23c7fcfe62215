package background

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// DeliverNotification is a background job to store a queued notification
// event and push it to the user
func (m *BackgroundManager) DeliverNotification(payload string) error {
	return m.consumer.Deliver(payload)
}

// ExpirePendingRequests is a background job to cancel requests left
// pending longer than the configured ttl
func (m *BackgroundManager) ExpirePendingRequests() error {
	before := time.Now().UTC().Add(-m.pendingTTL)

	count, err := m.store.ExpirePendingDonations(before)
	if err != nil {
		log.WithField("prefix", logPrefix).WithError(err).Error("expire pending requests")
		return err
	}

	log.WithFields(log.Fields{
		"prefix": logPrefix,
		"before": before,
		"count":  count,
	}).Info("pending requests expired")

	return nil
}
