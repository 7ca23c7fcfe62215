package donation

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/bitmark-inc/plasmalink-api/bloodgroup"
	"github.com/bitmark-inc/plasmalink-api/notification"
	"github.com/bitmark-inc/plasmalink-api/schema"
	"github.com/bitmark-inc/plasmalink-api/store"
)

const logPrefix = "donation"

// DefaultEligibilityInterval is the wait between two donations of a donor
const DefaultEligibilityInterval = 14 * 24 * time.Hour

// Service drives match records from request to confirmation and builds
// the dashboard views of both sides
type Service struct {
	users     store.UserDirectory
	donations store.DonationStore
	publisher notification.Publisher

	eligibilityInterval time.Duration

	created      tally.Counter
	confirmed    tally.Counter
	incompatible tally.Counter
	cancelled    tally.Counter
	fulfilled    tally.Counter
	notifyFailed tally.Counter
}

func NewService(users store.UserDirectory, donations store.DonationStore, publisher notification.Publisher, scope tally.Scope, eligibilityInterval time.Duration) *Service {
	if scope == nil {
		scope = tally.NoopScope
	}
	if eligibilityInterval <= 0 {
		eligibilityInterval = DefaultEligibilityInterval
	}

	return &Service{
		users:               users,
		donations:           donations,
		publisher:           publisher,
		eligibilityInterval: eligibilityInterval,
		created:             scope.Counter("donation_requests_created"),
		confirmed:           scope.Counter("donation_requests_confirmed"),
		incompatible:        scope.Counter("donation_confirm_incompatible"),
		cancelled:           scope.Counter("donation_requests_cancelled"),
		fulfilled:           scope.Counter("donation_requests_fulfilled"),
		notifyFailed:        scope.Counter("notifications_failed"),
	}
}

// CreateRequest opens a pending record from the requester to the donor and
// tells the donor about it
func (s *Service) CreateRequest(cmd RequestCommand) (*schema.Donation, error) {
	if cmd.DonorID == cmd.RequesterID {
		return nil, ErrSelfRequest
	}

	donor, err := s.users.GetUser(cmd.DonorID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrDonorNotFound
		}
		return nil, err
	}
	if donor.Role != schema.RoleDonor {
		return nil, ErrDonorNotFound
	}

	requester, err := s.users.GetUser(cmd.RequesterID)
	if err != nil {
		return nil, err
	}

	group := bloodgroup.Normalize(cmd.BloodGroup)
	if group == "" {
		group = requester.BloodGroup
	}
	if !bloodgroup.Valid(group) {
		return nil, ErrInvalidBloodGroup
	}

	now := time.Now().UTC()
	d := &schema.Donation{
		DonorID:     donor.ID,
		RequesterID: requester.ID,
		BloodGroup:  group,
		Status:      schema.DonationPending,
		Date:        now,
		UpdatedAt:   now,
	}

	if err := s.donations.CreateDonation(d); err != nil {
		if errors.Is(err, store.ErrRequestExists) {
			return nil, ErrDuplicateRequest
		}
		return nil, err
	}
	s.created.Inc(1)

	log.WithFields(log.Fields{
		"prefix":       logPrefix,
		"donor_id":     donor.ID,
		"requester_id": requester.ID,
		"blood_group":  group,
	}).Info("donation request created")

	s.notify(notification.Event{
		Type:             schema.NotificationRequest,
		Template:         notification.TemplateRequestReceived,
		UserID:           donor.ID,
		RelatedUserID:    requester.ID,
		RelatedRequestID: d.ID,
		Params: map[string]string{
			"Name":       requester.Name,
			"BloodGroup": group,
		},
	})

	return d, nil
}

// ConfirmRequest accepts the pending record of the pair after checking the
// donor can still give to the requested group. Of two concurrent
// confirmations only one succeeds, the other gets ErrRequestNotFound.
func (s *Service) ConfirmRequest(cmd ConfirmCommand) (*schema.Donation, error) {
	record, err := s.donations.FindDonation(cmd.DonorID, cmd.RequesterID, schema.DonationPending)
	if err != nil {
		if errors.Is(err, store.ErrRequestNotExist) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	donor, err := s.users.GetUser(cmd.DonorID)
	if err != nil {
		return nil, err
	}

	requested := record.BloodGroup
	if requested == "" {
		requester, err := s.users.GetUser(cmd.RequesterID)
		if err != nil {
			return nil, err
		}
		requested = requester.BloodGroup
	}

	if !bloodgroup.CanDonate(donor.BloodGroup, requested) {
		s.incompatible.Inc(1)
		return nil, &IncompatibleBloodGroupError{
			DonorBloodGroup:     donor.BloodGroup,
			RequestedBloodGroup: requested,
		}
	}

	updated, err := s.donations.TransitDonation(cmd.DonorID, cmd.RequesterID, schema.DonationPending, schema.DonationAccepted)
	if err != nil {
		if errors.Is(err, store.ErrRequestNotExist) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	s.confirmed.Inc(1)

	log.WithFields(log.Fields{
		"prefix":       logPrefix,
		"donor_id":     cmd.DonorID,
		"requester_id": cmd.RequesterID,
	}).Info("donation request confirmed")

	s.notify(notification.Event{
		Type:             schema.NotificationConfirmation,
		Template:         notification.TemplateRequestConfirmed,
		UserID:           cmd.RequesterID,
		RelatedUserID:    cmd.DonorID,
		RelatedRequestID: updated.ID,
		Params: map[string]string{
			"Name": donor.Name,
		},
	})

	return updated, nil
}

// CancelRequest withdraws the pending record between the actor and the
// counterpart, whichever side the actor is on
func (s *Service) CancelRequest(cmd CancelCommand) (*schema.Donation, error) {
	if cmd.ActorID == cmd.CounterpartID {
		return nil, ErrRequestNotFound
	}

	updated, err := s.donations.TransitDonation(cmd.ActorID, cmd.CounterpartID, schema.DonationPending, schema.DonationCancelled)
	if errors.Is(err, store.ErrRequestNotExist) {
		updated, err = s.donations.TransitDonation(cmd.CounterpartID, cmd.ActorID, schema.DonationPending, schema.DonationCancelled)
	}
	if err != nil {
		if errors.Is(err, store.ErrRequestNotExist) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	s.cancelled.Inc(1)

	name := ""
	if actor, err := s.users.GetUser(cmd.ActorID); err == nil {
		name = actor.Name
	}

	s.notify(notification.Event{
		Type:             schema.NotificationSystem,
		Template:         notification.TemplateRequestCancelled,
		UserID:           cmd.CounterpartID,
		RelatedUserID:    cmd.ActorID,
		RelatedRequestID: updated.ID,
		Params: map[string]string{
			"Name": name,
		},
	})

	return updated, nil
}

// FulfillRequest marks an accepted record as donated. The pair stays
// matched.
func (s *Service) FulfillRequest(cmd FulfillCommand) (*schema.Donation, error) {
	updated, err := s.donations.TransitDonation(cmd.DonorID, cmd.RequesterID, schema.DonationAccepted, schema.DonationFulfilled)
	if err != nil {
		if errors.Is(err, store.ErrRequestNotExist) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	s.fulfilled.Inc(1)

	if err := s.users.SetLastDonationDate(cmd.DonorID, updated.UpdatedAt); err != nil {
		log.WithField("prefix", logPrefix).WithError(err).Error("set last donation date")
		return nil, err
	}

	name := ""
	if donor, err := s.users.GetUser(cmd.DonorID); err == nil {
		name = donor.Name
	}

	s.notify(notification.Event{
		Type:             schema.NotificationSystem,
		Template:         notification.TemplateDonationFulfilled,
		UserID:           cmd.RequesterID,
		RelatedUserID:    cmd.DonorID,
		RelatedRequestID: updated.ID,
		Params: map[string]string{
			"Name": name,
		},
	})

	return updated, nil
}

// LogDonation records a completed donation of the donor to a recipient.
// The record is marked as logged so it never opens a chat between the two.
func (s *Service) LogDonation(cmd LogCommand) (*schema.Donation, error) {
	if cmd.DonorID == cmd.RecipientID {
		return nil, ErrSelfRequest
	}

	now := time.Now().UTC()
	date := cmd.Date.UTC()
	if cmd.Date.IsZero() {
		date = now
	}
	if date.After(now) {
		return nil, ErrInvalidDonationDate
	}

	donor, err := s.users.GetUser(cmd.DonorID)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetUser(cmd.RecipientID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	d := &schema.Donation{
		DonorID:     donor.ID,
		RequesterID: cmd.RecipientID,
		BloodGroup:  donor.BloodGroup,
		Status:      schema.DonationFulfilled,
		Notes:       cmd.Notes,
		Logged:      true,
		Date:        date,
		UpdatedAt:   now,
	}
	if err := s.donations.CreateDonation(d); err != nil {
		return nil, err
	}
	s.fulfilled.Inc(1)

	if err := s.users.SetLastDonationDate(donor.ID, date); err != nil {
		return nil, err
	}

	return d, nil
}

// notify hands the event to the publisher. Failures never reach the
// caller, the state change already happened.
func (s *Service) notify(event notification.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(event); err != nil {
		s.notifyFailed.Inc(1)
		log.WithFields(log.Fields{
			"prefix":   logPrefix,
			"template": event.Template,
			"user_id":  event.UserID,
		}).WithError(err).Warn("publish notification")
	}
}
