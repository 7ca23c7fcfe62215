package donation

import (
	"fmt"
	"time"

	"github.com/bitmark-inc/plasmalink-api/bloodgroup"
	"github.com/bitmark-inc/plasmalink-api/geo"
	"github.com/bitmark-inc/plasmalink-api/schema"
	"github.com/bitmark-inc/plasmalink-api/store"
)

// RequestView is a match record with the counterpart details a dashboard
// shows next to it
type RequestView struct {
	schema.Donation
	Requester            *schema.Summary `json:"requester,omitempty"`
	Donor                *schema.Summary `json:"donor,omitempty"`
	RequestedBloodGroup  string          `json:"requestedBloodGroup"`
	Distance             *float64        `json:"distance,omitempty"`
	IsCompatible         *bool           `json:"isCompatible,omitempty"`
	CompatibilityMessage string          `json:"compatibilityMessage,omitempty"`
}

// Stats of a donor's completed donations
type Stats struct {
	TotalDonations   int        `json:"totalDonations"`
	LastDonation     *time.Time `json:"lastDonation"`
	NextEligibleDate *time.Time `json:"nextEligibleDate"`
}

// CompatibilityMessage describes whether the donor group can give to the
// requested one
func CompatibilityMessage(donorGroup, requestedGroup string) string {
	if bloodgroup.CanDonate(donorGroup, requestedGroup) {
		return fmt.Sprintf("Compatible: You can donate %s to %s", donorGroup, requestedGroup)
	}
	return fmt.Sprintf("Incompatible: You cannot donate %s to %s", donorGroup, requestedGroup)
}

// NearbyRequests lists the pending requests sent to the donor, newest first
func (s *Service) NearbyRequests(donorID string) ([]RequestView, error) {
	return s.donorView(donorID, schema.DonationPending)
}

// ConfirmedRequests lists the requests the donor has accepted
func (s *Service) ConfirmedRequests(donorID string) ([]RequestView, error) {
	return s.donorView(donorID, schema.DonationAccepted)
}

// History lists every record targeting the donor
func (s *Service) History(donorID string) ([]RequestView, error) {
	return s.donorView(donorID)
}

// ActiveRequests lists the live requests the requester has made
func (s *Service) ActiveRequests(requesterID string) ([]RequestView, error) {
	return s.requesterView(requesterID, schema.LiveDonationStatuses...)
}

// RequestHistory lists every record the requester has made
func (s *Service) RequestHistory(requesterID string) ([]RequestView, error) {
	return s.requesterView(requesterID)
}

// Stats counts the donor's fulfilled donations and when the donor may give
// again
func (s *Service) Stats(donorID string) (*Stats, error) {
	donations, err := s.donations.ListDonations(store.DonationFilter{
		DonorID:  donorID,
		Statuses: []string{schema.DonationFulfilled},
	})
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalDonations: len(donations)}
	for _, d := range donations {
		if stats.LastDonation == nil || d.Date.After(*stats.LastDonation) {
			date := d.Date
			stats.LastDonation = &date
		}
	}

	if stats.LastDonation != nil {
		next := stats.LastDonation.Add(s.eligibilityInterval)
		stats.NextEligibleDate = &next
	}

	return stats, nil
}

func (s *Service) donorView(donorID string, statuses ...string) ([]RequestView, error) {
	donor, err := s.users.GetUser(donorID)
	if err != nil {
		return nil, err
	}

	donations, err := s.donations.ListDonations(store.DonationFilter{
		DonorID:  donorID,
		Statuses: statuses,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(donations))
	for _, d := range donations {
		ids = append(ids, d.RequesterID)
	}
	requesters, err := s.users.GetUsers(ids)
	if err != nil {
		return nil, err
	}

	views := make([]RequestView, 0, len(donations))
	for _, d := range donations {
		v := RequestView{
			Donation:            d,
			RequestedBloodGroup: d.BloodGroup,
		}

		if r, ok := requesters[d.RequesterID]; ok {
			summary := r.Summary()
			v.Requester = &summary
			if v.RequestedBloodGroup == "" {
				v.RequestedBloodGroup = r.BloodGroup
			}
			v.Distance = distance(donor, &r)
		}

		compatible := bloodgroup.CanDonate(donor.BloodGroup, v.RequestedBloodGroup)
		v.IsCompatible = &compatible
		v.CompatibilityMessage = CompatibilityMessage(donor.BloodGroup, v.RequestedBloodGroup)

		views = append(views, v)
	}

	return views, nil
}

func (s *Service) requesterView(requesterID string, statuses ...string) ([]RequestView, error) {
	requester, err := s.users.GetUser(requesterID)
	if err != nil {
		return nil, err
	}

	donations, err := s.donations.ListDonations(store.DonationFilter{
		RequesterID: requesterID,
		Statuses:    statuses,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(donations))
	for _, d := range donations {
		ids = append(ids, d.DonorID)
	}
	donors, err := s.users.GetUsers(ids)
	if err != nil {
		return nil, err
	}

	views := make([]RequestView, 0, len(donations))
	for _, d := range donations {
		v := RequestView{
			Donation:            d,
			RequestedBloodGroup: d.BloodGroup,
		}
		if v.RequestedBloodGroup == "" {
			v.RequestedBloodGroup = requester.BloodGroup
		}

		if donor, ok := donors[d.DonorID]; ok {
			summary := donor.Summary()
			v.Donor = &summary
			v.Distance = distance(requester, &donor)

			compatible := bloodgroup.CanDonate(donor.BloodGroup, v.RequestedBloodGroup)
			v.IsCompatible = &compatible
		}

		views = append(views, v)
	}

	return views, nil
}

func distance(a, b *schema.User) *float64 {
	if !a.HasLocation() || !b.HasLocation() {
		return nil
	}
	d := geo.RoundKm(geo.Distance(*a.Location, *b.Location))
	return &d
}
