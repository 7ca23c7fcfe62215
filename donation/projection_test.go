package donation

import (
	"time"

	"github.com/golang/mock/gomock"

	"github.com/bitmark-inc/plasmalink-api/schema"
	"github.com/bitmark-inc/plasmalink-api/store"
)

func (s *ServiceTestSuite) TestNearbyRequests() {
	donor := user("d1", schema.RoleDonor, "B+")
	donor.Location = &schema.Location{Latitude: 25.0, Longitude: 121.5}

	s.store.EXPECT().GetUser("d1").Return(donor, nil)
	s.store.EXPECT().ListDonations(store.DonationFilter{
		DonorID:  "d1",
		Statuses: []string{schema.DonationPending},
	}).Return([]schema.Donation{
		{ID: "x1", DonorID: "d1", RequesterID: "r1", BloodGroup: "AB+", Status: schema.DonationPending},
		{ID: "x2", DonorID: "d1", RequesterID: "r2", BloodGroup: "AB-", Status: schema.DonationPending},
		{ID: "x3", DonorID: "d1", RequesterID: "gone", Status: schema.DonationPending},
	}, nil)

	r1 := *user("r1", schema.RoleRequester, "A+")
	r1.Location = &schema.Location{Latitude: 26.0, Longitude: 121.5}
	s.store.EXPECT().GetUsers([]string{"r1", "r2", "gone"}).Return(map[string]schema.User{
		"r1": r1,
		"r2": *user("r2", schema.RoleRequester, "AB-"),
	}, nil)

	views, err := s.service.NearbyRequests("d1")
	s.Require().NoError(err)
	s.Require().Len(views, 3)

	s.Equal("x1", views[0].ID)
	s.Equal("r1", views[0].Requester.ID)
	s.Equal("AB+", views[0].RequestedBloodGroup)
	s.True(*views[0].IsCompatible)
	s.Equal("Compatible: You can donate B+ to AB+", views[0].CompatibilityMessage)
	s.Require().NotNil(views[0].Distance)
	s.InDelta(111.19, *views[0].Distance, 0.01)

	s.False(*views[1].IsCompatible)
	s.Equal("Incompatible: You cannot donate B+ to AB-", views[1].CompatibilityMessage)
	s.Nil(views[1].Distance)

	s.Nil(views[2].Requester)
	s.False(*views[2].IsCompatible)
}

func (s *ServiceTestSuite) TestActiveRequests() {
	s.store.EXPECT().GetUser("r1").Return(user("r1", schema.RoleRequester, "A+"), nil)
	s.store.EXPECT().ListDonations(store.DonationFilter{
		RequesterID: "r1",
		Statuses:    schema.LiveDonationStatuses,
	}).Return([]schema.Donation{
		{ID: "x1", DonorID: "d1", RequesterID: "r1", Status: schema.DonationAccepted},
	}, nil)
	s.store.EXPECT().GetUsers([]string{"d1"}).Return(map[string]schema.User{
		"d1": *user("d1", schema.RoleDonor, "O-"),
	}, nil)

	views, err := s.service.ActiveRequests("r1")
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal("d1", views[0].Donor.ID)
	s.Equal("A+", views[0].RequestedBloodGroup)
	s.True(*views[0].IsCompatible)
	s.Nil(views[0].Requester)
}

func (s *ServiceTestSuite) TestRequestHistoryAndHistoryListAllStatuses() {
	s.store.EXPECT().GetUser(gomock.Any()).Return(user("u1", schema.RoleDonor, "O-"), nil).Times(2)
	s.store.EXPECT().ListDonations(store.DonationFilter{RequesterID: "u1"}).Return([]schema.Donation{}, nil)
	s.store.EXPECT().ListDonations(store.DonationFilter{DonorID: "u1"}).Return([]schema.Donation{}, nil)
	s.store.EXPECT().GetUsers([]string{}).Return(map[string]schema.User{}, nil).Times(2)

	views, err := s.service.RequestHistory("u1")
	s.NoError(err)
	s.Empty(views)

	views, err = s.service.History("u1")
	s.NoError(err)
	s.Empty(views)
}

func (s *ServiceTestSuite) TestStats() {
	last := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	s.store.EXPECT().ListDonations(store.DonationFilter{
		DonorID:  "d1",
		Statuses: []string{schema.DonationFulfilled},
	}).Return([]schema.Donation{
		{ID: "a", Date: last},
		{ID: "b", Date: last.Add(-30 * 24 * time.Hour)},
	}, nil)

	stats, err := s.service.Stats("d1")
	s.Require().NoError(err)
	s.Equal(2, stats.TotalDonations)
	s.Equal(last, *stats.LastDonation)
	s.Equal(last.Add(14*24*time.Hour), *stats.NextEligibleDate)
}

func (s *ServiceTestSuite) TestStatsWithoutDonations() {
	s.store.EXPECT().ListDonations(gomock.Any()).Return([]schema.Donation{}, nil)

	stats, err := s.service.Stats("d1")
	s.Require().NoError(err)
	s.Equal(0, stats.TotalDonations)
	s.Nil(stats.LastDonation)
	s.Nil(stats.NextEligibleDate)
}
