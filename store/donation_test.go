package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

var (
	tsMay25 = time.Date(2020, 5, 25, 8, 0, 0, 0, time.UTC)
	tsMay26 = time.Date(2020, 5, 26, 8, 0, 0, 0, time.UTC)
	tsMay27 = time.Date(2020, 5, 27, 8, 0, 0, 0, time.UTC)
)

type DonationTestSuite struct {
	mongoTestSuite
}

func (s *DonationTestSuite) pending(donor, requester string, date time.Time) *schema.Donation {
	d := &schema.Donation{
		DonorID:     donor,
		RequesterID: requester,
		BloodGroup:  "A+",
		Status:      schema.DonationPending,
		Date:        date,
	}
	s.NoError(s.store.CreateDonation(d))
	return d
}

func (s *DonationTestSuite) TestCreateDonationRejectsLiveDuplicate() {
	first := s.pending("donor", "requester", tsMay25)
	s.NotEmpty(first.ID)

	err := s.store.CreateDonation(&schema.Donation{
		DonorID:     "donor",
		RequesterID: "requester",
		Status:      schema.DonationPending,
		Date:        tsMay26,
	})
	s.Equal(ErrRequestExists, err)

	// the reverse pair is a different record
	s.pending("requester", "donor", tsMay26)
}

func (s *DonationTestSuite) TestCreateDonationAfterCancel() {
	s.pending("donor", "requester", tsMay25)
	_, err := s.store.TransitDonation("donor", "requester", schema.DonationPending, schema.DonationCancelled)
	s.NoError(err)

	s.pending("donor", "requester", tsMay26)
}

func (s *DonationTestSuite) TestCreateFulfilledDonationIsNotLive() {
	s.pending("donor", "requester", tsMay25)

	s.NoError(s.store.CreateDonation(&schema.Donation{
		DonorID:     "donor",
		RequesterID: "requester",
		Status:      schema.DonationFulfilled,
		Date:        tsMay26,
	}))
}

func (s *DonationTestSuite) TestTransitDonation() {
	s.pending("donor", "requester", tsMay25)

	d, err := s.store.TransitDonation("donor", "requester", schema.DonationPending, schema.DonationAccepted)
	s.NoError(err)
	s.Equal(schema.DonationAccepted, d.Status)

	_, err = s.store.TransitDonation("donor", "requester", schema.DonationPending, schema.DonationAccepted)
	s.Equal(ErrRequestNotExist, err)

	_, err = s.store.TransitDonation("requester", "donor", schema.DonationAccepted, schema.DonationFulfilled)
	s.Equal(ErrRequestNotExist, err, "roles are not interchangeable")
}

func (s *DonationTestSuite) TestTransitDonationConcurrently() {
	s.pending("donor", "requester", tsMay25)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.TransitDonation("donor", "requester", schema.DonationPending, schema.DonationAccepted)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.Equal(ErrRequestNotExist, err)
		}
	}
	s.Equal(1, succeeded)
}

func (s *DonationTestSuite) TestFindDonation() {
	s.pending("donor", "requester", tsMay25)

	d, err := s.store.FindDonation("donor", "requester", schema.DonationPending)
	s.NoError(err)
	s.Equal("A+", d.BloodGroup)

	_, err = s.store.FindDonation("donor", "requester", schema.DonationAccepted)
	s.Equal(ErrRequestNotExist, err)

	d, err = s.store.FindDonation("donor", "requester")
	s.NoError(err)
	s.Equal(schema.DonationPending, d.Status)
}

func (s *DonationTestSuite) TestListDonations() {
	s.pending("donor", "requester-1", tsMay25)
	s.pending("donor", "requester-2", tsMay27)
	s.pending("donor", "requester-3", tsMay26)
	s.pending("other-donor", "requester-1", tsMay26)
	_, err := s.store.TransitDonation("donor", "requester-3", schema.DonationPending, schema.DonationAccepted)
	s.NoError(err)

	donations, err := s.store.ListDonations(DonationFilter{DonorID: "donor"})
	s.NoError(err)
	s.Len(donations, 3)
	s.Equal("requester-2", donations[0].RequesterID, "newest first")
	s.Equal("requester-1", donations[2].RequesterID)

	donations, err = s.store.ListDonations(DonationFilter{
		DonorID:  "donor",
		Statuses: []string{schema.DonationPending},
	})
	s.NoError(err)
	s.Len(donations, 2)

	donations, err = s.store.ListDonations(DonationFilter{RequesterID: "requester-1", Limit: 1})
	s.NoError(err)
	s.Len(donations, 1)
	s.Equal("other-donor", donations[0].DonorID)
}

func (s *DonationTestSuite) TestHasMatch() {
	s.pending("donor", "requester", tsMay25)

	matched, err := s.store.HasMatch("donor", "requester")
	s.NoError(err)
	s.False(matched, "pending is not a match")

	_, err = s.store.TransitDonation("donor", "requester", schema.DonationPending, schema.DonationAccepted)
	s.NoError(err)

	matched, err = s.store.HasMatch("requester", "donor")
	s.NoError(err)
	s.True(matched, "match holds in either direction")

	_, err = s.store.TransitDonation("donor", "requester", schema.DonationAccepted, schema.DonationFulfilled)
	s.NoError(err)

	matched, err = s.store.HasMatch("donor", "requester")
	s.NoError(err)
	s.True(matched)

	matched, err = s.store.HasMatch("donor", "stranger")
	s.NoError(err)
	s.False(matched)
}

func (s *DonationTestSuite) TestLoggedDonationIsNotAMatch() {
	s.NoError(s.store.CreateDonation(&schema.Donation{
		DonorID:     "donor",
		RequesterID: "stranger",
		Status:      schema.DonationFulfilled,
		Logged:      true,
		Date:        tsMay25,
	}))

	matched, err := s.store.HasMatch("donor", "stranger")
	s.NoError(err)
	s.False(matched)

	ids, err := s.store.MatchedUserIDs("donor")
	s.NoError(err)
	s.Empty(ids)
}

func (s *DonationTestSuite) TestMatchedUserIDs() {
	s.pending("donor", "requester-1", tsMay25)
	s.pending("donor", "requester-2", tsMay26)
	s.pending("requester-1", "donor", tsMay27)
	s.pending("donor", "requester-3", tsMay27)
	for _, pair := range [][2]string{{"donor", "requester-1"}, {"donor", "requester-2"}, {"requester-1", "donor"}} {
		_, err := s.store.TransitDonation(pair[0], pair[1], schema.DonationPending, schema.DonationAccepted)
		s.NoError(err)
	}

	ids, err := s.store.MatchedUserIDs("donor")
	s.NoError(err)
	s.ElementsMatch([]string{"requester-1", "requester-2"}, ids)
}

func (s *DonationTestSuite) TestExpirePendingDonations() {
	s.pending("donor", "requester-1", tsMay25)
	s.pending("donor", "requester-2", tsMay27)

	count, err := s.store.ExpirePendingDonations(tsMay26)
	s.NoError(err)
	s.Equal(int64(1), count)

	d, err := s.store.FindDonation("donor", "requester-1")
	s.NoError(err)
	s.Equal(schema.DonationCancelled, d.Status)

	d, err = s.store.FindDonation("donor", "requester-2")
	s.NoError(err)
	s.Equal(schema.DonationPending, d.Status)
}

func TestDonationTestSuite(t *testing.T) {
	suite.Run(t, &DonationTestSuite{mongoTestSuite{connURI: testMongoURI(t), testDBName: testDBName}})
}
