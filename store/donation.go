package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

var (
	ErrRequestNotExist = fmt.Errorf("the request is either solved or not open for you")
	ErrRequestExists   = fmt.Errorf("request already exists")
)

// DonationStore - match records between donors and requesters
type DonationStore interface {
	CreateDonation(donation *schema.Donation) error
	FindDonation(donorID, requesterID string, statuses ...string) (*schema.Donation, error)
	TransitDonation(donorID, requesterID, from, to string) (*schema.Donation, error)
	ListDonations(filter DonationFilter) ([]schema.Donation, error)
	HasMatch(userA, userB string) (bool, error)
	MatchedUserIDs(userID string) ([]string, error)
	ExpirePendingDonations(before time.Time) (int64, error)
}

// DonationFilter selects match records, newest first. Empty fields match all.
type DonationFilter struct {
	DonorID     string
	RequesterID string
	Statuses    []string
	Limit       int64
}

// CreateDonation inserts a new record. A live record of the same pair
// makes it fail with ErrRequestExists.
func (m *mongoDB) CreateDonation(donation *schema.Donation) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	c := m.collection(schema.DonationCollection)

	if donation.Status == schema.DonationPending || donation.Status == schema.DonationAccepted {
		count, err := c.CountDocuments(ctx, bson.M{
			"donor_id":     donation.DonorID,
			"requester_id": donation.RequesterID,
			"status":       bson.M{"$in": schema.LiveDonationStatuses},
		})
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrRequestExists
		}
	}

	if donation.ID == "" {
		donation.ID = newID()
	}

	// the partial unique index closes the window between count and insert
	if _, err := c.InsertOne(ctx, donation); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrRequestExists
		}
		return err
	}

	return nil
}

// FindDonation returns the newest record of the pair in one of the statuses
func (m *mongoDB) FindDonation(donorID, requesterID string, statuses ...string) (*schema.Donation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := bson.M{
		"donor_id":     donorID,
		"requester_id": requesterID,
	}
	if len(statuses) > 0 {
		query["status"] = bson.M{"$in": statuses}
	}

	var donation schema.Donation
	if err := m.collection(schema.DonationCollection).FindOne(ctx, query,
		options.FindOne().SetSort(bson.M{"date": -1}),
	).Decode(&donation); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRequestNotExist
		}
		return nil, err
	}

	return &donation, nil
}

// TransitDonation moves the record of the pair from one status to another
// in a single conditional update. Concurrent transitions on the same record
// cannot both succeed, the loser gets ErrRequestNotExist.
func (m *mongoDB) TransitDonation(donorID, requesterID, from, to string) (*schema.Donation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var donation schema.Donation
	if err := m.collection(schema.DonationCollection).FindOneAndUpdate(ctx,
		bson.M{
			"donor_id":     donorID,
			"requester_id": requesterID,
			"status":       from,
		},
		bson.M{"$set": bson.M{
			"status":     to,
			"updated_at": time.Now().UTC(),
		}},
		options.FindOneAndUpdate().
			SetSort(bson.M{"date": -1}).
			SetReturnDocument(options.After),
	).Decode(&donation); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRequestNotExist
		}
		return nil, err
	}

	return &donation, nil
}

// ListDonations returns records matching the filter, newest first
func (m *mongoDB) ListDonations(filter DonationFilter) ([]schema.Donation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.DonorID != "" {
		query["donor_id"] = filter.DonorID
	}
	if filter.RequesterID != "" {
		query["requester_id"] = filter.RequesterID
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}

	opts := options.Find().SetSort(bson.M{"date": -1})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cur, err := m.collection(schema.DonationCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	donations := make([]schema.Donation, 0)
	if err := cur.All(ctx, &donations); err != nil {
		return nil, err
	}

	return donations, nil
}

func pairQuery(userA, userB string) bson.M {
	return bson.M{
		"$or": bson.A{
			bson.M{"donor_id": userA, "requester_id": userB},
			bson.M{"donor_id": userB, "requester_id": userA},
		},
		"status": bson.M{"$in": schema.MatchedDonationStatuses},
		"logged": bson.M{"$ne": true},
	}
}

// HasMatch tells if two users are linked by a confirmed request, in
// either role assignment. Manually logged donations do not count.
func (m *mongoDB) HasMatch(userA, userB string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	count, err := m.collection(schema.DonationCollection).CountDocuments(ctx,
		pairQuery(userA, userB),
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// MatchedUserIDs returns the distinct counterparts a user is matched with
func (m *mongoDB) MatchedUserIDs(userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cur, err := m.collection(schema.DonationCollection).Find(ctx, bson.M{
		"$or": bson.A{
			bson.M{"donor_id": userID},
			bson.M{"requester_id": userID},
		},
		"status": bson.M{"$in": schema.MatchedDonationStatuses},
		"logged": bson.M{"$ne": true},
	}, options.Find().SetSort(bson.M{"date": -1}))
	if err != nil {
		return nil, err
	}

	var donations []schema.Donation
	if err := cur.All(ctx, &donations); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, d := range donations {
		for _, id := range []string{d.DonorID, d.RequesterID} {
			if id == "" || id == userID {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// ExpirePendingDonations cancels pending records created before the time
func (m *mongoDB) ExpirePendingDonations(before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result, err := m.collection(schema.DonationCollection).UpdateMany(ctx,
		bson.M{
			"status": schema.DonationPending,
			"date":   bson.M{"$lt": before},
		},
		bson.M{"$set": bson.M{
			"status":     schema.DonationCancelled,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return 0, err
	}

	log.WithField("prefix", mongoLogPrefix).Infof("expired %d pending donation requests", result.ModifiedCount)

	return result.ModifiedCount, nil
}
