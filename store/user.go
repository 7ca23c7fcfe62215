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

	"github.com/bitmark-inc/plasmalink-api/geo"
	"github.com/bitmark-inc/plasmalink-api/schema"
)

var (
	ErrUserNotFound = fmt.Errorf("user not found")
	ErrEmailTaken   = fmt.Errorf("email has been registered")
)

// UserDirectory - persisted donors and requesters
type UserDirectory interface {
	CreateUser(user *schema.User) error
	GetUser(id string) (*schema.User, error)
	GetUserByEmail(email string) (*schema.User, error)
	GetUsers(ids []string) (map[string]schema.User, error)
	UpdateProfile(id string, update ProfileUpdate) (*schema.User, error)
	UpdateAvailability(id string, available bool) (*schema.User, error)
	SetLastDonationDate(id string, date time.Time) error
	NearbyUsers(query UserQuery) ([]schema.User, error)
}

// ProfileUpdate carries the mutable fields of a user, nil means unchanged
type ProfileUpdate struct {
	Name       *string
	BloodGroup *string
	Location   *schema.Location
}

// UserQuery narrows users around a center point
type UserQuery struct {
	Role       string
	Center     schema.Location
	RadiusKm   float64
	Available  *bool
	BloodGroup string
}

// slack added to the spherical prefilter so the exact haversine check,
// done by the caller, never misses a candidate on the boundary
const radiusSlackKm = 0.05

// CreateUser inserts a new user, email must be unique
func (m *mongoDB) CreateUser(user *schema.User) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if user.ID == "" {
		user.ID = newID()
	}
	if user.HasLocation() {
		user.Point = user.Location.Point()
	}

	if _, err := m.collection(schema.UserCollection).InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return err
	}

	return nil
}

// GetUser finds a user by id
func (m *mongoDB) GetUser(id string) (*schema.User, error) {
	return m.findUser(bson.M{"_id": id})
}

// GetUserByEmail finds a user by the normalized email
func (m *mongoDB) GetUserByEmail(email string) (*schema.User, error) {
	return m.findUser(bson.M{"email": email})
}

func (m *mongoDB) findUser(query bson.M) (*schema.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user schema.User
	if err := m.collection(schema.UserCollection).FindOne(ctx, query).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// GetUsers loads users by ids, missing ids are absent from the result
func (m *mongoDB) GetUsers(ids []string) (map[string]schema.User, error) {
	result := make(map[string]schema.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cur, err := m.collection(schema.UserCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}

	var users []schema.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}

	for _, u := range users {
		result[u.ID] = u
	}

	return result, nil
}

// UpdateProfile applies the given fields and returns the updated user
func (m *mongoDB) UpdateProfile(id string, update ProfileUpdate) (*schema.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.BloodGroup != nil {
		set["blood_group"] = *update.BloodGroup
	}
	if update.Location != nil {
		set["location"] = update.Location
		set["point"] = update.Location.Point()
	}

	return m.updateUser(id, bson.M{"$set": set})
}

// UpdateAvailability sets the availability flag of a user
func (m *mongoDB) UpdateAvailability(id string, available bool) (*schema.User, error) {
	return m.updateUser(id, bson.M{"$set": bson.M{
		"is_available": available,
		"updated_at":   time.Now().UTC(),
	}})
}

// SetLastDonationDate records when a donor last gave, an older date
// never overrides a newer one
func (m *mongoDB) SetLastDonationDate(id string, date time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := m.collection(schema.UserCollection).UpdateOne(ctx,
		bson.M{
			"_id": id,
			"$or": bson.A{
				bson.M{"last_donation_date": bson.M{"$exists": false}},
				bson.M{"last_donation_date": bson.M{"$lt": date}},
			},
		},
		bson.M{"$set": bson.M{"last_donation_date": date}},
	)
	return err
}

func (m *mongoDB) updateUser(id string, update bson.M) (*schema.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user schema.User
	if err := m.collection(schema.UserCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// NearbyUsers returns users of a role whose point lies within the radius
// of the center. The prefilter is spherical on the same earth radius as
// the haversine calculation.
func (m *mongoDB) NearbyUsers(q UserQuery) ([]schema.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := nearbyQuery(q)

	cur, err := m.collection(schema.UserCollection).Find(ctx, query)
	if err != nil {
		log.WithField("prefix", mongoLogPrefix).Errorf("query nearby users with error: %s", err)
		return nil, err
	}

	users := make([]schema.User, 0)
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}

	log.WithField("prefix", mongoLogPrefix).Debugf("nearby %s query within %.2f km gets %d users", q.Role, q.RadiusKm, len(users))

	return users, nil
}

func nearbyQuery(q UserQuery) bson.M {
	query := bson.M{
		"role": q.Role,
		"point": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{
					bson.A{q.Center.Longitude, q.Center.Latitude},
					(q.RadiusKm + radiusSlackKm) / geo.EarthRadiusKm,
				},
			},
		},
	}

	if q.Available != nil {
		query["is_available"] = *q.Available
	}

	if q.BloodGroup != "" {
		query["blood_group"] = q.BloodGroup
	}

	return query
}
