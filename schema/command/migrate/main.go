package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

func init() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("plasmalink")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetDefault("mongo.database", "plasmalink")
}

func main() {
	schema.NewMongoDBIndexer(viper.GetString("mongo.conn"), viper.GetString("mongo.database")).IndexAll()

	if err := migrateMongo(); err != nil {
		panic(err)
	}
}

func migrateMongo() error {
	ctx := context.Background()
	opts := options.Client().ApplyURI(viper.GetString("mongo.conn"))
	opts.SetMaxPoolSize(1)
	client, err := mongo.NewClient(opts)
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	if err := backfillUserPoints(ctx, client); err != nil {
		fmt.Println("failed to backfill points of collection `users`: ", err)
		return err
	}

	if err := backfillRequestedBloodGroups(ctx, client); err != nil {
		fmt.Println("failed to backfill blood groups of collection `donations`: ", err)
		return err
	}

	return nil
}

// backfillUserPoints adds the geo point of users imported with a location
// only, so they show up in proximity searches
func backfillUserPoints(ctx context.Context, client *mongo.Client) error {
	fmt.Println("backfill user points")
	c := client.Database(viper.GetString("mongo.database")).Collection(schema.UserCollection)

	result, err := c.UpdateMany(ctx,
		bson.M{
			"location": bson.M{"$exists": true},
			"point":    bson.M{"$exists": false},
		},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"point": bson.M{
					"type":        "Point",
					"coordinates": bson.A{"$location.lng", "$location.lat"},
				},
			}}},
		},
	)
	if err != nil {
		return err
	}

	fmt.Printf("%d users updated\n", result.ModifiedCount)
	return nil
}

// backfillRequestedBloodGroups stores the requester's group on records
// created without one
func backfillRequestedBloodGroups(ctx context.Context, client *mongo.Client) error {
	fmt.Println("backfill requested blood groups")
	db := client.Database(viper.GetString("mongo.database"))

	cur, err := db.Collection(schema.DonationCollection).Find(ctx, bson.M{
		"$or": bson.A{
			bson.M{"blood_group": bson.M{"$exists": false}},
			bson.M{"blood_group": ""},
		},
	})
	if err != nil {
		return err
	}

	var donations []schema.Donation
	if err := cur.All(ctx, &donations); err != nil {
		return err
	}

	for _, d := range donations {
		var requester schema.User
		if err := db.Collection(schema.UserCollection).FindOne(ctx, bson.M{"_id": d.RequesterID}).Decode(&requester); err != nil {
			if err == mongo.ErrNoDocuments {
				continue
			}
			return err
		}

		if _, err := db.Collection(schema.DonationCollection).UpdateOne(ctx,
			bson.M{"_id": d.ID},
			bson.M{"$set": bson.M{"blood_group": requester.BloodGroup}},
		); err != nil {
			return err
		}
	}

	fmt.Printf("%d donations checked\n", len(donations))
	return nil
}
