package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

const testDBName = "plasmalink-test"

// mongoTestSuite connects to the mongo given by PLASMALINK_TEST_MONGO and
// starts every suite from an empty, indexed database
type mongoTestSuite struct {
	suite.Suite
	connURI      string
	testDBName   string
	mongoClient  *mongo.Client
	testDatabase *mongo.Database
	store        MongoStore
}

func (s *mongoTestSuite) SetupSuite() {
	if s.connURI == "" || s.testDBName == "" {
		s.T().Fatal("invalid test suite configuration")
	}

	opts := options.Client().ApplyURI(s.connURI)
	mongoClient, err := mongo.NewClient(opts)
	if nil != err {
		s.T().Fatalf("create mongo client with error: %s", err)
	}

	if err = mongoClient.Connect(context.Background()); nil != err {
		s.T().Fatalf("connect mongo database with error: %s", err.Error())
	}

	s.mongoClient = mongoClient
	s.testDatabase = mongoClient.Database(s.testDBName)
	s.store = NewMongoStore(mongoClient, s.testDBName)
}

func (s *mongoTestSuite) SetupTest() {
	// make sure every test is run with a clean environment
	if err := s.CleanMongoDB(); err != nil {
		s.T().Fatal(err)
	}
	schema.NewMongoDBIndexer(s.connURI, s.testDBName).IndexAll()
}

func (s *mongoTestSuite) TearDownSuite() {
	_ = s.CleanMongoDB()
	_ = s.mongoClient.Disconnect(context.Background())
}

// CleanMongoDB drop the whole test mongodb
func (s *mongoTestSuite) CleanMongoDB() error {
	return s.testDatabase.Drop(context.Background())
}

func (s *mongoTestSuite) insert(collection string, docs ...interface{}) {
	if _, err := s.testDatabase.Collection(collection).InsertMany(context.Background(), docs); err != nil {
		s.T().Fatal(err)
	}
}

func testMongoURI(t *testing.T) string {
	uri := os.Getenv("PLASMALINK_TEST_MONGO")
	if uri == "" {
		t.Skip("Skip mongo store tests due to missing PLASMALINK_TEST_MONGO")
	}
	return uri
}
