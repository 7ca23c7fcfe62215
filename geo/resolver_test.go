package geo_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/bitmark-inc/plasmalink-api/geo"
	"github.com/bitmark-inc/plasmalink-api/geo/mocks"
	"github.com/bitmark-inc/plasmalink-api/schema"
)

var locationTaipei101 = schema.Location{Latitude: 25.033964, Longitude: 121.564468}

func TestMultipleLocationResolverFallback(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	first := mocks.NewMockLocationResolver(ctl)
	second := mocks.NewMockLocationResolver(ctl)

	resolved := locationTaipei101
	resolved.Address = "No. 7, Section 5, Xinyi Road, Taipei"

	first.EXPECT().ResolveAddress(locationTaipei101).Return(locationTaipei101, geo.ErrNoGeoInfoFound).Times(1)
	second.EXPECT().ResolveAddress(locationTaipei101).Return(resolved, nil).Times(1)

	r := geo.NewMultipleLocationResolver(first, second)
	loc, err := r.ResolveAddress(locationTaipei101)
	assert.NoError(t, err)
	assert.Equal(t, resolved.Address, loc.Address)
}

func TestMultipleLocationResolverAllFailed(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	first := mocks.NewMockLocationResolver(ctl)
	second := mocks.NewMockLocationResolver(ctl)
	first.EXPECT().ResolveAddress(gomock.Any()).Return(schema.Location{}, geo.ErrNoGeoInfoFound)
	second.EXPECT().ResolveAddress(gomock.Any()).Return(schema.Location{}, fmt.Errorf("quota exceeded"))

	r := geo.NewMultipleLocationResolver(first, second)
	loc, err := r.ResolveAddress(locationTaipei101)
	assert.EqualError(t, err, "#0: no geo information found\n#1: quota exceeded")
	_, ok := err.(*geo.MultipleResolverErrors)
	assert.True(t, ok)
	assert.Equal(t, locationTaipei101, loc, "coordinates are kept on failure")
}

func TestMultipleLocationResolverWithoutResolvers(t *testing.T) {
	_, err := geo.NewMultipleLocationResolver().ResolveAddress(locationTaipei101)
	assert.Equal(t, geo.ErrResolverNotInitialized, err)
}

func TestEnrichAddressKeepsCoordinatesOnFailure(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	r := mocks.NewMockLocationResolver(ctl)
	r.EXPECT().ResolveAddress(locationTaipei101).Return(schema.Location{}, fmt.Errorf("timeout"))

	loc := geo.EnrichAddress(r, locationTaipei101)
	assert.Equal(t, locationTaipei101, loc)
}

func TestEnrichAddressSkipsKnownAddress(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	r := mocks.NewMockLocationResolver(ctl)
	r.EXPECT().ResolveAddress(gomock.Any()).Times(0)

	known := locationTaipei101
	known.Address = "Taipei 101"
	assert.Equal(t, known, geo.EnrichAddress(r, known))
	assert.Equal(t, locationTaipei101, geo.EnrichAddress(nil, locationTaipei101))
}

func TestEnrichAddressResolved(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	resolved := locationTaipei101
	resolved.Address = "Xinyi District, Taipei City"

	r := mocks.NewMockLocationResolver(ctl)
	r.EXPECT().ResolveAddress(locationTaipei101).Return(resolved, nil)

	assert.Equal(t, resolved, geo.EnrichAddress(r, locationTaipei101))
}

type GeocodingResolverTestSuite struct {
	suite.Suite
	resolver *geo.GeocodingLocationResolver
	apiKey   string
}

func (s *GeocodingResolverTestSuite) SetupSuite() {
	r, err := geo.NewGeocodingLocationResolverFromKey(s.apiKey, "en")
	if err != nil {
		s.T().Fatalf("init google map client with error: %s", err)
	}
	s.resolver = r
}

func (s *GeocodingResolverTestSuite) TestResolveAddress() {
	loc, err := s.resolver.ResolveAddress(locationTaipei101)
	s.NoError(err)
	s.Contains(loc.Address, "Taipei")
	s.Equal(locationTaipei101.Latitude, loc.Latitude)
}

// In order for 'go test' to run this suite, we need to create
// a normal test function and pass our suite to s.Run
func TestGeocodingResolverTestSuite(t *testing.T) {
	mapKey := os.Getenv("MAP_APIKEY")
	if mapKey == "" {
		t.Skip("Skip resolver tests due to missing map api key")
	}
	suite.Run(t, &GeocodingResolverTestSuite{apiKey: mapKey})
}
