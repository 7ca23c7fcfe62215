package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

var (
	locationTaipeiStation = schema.Location{Latitude: 25.0478, Longitude: 121.5170}
	locationSinica        = schema.Location{Latitude: 25.0416, Longitude: 121.6144}
	locationKaohsiung     = schema.Location{Latitude: 22.6394, Longitude: 120.3024}
)

func TestDistanceSamePointIsZero(t *testing.T) {
	for _, loc := range []schema.Location{locationTaipeiStation, locationSinica, {}} {
		assert.Equal(t, float64(0), Distance(loc, loc))
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	assert.InDelta(t, Distance(locationTaipeiStation, locationKaohsiung),
		Distance(locationKaohsiung, locationTaipeiStation), 1e-9)
	assert.InDelta(t, Distance(locationSinica, locationTaipeiStation),
		Distance(locationTaipeiStation, locationSinica), 1e-9)
}

func TestDistanceOneDegreeOfLatitude(t *testing.T) {
	// 2 * pi * 6371 / 360
	assert.InDelta(t, 111.19, DistanceKm(10, 20, 11, 20), 0.01)
	assert.InDelta(t, 111.19, DistanceKm(-0.5, 0, 0.5, 0), 0.01)
}

func TestDistanceKnownCities(t *testing.T) {
	assert.InDelta(t, 9.8, Distance(locationTaipeiStation, locationSinica), 0.2)
	assert.InDelta(t, 295, Distance(locationTaipeiStation, locationKaohsiung), 4)
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 1.23, RoundKm(1.2345))
	assert.Equal(t, 1.24, RoundKm(1.235001))
	assert.Equal(t, float64(0), RoundKm(0.001))
}
