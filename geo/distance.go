package geo

import (
	"math"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

// EarthRadiusKm is the mean earth radius used by every distance calculation
const EarthRadiusKm = 6371.0

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm returns the great-circle distance between two coordinates
// by the haversine formula. Coordinates are not range checked.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance returns the distance in km between two locations
func Distance(from, to schema.Location) float64 {
	return DistanceKm(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}

// RoundKm rounds a distance to two decimals for display
func RoundKm(d float64) float64 {
	return math.Round(d*100) / 100
}
