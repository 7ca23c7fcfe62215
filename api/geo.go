package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

// parseGeoPosition will parse latitude and longitude from the geo-position string
func parseGeoPosition(geoPosition string) (float64, float64, error) {
	positions := strings.Split(geoPosition, ";")

	if len(positions) != 2 {
		return 0, 0, fmt.Errorf("invalid geo-position value")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(positions[0]), 64)
	if err != nil {
		return 0, 0, err
	}

	long, err := strconv.ParseFloat(strings.TrimSpace(positions[1]), 64)
	if err != nil {
		return 0, 0, err
	}

	return lat, long, nil
}

// searchCenter picks the center of a proximity search. Explicit lat/lng
// arguments come first, then the Geo-Position header, then the caller's
// profile location. A partial or malformed position is an error.
func searchCenter(c *gin.Context, user *schema.User) (*schema.Location, error) {
	lat, hasLat := c.GetQuery("lat")
	lng, hasLng := c.GetQuery("lng")

	switch {
	case hasLat && hasLng:
		latitude, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return nil, err
		}
		longitude, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return nil, err
		}
		return &schema.Location{Latitude: latitude, Longitude: longitude}, nil
	case hasLat || hasLng:
		return nil, fmt.Errorf("lat and lng must be given together")
	}

	if gp := c.GetHeader("Geo-Position"); gp != "" {
		latitude, longitude, err := parseGeoPosition(gp)
		if err != nil {
			return nil, err
		}
		return &schema.Location{Latitude: latitude, Longitude: longitude}, nil
	}

	if user.HasLocation() {
		loc := *user.Location
		return &loc, nil
	}

	return nil, fmt.Errorf("missing search center")
}
