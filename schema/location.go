package schema

// Location is a point a user placed themselves at, with the
// human readable address if one is known
type Location struct {
	Latitude  float64 `json:"lat" bson:"lat"`
	Longitude float64 `json:"lng" bson:"lng"`
	Address   string  `json:"address" bson:"address"`
}

// GeoJSON - mongo location format
type GeoJSON struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// Point converts a location into a GeoJSON point for 2dsphere indexing
func (l Location) Point() *GeoJSON {
	return &GeoJSON{
		Type:        "Point",
		Coordinates: []float64{l.Longitude, l.Latitude},
	}
}

// ValidCoordinates tells if the latitude and longitude are in range
func (l Location) ValidCoordinates() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}
