package geo

//go:generate mockgen -source=resolver.go -destination=mocks/resolver.go -package=mocks

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"googlemaps.github.io/maps"

	"github.com/bitmark-inc/plasmalink-api/schema"
)

const (
	logPrefix      = "geo"
	defaultTimeout = 5 * time.Second
)

var (
	ErrNoGeoInfoFound         = fmt.Errorf("no geo information found")
	ErrResolverNotInitialized = fmt.Errorf("location resolver is not initialized")
)

// LocationResolver - interface for resolving the address of a location
type LocationResolver interface {
	ResolveAddress(schema.Location) (schema.Location, error)
}

type MultipleResolverErrors struct {
	errors []error
}

func (e *MultipleResolverErrors) Error() string {
	errorStrings := make([]string, len(e.errors))
	for i, err := range e.errors {
		errorStrings[i] = fmt.Sprintf("#%d: %s", i, err.Error())
	}
	return strings.Join(errorStrings, "\n")
}

func NewMultipleResolverErrors(errors []error) *MultipleResolverErrors {
	return &MultipleResolverErrors{
		errors: errors,
	}
}

// GeocodingLocationResolver looks addresses up by google reverse geocoding
type GeocodingLocationResolver struct {
	client   *maps.Client
	language string
}

func NewGeocodingLocationResolver(client *maps.Client, language string) *GeocodingLocationResolver {
	return &GeocodingLocationResolver{
		client:   client,
		language: language,
	}
}

// NewGeocodingLocationResolverFromKey builds a maps client for the api key
func NewGeocodingLocationResolverFromKey(apiKey, language string) (*GeocodingLocationResolver, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		log.WithFields(log.Fields{
			"prefix": logPrefix,
			"error":  err,
		}).Error("new map client")
		return nil, err
	}

	return NewGeocodingLocationResolver(client, language), nil
}

func (g *GeocodingLocationResolver) ResolveAddress(loc schema.Location) (schema.Location, error) {
	if loc.Address != "" {
		return loc, nil
	}

	log.WithFields(log.Fields{
		"prefix": logPrefix,
		"lat":    loc.Latitude,
		"lng":    loc.Longitude,
	}).Debug("reverse geocoding")

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	geos, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{
			Lat: loc.Latitude,
			Lng: loc.Longitude,
		},
		Language: g.language,
	})
	if nil != err {
		return loc, err
	}

	if len(geos) == 0 || geos[0].FormattedAddress == "" {
		return loc, ErrNoGeoInfoFound
	}

	loc.Address = geos[0].FormattedAddress

	return loc, nil
}

// MultipleLocationResolver tries its resolvers in order and returns the
// first success
type MultipleLocationResolver struct {
	resolvers []LocationResolver
}

func NewMultipleLocationResolver(resolvers ...LocationResolver) *MultipleLocationResolver {
	return &MultipleLocationResolver{
		resolvers: resolvers,
	}
}

func (r *MultipleLocationResolver) ResolveAddress(location schema.Location) (schema.Location, error) {
	if len(r.resolvers) == 0 {
		return location, ErrResolverNotInitialized
	}

	var errors []error
	for _, resolver := range r.resolvers {
		result, err := resolver.ResolveAddress(location)
		if err != nil {
			errors = append(errors, err)
		} else {
			return result, nil
		}
	}

	return location, NewMultipleResolverErrors(errors)
}

// EnrichAddress fills the address of a location when a resolver is available.
// Resolution failures are logged and the location is returned untouched,
// coordinates alone stay usable.
func EnrichAddress(resolver LocationResolver, loc schema.Location) schema.Location {
	if resolver == nil || loc.Address != "" {
		return loc
	}

	resolved, err := resolver.ResolveAddress(loc)
	if err != nil {
		log.WithFields(log.Fields{
			"prefix": logPrefix,
			"lat":    loc.Latitude,
			"lng":    loc.Longitude,
		}).WithError(err).Warn("fail to resolve address")
		return loc
	}

	return resolved
}
