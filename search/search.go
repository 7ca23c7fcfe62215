package search

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/bitmark-inc/plasmalink-api/bloodgroup"
	"github.com/bitmark-inc/plasmalink-api/geo"
	"github.com/bitmark-inc/plasmalink-api/schema"
	"github.com/bitmark-inc/plasmalink-api/store"
)

const logPrefix = "search"

var ErrInvalidQuery = fmt.Errorf("invalid search query")

// Config of the search radius in km. A zero MaxRadiusKm leaves the radius
// unbounded.
type Config struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
}

func DefaultConfig() Config {
	return Config{
		DefaultRadiusKm: 10,
		MaxRadiusKm:     100,
	}
}

// Query of a proximity search. Center is required. A zero radius means
// the default one.
type Query struct {
	Center     *schema.Location
	RadiusKm   float64
	BloodGroup string
	Available  *bool
	ExcludeID  string
}

// Result is one candidate and its distance to the center in km
type Result struct {
	User         schema.Summary `json:"user"`
	Distance     float64        `json:"distance"`
	IsCompatible *bool          `json:"isCompatible,omitempty"`
}

// Engine finds donors and requesters around a point, nearest first
type Engine struct {
	users  store.UserDirectory
	config Config
}

func NewEngine(users store.UserDirectory, config Config) *Engine {
	return &Engine{
		users:  users,
		config: config,
	}
}

// Radius returns the radius actually searched for a requested one. Any
// positive radius is kept as is up to the cap.
func (e *Engine) Radius(requested float64) float64 {
	r := requested
	if r <= 0 {
		r = e.config.DefaultRadiusKm
	}
	if e.config.MaxRadiusKm > 0 && r > e.config.MaxRadiusKm {
		r = e.config.MaxRadiusKm
	}
	return r
}

// SearchDonors returns donors within the radius regardless of their blood
// group. A blood group in the query only marks whether each donor can
// give to it.
func (e *Engine) SearchDonors(q Query) ([]Result, error) {
	if err := validate(q); err != nil {
		return nil, err
	}

	candidates, err := e.nearby(schema.RoleDonor, q, "")
	if err != nil {
		return nil, err
	}

	return rank(*q.Center, e.Radius(q.RadiusKm), candidates, q.ExcludeID, func(u schema.User) *bool {
		if q.BloodGroup == "" {
			return nil
		}
		ok := bloodgroup.CanDonate(u.BloodGroup, q.BloodGroup)
		return &ok
	}), nil
}

// SearchRecipients returns requesters within the radius. A blood group in
// the query is an exact filter. When the viewer group is known, results
// are marked with whether the viewer can give to them.
func (e *Engine) SearchRecipients(q Query, viewerGroup string) ([]Result, error) {
	if err := validate(q); err != nil {
		return nil, err
	}

	candidates, err := e.nearby(schema.RoleRequester, q, q.BloodGroup)
	if err != nil {
		return nil, err
	}

	return rank(*q.Center, e.Radius(q.RadiusKm), candidates, q.ExcludeID, func(u schema.User) *bool {
		if !bloodgroup.Valid(viewerGroup) {
			return nil
		}
		ok := bloodgroup.CanDonate(viewerGroup, u.BloodGroup)
		return &ok
	}), nil
}

func validate(q Query) error {
	if q.Center == nil || !q.Center.ValidCoordinates() {
		return ErrInvalidQuery
	}
	if q.BloodGroup != "" && !bloodgroup.Valid(q.BloodGroup) {
		return ErrInvalidQuery
	}
	return nil
}

func (e *Engine) nearby(role string, q Query, exactGroup string) ([]schema.User, error) {
	users, err := e.users.NearbyUsers(store.UserQuery{
		Role:       role,
		Center:     *q.Center,
		RadiusKm:   e.Radius(q.RadiusKm),
		Available:  q.Available,
		BloodGroup: exactGroup,
	})
	if err != nil {
		log.WithField("prefix", logPrefix).WithError(err).Errorf("search %s", role)
		return nil, err
	}
	return users, nil
}

// rank keeps candidates whose exact distance is within the radius and
// orders them nearest first, ties in store order
func rank(center schema.Location, radius float64, users []schema.User, excludeID string, compatible func(schema.User) *bool) []Result {
	results := make([]Result, 0, len(users))
	distances := make([]float64, 0, len(users))

	for _, u := range users {
		if !u.HasLocation() || u.ID == excludeID {
			continue
		}

		d := geo.Distance(center, *u.Location)
		if d > radius {
			continue
		}

		results = append(results, Result{
			User:         u.Summary(),
			Distance:     geo.RoundKm(d),
			IsCompatible: compatible(u),
		})
		distances = append(distances, d)
	}

	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return distances[idx[i]] < distances[idx[j]]
	})

	sorted := make([]Result, len(results))
	for i, k := range idx {
		sorted[i] = results[k]
	}

	return sorted
}
