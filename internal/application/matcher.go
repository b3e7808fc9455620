package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/kudaline/dispatch-service/internal/domain"
	"github.com/kudaline/dispatch-service/internal/geo"
	"github.com/kudaline/dispatch-service/internal/repository"
)

// MaxActiveOrders is the load ceiling: riders at or above it are only
// considered when nobody under it is available.
const MaxActiveOrders = 5

// Matcher finds one eligible rider for an order. Absence of a rider
// is a normal business outcome, reported as ok=false, never an error.
type Matcher struct {
	riders repository.RiderRepo
}

func NewMatcher(riders repository.RiderRepo) *Matcher {
	return &Matcher{riders: riders}
}

// SelectRider returns the best candidate outside exclude. With a
// pickup point the search is narrowed to a bounding box around it and
// the surviving candidates are ranked by great-circle distance; ties
// go to the first one encountered. Without a pickup the first
// eligible candidate wins.
func (m *Matcher) SelectRider(ctx context.Context, exclude []uuid.UUID, pickup *geo.Point) (uuid.UUID, bool, error) {
	var box *geo.BoundingBox
	if pickup != nil {
		b := geo.BoxAround(*pickup, geo.SearchRadiusKm)
		box = &b
	}

	candidates, err := m.riders.Candidates(ctx, exclude, box)
	if err != nil {
		return uuid.Nil, false, err
	}
	if len(candidates) == 0 {
		return uuid.Nil, false, nil
	}

	// Prefer riders under the ceiling; if everyone is loaded, an
	// overloaded rider still beats leaving the order to stall.
	pool := underCeiling(candidates)
	if len(pool) == 0 {
		pool = candidates
	}

	if pickup == nil {
		return pool[0].RiderID, true, nil
	}

	best := pool[0]
	bestDist := geo.HaversineKm(*pickup, geo.Point{Lon: best.Lon, Lat: best.Lat})
	for _, c := range pool[1:] {
		d := geo.HaversineKm(*pickup, geo.Point{Lon: c.Lon, Lat: c.Lat})
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best.RiderID, true, nil
}

func underCeiling(candidates []domain.RiderCandidate) []domain.RiderCandidate {
	var out []domain.RiderCandidate
	for _, c := range candidates {
		if c.ActiveOrders < MaxActiveOrders {
			out = append(out, c)
		}
	}
	return out
}
