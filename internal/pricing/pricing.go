package pricing

import (
	"context"
	"math"

	"github.com/kudaline/dispatch-service/internal/geo"
)

// Leg is the routing result for one pickup -> drop-off pair.
type Leg struct {
	DistanceKm float64
	Duration   string
}

// DistanceProvider is the external routing collaborator. Failures
// propagate to the caller; order creation does not proceed without a
// priced route.
type DistanceProvider interface {
	Distance(ctx context.Context, origin, destination geo.Point) (Leg, error)
}

// Rates holds the pricing policy. All money is in cents.
type Rates struct {
	PerKmCents       int64
	UrgencyFeeCents  int64
	ServiceChargePct float64
}

// LegQuote is the priced result for one destination leg.
type LegQuote struct {
	DistanceKm float64
	Duration   string
	FeeCents   int64
}

// Quote is the fee breakdown for a whole order.
type Quote struct {
	Legs               []LegQuote
	DeliveryFeeCents   int64
	ServiceChargeCents int64
	TotalCents         int64
}

type Calculator struct {
	provider DistanceProvider
	rates    Rates
}

func NewCalculator(p DistanceProvider, r Rates) *Calculator {
	return &Calculator{provider: p, rates: r}
}

// QuoteOrder prices every destination leg from pickup, then applies
// the urgency surcharge and service-charge percentage on top. Runs
// before any transaction opens so slow routing calls never hold
// database resources.
func (c *Calculator) QuoteOrder(ctx context.Context, pickup geo.Point, destinations []geo.Point, urgent bool) (Quote, error) {
	var q Quote
	for _, dst := range destinations {
		leg, err := c.provider.Distance(ctx, pickup, dst)
		if err != nil {
			return Quote{}, err
		}
		fee := int64(math.Round(leg.DistanceKm * float64(c.rates.PerKmCents)))
		q.Legs = append(q.Legs, LegQuote{DistanceKm: leg.DistanceKm, Duration: leg.Duration, FeeCents: fee})
		q.DeliveryFeeCents += fee
	}
	if urgent {
		q.DeliveryFeeCents += c.rates.UrgencyFeeCents
	}
	q.ServiceChargeCents = int64(math.Round(float64(q.DeliveryFeeCents) * c.rates.ServiceChargePct / 100))
	q.TotalCents = q.DeliveryFeeCents + q.ServiceChargeCents
	return q, nil
}
