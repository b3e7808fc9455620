package pricing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kudaline/dispatch-service/internal/domain"
	"github.com/kudaline/dispatch-service/internal/geo"
)

type stubProvider struct {
	legs map[geo.Point]Leg
	err  error
}

func (s *stubProvider) Distance(_ context.Context, _, destination geo.Point) (Leg, error) {
	if s.err != nil {
		return Leg{}, s.err
	}
	return s.legs[destination], nil
}

var testRates = Rates{PerKmCents: 100, UrgencyFeeCents: 50000, ServiceChargePct: 10}

func TestQuoteOrder_TwoLegs(t *testing.T) {
	a := geo.Point{Lon: 3.40, Lat: 6.45}
	b := geo.Point{Lon: 3.50, Lat: 6.60}
	provider := &stubProvider{legs: map[geo.Point]Leg{
		a: {DistanceKm: 4.6, Duration: "14 mins"},
		b: {DistanceKm: 8.2, Duration: "25 mins"},
	}}
	calc := NewCalculator(provider, testRates)

	q, err := calc.QuoteOrder(context.Background(), geo.Point{}, []geo.Point{a, b}, false)
	require.NoError(t, err)
	require.Len(t, q.Legs, 2)
	require.Equal(t, int64(460), q.Legs[0].FeeCents)
	require.Equal(t, int64(820), q.Legs[1].FeeCents)
	require.Equal(t, int64(1280), q.DeliveryFeeCents)
	require.Equal(t, int64(128), q.ServiceChargeCents)
	require.Equal(t, int64(1408), q.TotalCents)
}

func TestQuoteOrder_Urgency(t *testing.T) {
	a := geo.Point{Lon: 3.40, Lat: 6.45}
	provider := &stubProvider{legs: map[geo.Point]Leg{a: {DistanceKm: 10}}}
	calc := NewCalculator(provider, testRates)

	q, err := calc.QuoteOrder(context.Background(), geo.Point{}, []geo.Point{a}, true)
	require.NoError(t, err)
	require.Equal(t, int64(51000), q.DeliveryFeeCents)
	require.Equal(t, int64(5100), q.ServiceChargeCents)
	require.Equal(t, int64(56100), q.TotalCents)
}

func TestQuoteOrder_ProviderFailure(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("%w: routing down", domain.ErrExternalService)}
	calc := NewCalculator(provider, testRates)

	_, err := calc.QuoteOrder(context.Background(), geo.Point{}, []geo.Point{{Lon: 1, Lat: 1}}, false)
	require.ErrorIs(t, err, domain.ErrExternalService)
}
