package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kudaline/dispatch-service/internal/domain"
	"github.com/kudaline/dispatch-service/internal/geo"
)

var pickup = geo.Point{Lon: 3.1319, Lat: 6.5244}

func rider(lon, lat float64, active int) domain.RiderCandidate {
	return domain.RiderCandidate{RiderID: uuid.New(), Lon: lon, Lat: lat, ActiveOrders: active}
}

func TestSelectRider_NearestWins(t *testing.T) {
	atPickup := rider(3.1319, 6.5244, 0)
	farAway := rider(3.2050, 6.5244, 0) // ~8 km east

	m := NewMatcher(&memRiders{candidates: []domain.RiderCandidate{farAway, atPickup}})
	id, ok, err := m.SelectRider(context.Background(), nil, &pickup)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, atPickup.RiderID, id)
}

func TestSelectRider_ExcludedNeverReturned(t *testing.T) {
	a := rider(3.1319, 6.5244, 0)
	b := rider(3.2050, 6.5244, 0)

	m := NewMatcher(&memRiders{candidates: []domain.RiderCandidate{a, b}})
	id, ok, err := m.SelectRider(context.Background(), []uuid.UUID{a.RiderID}, &pickup)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, b.RiderID, id)

	_, ok, err = m.SelectRider(context.Background(), []uuid.UUID{a.RiderID, b.RiderID}, &pickup)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSelectRider_CeilingBeatsDistance(t *testing.T) {
	// The nearest rider is at the load ceiling; a farther rider under
	// it must win.
	nearestLoaded := rider(3.1319, 6.5244, MaxActiveOrders)
	fartherFree := rider(3.2050, 6.5244, MaxActiveOrders-1)

	m := NewMatcher(&memRiders{candidates: []domain.RiderCandidate{nearestLoaded, fartherFree}})
	id, ok, err := m.SelectRider(context.Background(), nil, &pickup)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fartherFree.RiderID, id)
}

func TestSelectRider_FallbackWhenAllLoaded(t *testing.T) {
	// Nobody under the ceiling: an overloaded rider still beats
	// leaving the order unassigned, nearest first.
	near := rider(3.1319, 6.5244, MaxActiveOrders+2)
	far := rider(3.2050, 6.5244, MaxActiveOrders)

	m := NewMatcher(&memRiders{candidates: []domain.RiderCandidate{far, near}})
	id, ok, err := m.SelectRider(context.Background(), nil, &pickup)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, near.RiderID, id)
}

func TestSelectRider_NoPickupTakesFirst(t *testing.T) {
	a := rider(3.2050, 6.5244, 0)
	b := rider(3.1319, 6.5244, 0)

	m := NewMatcher(&memRiders{candidates: []domain.RiderCandidate{a, b}})
	id, ok, err := m.SelectRider(context.Background(), nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, a.RiderID, id)
}

func TestSelectRider_NoCandidatesIsNotAnError(t *testing.T) {
	m := NewMatcher(&memRiders{})
	id, ok, err := m.SelectRider(context.Background(), nil, &pickup)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, uuid.Nil, id)
}

func TestSelectRider_BoundingBoxNarrowsSearch(t *testing.T) {
	// Abuja is ~530 km from the Lagos pickup, outside the search box.
	inRange := rider(3.2050, 6.5244, 0)
	outOfRange := rider(7.3986, 9.0765, 0)

	m := NewMatcher(&memRiders{candidates: []domain.RiderCandidate{outOfRange, inRange}})
	id, ok, err := m.SelectRider(context.Background(), nil, &pickup)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, inRange.RiderID, id)
}
