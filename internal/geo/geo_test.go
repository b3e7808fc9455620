package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kudaline/dispatch-service/internal/domain"
)

// Lagos island and a point on the mainland, roughly 8.5 km apart.
var (
	lagosIsland   = Point{Lon: 3.4219, Lat: 6.4531}
	lagosMainland = Point{Lon: 3.3792, Lat: 6.5244}
)

func TestHaversineKm_ZeroDistance(t *testing.T) {
	p := Point{Lon: 3.1319, Lat: 6.5244}
	d := HaversineKm(p, p)
	require.InDelta(t, 0, d, 1e-9)
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	d := HaversineKm(lagosIsland, lagosMainland)
	require.InDelta(t, 9.2, d, 1.0)

	// symmetric
	require.InDelta(t, d, HaversineKm(lagosMainland, lagosIsland), 1e-9)
}

func TestNormalizePair(t *testing.T) {
	tests := []struct {
		name    string
		a, b    float64
		want    Point
		wantErr bool
	}{
		{name: "lon lat as given", a: 100.5, b: 6.5, want: Point{Lon: 100.5, Lat: 6.5}},
		{name: "swapped lat lon", a: 6.5, b: 100.5, want: Point{Lon: 100.5, Lat: 6.5}},
		{name: "ambiguous kept as lon lat", a: 3.1319, b: 6.5244, want: Point{Lon: 3.1319, Lat: 6.5244}},
		{name: "both out of range", a: 200, b: 300, wantErr: true},
		{name: "latitude out of range both ways", a: 95, b: 100, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePair(tt.a, tt.b)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPointInput_Labeled(t *testing.T) {
	var p PointInput
	require.NoError(t, json.Unmarshal([]byte(`{"latitude": 6.5244, "longitude": 3.1319}`), &p))
	require.Equal(t, Point{Lon: 3.1319, Lat: 6.5244}, p.Point)

	err := json.Unmarshal([]byte(`{"latitude": 95, "longitude": 3.1319}`), &p)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestPointInput_Pair(t *testing.T) {
	var p PointInput
	require.NoError(t, json.Unmarshal([]byte(`[3.1319, 6.5244]`), &p))
	require.Equal(t, Point{Lon: 3.1319, Lat: 6.5244}, p.Point)

	err := json.Unmarshal([]byte(`[1, 2, 3]`), &p)
	require.ErrorIs(t, err, domain.ErrValidation)

	err = json.Unmarshal([]byte(`"6.5,3.1"`), &p)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestBoxAround(t *testing.T) {
	centre := Point{Lon: 3.4219, Lat: 6.4531}
	box := BoxAround(centre, SearchRadiusKm)

	require.True(t, box.Contains(centre))
	require.True(t, box.Contains(lagosMainland))
	// Abuja is ~530 km away, far outside a 100 km box.
	require.False(t, box.Contains(Point{Lon: 7.3986, Lat: 9.0765}))

	// The box must cover the search radius in every direction.
	require.LessOrEqual(t, box.MinLat, centre.Lat-SearchRadiusKm/KmPerDegree)
	require.GreaterOrEqual(t, box.MaxLat, centre.Lat+SearchRadiusKm/KmPerDegree)
	// Longitude span is wider than the latitude span off the equator.
	require.Greater(t, box.MaxLon-box.MinLon, box.MaxLat-box.MinLat)
}
