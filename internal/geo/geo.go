package geo

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/kudaline/dispatch-service/internal/domain"
)

const (
	// EarthRadiusKm is Earth's radius for the Haversine calculation.
	EarthRadiusKm = 6371.0
	// SearchRadiusKm is the dispatch candidate search radius.
	SearchRadiusKm = 100.0
	// KmPerDegree is the approximate surface distance of one degree of
	// latitude, used for the bounding-box pre-filter.
	KmPerDegree = 111.0
)

// Point is the internal coordinate representation: longitude first.
type Point struct {
	Lon float64
	Lat float64
}

func validLat(v float64) bool { return v >= -90 && v <= 90 }
func validLon(v float64) bool { return v >= -180 && v <= 180 }

// NormalizePair interprets a bare (a, b) pair as a Point. Input may
// arrive as either (lon, lat) or (lat, lon); each component is
// range-tested and a swapped pair is corrected when only one reading
// is valid. When both readings are valid (both values in [-90, 90])
// the pair is ambiguous and is taken as (lon, lat) as given — callers
// that can should send the labeled form instead.
func NormalizePair(a, b float64) (Point, error) {
	asGiven := validLon(a) && validLat(b)
	swapped := validLat(a) && validLon(b)
	switch {
	case asGiven:
		return Point{Lon: a, Lat: b}, nil
	case swapped:
		return Point{Lon: b, Lat: a}, nil
	default:
		return Point{}, fmt.Errorf("%w: coordinate pair (%v, %v) out of range", domain.ErrValidation, a, b)
	}
}

// PointInput accepts the two wire forms of a coordinate: a labeled
// object {"latitude": ..., "longitude": ...} or a bare two-element
// array normalized via NormalizePair.
type PointInput struct {
	Point
}

func (p *PointInput) UnmarshalJSON(data []byte) error {
	var labeled struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(data, &labeled); err == nil && labeled.Latitude != nil && labeled.Longitude != nil {
		if !validLat(*labeled.Latitude) || !validLon(*labeled.Longitude) {
			return fmt.Errorf("%w: coordinate (%v, %v) out of range", domain.ErrValidation, *labeled.Latitude, *labeled.Longitude)
		}
		p.Point = Point{Lon: *labeled.Longitude, Lat: *labeled.Latitude}
		return nil
	}

	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil || len(pair) != 2 {
		return fmt.Errorf("%w: coordinate must be {latitude, longitude} or a two-element array", domain.ErrValidation)
	}
	pt, err := NormalizePair(pair[0], pair[1])
	if err != nil {
		return err
	}
	p.Point = pt
	return nil
}

// HaversineKm calculates the great-circle distance between two points
// on Earth in kilometres using the Haversine formula.
func HaversineKm(a, b Point) float64 {
	const degToRad = math.Pi / 180
	dLat := (b.Lat - a.Lat) * degToRad
	dLon := (b.Lon - a.Lon) * degToRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*degToRad)*math.Cos(b.Lat*degToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// BoundingBox is an axis-aligned coordinate-range filter around a
// centre point, a coarse cut before exact distance ranking.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoxAround returns the bounding box of radiusKm around centre. The
// longitude span widens away from the equator to correct for
// meridian convergence.
func BoxAround(centre Point, radiusKm float64) BoundingBox {
	latDelta := radiusKm / KmPerDegree
	lonDelta := radiusKm / (KmPerDegree * math.Cos(centre.Lat*math.Pi/180))
	return BoundingBox{
		MinLat: centre.Lat - latDelta,
		MaxLat: centre.Lat + latDelta,
		MinLon: centre.Lon - lonDelta,
		MaxLon: centre.Lon + lonDelta,
	}
}

// Contains reports whether p falls inside the box.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}
