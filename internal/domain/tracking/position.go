package tracking

import (
	"fmt"

	"github.com/golang/geo/s2"

	"github.com/danghamo/stride/internal/domain/shared"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances
const EarthRadiusKm = 6371.0

// Position is a single WGS-84 fix in decimal degrees
type Position struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// NewPosition creates a validated position
func NewPosition(lat, lng float64) (Position, error) {
	p := Position{Lat: lat, Lng: lng}
	if !p.Valid() {
		return Position{}, shared.NewDomainErrorf(shared.ErrCodeInvalidPosition,
			"Position out of range: lat=%f lng=%f", lat, lng)
	}
	return p, nil
}

// Valid reports whether the coordinates are within WGS-84 bounds
func (p Position) Valid() bool {
	return p.latLng().IsValid()
}

// String returns string representation of position
func (p Position) String() string {
	return fmt.Sprintf("(%.6f,%.6f)", p.Lat, p.Lng)
}

func (p Position) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lng)
}

// DistanceKm returns the haversine great-circle distance to other
func (p Position) DistanceKm(other Position) float64 {
	return p.latLng().Distance(other.latLng()).Radians() * EarthRadiusKm
}

// Accumulate returns the distance increment contributed by next.
// The first fix of a session (prev == nil) only establishes the origin.
func Accumulate(prev *Position, next Position) float64 {
	if prev == nil {
		return 0
	}
	return prev.DistanceKm(next)
}
