package geo

import (
	"fmt"
	"math"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `db:"lat" json:"lat"`
	Lng float64 `db:"lng" json:"lng"`
}

// Validate checks that both coordinates are finite and in range.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsInf(l.Lat, 0) || math.IsNaN(l.Lng) || math.IsInf(l.Lng, 0) {
		return fmt.Errorf("coordinates must be finite")
	}
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("lat %v out of range [-90,90]", l.Lat)
	}
	if l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("lng %v out of range [-180,180]", l.Lng)
	}
	return nil
}

// Manhattan returns the coordinate-delta distance |Δlat| + |Δlng|. It is a
// cheap proxy; routed or geodesic distance plugs in behind the same shape.
func Manhattan(a, b Location) float64 {
	return math.Abs(a.Lat-b.Lat) + math.Abs(a.Lng-b.Lng)
}
