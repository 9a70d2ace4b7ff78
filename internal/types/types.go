// README: Common identifier and coordinate value objects used across modules.
package types

// ID is an opaque entity identifier (hex string from the ID generator or an
// external document id).
type ID string

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Zero reports whether the point carries no coordinates. Orders imported from
// legacy records may miss coordinates; distance computations treat them as 0.
func (p Point) Zero() bool {
	return p.Lat == 0 && p.Lng == 0
}
