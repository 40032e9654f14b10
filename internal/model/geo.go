package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const earthRadiusMeters = 6371e3

// MaxPolygonVertices bounds region and announcement polygons, closing vertex included.
const MaxPolygonVertices = 100

// Location is a WGS84 point.
type Location struct {
	Longitude float64 `json:"longitude" validate:"longitude"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
}

func (l Location) Valid() bool {
	return !math.IsNaN(l.Longitude) && !math.IsNaN(l.Latitude) &&
		l.Longitude >= -180 && l.Longitude <= 180 &&
		l.Latitude >= -90 && l.Latitude <= 90
}

func (l Location) Validate() error {
	if !l.Valid() {
		return fmt.Errorf("invalid coordinates (%v, %v): longitude must be in [-180,180] and latitude in [-90,90]", l.Longitude, l.Latitude)
	}
	return nil
}

// DistanceTo returns the great-circle distance in meters (haversine).
func (l Location) DistanceTo(o Location) float64 {
	phi1 := l.Latitude * math.Pi / 180
	phi2 := o.Latitude * math.Pi / 180
	dPhi := (o.Latitude - l.Latitude) * math.Pi / 180
	dLambda := (o.Longitude - l.Longitude) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Rounded snaps the point to the given number of decimals; used for cache keys.
func (l Location) Rounded(decimals int) Location {
	p := math.Pow(10, float64(decimals))
	return Location{
		Longitude: math.Round(l.Longitude*p) / p,
		Latitude:  math.Round(l.Latitude*p) / p,
	}
}

// Polygon is a single closed ring of vertices: the first and last vertex are equal.
type Polygon []Location

var (
	ErrPolygonTooFewVertices  = errors.New("polygon needs at least 3 distinct vertices")
	ErrPolygonTooManyVertices = fmt.Errorf("polygon may not exceed %d vertices", MaxPolygonVertices)
	ErrPolygonNotClosed       = errors.New("polygon ring must be closed (first vertex equal to last)")
	ErrPolygonSelfIntersects  = errors.New("polygon ring must not self-intersect")
)

func (p Polygon) Validate() error {
	if len(p) > MaxPolygonVertices {
		return ErrPolygonTooManyVertices
	}
	if len(p) < 4 {
		return ErrPolygonTooFewVertices
	}
	for _, v := range p {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if p[0] != p[len(p)-1] {
		return ErrPolygonNotClosed
	}
	distinct := make(map[Location]struct{}, len(p))
	for _, v := range p[:len(p)-1] {
		distinct[v] = struct{}{}
	}
	if len(distinct) < 3 {
		return ErrPolygonTooFewVertices
	}

	edges := len(p) - 1
	for i := 0; i < edges; i++ {
		for j := i + 1; j < edges; j++ {
			// adjacent edges share a vertex by construction
			if j == i+1 || (i == 0 && j == edges-1) {
				continue
			}
			if segmentsIntersect(p[i], p[i+1], p[j], p[j+1]) {
				return ErrPolygonSelfIntersects
			}
		}
	}
	return nil
}

// Contains reports whether pt lies inside the ring (even-odd rule).
// Points on an edge count as inside, matching ST_Intersects semantics.
func (p Polygon) Contains(pt Location) bool {
	if len(p) < 4 {
		return false
	}
	inside := false
	for i, j := 0, len(p)-2; i < len(p)-1; j, i = i, i+1 {
		a, b := p[i], p[j]
		if onSegment(a, b, pt) {
			return true
		}
		if (a.Latitude > pt.Latitude) != (b.Latitude > pt.Latitude) {
			x := (b.Longitude-a.Longitude)*(pt.Latitude-a.Latitude)/(b.Latitude-a.Latitude) + a.Longitude
			if pt.Longitude < x {
				inside = !inside
			}
		}
	}
	return inside
}

// WKT renders the ring as a PostGIS POLYGON literal.
func (p Polygon) WKT() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%v %v", v.Longitude, v.Latitude)
	}
	return "POLYGON((" + strings.Join(parts, ", ") + "))"
}

// Coordinates returns the ring as GeoJSON-ordered [lng, lat] pairs.
func (p Polygon) Coordinates() [][2]float64 {
	out := make([][2]float64, len(p))
	for i, v := range p {
		out[i] = [2]float64{v.Longitude, v.Latitude}
	}
	return out
}

func PolygonFromCoordinates(coords [][2]float64) Polygon {
	out := make(Polygon, len(coords))
	for i, c := range coords {
		out[i] = Location{Longitude: c[0], Latitude: c[1]}
	}
	return out
}

func cross(o, a, b Location) float64 {
	return (a.Longitude-o.Longitude)*(b.Latitude-o.Latitude) - (a.Latitude-o.Latitude)*(b.Longitude-o.Longitude)
}

func onSegment(a, b, p Location) bool {
	if cross(a, b, p) != 0 {
		return false
	}
	return math.Min(a.Longitude, b.Longitude) <= p.Longitude && p.Longitude <= math.Max(a.Longitude, b.Longitude) &&
		math.Min(a.Latitude, b.Latitude) <= p.Latitude && p.Latitude <= math.Max(a.Latitude, b.Latitude)
}

func segmentsIntersect(p1, p2, p3, p4 Location) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(p3, p4, p1)) ||
		(d2 == 0 && onSegment(p3, p4, p2)) ||
		(d3 == 0 && onSegment(p1, p2, p3)) ||
		(d4 == 0 && onSegment(p1, p2, p4))
}
