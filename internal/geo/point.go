package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is a planar lon/lat pair. Coordinates are treated as plain Cartesian
// values; nothing here is spherical.
type Point struct {
	Lon float64
	Lat float64
}

func (p Point) Add(o Point) Point { return Point{p.Lon + o.Lon, p.Lat + o.Lat} }

func (p Point) Sub(o Point) Point { return Point{p.Lon - o.Lon, p.Lat - o.Lat} }

func (p Point) Dot(o Point) float64 { return p.Lon*o.Lon + p.Lat*o.Lat }

// Length is the Euclidean norm of p taken as a vector from the origin.
func (p Point) Length() float64 { return math.Hypot(p.Lon, p.Lat) }

func (p Point) DistanceTo(o Point) float64 { return math.Hypot(p.Lon-o.Lon, p.Lat-o.Lat) }

// Angle returns the cosine of the angle between p and o (both taken as
// vectors from the origin) scaled by 180/π. No inverse cosine is applied, so
// the value is a heuristic that only grows with the turn between consecutive
// stops; it is not a compass bearing and must not be read as one.
// A zero-length vector yields 0.
func (p Point) Angle(o Point) float64 {
	denom := p.Length() * o.Length()
	if denom == 0 {
		return 0
	}
	cos := p.Dot(o) / denom
	return cos * 180 / math.Pi
}

// WKT renders the point as POINT(lon lat).
func (p Point) WKT() string {
	return fmt.Sprintf("POINT(%.13f %.13f)", p.Lon, p.Lat)
}

func (p Point) String() string {
	return fmt.Sprintf("Point(lon: %.6f, lat: %.6f)", p.Lon, p.Lat)
}

var wktReplacer = strings.NewReplacer("POINT", "", "(", "", ")", "")

// ParseWKT parses the fixed "POINT(<lon> <lat>)" text used by centroid fields.
func ParseWKT(s string) (Point, error) {
	parts := strings.Fields(wktReplacer.Replace(s))
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("invalid point %q", s)
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	if !finite(lon) || !finite(lat) {
		return Point{}, fmt.Errorf("invalid point %q: non-finite coordinate", s)
	}
	return Point{Lon: lon, Lat: lat}, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
