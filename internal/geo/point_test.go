package geo

import (
	"math"
	"testing"
)

func TestParseWKT(t *testing.T) {
	p, err := ParseWKT("POINT(31.2718 58.5213)")
	if err != nil {
		t.Fatalf("ParseWKT failed: %v", err)
	}
	if p.Lon != 31.2718 || p.Lat != 58.5213 {
		t.Errorf("got %v", p)
	}

	for _, bad := range []string{"", "POINT()", "POINT(1)", "POINT(a b)", "POINT(1 2 3)",
		"POINT(NaN NaN)", "POINT(31.2 NaN)", "POINT(Inf 58.5)", "POINT(-Inf 58.5)", "POINT(31.2 +Inf)"} {
		if _, err := ParseWKT(bad); err == nil {
			t.Errorf("ParseWKT(%q) should fail", bad)
		}
	}
}

func TestWKTRoundTrip(t *testing.T) {
	p := Point{Lon: 31.25, Lat: 58.5}
	q, err := ParseWKT(p.WKT())
	if err != nil {
		t.Fatalf("ParseWKT(%q): %v", p.WKT(), err)
	}
	if q != p {
		t.Errorf("round trip = %v, want %v", q, p)
	}
}

func TestVectorOps(t *testing.T) {
	a := Point{3, 4}
	b := Point{1, 1}
	if a.Length() != 5 {
		t.Errorf("Length = %v", a.Length())
	}
	if got := a.Sub(b); got != (Point{2, 3}) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Add(b); got != (Point{4, 5}) {
		t.Errorf("Add = %v", got)
	}
	if a.Dot(b) != 7 {
		t.Errorf("Dot = %v", a.Dot(b))
	}
	if a.DistanceTo(b) != math.Hypot(2, 3) {
		t.Errorf("DistanceTo = %v", a.DistanceTo(b))
	}
}

func TestAngleIsScaledCosine(t *testing.T) {
	// Parallel vectors: cos = 1.
	if got := (Point{1, 0}).Angle(Point{5, 0}); math.Abs(got-180/math.Pi) > 1e-12 {
		t.Errorf("parallel Angle = %v", got)
	}
	// Orthogonal vectors: cos = 0.
	if got := (Point{1, 0}).Angle(Point{0, 2}); got != 0 {
		t.Errorf("orthogonal Angle = %v", got)
	}
	if got := (Point{}).Angle(Point{1, 1}); got != 0 {
		t.Errorf("zero vector Angle = %v", got)
	}
}
