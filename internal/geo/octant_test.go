package geo

import "testing"

func TestClassifyCompassPoints(t *testing.T) {
	tests := []struct {
		angle float64
		want  Octant
	}{
		{0, North},
		{45, NorthEast},
		{90, East},
		{135, SouthEast},
		{180, South},
		{225, SouthWest},
		{270, West},
		{315, NorthWest},
		{359.9, North},
		{-90, West},
		{-45, NorthWest},
		{720, North},
	}
	for _, tc := range tests {
		if got := Classify(tc.angle); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.angle, got, tc.want)
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	// A boundary belongs to the sector clockwise of it.
	for i, o := range Octants {
		boundary := float64(i)*45 + 22.5
		next := Octants[(i+1)%len(Octants)]
		if got := Classify(boundary); got != next {
			t.Errorf("Classify(%v) = %q, want %q", boundary, got, next)
		}
		if got := Classify(boundary - 0.1); got != o {
			t.Errorf("Classify(%v) = %q, want %q", boundary-0.1, got, o)
		}
	}
}

func TestClassifyPeriodic(t *testing.T) {
	for a := -720.0; a < 720; a += 0.7 {
		if Classify(a) != Classify(a+360) {
			t.Fatalf("Classify(%v) = %q but Classify(%v) = %q", a, Classify(a), a+360, Classify(a+360))
		}
	}
}

func TestClassifyCoversCircle(t *testing.T) {
	// Every sector spans 45 degrees; sampling at 0.1 degree steps must hit
	// each of them 450 times.
	counts := make(map[Octant]int)
	for i := 0; i < 3600; i++ {
		o := Classify(float64(i) / 10)
		if !o.Valid() {
			t.Fatalf("Classify(%v) returned invalid octant %q", float64(i)/10, o)
		}
		counts[o]++
	}
	for _, o := range Octants {
		if counts[o] != 450 {
			t.Errorf("octant %q covered %d samples, want 450", o, counts[o])
		}
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{360, 0},
		{-360, 0},
		{-10, 350},
		{370, 10},
		{725.5, 5.5},
	}
	for _, tc := range tests {
		if got := NormalizeAngle(tc.in); got != tc.want {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestOctantLabel(t *testing.T) {
	if NorthEast.Label() != "Северо-восток" {
		t.Errorf("unexpected label %q", NorthEast.Label())
	}
	if Octant("x").Valid() {
		t.Error("unknown octant reported as valid")
	}
}
