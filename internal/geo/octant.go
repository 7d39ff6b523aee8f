package geo

import "math"

// Octant is one of the eight compass sectors.
type Octant string

const (
	North     Octant = "n"
	NorthEast Octant = "ne"
	East      Octant = "e"
	SouthEast Octant = "se"
	South     Octant = "s"
	SouthWest Octant = "sw"
	West      Octant = "w"
	NorthWest Octant = "nw"
)

// Octants lists the sectors clockwise starting at North.
var Octants = [8]Octant{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var octantLabels = map[Octant]string{
	North:     "Север",
	NorthEast: "Северо-восток",
	East:      "Восток",
	SouthEast: "Юго-восток",
	South:     "Юг",
	SouthWest: "Юго-запад",
	West:      "Запад",
	NorthWest: "Северо-запад",
}

func (o Octant) Label() string { return octantLabels[o] }

func (o Octant) Valid() bool {
	_, ok := octantLabels[o]
	return ok
}

const octantStep = 360.0 / float64(len(Octants))

// NormalizeAngle maps any angle in degrees into [0, 360).
func NormalizeAngle(a float64) float64 {
	r := math.Mod(a, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 {
		r = 0
	}
	return r
}

// Classify returns the octant an angle falls into. Sectors are centred on the
// compass points: North covers [337.5, 22.5).
func Classify(angle float64) Octant {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return North
	}
	comp := math.Round((NormalizeAngle(angle)+octantStep/2)*10) / 10
	idx := int(comp/octantStep) % len(Octants)
	return Octants[idx]
}
