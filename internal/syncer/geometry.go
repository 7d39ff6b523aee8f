package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"transit-sync/internal/geo"
	"transit-sync/internal/transit"
)

const (
	onDemandMarker = "по требованию"
	// synthetic travel time: coordinate distance in degrees times this many seconds
	secondsPerDegree = 10000
	day              = 24 * time.Hour
)

// DirectionStops is the ordered stop list of one payload direction.
type DirectionStops struct {
	Direction transit.Direction
	Stops     []*transit.Stop
}

type GeometryStats struct {
	Created int
	Updated int
}

// GroupDirections merges groups of the same direction, keeping payload order
// inside each, and returns them as forward, backward, circular.
func GroupDirections(groups []DirectionStops) []DirectionStops {
	var out []DirectionStops
	for _, d := range transit.Directions {
		merged := DirectionStops{Direction: d}
		found := false
		for _, g := range groups {
			if g.Direction == d {
				merged.Stops = append(merged.Stops, g.Stops...)
				found = true
			}
		}
		if found {
			out = append(out, merged)
		}
	}
	return out
}

// PlanRoutePoints lays the stops of groups out as lap 0 of route. The previous
// stop, its angle and the clock carry over from one direction to the next.
// Stops must already be stored.
func PlanRoutePoints(route transit.Route, week transit.WeekDimension, groups []DirectionStops) []transit.RoutePoint {
	var (
		points    []transit.RoutePoint
		prev      *transit.Stop
		prevAngle float64
		clock     time.Duration
	)
	w := week
	for _, g := range GroupDirections(groups) {
		for _, st := range g.Stops {
			order := len(points)
			angle := 0.0
			if prev != nil {
				angle = geo.NormalizeAngle(st.Point().Angle(prev.Point()) + prevAngle)
				d := st.Point().DistanceTo(prev.Point())
				clock = (clock + time.Duration(int(d*secondsPerDegree))*time.Second) % day
			}
			points = append(points, transit.RoutePoint{
				RouteID:      route.ID,
				Stop:         st,
				Variant:      transit.ScheduleVariant{Week: &w},
				Time:         clock,
				Order:        order,
				Lap:          0,
				LapStart:     order == 0,
				Direction:    g.Direction,
				GeoDirection: geo.Classify(angle),
				Angle:        angle,
				OnDemand:     onDemand(st),
			})
			prev = st
			prevAngle = angle
		}
	}
	return points
}

func onDemand(st *transit.Stop) bool {
	return st.Platform != nil && strings.Contains(strings.ToLower(st.Platform.Name), onDemandMarker)
}

// Synthesize plans the route points of route and upserts them.
func Synthesize(ctx context.Context, repo transit.ScheduleStore, route transit.Route, week transit.WeekDimension, groups []DirectionStops) ([]transit.RoutePoint, GeometryStats, error) {
	var st GeometryStats
	points := PlanRoutePoints(route, week, groups)
	for i := range points {
		created, err := repo.UpsertRoutePoint(ctx, &points[i])
		if err != nil {
			return points, st, fmt.Errorf("upsert route point %d of %s: %w", points[i].Order, route, err)
		}
		if created {
			st.Created++
		} else {
			st.Updated++
		}
	}
	return points, st, nil
}
