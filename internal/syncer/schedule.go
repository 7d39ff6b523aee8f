package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"transit-sync/internal/parser"
	"transit-sync/internal/transit"
)

// MatchQuery is a timetable header that no alias matched.
type MatchQuery struct {
	Route  transit.Route
	Header parser.StopName
	// Remaining are the lap 0 route points not matched so far, in order.
	Remaining []transit.RoutePoint
}

// MatchDecision answers a MatchQuery. A nil Stop leaves the header unmatched.
type MatchDecision struct {
	Stop  *transit.Stop
	Abort bool
}

// AmbiguousMatchResolver decides what an unmatched timetable header refers to.
type AmbiguousMatchResolver interface {
	Resolve(ctx context.Context, q MatchQuery) (MatchDecision, error)
}

type MatchResolverFunc func(ctx context.Context, q MatchQuery) (MatchDecision, error)

func (f MatchResolverFunc) Resolve(ctx context.Context, q MatchQuery) (MatchDecision, error) {
	return f(ctx, q)
}

// RejectUnmatched leaves every unmatched header unmatched.
var RejectUnmatched AmbiguousMatchResolver = MatchResolverFunc(func(context.Context, MatchQuery) (MatchDecision, error) {
	return MatchDecision{}, nil
})

type ScheduleStats struct {
	Route     transit.Route
	Days      []int
	AsOf      time.Time // zero when the page carries no date
	Headers   int
	Matched   int
	Aliased   int
	Ambiguous int
	Unmatched int
	Aborted   bool
}

// ScheduleStore is the slice of the repository the stop matcher needs.
type ScheduleStore interface {
	transit.NetworkStore
	transit.ScheduleStore
}

// MatchTimetableStops matches timetable stop headers against the lap 0 stops
// of route through alias names. Headers nothing matches go to resolve; a stop
// it picks gets the header's BindName as an alias.
func MatchTimetableStops(ctx context.Context, repo ScheduleStore, route transit.Route, headers []string, resolve AmbiguousMatchResolver, log *slog.Logger) (ScheduleStats, error) {
	st := ScheduleStats{Route: route, Headers: len(headers)}
	if resolve == nil {
		resolve = RejectUnmatched
	}

	remaining, err := repo.RoutePoints(ctx, route.ID, 0)
	if err != nil {
		return st, fmt.Errorf("query route points of %s: %w", route, err)
	}
	var ids []int64
	for _, rp := range remaining {
		if !slices.Contains(ids, rp.Stop.ID) {
			ids = append(ids, rp.Stop.ID)
		}
	}
	drop := func(stopID int64) {
		remaining = slices.DeleteFunc(remaining, func(rp transit.RoutePoint) bool { return rp.Stop.ID == stopID })
	}

	for _, raw := range headers {
		name := parser.NormalizeStopName(raw)
		if len(name.Candidates) == 0 {
			st.Unmatched++
			continue
		}
		stops, err := repo.StopsByAlias(ctx, ids, name.Candidates)
		if err != nil {
			return st, fmt.Errorf("query stops by alias %q: %w", name.Candidates, err)
		}
		switch {
		case len(stops) == 1:
			st.Matched++
			drop(stops[0].ID)
			continue
		case len(stops) > 1:
			st.Ambiguous++
			log.Warn("ambiguous stop header", "route", route.Name, "header", raw, "stops", len(stops))
			continue
		}

		dec, err := resolve.Resolve(ctx, MatchQuery{Route: route, Header: name, Remaining: slices.Clone(remaining)})
		if err != nil {
			return st, fmt.Errorf("resolve stop header %q: %w", raw, err)
		}
		if dec.Abort {
			st.Aborted = true
			log.Info("stop matching aborted", "route", route.Name, "header", raw)
			return st, nil
		}
		if dec.Stop == nil {
			st.Unmatched++
			log.Debug("stop header unmatched", "route", route.Name, "header", raw)
			continue
		}
		if err := bindHeaderAlias(ctx, repo, dec.Stop, name.BindName()); err != nil {
			return st, err
		}
		st.Aliased++
		drop(dec.Stop.ID)
	}
	return st, nil
}

// bindHeaderAlias stores name as an alias of the stop's platform and binds it
// to the stop unless the stop already carries one.
func bindHeaderAlias(ctx context.Context, repo transit.NetworkStore, stop *transit.Stop, name string) error {
	if stop.Platform == nil {
		return fmt.Errorf("bind alias %q: stop %d has no platform", name, stop.ID)
	}
	a := transit.NewAlias(name, stop.Platform)
	if err := repo.CreateAlias(ctx, a); err != nil {
		return fmt.Errorf("create alias %q: %w", name, err)
	}
	if stop.Alias != nil {
		return nil
	}
	if err := repo.SetStopAlias(ctx, stop.ID, a.ID); err != nil {
		return fmt.Errorf("bind alias %q to stop %d: %w", name, stop.ID, err)
	}
	a.StopID = stop.ID
	stop.Alias = a
	return nil
}
