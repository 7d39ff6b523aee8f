// Package memstore keeps the transit network in process memory. It backs
// dry runs and tests; nothing survives the process.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"transit-sync/internal/transit"
)

type routePointKey struct {
	route, stop, week int64
	lap, order        int
}

type Store struct {
	mu     sync.Mutex
	nextID int64

	routes    []*transit.Route
	providers []*transit.DataProvider
	platforms []*transit.Platform
	aliases   []*transit.PlatformAlias
	stops     []*transit.Stop
	weeks     []*transit.WeekDimension
	points    map[routePointKey]*transit.RoutePoint
}

var _ transit.Repository = (*Store)(nil)

func New() *Store {
	return &Store{points: make(map[routePointKey]*transit.RoutePoint)}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) RouteCodes(_ context.Context, t transit.RouteType) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var codes []string
	for _, r := range s.routes {
		if r.Type == t {
			codes = append(codes, r.Code)
		}
	}
	slices.Sort(codes)
	return codes, nil
}

func (s *Store) CanceledRouteCodes(_ context.Context, t transit.RouteType) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var codes []string
	for _, r := range s.routes {
		if r.Type == t && r.Canceled != nil {
			codes = append(codes, r.Code)
		}
	}
	slices.Sort(codes)
	return codes, nil
}

func (s *Store) CreateRoutes(_ context.Context, routes []transit.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(s.routes)+len(routes))
	for _, r := range s.routes {
		seen[r.Code] = true
	}
	for _, r := range routes {
		if seen[r.Code] {
			return fmt.Errorf("create route %q: %w", r.Code, transit.ErrConflict)
		}
		seen[r.Code] = true
	}
	for _, r := range routes {
		r.ID = s.id()
		s.routes = append(s.routes, &r)
	}
	return nil
}

func (s *Store) CancelRoutes(_ context.Context, t transit.RouteType, codes []string, on time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.routes {
		if r.Type == t && r.Canceled == nil && slices.Contains(codes, r.Code) {
			d := on
			r.Canceled = &d
			n++
		}
	}
	return n, nil
}

func (s *Store) Routes(_ context.Context, t transit.RouteType, includeCanceled bool) ([]transit.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []transit.Route
	for _, r := range s.routes {
		if r.Type != t || (r.Canceled != nil && !includeCanceled) {
			continue
		}
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b transit.Route) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}

func (s *Store) RouteByCode(_ context.Context, code string) (transit.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.routes {
		if r.Code == code {
			return *r, nil
		}
	}
	return transit.Route{}, transit.ErrNotFound
}

func (s *Store) ProviderByType(_ context.Context, t transit.ProviderType) (transit.DataProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.providers {
		if p.Type == t && p.RouteID == nil {
			return *p, nil
		}
	}
	return transit.DataProvider{}, transit.ErrNotFound
}

func (s *Store) RouteProvider(_ context.Context, routeID int64, t transit.ProviderType) (transit.DataProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.providers {
		if p.Type == t && p.RouteID != nil && *p.RouteID == routeID {
			return *p, nil
		}
	}
	return transit.DataProvider{}, transit.ErrNotFound
}

func (s *Store) UpsertProvider(_ context.Context, p transit.DataProvider) (transit.DataProvider, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Coding == "" {
		p.Coding = transit.DefaultCoding
	}
	for _, existing := range s.providers {
		if existing.Type == p.Type && existing.RouteCode == p.RouteCode {
			p.ID = existing.ID
			*existing = p
			return p, false, nil
		}
	}
	p.ID = s.id()
	stored := p
	s.providers = append(s.providers, &stored)
	return p, true, nil
}

func (s *Store) BindProviders(_ context.Context, r transit.Route) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.providers {
		if p.RouteID == nil && p.RouteCode != "" && p.RouteCode == r.Code {
			id := r.ID
			p.RouteID = &id
			n++
		}
	}
	return n, nil
}

func (s *Store) PlatformByName(_ context.Context, name string) (*transit.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.platforms {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, transit.ErrNotFound
}

func (s *Store) platformByID(id int64) *transit.Platform {
	for _, p := range s.platforms {
		if p.ID == id {
			cp := *p
			return &cp
		}
	}
	return nil
}

func (s *Store) AliasByName(_ context.Context, name string) (*transit.PlatformAlias, *transit.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.aliases {
		if a.Name == name {
			cp := *a
			for _, st := range s.stops {
				if st.Alias != nil && st.Alias.ID == a.ID {
					cp.StopID = st.ID
				}
			}
			return &cp, s.platformByID(a.PlatformID), nil
		}
	}
	return nil, nil, transit.ErrNotFound
}

func (s *Store) CreatePlatform(_ context.Context, p *transit.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.platforms {
		if existing.Name == p.Name {
			return fmt.Errorf("create platform %q: %w", p.Name, transit.ErrConflict)
		}
	}
	p.ID = s.id()
	cp := *p
	s.platforms = append(s.platforms, &cp)
	return nil
}

func (s *Store) CreateAlias(_ context.Context, a *transit.PlatformAlias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.platformByID(a.PlatformID) == nil {
		return fmt.Errorf("create alias %q: platform %d: %w", a.Name, a.PlatformID, transit.ErrNotFound)
	}
	a.ID = s.id()
	cp := *a
	s.aliases = append(s.aliases, &cp)
	return nil
}

// stopCopy detaches a stop from the store and loads its platform and alias.
func (s *Store) stopCopy(st *transit.Stop) *transit.Stop {
	cp := *st
	cp.Platform = s.platformByID(st.Platform.ID)
	if st.Alias != nil {
		for _, a := range s.aliases {
			if a.ID == st.Alias.ID {
				ac := *a
				ac.StopID = st.ID
				cp.Alias = &ac
			}
		}
	}
	return &cp
}

func (s *Store) StopByCoords(_ context.Context, lon, lat float64) (*transit.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stops {
		if st.Lon == lon && st.Lat == lat {
			return s.stopCopy(st), nil
		}
	}
	return nil, transit.ErrNotFound
}

func (s *Store) CreateStop(_ context.Context, st *transit.Stop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Platform == nil || st.Platform.ID == 0 {
		return fmt.Errorf("create stop: platform is not stored")
	}
	for _, existing := range s.stops {
		if existing.Platform.ID == st.Platform.ID && existing.Lon == st.Lon && existing.Lat == st.Lat {
			return fmt.Errorf("create stop %s: %w", st, transit.ErrConflict)
		}
	}
	st.ID = s.id()
	cp := *st
	cp.Platform = &transit.Platform{ID: st.Platform.ID}
	if st.Alias != nil {
		cp.Alias = &transit.PlatformAlias{ID: st.Alias.ID}
	}
	s.stops = append(s.stops, &cp)
	return nil
}

func (s *Store) SetStopAlias(_ context.Context, stopID, aliasID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stops {
		if st.Alias != nil && st.Alias.ID == aliasID && st.ID != stopID {
			return fmt.Errorf("alias %d already bound to stop %d: %w", aliasID, st.ID, transit.ErrConflict)
		}
	}
	for _, st := range s.stops {
		if st.ID == stopID {
			st.Alias = &transit.PlatformAlias{ID: aliasID}
			return nil
		}
	}
	return fmt.Errorf("stop %d: %w", stopID, transit.ErrNotFound)
}

func (s *Store) StopsByAlias(_ context.Context, ids []int64, names []string) ([]*transit.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*transit.Stop
	for _, st := range s.stops {
		if st.Alias == nil || !slices.Contains(ids, st.ID) {
			continue
		}
		cp := s.stopCopy(st)
		if cp.Alias != nil && slices.Contains(names, cp.Alias.Name) {
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *Store) WeekDimension(_ context.Context, weekday int, weekend bool) (transit.WeekDimension, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.weeks {
		if w.Weekday == weekday && w.Weekend == weekend {
			return *w, false, nil
		}
	}
	w := &transit.WeekDimension{ID: s.id(), Weekday: weekday, Weekend: weekend}
	s.weeks = append(s.weeks, w)
	return *w, true, nil
}

func (s *Store) UpsertRoutePoint(_ context.Context, rp *transit.RoutePoint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rp.Stop == nil || rp.Stop.ID == 0 {
		return false, fmt.Errorf("upsert route point: stop is not stored")
	}
	key := routePointKey{
		route: rp.RouteID,
		stop:  rp.Stop.ID,
		week:  rp.Variant.WeekDimensionID(),
		lap:   rp.Lap,
		order: rp.Order,
	}
	if existing, ok := s.points[key]; ok {
		rp.ID = existing.ID
		cp := *rp
		s.points[key] = &cp
		return false, nil
	}
	rp.ID = s.id()
	cp := *rp
	s.points[key] = &cp
	return true, nil
}

func (s *Store) RoutePoints(_ context.Context, routeID int64, lap int) ([]transit.RoutePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []transit.RoutePoint
	for key, rp := range s.points {
		if key.route != routeID || key.lap != lap {
			continue
		}
		cp := *rp
		for _, st := range s.stops {
			if st.ID == key.stop {
				cp.Stop = s.stopCopy(st)
			}
		}
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b transit.RoutePoint) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return int(a.ID - b.ID)
	})
	return out, nil
}
