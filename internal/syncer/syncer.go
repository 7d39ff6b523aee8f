// Package syncer pulls routes, platforms and stop sequences from external
// providers into a transit.Repository.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"transit-sync/internal/parser"
	"transit-sync/internal/transit"
	"transit-sync/internal/twogis"
)

// ErrNoData is returned when a sync has no provider to read from.
var ErrNoData = errors.New("no data provider")

const DefaultTimetableURLMask = "http://transport.nov.ru/urban_trans/1/?mar=%s"

type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
	GetText(ctx context.Context, url, coding string) (string, error)
}

// Events receives sync results. Errors are logged and do not fail the sync.
type Events interface {
	RoutesReconciled(ctx context.Context, runID string, st RouteStats) error
	RouteSynced(ctx context.Context, runID string, st RouteSyncStats) error
	ScheduleMatched(ctx context.Context, runID string, st ScheduleStats) error
}

type Metrics interface {
	RoutesReconciled(t transit.RouteType, added, canceled int)
	RouteSynced(kind string, d time.Duration)
	RouteSkipped(kind, reason string)
	PointsUpserted(created, updated int)
	RunObserve(kind string, d time.Duration, err error)
}

type Options struct {
	Repo    transit.Repository
	Fetcher Fetcher
	// APIKey is set as the key query parameter of 2GIS requests when non-empty.
	APIKey string
	// TimetableURLMask takes the route code with its _r suffix.
	TimetableURLMask string
	TimetableCoding  string
	Events           Events
	Metrics          Metrics
	Matcher          AmbiguousMatchResolver
	Logger           *slog.Logger
	Now              func() time.Time
	Location         *time.Location
}

type Syncer struct {
	repo     transit.Repository
	fetcher  Fetcher
	resolver *Resolver
	apiKey   string
	urlMask  string
	coding   string
	events   Events
	metrics  Metrics
	matcher  AmbiguousMatchResolver
	log      *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

func New(opts Options) *Syncer {
	s := &Syncer{
		repo:     opts.Repo,
		fetcher:  opts.Fetcher,
		resolver: NewResolver(opts.Repo),
		apiKey:   opts.APIKey,
		urlMask:  opts.TimetableURLMask,
		coding:   opts.TimetableCoding,
		events:   opts.Events,
		metrics:  opts.Metrics,
		matcher:  opts.Matcher,
		log:      opts.Logger,
		now:      opts.Now,
		loc:      opts.Location,
	}
	if s.urlMask == "" {
		s.urlMask = DefaultTimetableURLMask
	}
	if s.coding == "" {
		s.coding = transit.DefaultCoding
	}
	if s.matcher == nil {
		s.matcher = RejectUnmatched
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

func (s *Syncer) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Syncer) run(kind string) (string, *slog.Logger, func(error)) {
	id := uuid.NewString()
	start := time.Now()
	log := s.log.With("run", id, "kind", kind)
	log.Info("sync started")
	return id, log, func(err error) {
		if s.metrics != nil {
			s.metrics.RunObserve(kind, time.Since(start), err)
		}
		if err != nil {
			log.Error("sync failed", "err", err, "took", time.Since(start))
			return
		}
		log.Info("sync finished", "took", time.Since(start))
	}
}

// SyncRoutes reads the route-list page and reconciles bus routes, then
// trolleybus routes. A page that cannot be parsed aborts the whole sync.
func (s *Syncer) SyncRoutes(ctx context.Context) (out []RouteStats, err error) {
	runID, log, done := s.run("routes")
	defer func() { done(err) }()

	prov, err := s.repo.ProviderByType(ctx, transit.RoutesHTMLPage)
	if errors.Is(err, transit.ErrNotFound) {
		log.Error("no data providers found for routes html page")
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("query routes provider: %w", err)
	}

	page, err := s.fetcher.GetText(ctx, prov.Link, prov.Coding)
	if err != nil {
		return nil, fmt.Errorf("fetch routes page: %w", err)
	}
	rp, err := parser.LoadRoutesPage(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("load routes page: %w", err)
	}

	for _, t := range transit.RouteTypes {
		parsed, err := rp.RoutesFor(t)
		if err != nil {
			return out, fmt.Errorf("parse %s routes: %w", t, err)
		}
		st, err := ReconcileRoutes(ctx, s.repo, parsed, t, s.today())
		if err != nil {
			return out, err
		}
		log.Info("routes reconciled", "type", t,
			"added", len(st.Added), "updated", len(st.Updated), "exists", len(st.Existing),
			"canceled", len(st.Canceled), "canceled_total", len(st.CanceledTotal))
		if s.metrics != nil {
			s.metrics.RoutesReconciled(t, len(st.Added), len(st.Canceled))
		}
		if s.events != nil {
			if err := s.events.RoutesReconciled(ctx, runID, st); err != nil {
				log.Warn("publish routes event", "err", err)
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// RouteSyncStats is the outcome of one route's platform sync.
type RouteSyncStats struct {
	Route     transit.Route
	Platforms int
	Stops     int
	Aliased   int
	Points    GeometryStats
}

type PlatformStats struct {
	Type     transit.RouteType
	Routes   int
	Synced   int
	Skipped  int
	Failed   int
	PerRoute []RouteSyncStats
}

// Created sums created platforms, stops and route points over all routes.
func (p PlatformStats) Created() (platforms, stops, points int) {
	for _, r := range p.PerRoute {
		platforms += r.Platforms
		stops += r.Stops
		points += r.Points.Created
	}
	return
}

// SyncPlatforms runs SyncRoutePlatforms for every non-canceled route of type
// t. Routes that fail are logged, counted and skipped.
func (s *Syncer) SyncPlatforms(ctx context.Context, t transit.RouteType) (st PlatformStats, err error) {
	runID, log, done := s.run("platforms")
	defer func() { done(err) }()
	st.Type = t

	routes, err := s.repo.Routes(ctx, t, false)
	if err != nil {
		return st, fmt.Errorf("query %s routes: %w", t, err)
	}
	st.Routes = len(routes)
	for _, r := range routes {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		start := time.Now()
		rs, err := s.syncRoutePlatforms(ctx, log, r)
		switch {
		case errors.Is(err, ErrNoData):
			st.Skipped++
			s.skipped("platforms", "no_data")
			continue
		case err != nil:
			st.Failed++
			log.Error("route sync failed", "route", r.Name, "err", err)
			s.skipped("platforms", "error")
			continue
		}
		st.Synced++
		st.PerRoute = append(st.PerRoute, rs)
		if s.metrics != nil {
			s.metrics.RouteSynced("platforms", time.Since(start))
			s.metrics.PointsUpserted(rs.Points.Created, rs.Points.Updated)
		}
		if s.events != nil {
			if err := s.events.RouteSynced(ctx, runID, rs); err != nil {
				log.Warn("publish route event", "route", r.Name, "err", err)
			}
		}
	}
	return st, nil
}

func (s *Syncer) skipped(kind, reason string) {
	if s.metrics != nil {
		s.metrics.RouteSkipped(kind, reason)
	}
}

// SyncRoutePlatforms fetches the 2GIS payload of route, stores the platforms
// and stops it names and lays them out as the route's default week schedule.
func (s *Syncer) SyncRoutePlatforms(ctx context.Context, route transit.Route) (RouteSyncStats, error) {
	return s.syncRoutePlatforms(ctx, s.log, route)
}

func (s *Syncer) syncRoutePlatforms(ctx context.Context, log *slog.Logger, route transit.Route) (RouteSyncStats, error) {
	st := RouteSyncStats{Route: route}

	prov, err := s.repo.RouteProvider(ctx, route.ID, transit.TwoGISRouteAPI)
	if errors.Is(err, transit.ErrNotFound) {
		log.Error("no data providers found for route", "route", route.Name)
		return st, ErrNoData
	}
	if err != nil {
		return st, fmt.Errorf("query provider of %s: %w", route, err)
	}

	link, err := withAPIKey(prov.Link, s.apiKey)
	if err != nil {
		return st, fmt.Errorf("provider link of %s: %w", route, err)
	}
	body, err := s.fetcher.Get(ctx, link)
	if err != nil {
		return st, fmt.Errorf("fetch %s: %w", route, err)
	}
	dirs, err := twogis.Decode(body)
	if err != nil {
		return st, fmt.Errorf("decode %s: %w", route, err)
	}

	week, _, err := s.repo.WeekDimension(ctx, transit.DefaultWeekday, false)
	if err != nil {
		return st, fmt.Errorf("week dimension: %w", err)
	}

	var b Batch
	groups := make([]DirectionStops, 0, len(dirs))
	for _, d := range dirs {
		g := DirectionStops{Direction: d.Type}
		for _, p := range d.Platforms {
			plat, alias, _, err := s.resolver.FindPlatform(ctx, p.Name, &b)
			if err != nil {
				return st, err
			}
			stop, _, err := s.resolver.FindStop(ctx, plat, p.Point, &b, alias)
			if err != nil {
				return st, err
			}
			g.Stops = append(g.Stops, stop)
		}
		groups = append(groups, g)
	}

	fl, err := b.Flush(ctx, s.repo)
	if err != nil {
		return st, err
	}
	st.Platforms, st.Stops, st.Aliased = fl.Platforms, fl.Stops, fl.Aliased

	_, gst, err := Synthesize(ctx, s.repo, route, week, groups)
	if err != nil {
		return st, err
	}
	st.Points = gst
	log.Info("route synced", "route", route.Name,
		"platforms", st.Platforms, "stops", st.Stops, "created", gst.Created, "updated", gst.Updated)
	return st, nil
}

func withAPIKey(link, key string) (string, error) {
	if key == "" {
		return link, nil
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type ScheduleRunStats struct {
	Type     transit.RouteType
	Routes   int
	Skipped  int
	Failed   int
	PerRoute []ScheduleStats
}

// Aborted reports whether the resolver stopped the run.
func (s ScheduleRunStats) Aborted() bool {
	for _, r := range s.PerRoute {
		if r.Aborted {
			return true
		}
	}
	return false
}

// SyncWeekSchedule reads the timetable page of every non-canceled route of
// type t, ensures week dimensions for the days it lists and matches its stop
// headers against the route's stops.
func (s *Syncer) SyncWeekSchedule(ctx context.Context, t transit.RouteType) (st ScheduleRunStats, err error) {
	runID, log, done := s.run("schedule")
	defer func() { done(err) }()
	st.Type = t

	routes, err := s.repo.Routes(ctx, t, false)
	if err != nil {
		return st, fmt.Errorf("query %s routes: %w", t, err)
	}
	st.Routes = len(routes)
	for _, r := range routes {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		start := time.Now()
		rs, err := s.syncRouteSchedule(ctx, log, r)
		if err != nil {
			st.Failed++
			log.Error("schedule sync failed", "route", r.Name, "err", err)
			s.skipped("schedule", "error")
			continue
		}
		st.PerRoute = append(st.PerRoute, rs)
		if s.metrics != nil {
			s.metrics.RouteSynced("schedule", time.Since(start))
		}
		if s.events != nil {
			if err := s.events.ScheduleMatched(ctx, runID, rs); err != nil {
				log.Warn("publish schedule event", "route", r.Name, "err", err)
			}
		}
		if rs.Aborted {
			log.Info("schedule sync stopped by resolver")
			break
		}
	}
	return st, nil
}

func (s *Syncer) syncRouteSchedule(ctx context.Context, log *slog.Logger, route transit.Route) (ScheduleStats, error) {
	link, coding := fmt.Sprintf(s.urlMask, route.Code+"_r"), s.coding
	prov, err := s.repo.RouteProvider(ctx, route.ID, transit.RouteHTMLPage)
	switch {
	case err == nil:
		link, coding = prov.Link, prov.Coding
	case !errors.Is(err, transit.ErrNotFound):
		return ScheduleStats{Route: route}, fmt.Errorf("query timetable provider of %s: %w", route, err)
	}

	page, err := s.fetcher.GetText(ctx, link, coding)
	if err != nil {
		return ScheduleStats{Route: route}, fmt.Errorf("fetch timetable of %s: %w", route, err)
	}
	tt, err := parser.ParseTimetable(strings.NewReader(page))
	if err != nil {
		return ScheduleStats{Route: route}, fmt.Errorf("parse timetable of %s: %w", route, err)
	}

	asOf, err := tt.AsOfDate()
	if err != nil {
		log.Warn("timetable date ignored", "route", route.Name, "as_of", tt.AsOf, "err", err)
		asOf = time.Time{}
	}
	for _, d := range tt.Days {
		if _, _, err := s.repo.WeekDimension(ctx, d, d >= 6); err != nil {
			return ScheduleStats{Route: route}, fmt.Errorf("week dimension %d: %w", d, err)
		}
	}

	st, err := MatchTimetableStops(ctx, s.repo, route, tt.Stops, s.matcher, log)
	st.Days = tt.Days
	st.AsOf = asOf
	if err != nil {
		return st, err
	}
	log.Info("timetable matched", "route", route.Name, "days", tt.Days,
		"matched", st.Matched, "aliased", st.Aliased, "ambiguous", st.Ambiguous, "unmatched", st.Unmatched)
	return st, nil
}
