// Package transittest checks transit.Repository implementations against the
// behavior the sync core relies on.
package transittest

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"transit-sync/internal/geo"
	"transit-sync/internal/transit"
)

// Run exercises a fresh repository from newRepo in every subtest.
func Run(t *testing.T, newRepo func(t *testing.T) transit.Repository) {
	t.Run("Routes", func(t *testing.T) { testRoutes(t, newRepo(t)) })
	t.Run("CreateRoutesAtomic", func(t *testing.T) { testCreateRoutesAtomic(t, newRepo(t)) })
	t.Run("CancelRoutes", func(t *testing.T) { testCancelRoutes(t, newRepo(t)) })
	t.Run("Providers", func(t *testing.T) { testProviders(t, newRepo(t)) })
	t.Run("Network", func(t *testing.T) { testNetwork(t, newRepo(t)) })
	t.Run("Aliases", func(t *testing.T) { testAliases(t, newRepo(t)) })
	t.Run("WeekDimension", func(t *testing.T) { testWeekDimension(t, newRepo(t)) })
	t.Run("RoutePoints", func(t *testing.T) { testRoutePoints(t, newRepo(t)) })
}

var day = time.Date(2017, time.April, 24, 0, 0, 0, 0, time.UTC)

func testRoutes(t *testing.T, repo transit.Repository) {
	ctx := context.Background()
	err := repo.CreateRoutes(ctx, []transit.Route{
		{Name: "Вокзал - Кремль", Code: "12", Type: transit.Bus},
		{Name: "Кольцевой", Code: "1", Type: transit.Bus},
		{Name: "Троллейбус 2", Code: "2", Type: transit.Trolleybus},
	})
	if err != nil {
		t.Fatalf("CreateRoutes failed: %v", err)
	}
	codes, err := repo.RouteCodes(ctx, transit.Bus)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(codes, []string{"1", "12"}) {
		t.Errorf("RouteCodes = %v", codes)
	}
	r, err := repo.RouteByCode(ctx, "12")
	if err != nil {
		t.Fatalf("RouteByCode failed: %v", err)
	}
	if r.ID == 0 || r.Name != "Вокзал - Кремль" || r.Type != transit.Bus || r.Canceled != nil {
		t.Errorf("RouteByCode = %+v", r)
	}
	if _, err := repo.RouteByCode(ctx, "99"); !errors.Is(err, transit.ErrNotFound) {
		t.Errorf("RouteByCode(99) err = %v, want ErrNotFound", err)
	}
	routes, err := repo.Routes(ctx, transit.Trolleybus, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 1 || routes[0].Code != "2" {
		t.Errorf("Routes(trolleybus) = %+v", routes)
	}
}

func testCreateRoutesAtomic(t *testing.T, repo transit.Repository) {
	ctx := context.Background()
	if err := repo.CreateRoutes(ctx, []transit.Route{{Code: "5", Type: transit.Bus}}); err != nil {
		t.Fatal(err)
	}
	err := repo.CreateRoutes(ctx, []transit.Route{
		{Code: "6", Type: transit.Bus},
		{Code: "5", Type: transit.Bus},
	})
	if !errors.Is(err, transit.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	codes, _ := repo.RouteCodes(ctx, transit.Bus)
	if !slices.Equal(codes, []string{"5"}) {
		t.Errorf("codes after failed batch = %v", codes)
	}
}

func testCancelRoutes(t *testing.T, repo transit.Repository) {
	ctx := context.Background()
	if err := repo.CreateRoutes(ctx, []transit.Route{
		{Code: "1", Type: transit.Bus},
		{Code: "2", Type: transit.Bus},
		{Code: "3", Type: transit.Trolleybus},
	}); err != nil {
		t.Fatal(err)
	}
	n, err := repo.CancelRoutes(ctx, transit.Bus, []string{"2", "3"}, day)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("canceled %d routes, want 1", n)
	}
	n, err = repo.CancelRoutes(ctx, transit.Bus, []string{"2"}, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("re-canceled %d routes", n)
	}
	r, _ := repo.RouteByCode(ctx, "2")
	if r.Canceled == nil || !r.Canceled.Equal(day) {
		t.Errorf("canceled = %v, want %v", r.Canceled, day)
	}
	codes, _ := repo.CanceledRouteCodes(ctx, transit.Bus)
	if !slices.Equal(codes, []string{"2"}) {
		t.Errorf("CanceledRouteCodes = %v", codes)
	}
	active, _ := repo.Routes(ctx, transit.Bus, false)
	all, _ := repo.Routes(ctx, transit.Bus, true)
	if len(active) != 1 || len(all) != 2 {
		t.Errorf("active %d, all %d", len(active), len(all))
	}
}

func testProviders(t *testing.T, repo transit.Repository) {
	ctx := context.Background()
	if _, err := repo.ProviderByType(ctx, transit.RoutesHTMLPage); !errors.Is(err, transit.ErrNotFound) {
		t.Errorf("ProviderByType on empty store: %v", err)
	}

	p, created, err := repo.UpsertProvider(ctx, transit.DataProvider{Type: transit.RoutesHTMLPage, Link: "http://a"})
	if err != nil || !created {
		t.Fatalf("UpsertProvider: created=%v err=%v", created, err)
	}
	if p.Coding != transit.DefaultCoding {
		t.Errorf("Coding = %q", p.Coding)
	}
	p2, created, err := repo.UpsertProvider(ctx, transit.DataProvider{Type: transit.RoutesHTMLPage, Link: "http://b", Coding: "windows-1251"})
	if err != nil || created {
		t.Fatalf("second UpsertProvider: created=%v err=%v", created, err)
	}
	if p2.ID != p.ID {
		t.Errorf("upsert changed ID %d -> %d", p.ID, p2.ID)
	}
	got, err := repo.ProviderByType(ctx, transit.RoutesHTMLPage)
	if err != nil {
		t.Fatal(err)
	}
	if got.Link != "http://b" || got.Coding != "windows-1251" {
		t.Errorf("ProviderByType = %+v", got)
	}

	if _, _, err := repo.UpsertProvider(ctx, transit.DataProvider{Type: transit.TwoGISRouteAPI, Link: "http://2gis/12", RouteCode: "12"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateRoutes(ctx, []transit.Route{{Code: "12", Type: transit.Bus}}); err != nil {
		t.Fatal(err)
	}
	r, _ := repo.RouteByCode(ctx, "12")
	if _, err := repo.RouteProvider(ctx, r.ID, transit.TwoGISRouteAPI); !errors.Is(err, transit.ErrNotFound) {
		t.Errorf("RouteProvider before binding: %v", err)
	}
	n, err := repo.BindProviders(ctx, r)
	if err != nil || n != 1 {
		t.Fatalf("BindProviders: n=%d err=%v", n, err)
	}
	rp, err := repo.RouteProvider(ctx, r.ID, transit.TwoGISRouteAPI)
	if err != nil {
		t.Fatal(err)
	}
	if rp.RouteID == nil || *rp.RouteID != r.ID || rp.Link != "http://2gis/12" {
		t.Errorf("RouteProvider = %+v", rp)
	}
	if n, _ := repo.BindProviders(ctx, r); n != 0 {
		t.Errorf("second BindProviders bound %d", n)
	}
}

func testNetwork(t *testing.T, repo transit.Repository) {
	ctx := context.Background()
	if _, err := repo.PlatformByName(ctx, "Вокзал"); !errors.Is(err, transit.ErrNotFound) {
		t.Errorf("PlatformByName on empty store: %v", err)
	}
	p := &transit.Platform{Name: "Вокзал", GeoDirection: geo.NorthEast}
	if err := repo.CreatePlatform(ctx, p); err != nil {
		t.Fatal(err)
	}
	if p.ID == 0 {
		t.Fatal("platform ID not set")
	}
	if err := repo.CreatePlatform(ctx, &transit.Platform{Name: "Вокзал"}); !errors.Is(err, transit.ErrConflict) {
		t.Errorf("duplicate platform err = %v", err)
	}
	got, err := repo.PlatformByName(ctx, "Вокзал")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != p.ID || got.GeoDirection != geo.NorthEast {
		t.Errorf("PlatformByName = %+v", got)
	}

	st := &transit.Stop{Platform: p, Lon: 31.2751, Lat: 58.5213}
	if err := repo.CreateStop(ctx, st); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateStop(ctx, &transit.Stop{Platform: p, Lon: 31.2751, Lat: 58.5213}); !errors.Is(err, transit.ErrConflict) {
		t.Errorf("duplicate stop err = %v", err)
	}
	found, err := repo.StopByCoords(ctx, 31.2751, 58.5213)
	if err != nil {
		t.Fatal(err)
	}
	if found.ID != st.ID || found.Platform == nil || found.Platform.Name != "Вокзал" || found.Alias != nil {
		t.Errorf("StopByCoords = %+v", found)
	}
	if _, err := repo.StopByCoords(ctx, 0, 0); !errors.Is(err, transit.ErrNotFound) {
		t.Errorf("StopByCoords(0, 0) err = %v", err)
	}
}

func testAliases(t *testing.T, repo transit.Repository) {
	ctx := context.Background()
	p := &transit.Platform{Name: "Площадь Победы"}
	if err := repo.CreatePlatform(ctx, p); err != nil {
		t.Fatal(err)
	}
	a := transit.NewAlias("Дом книги", p)
	if err := repo.CreateAlias(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateAlias(ctx, &transit.PlatformAlias{Name: "x", PlatformID: p.ID + 1000}); !errors.Is(err, transit.ErrNotFound) {
		t.Errorf("alias of missing platform err = %v", err)
	}

	got, owner, err := repo.AliasByName(ctx, "Дом книги")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != a.ID || owner.ID != p.ID || got.StopID != 0 {
		t.Errorf("AliasByName = %+v owner %+v", got, owner)
	}

	s1 := &transit.Stop{Platform: p, Lon: 1, Lat: 1}
	s2 := &transit.Stop{Platform: p, Lon: 2, Lat: 2, Alias: a}
	if err := repo.CreateStop(ctx, s1); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateStop(ctx, s2); err != nil {
		t.Fatal(err)
	}
	got, _, _ = repo.AliasByName(ctx, "Дом книги")
	if got.StopID != s2.ID {
		t.Errorf("alias StopID = %d, want %d", got.StopID, s2.ID)
	}
	if err := repo.SetStopAlias(ctx, s1.ID, a.ID); !errors.Is(err, transit.ErrConflict) {
		t.Errorf("alias bound twice err = %v", err)
	}

	b := transit.NewAlias("Победы", p)
	if err := repo.CreateAlias(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetStopAlias(ctx, s1.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	stops, err := repo.StopsByAlias(ctx, []int64{s1.ID, s2.ID}, []string{"Победы", "Нет такой"})
	if err != nil {
		t.Fatal(err)
	}
	if len(stops) != 1 || stops[0].ID != s1.ID || stops[0].Alias.Name != "Победы" {
		t.Errorf("StopsByAlias = %+v", stops)
	}
	stops, _ = repo.StopsByAlias(ctx, []int64{s1.ID}, []string{"Дом книги"})
	if len(stops) != 0 {
		t.Errorf("StopsByAlias outside ids = %+v", stops)
	}
	if stops, _ := repo.StopsByAlias(ctx, nil, []string{"Победы"}); len(stops) != 0 {
		t.Errorf("StopsByAlias without ids = %+v", stops)
	}
}

func testWeekDimension(t *testing.T, repo transit.Repository) {
	ctx := context.Background()
	w, created, err := repo.WeekDimension(ctx, 6, true)
	if err != nil || !created || w.ID == 0 {
		t.Fatalf("WeekDimension: %+v created=%v err=%v", w, created, err)
	}
	again, created, err := repo.WeekDimension(ctx, 6, true)
	if err != nil || created || again.ID != w.ID {
		t.Errorf("second WeekDimension: %+v created=%v err=%v", again, created, err)
	}
	other, created, _ := repo.WeekDimension(ctx, 1, false)
	if !created || other.ID == w.ID {
		t.Errorf("weekday bucket = %+v created=%v", other, created)
	}
}

func testRoutePoints(t *testing.T, repo transit.Repository) {
	ctx := context.Background()
	if err := repo.CreateRoutes(ctx, []transit.Route{{Code: "12", Type: transit.Bus}}); err != nil {
		t.Fatal(err)
	}
	route, _ := repo.RouteByCode(ctx, "12")
	week, _, err := repo.WeekDimension(ctx, transit.DefaultWeekday, false)
	if err != nil {
		t.Fatal(err)
	}
	p := &transit.Platform{Name: "Кремль (по требованию)"}
	if err := repo.CreatePlatform(ctx, p); err != nil {
		t.Fatal(err)
	}
	a := &transit.Stop{Platform: p, Lon: 1, Lat: 1}
	b := &transit.Stop{Platform: p, Lon: 2, Lat: 2}
	for _, st := range []*transit.Stop{a, b} {
		if err := repo.CreateStop(ctx, st); err != nil {
			t.Fatal(err)
		}
	}

	points := []*transit.RoutePoint{
		{RouteID: route.ID, Stop: b, Variant: transit.ScheduleVariant{Week: &week}, Time: 90 * time.Second, Order: 1,
			Direction: transit.Backward, GeoDirection: geo.SouthWest, Angle: 225.5},
		{RouteID: route.ID, Stop: a, Variant: transit.ScheduleVariant{Week: &week}, Order: 0, LapStart: true,
			Direction: transit.Forward, GeoDirection: geo.North, OnDemand: true},
	}
	for _, rp := range points {
		created, err := repo.UpsertRoutePoint(ctx, rp)
		if err != nil || !created || rp.ID == 0 {
			t.Fatalf("UpsertRoutePoint: created=%v err=%v", created, err)
		}
	}

	upd := *points[0]
	upd.ID = 0
	upd.Time = 120 * time.Second
	created, err := repo.UpsertRoutePoint(ctx, &upd)
	if err != nil || created {
		t.Fatalf("update UpsertRoutePoint: created=%v err=%v", created, err)
	}
	if upd.ID != points[0].ID {
		t.Errorf("updated ID %d, want %d", upd.ID, points[0].ID)
	}

	got, err := repo.RoutePoints(ctx, route.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("RoutePoints returned %d", len(got))
	}
	first, second := got[0], got[1]
	if first.Order != 0 || first.Stop.ID != a.ID || !first.LapStart || !first.OnDemand || first.Direction != transit.Forward {
		t.Errorf("first point = %+v", first)
	}
	if second.Order != 1 || second.Stop.ID != b.ID || second.Time != 120*time.Second ||
		second.GeoDirection != geo.SouthWest || second.Angle != 225.5 || second.Direction != transit.Backward {
		t.Errorf("second point = %+v", second)
	}
	if second.Variant.WeekDimensionID() != week.ID || second.Stop.Platform.Name != p.Name {
		t.Errorf("second point variant %d platform %v", second.Variant.WeekDimensionID(), second.Stop.Platform)
	}
	if other, _ := repo.RoutePoints(ctx, route.ID, 1); len(other) != 0 {
		t.Errorf("lap 1 points = %+v", other)
	}
}
