package syncer

import (
	"context"
	"testing"

	"transit-sync/internal/geo"
	"transit-sync/internal/memstore"
	"transit-sync/internal/transit"
)

func TestResolverDedupWithinBatch(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	r := NewResolver(repo)
	var b Batch

	p1, _, created, err := r.FindPlatform(ctx, "Вокзал", &b)
	if err != nil || !created {
		t.Fatalf("first FindPlatform: created=%v err=%v", created, err)
	}
	p2, _, created, err := r.FindPlatform(ctx, "Вокзал", &b)
	if err != nil || created {
		t.Fatalf("second FindPlatform: created=%v err=%v", created, err)
	}
	if p1 != p2 {
		t.Fatal("expected the batch platform to be reused")
	}

	pt := geo.Point{Lon: 31.25, Lat: 58.52}
	s1, created, err := r.FindStop(ctx, p1, pt, &b, nil)
	if err != nil || !created {
		t.Fatalf("first FindStop: created=%v err=%v", created, err)
	}
	s2, created, err := r.FindStop(ctx, p2, pt, &b, nil)
	if err != nil || created {
		t.Fatalf("second FindStop: created=%v err=%v", created, err)
	}
	if s1 != s2 {
		t.Fatal("expected the batch stop to be reused")
	}
	if len(b.Platforms) != 1 || len(b.Stops) != 1 {
		t.Fatalf("batch holds %d platforms, %d stops", len(b.Platforms), len(b.Stops))
	}

	st, err := b.Flush(ctx, repo)
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if st.Platforms != 1 || st.Stops != 1 {
		t.Errorf("Flush stats = %+v", st)
	}
	if p1.ID == 0 || s1.ID == 0 {
		t.Errorf("IDs not assigned: platform %d stop %d", p1.ID, s1.ID)
	}
	if len(b.Platforms) != 0 || len(b.Stops) != 0 {
		t.Error("batch not reset after Flush")
	}
}

func TestResolverFindsStored(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	r := NewResolver(repo)

	var b Batch
	p, _, _, _ := r.FindPlatform(ctx, "Ленина", &b)
	if _, _, err := r.FindStop(ctx, p, geo.Point{Lon: 1, Lat: 2}, &b, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Flush(ctx, repo); err != nil {
		t.Fatal(err)
	}

	var next Batch
	got, alias, created, err := r.FindPlatform(ctx, "Ленина", &next)
	if err != nil || created || alias != nil {
		t.Fatalf("FindPlatform: created=%v alias=%v err=%v", created, alias, err)
	}
	if got.ID != p.ID {
		t.Errorf("platform ID = %d, want %d", got.ID, p.ID)
	}
	// coordinates alone select the stored stop, whatever platform is asked for
	other := &transit.Platform{Name: "Другая"}
	st, created, err := r.FindStop(ctx, other, geo.Point{Lon: 1, Lat: 2}, &next, nil)
	if err != nil || created {
		t.Fatalf("FindStop: created=%v err=%v", created, err)
	}
	if st.Platform.ID != p.ID {
		t.Errorf("stop platform = %d, want %d", st.Platform.ID, p.ID)
	}
}

func TestResolverAlias(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	owner := &transit.Platform{Name: "Площадь Победы"}
	if err := repo.CreatePlatform(ctx, owner); err != nil {
		t.Fatal(err)
	}
	a := transit.NewAlias("Дом книги", owner)
	if err := repo.CreateAlias(ctx, a); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(repo)
	var b Batch
	p, alias, created, err := r.FindPlatform(ctx, "Дом книги", &b)
	if err != nil || created {
		t.Fatalf("FindPlatform: created=%v err=%v", created, err)
	}
	if p.ID != owner.ID || alias == nil || alias.ID != a.ID {
		t.Fatalf("got platform %v alias %v", p, alias)
	}

	st, created, err := r.FindStop(ctx, p, geo.Point{Lon: 3, Lat: 4}, &b, alias)
	if err != nil || !created {
		t.Fatalf("FindStop: created=%v err=%v", created, err)
	}
	if st.Alias != alias {
		t.Error("alias not attached to new stop")
	}
	// the alias is already claimed, a second stop stays without it
	st2, _, err := r.FindStop(ctx, p, geo.Point{Lon: 5, Lat: 6}, &b, alias)
	if err != nil {
		t.Fatal(err)
	}
	if st2.Alias != nil {
		t.Error("alias attached to two stops")
	}

	fl, err := b.Flush(ctx, repo)
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if fl.Aliased != 1 {
		t.Errorf("Aliased = %d, want 1", fl.Aliased)
	}
	stops, err := repo.StopsByAlias(ctx, []int64{st.ID, st2.ID}, []string{"Дом книги"})
	if err != nil {
		t.Fatal(err)
	}
	if len(stops) != 1 || stops[0].ID != st.ID {
		t.Errorf("StopsByAlias = %v", stops)
	}
}

func TestResolverAliasOnStoredStop(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	owner := &transit.Platform{Name: "Кремль"}
	if err := repo.CreatePlatform(ctx, owner); err != nil {
		t.Fatal(err)
	}
	stop := &transit.Stop{Platform: owner, Lon: 7, Lat: 8}
	if err := repo.CreateStop(ctx, stop); err != nil {
		t.Fatal(err)
	}
	a := transit.NewAlias("Кремлёвский парк", owner)
	if err := repo.CreateAlias(ctx, a); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(repo)
	var b Batch
	p, alias, _, err := r.FindPlatform(ctx, "Кремлёвский парк", &b)
	if err != nil {
		t.Fatal(err)
	}
	st, created, err := r.FindStop(ctx, p, geo.Point{Lon: 7, Lat: 8}, &b, alias)
	if err != nil || created {
		t.Fatalf("FindStop: created=%v err=%v", created, err)
	}
	if st.ID != stop.ID || st.Alias == nil {
		t.Fatalf("got stop %d alias %v", st.ID, st.Alias)
	}
	if _, err := b.Flush(ctx, repo); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	got, err := repo.StopByCoords(ctx, 7, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got.Alias == nil || got.Alias.Name != "Кремлёвский парк" {
		t.Errorf("stored alias = %v", got.Alias)
	}
}
