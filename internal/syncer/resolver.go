package syncer

import (
	"context"
	"errors"
	"fmt"

	"transit-sync/internal/geo"
	"transit-sync/internal/transit"
)

// Batch collects the platforms and stops discovered while walking one route
// payload. Nothing in it is stored until Flush.
type Batch struct {
	Platforms []*transit.Platform
	Stops     []*transit.Stop

	// stored stops that picked up an alias during this batch
	aliased    []*transit.Stop
	claimed    map[*transit.PlatformAlias]*transit.Stop
	claimedIDs map[int64]*transit.Stop
}

// FlushStats counts what a Flush wrote.
type FlushStats struct {
	Platforms int
	Stops     int
	Aliased   int
}

// Resolver maps names and coordinates onto stored or batch-pending platforms
// and stops.
type Resolver struct {
	repo transit.NetworkStore
}

func NewResolver(repo transit.NetworkStore) *Resolver {
	return &Resolver{repo: repo}
}

// FindPlatform looks for a platform named name in the batch, then among stored
// platforms, then among stored aliases. When nothing matches, a new unsaved
// platform is appended to the batch and created is true. The alias is non-nil
// only when the platform was found through it.
func (r *Resolver) FindPlatform(ctx context.Context, name string, b *Batch) (*transit.Platform, *transit.PlatformAlias, bool, error) {
	for _, p := range b.Platforms {
		if p.Name == name {
			return p, nil, false, nil
		}
	}

	p, err := r.repo.PlatformByName(ctx, name)
	if err == nil {
		return p, nil, false, nil
	}
	if !errors.Is(err, transit.ErrNotFound) {
		return nil, nil, false, fmt.Errorf("find platform %q: %w", name, err)
	}

	a, owner, err := r.repo.AliasByName(ctx, name)
	if err == nil {
		return owner, a, false, nil
	}
	if !errors.Is(err, transit.ErrNotFound) {
		return nil, nil, false, fmt.Errorf("find alias %q: %w", name, err)
	}

	p = &transit.Platform{Name: name}
	b.Platforms = append(b.Platforms, p)
	return p, nil, true, nil
}

// FindStop looks for a stop of platform at pt in the batch, then among stored
// stops by coordinates alone. A stored stop found that way may belong to a
// different platform. When nothing matches, a new unsaved stop is appended to
// the batch and created is true.
//
// A supplied alias is attached to the returned stop unless the stop already
// has one or the alias is bound to another stop.
func (r *Resolver) FindStop(ctx context.Context, platform *transit.Platform, pt geo.Point, b *Batch, alias *transit.PlatformAlias) (*transit.Stop, bool, error) {
	cand := &transit.Stop{Platform: platform, Lon: pt.Lon, Lat: pt.Lat}
	for _, s := range b.Stops {
		if s.Same(cand) {
			b.attach(s, alias, false)
			return s, false, nil
		}
	}

	st, err := r.repo.StopByCoords(ctx, pt.Lon, pt.Lat)
	if err == nil {
		b.attach(st, alias, true)
		return st, false, nil
	}
	if !errors.Is(err, transit.ErrNotFound) {
		return nil, false, fmt.Errorf("find stop %s: %w", cand, err)
	}

	b.attach(cand, alias, false)
	b.Stops = append(b.Stops, cand)
	return cand, true, nil
}

func (b *Batch) attach(st *transit.Stop, a *transit.PlatformAlias, stored bool) {
	if a == nil || st.Alias != nil {
		return
	}
	if a.StopID != 0 && a.StopID != st.ID {
		return
	}
	if b.claimed == nil {
		b.claimed = make(map[*transit.PlatformAlias]*transit.Stop)
		b.claimedIDs = make(map[int64]*transit.Stop)
	}
	owner, ok := b.claimed[a]
	if !ok && a.ID != 0 {
		owner, ok = b.claimedIDs[a.ID]
	}
	if ok && owner != st && (owner.ID == 0 || owner.ID != st.ID) {
		return
	}
	b.claimed[a] = st
	if a.ID != 0 {
		b.claimedIDs[a.ID] = st
	}
	st.Alias = a
	if stored {
		b.aliased = append(b.aliased, st)
	}
}

// Flush stores new platforms, then unsaved aliases, then new stops, then the
// alias bindings of reused stops. The batch is empty afterwards.
func (b *Batch) Flush(ctx context.Context, repo transit.NetworkStore) (FlushStats, error) {
	var st FlushStats
	for _, p := range b.Platforms {
		if err := repo.CreatePlatform(ctx, p); err != nil {
			return st, fmt.Errorf("create platform %q: %w", p.Name, err)
		}
		st.Platforms++
	}

	for _, s := range append(append([]*transit.Stop(nil), b.Stops...), b.aliased...) {
		a := s.Alias
		if a == nil || a.ID != 0 {
			continue
		}
		if a.PlatformID == 0 && a.Owner() != nil {
			a.PlatformID = a.Owner().ID
		}
		if err := repo.CreateAlias(ctx, a); err != nil {
			return st, fmt.Errorf("create alias %q: %w", a.Name, err)
		}
	}

	for _, s := range b.Stops {
		if err := repo.CreateStop(ctx, s); err != nil {
			return st, fmt.Errorf("create stop %s: %w", s, err)
		}
		st.Stops++
		if s.Alias != nil {
			s.Alias.StopID = s.ID
			st.Aliased++
		}
	}

	for _, s := range b.aliased {
		if err := repo.SetStopAlias(ctx, s.ID, s.Alias.ID); err != nil {
			return st, fmt.Errorf("bind alias %q to stop %d: %w", s.Alias.Name, s.ID, err)
		}
		s.Alias.StopID = s.ID
		st.Aliased++
	}

	*b = Batch{}
	return st, nil
}
