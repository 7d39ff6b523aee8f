package syncer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"transit-sync/internal/transit"
)

// RouteStore is the slice of the repository route reconciliation needs.
type RouteStore interface {
	transit.RouteStore
	transit.ProviderStore
}

// RouteStats describes one reconciliation of a route type. Every set is
// sorted by code.
type RouteStats struct {
	Type          transit.RouteType
	Parsed        []transit.ParsedRoute
	Added         []string
	Updated       []string
	Existing      []string
	Canceled      []string
	CanceledTotal []string
	// Bound counts data providers attached to newly created routes.
	Bound int64
}

// CanonicalCode strips the direction suffix ("12_r" -> "12").
func CanonicalCode(code string) string {
	before, _, _ := strings.Cut(code, "_")
	return before
}

// ReconcileRoutes brings the stored routes of type t in line with parsed.
// Codes missing from the store are created in one all-or-nothing batch, stored
// codes missing from parsed are canceled on today. A canceled route stays
// canceled even if it shows up again.
func ReconcileRoutes(ctx context.Context, repo RouteStore, parsed []transit.ParsedRoute, t transit.RouteType, today time.Time) (RouteStats, error) {
	st := RouteStats{Type: t, Parsed: parsed}

	existing, err := repo.RouteCodes(ctx, t)
	if err != nil {
		return st, fmt.Errorf("query route codes: %w", err)
	}
	alreadyCanceled, err := repo.CanceledRouteCodes(ctx, t)
	if err != nil {
		return st, fmt.Errorf("query canceled route codes: %w", err)
	}

	existingSet := toSet(existing)
	parsedSet := make(map[string]struct{}, len(parsed))
	var create []transit.Route
	for _, p := range parsed {
		code := CanonicalCode(p.Code)
		_, stored := existingSet[code]
		_, seen := parsedSet[code]
		parsedSet[code] = struct{}{}
		if stored {
			continue
		}
		if !seen {
			st.Added = append(st.Added, code)
		}
		// duplicates are kept so the store reports them as a conflict
		create = append(create, transit.Route{Name: p.Name, Code: code, Type: t})
	}

	for _, code := range existing {
		if _, ok := parsedSet[code]; ok {
			st.Updated = append(st.Updated, code)
		} else {
			st.Canceled = append(st.Canceled, code)
		}
	}
	st.Existing = existing

	canceledSet := toSet(alreadyCanceled)
	var cancel []string
	for _, code := range st.Canceled {
		if _, ok := canceledSet[code]; !ok {
			cancel = append(cancel, code)
		}
	}
	st.Canceled = cancel

	if len(create) > 0 {
		if err := repo.CreateRoutes(ctx, create); err != nil {
			return st, fmt.Errorf("create %s routes: %w", t, err)
		}
	}
	if len(cancel) > 0 {
		if _, err := repo.CancelRoutes(ctx, t, cancel, today); err != nil {
			return st, fmt.Errorf("cancel %s routes: %w", t, err)
		}
	}

	for _, code := range st.Added {
		r, err := repo.RouteByCode(ctx, code)
		if err != nil {
			return st, fmt.Errorf("query route %q: %w", code, err)
		}
		n, err := repo.BindProviders(ctx, r)
		if err != nil {
			return st, fmt.Errorf("bind providers of route %q: %w", code, err)
		}
		st.Bound += n
	}

	st.CanceledTotal = append(slices.Clone(alreadyCanceled), cancel...)
	slices.Sort(st.Added)
	slices.Sort(st.Updated)
	slices.Sort(st.Existing)
	slices.Sort(st.Canceled)
	slices.Sort(st.CanceledTotal)
	st.CanceledTotal = slices.Compact(st.CanceledTotal)
	return st, nil
}

func toSet(codes []string) map[string]struct{} {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}
