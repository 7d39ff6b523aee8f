package db

import (
	"context"
	"database/sql"
	"fmt"

	"transit-sync/internal/geo"
	"transit-sync/internal/transit"
)

const platformColumns = `p.id, p.name, p.full_name, p.description, p.geo_direction`

const stopSelect = `SELECT s.id, s.lon, s.lat, ` + platformColumns + `, a.id, a.name
FROM stops s
JOIN platforms p ON p.id = s.platform_id
LEFT JOIN platform_aliases a ON a.id = s.alias_id`

func scanPlatform(dst *transit.Platform, geoDir *string) []any {
	return []any{&dst.ID, &dst.Name, &dst.FullName, &dst.Description, geoDir}
}

func scanStop(row interface{ Scan(...any) error }) (*transit.Stop, error) {
	var (
		st        transit.Stop
		p         transit.Platform
		geoDir    string
		aliasID   sql.NullInt64
		aliasName sql.NullString
	)
	dest := append([]any{&st.ID, &st.Lon, &st.Lat}, scanPlatform(&p, &geoDir)...)
	dest = append(dest, &aliasID, &aliasName)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.GeoDirection = geo.Octant(geoDir)
	st.Platform = &p
	if aliasID.Valid {
		st.Alias = &transit.PlatformAlias{
			ID:         aliasID.Int64,
			Name:       aliasName.String,
			PlatformID: p.ID,
			StopID:     st.ID,
		}
	}
	return &st, nil
}

func (s *Store) PlatformByName(ctx context.Context, name string) (*transit.Platform, error) {
	var (
		p      transit.Platform
		geoDir string
	)
	q := `SELECT ` + platformColumns + ` FROM platforms p WHERE p.name = ?`
	if err := s.db.QueryRowContext(ctx, s.rebind(q), name).Scan(scanPlatform(&p, &geoDir)...); err != nil {
		return nil, fmt.Errorf("query platform %q: %w", name, mapError(err))
	}
	p.GeoDirection = geo.Octant(geoDir)
	return &p, nil
}

func (s *Store) AliasByName(ctx context.Context, name string) (*transit.PlatformAlias, *transit.Platform, error) {
	var (
		a      transit.PlatformAlias
		p      transit.Platform
		geoDir string
		stopID sql.NullInt64
	)
	q := `SELECT a.id, a.name, a.platform_id, s.id, ` + platformColumns + `
FROM platform_aliases a
JOIN platforms p ON p.id = a.platform_id
LEFT JOIN stops s ON s.alias_id = a.id
WHERE a.name = ?
ORDER BY a.id
LIMIT 1`
	dest := append([]any{&a.ID, &a.Name, &a.PlatformID, &stopID}, scanPlatform(&p, &geoDir)...)
	if err := s.db.QueryRowContext(ctx, s.rebind(q), name).Scan(dest...); err != nil {
		return nil, nil, fmt.Errorf("query alias %q: %w", name, mapError(err))
	}
	p.GeoDirection = geo.Octant(geoDir)
	a.StopID = stopID.Int64
	return &a, &p, nil
}

func (s *Store) CreatePlatform(ctx context.Context, p *transit.Platform) error {
	id, err := s.insertID(ctx, s.db,
		`INSERT INTO platforms (name, full_name, description, geo_direction) VALUES (?, ?, ?, ?)`,
		p.Name, p.FullName, p.Description, string(p.GeoDirection))
	if err != nil {
		return fmt.Errorf("insert platform %q: %w", p.Name, err)
	}
	p.ID = id
	return nil
}

func (s *Store) CreateAlias(ctx context.Context, a *transit.PlatformAlias) error {
	id, err := s.insertID(ctx, s.db,
		`INSERT INTO platform_aliases (name, platform_id) VALUES (?, ?)`, a.Name, a.PlatformID)
	if err != nil {
		return fmt.Errorf("insert alias %q: %w", a.Name, err)
	}
	a.ID = id
	return nil
}

func (s *Store) StopByCoords(ctx context.Context, lon, lat float64) (*transit.Stop, error) {
	q := stopSelect + ` WHERE s.lon = ? AND s.lat = ? ORDER BY s.id LIMIT 1`
	st, err := scanStop(s.db.QueryRowContext(ctx, s.rebind(q), lon, lat))
	if err != nil {
		return nil, fmt.Errorf("query stop at %v %v: %w", lon, lat, mapError(err))
	}
	return st, nil
}

func (s *Store) CreateStop(ctx context.Context, st *transit.Stop) error {
	if st.Platform == nil || st.Platform.ID == 0 {
		return fmt.Errorf("insert stop %s: platform is not stored", st)
	}
	var alias any
	if st.Alias != nil && st.Alias.ID != 0 {
		alias = st.Alias.ID
	}
	id, err := s.insertID(ctx, s.db,
		`INSERT INTO stops (platform_id, lon, lat, alias_id) VALUES (?, ?, ?, ?)`,
		st.Platform.ID, st.Lon, st.Lat, alias)
	if err != nil {
		return fmt.Errorf("insert stop %s: %w", st, err)
	}
	st.ID = id
	return nil
}

func (s *Store) SetStopAlias(ctx context.Context, stopID, aliasID int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE stops SET alias_id = ? WHERE id = ?`), aliasID, stopID)
	if err != nil {
		return fmt.Errorf("set alias of stop %d: %w", stopID, mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("stop %d: %w", stopID, transit.ErrNotFound)
	}
	return nil
}

func (s *Store) StopsByAlias(ctx context.Context, ids []int64, names []string) ([]*transit.Stop, error) {
	if len(ids) == 0 || len(names) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids)+len(names))
	for _, id := range ids {
		args = append(args, id)
	}
	for _, n := range names {
		args = append(args, n)
	}
	q := stopSelect + ` WHERE s.id IN (` + placeholders(len(ids)) + `) AND a.name IN (` + placeholders(len(names)) + `) ORDER BY s.id`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query stops by alias: %w", err)
	}
	defer rows.Close()
	var out []*transit.Stop
	for rows.Next() {
		st, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
