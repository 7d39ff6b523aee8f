package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"transit-sync/internal/transit"
)

const providerColumns = `id, link, type, coding, route_id, route_code`

func scanProvider(row interface{ Scan(...any) error }) (transit.DataProvider, error) {
	var (
		p       transit.DataProvider
		typ     string
		routeID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Link, &typ, &p.Coding, &routeID, &p.RouteCode); err != nil {
		return p, err
	}
	p.Type = transit.ProviderType(typ)
	if routeID.Valid {
		id := routeID.Int64
		p.RouteID = &id
	}
	return p, nil
}

func (s *Store) ProviderByType(ctx context.Context, t transit.ProviderType) (transit.DataProvider, error) {
	q := `SELECT ` + providerColumns + ` FROM data_providers WHERE type = ? AND route_id IS NULL ORDER BY id LIMIT 1`
	p, err := scanProvider(s.db.QueryRowContext(ctx, s.rebind(q), string(t)))
	if err != nil {
		return p, fmt.Errorf("query %s provider: %w", t, mapError(err))
	}
	return p, nil
}

func (s *Store) RouteProvider(ctx context.Context, routeID int64, t transit.ProviderType) (transit.DataProvider, error) {
	q := `SELECT ` + providerColumns + ` FROM data_providers WHERE type = ? AND route_id = ? ORDER BY id LIMIT 1`
	p, err := scanProvider(s.db.QueryRowContext(ctx, s.rebind(q), string(t), routeID))
	if err != nil {
		return p, fmt.Errorf("query %s provider of route %d: %w", t, routeID, mapError(err))
	}
	return p, nil
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func (s *Store) UpsertProvider(ctx context.Context, p transit.DataProvider) (transit.DataProvider, bool, error) {
	if p.Coding == "" {
		p.Coding = transit.DefaultCoding
	}
	created := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT id FROM data_providers WHERE type = ? AND route_code = ?`),
			string(p.Type), p.RouteCode).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id, err = s.insertID(ctx, tx,
				`INSERT INTO data_providers (link, type, coding, route_id, route_code) VALUES (?, ?, ?, ?, ?)`,
				p.Link, string(p.Type), p.Coding, nullID(p.RouteID), p.RouteCode)
			if err != nil {
				return err
			}
			p.ID, created = id, true
			return nil
		case err != nil:
			return err
		}
		p.ID = id
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE data_providers SET link = ?, coding = ?, route_id = ? WHERE id = ?`),
			p.Link, p.Coding, nullID(p.RouteID), id)
		return mapError(err)
	})
	if err != nil {
		return p, false, fmt.Errorf("upsert %s provider %q: %w", p.Type, p.RouteCode, err)
	}
	return p, created, nil
}

func (s *Store) BindProviders(ctx context.Context, r transit.Route) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE data_providers SET route_id = ? WHERE route_id IS NULL AND route_code <> '' AND route_code = ?`),
		r.ID, r.Code)
	if err != nil {
		return 0, fmt.Errorf("bind providers of %q: %w", r.Code, err)
	}
	return res.RowsAffected()
}
