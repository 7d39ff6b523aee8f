package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"transit-sync/internal/transit"
)

func (s *Store) codes(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) RouteCodes(ctx context.Context, t transit.RouteType) ([]string, error) {
	out, err := s.codes(ctx, `SELECT code FROM routes WHERE type = ? ORDER BY code`, string(t))
	if err != nil {
		return nil, fmt.Errorf("query route codes: %w", err)
	}
	return out, nil
}

func (s *Store) CanceledRouteCodes(ctx context.Context, t transit.RouteType) ([]string, error) {
	out, err := s.codes(ctx, `SELECT code FROM routes WHERE type = ? AND canceled IS NOT NULL ORDER BY code`, string(t))
	if err != nil {
		return nil, fmt.Errorf("query canceled route codes: %w", err)
	}
	return out, nil
}

func (s *Store) CreateRoutes(ctx context.Context, routes []transit.Route) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range routes {
			_, err := s.insertID(ctx, tx,
				`INSERT INTO routes (name, code, type, canceled) VALUES (?, ?, ?, ?)`,
				r.Name, r.Code, string(r.Type), dateArg(r.Canceled))
			if err != nil {
				return fmt.Errorf("insert route %q: %w", r.Code, err)
			}
		}
		return nil
	})
}

// CancelRoutes leaves routes that are already canceled untouched.
func (s *Store) CancelRoutes(ctx context.Context, t transit.RouteType, codes []string, on time.Time) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	args := []any{on.Format(time.DateOnly), string(t)}
	for _, c := range codes {
		args = append(args, c)
	}
	q := `UPDATE routes SET canceled = ? WHERE type = ? AND canceled IS NULL AND code IN (` + placeholders(len(codes)) + `)`
	res, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("cancel routes: %w", err)
	}
	return res.RowsAffected()
}

const routeColumns = `id, name, code, type, canceled`

func scanRoute(row interface{ Scan(...any) error }) (transit.Route, error) {
	var (
		r        transit.Route
		typ      string
		canceled dateValue
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Code, &typ, &canceled); err != nil {
		return r, err
	}
	r.Type = transit.RouteType(typ)
	r.Canceled = canceled.ptr()
	return r, nil
}

func (s *Store) Routes(ctx context.Context, t transit.RouteType, includeCanceled bool) ([]transit.Route, error) {
	q := `SELECT ` + routeColumns + ` FROM routes WHERE type = ?`
	if !includeCanceled {
		q += ` AND canceled IS NULL`
	}
	q += ` ORDER BY code`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), string(t))
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()
	var out []transit.Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) RouteByCode(ctx context.Context, code string) (transit.Route, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+routeColumns+` FROM routes WHERE code = ?`), code)
	r, err := scanRoute(row)
	if err != nil {
		return r, fmt.Errorf("query route %q: %w", code, mapError(err))
	}
	return r, nil
}
