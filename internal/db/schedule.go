package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"transit-sync/internal/geo"
	"transit-sync/internal/transit"
)

func (s *Store) WeekDimension(ctx context.Context, weekday int, weekend bool) (transit.WeekDimension, bool, error) {
	w := transit.WeekDimension{Weekday: weekday, Weekend: weekend}
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id FROM week_dimensions WHERE weekday = ? AND weekend = ?`), weekday, weekend).Scan(&w.ID)
	if err == nil {
		return w, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return w, false, fmt.Errorf("query %s: %w", w, err)
	}
	w.ID, err = s.insertID(ctx, s.db, `INSERT INTO week_dimensions (weekday, weekend) VALUES (?, ?)`, weekday, weekend)
	if err != nil {
		return w, false, fmt.Errorf("insert %s: %w", w, err)
	}
	return w, true, nil
}

func variantDate(v transit.ScheduleVariant) any {
	if v.Date == nil {
		return nil
	}
	return v.Date.Date.Format(time.DateOnly)
}

func (s *Store) UpsertRoutePoint(ctx context.Context, rp *transit.RoutePoint) (bool, error) {
	if rp.Stop == nil || rp.Stop.ID == 0 {
		return false, fmt.Errorf("upsert route point: stop is not stored")
	}
	week := rp.Variant.WeekDimensionID()
	if week == 0 {
		return false, fmt.Errorf("upsert route point: week dimension is not stored")
	}
	created := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT id FROM route_points
WHERE route_id = ? AND stop_id = ? AND week_id = ? AND lap = ? AND sort_order = ?`),
			rp.RouteID, rp.Stop.ID, week, rp.Lap, rp.Order).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id, err = s.insertID(ctx, tx, `INSERT INTO route_points
(route_id, stop_id, week_id, date, time_sec, sort_order, lap, lap_start, skip, direction, geo_direction, angle, on_demand)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rp.RouteID, rp.Stop.ID, week, variantDate(rp.Variant), int64(rp.Time/time.Second), rp.Order, rp.Lap,
				rp.LapStart, rp.Skip, string(rp.Direction), string(rp.GeoDirection), rp.Angle, rp.OnDemand)
			if err != nil {
				return err
			}
			rp.ID, created = id, true
			return nil
		case err != nil:
			return err
		}
		rp.ID = id
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE route_points
SET date = ?, time_sec = ?, lap_start = ?, skip = ?, direction = ?, geo_direction = ?, angle = ?, on_demand = ?
WHERE id = ?`),
			variantDate(rp.Variant), int64(rp.Time/time.Second), rp.LapStart, rp.Skip,
			string(rp.Direction), string(rp.GeoDirection), rp.Angle, rp.OnDemand, id)
		return mapError(err)
	})
	if err != nil {
		return false, fmt.Errorf("upsert route point %d of route %d: %w", rp.Order, rp.RouteID, err)
	}
	return created, nil
}

func (s *Store) RoutePoints(ctx context.Context, routeID int64, lap int) ([]transit.RoutePoint, error) {
	q := `SELECT rp.id, rp.route_id, rp.date, rp.time_sec, rp.sort_order, rp.lap, rp.lap_start, rp.skip,
       rp.direction, rp.geo_direction, rp.angle, rp.on_demand,
       w.id, w.weekday, w.weekend,
       s.id, s.lon, s.lat, ` + platformColumns + `, a.id, a.name
FROM route_points rp
JOIN week_dimensions w ON w.id = rp.week_id
JOIN stops s ON s.id = rp.stop_id
JOIN platforms p ON p.id = s.platform_id
LEFT JOIN platform_aliases a ON a.id = s.alias_id
WHERE rp.route_id = ? AND rp.lap = ?
ORDER BY rp.sort_order, rp.id`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), routeID, lap)
	if err != nil {
		return nil, fmt.Errorf("query route points of route %d: %w", routeID, err)
	}
	defer rows.Close()

	var out []transit.RoutePoint
	for rows.Next() {
		var (
			rp        transit.RoutePoint
			date      dateValue
			timeSec   int64
			dir, oct  string
			week      transit.WeekDimension
			st        transit.Stop
			p         transit.Platform
			geoDir    string
			aliasID   sql.NullInt64
			aliasName sql.NullString
		)
		dest := []any{&rp.ID, &rp.RouteID, &date, &timeSec, &rp.Order, &rp.Lap, &rp.LapStart, &rp.Skip,
			&dir, &oct, &rp.Angle, &rp.OnDemand,
			&week.ID, &week.Weekday, &week.Weekend,
			&st.ID, &st.Lon, &st.Lat}
		dest = append(dest, scanPlatform(&p, &geoDir)...)
		dest = append(dest, &aliasID, &aliasName)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rp.Time = time.Duration(timeSec) * time.Second
		rp.Direction = transit.Direction(dir)
		rp.GeoDirection = geo.Octant(oct)
		rp.Variant.Week = &week
		if date.Valid {
			dd := transit.NewDateDimension(date.Time)
			dd.Week = week
			rp.Variant.Date = &dd
		}
		p.GeoDirection = geo.Octant(geoDir)
		st.Platform = &p
		if aliasID.Valid {
			st.Alias = &transit.PlatformAlias{ID: aliasID.Int64, Name: aliasName.String, PlatformID: p.ID, StopID: st.ID}
		}
		rp.Stop = &st
		out = append(out, rp)
	}
	return out, rows.Err()
}
