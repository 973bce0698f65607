package monitors

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/aqp/internal/platform/db"
)

const monitorColumns = `name, monitor_name, COALESCE(monitor_region, ''), inactive, disabled, country, city, serial_no,
	latitude, longitude, online_since, first_reading_dt, last_reading_dt, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for air monitors.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

func scanMonitor(row pgx.Row) (Monitor, error) {
	var m Monitor
	err := row.Scan(&m.Name, &m.MonitorName, &m.Region, &m.Inactive, &m.Disabled, &m.Country, &m.City, &m.SerialNo,
		&m.Latitude, &m.Longitude, &m.OnlineSince, &m.FirstReadingDT, &m.LastReadingDT, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Get loads a monitor by name.
func (r *Repository) Get(ctx context.Context, name string) (Monitor, error) {
	m, err := scanMonitor(r.q.QueryRow(ctx, `SELECT `+monitorColumns+` FROM air_monitors WHERE name = $1`, name))
	if err != nil {
		if db.IsNoRows(err) {
			return Monitor{}, ErrNotFound
		}
		return Monitor{}, fmt.Errorf("monitors: get %s: %w", name, err)
	}
	return m, nil
}

// Insert stores a new monitor.
func (r *Repository) Insert(ctx context.Context, m Monitor) (Monitor, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO air_monitors (name, monitor_name, monitor_region, country, city, serial_no, latitude, longitude, online_since)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
		RETURNING `+monitorColumns,
		m.Name, m.MonitorName, m.Region, m.Country, m.City, m.SerialNo, m.Latitude, m.Longitude, m.OnlineSince,
	)
	created, err := scanMonitor(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Monitor{}, ErrDuplicate
		}
		return Monitor{}, fmt.Errorf("monitors: insert %s: %w", m.Name, err)
	}
	return created, nil
}

// List returns enabled monitors page by page.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Monitor, int, error) {
	order, err := db.OrderBy(params.SortBy, params.SortOrder, SortFields)
	if err != nil {
		return nil, 0, err
	}

	where := ` WHERE disabled = false`
	args := []any{}
	if params.Region != "" {
		args = append(args, params.Region)
		where += fmt.Sprintf(` AND monitor_region = $%d`, len(args))
	}
	if params.FirstReadingBefore != nil {
		args = append(args, *params.FirstReadingBefore)
		where += fmt.Sprintf(` AND first_reading_dt <= $%d`, len(args))
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM air_monitors`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("monitors: count: %w", err)
	}

	query := `SELECT ` + monitorColumns + ` FROM air_monitors` + where + order
	if params.Page.Length > 0 {
		args = append(args, params.Page.Length, params.Page.Start)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("monitors: list: %w", err)
	}
	defer rows.Close()
	var out []Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// DirectMonitors returns enabled monitors assigned to exactly this region.
func (r *Repository) DirectMonitors(ctx context.Context, region string) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT name FROM air_monitors WHERE monitor_region = $1 AND disabled = false ORDER BY name`, region)
	if err != nil {
		return nil, fmt.Errorf("monitors: direct monitors of %s: %w", region, err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// InRegions returns enabled monitors assigned to any of the regions.
func (r *Repository) InRegions(ctx context.Context, regions []string) ([]string, error) {
	if len(regions) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `SELECT name FROM air_monitors WHERE monitor_region = ANY($1) AND disabled = false ORDER BY name`, regions)
	if err != nil {
		return nil, fmt.Errorf("monitors: monitors in regions: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// RefreshReadingBounds recomputes first and last reading timestamps from stored readings.
func (r *Repository) RefreshReadingBounds(ctx context.Context, name string) (first, last *time.Time, err error) {
	row := r.q.QueryRow(ctx, `
		UPDATE air_monitors m
		SET first_reading_dt = b.first_dt, last_reading_dt = b.last_dt
		FROM (
			SELECT min(reading_dt) AS first_dt, max(reading_dt) AS last_dt
			FROM monitor_readings WHERE air_monitor = $1
		) b
		WHERE m.name = $1
		RETURNING m.first_reading_dt, m.last_reading_dt`, name)
	if err := row.Scan(&first, &last); err != nil {
		if db.IsNoRows(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("monitors: refresh bounds %s: %w", name, err)
	}
	return first, last, nil
}
