package aggregates

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/aqp/internal/platform/db"
)

const aggregateColumns = `ra.id, ra.monitor_region, ra.timespan, ra.reading_dt,
	ra.pm_2_5, ra.pm_2_5_sum, ra.pm_2_5_count, ra.pm_2_5_max, ra.pm_2_5_min,
	ra.aqi_us, ra.aqi_category, ra.created_at, ra.updated_at`

// Repository provides PostgreSQL backed persistence for reading aggregates.
type Repository struct {
	q    db.Querier
	pool *pgxpool.Pool
}

// NewRepository constructs a repository bound to the pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool, pool: pool}
}

// InTx runs fn with a repository bound to a single transaction. Repositories
// already inside a transaction run fn directly.
func (r *Repository) InTx(ctx context.Context, fn func(Store) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return db.WithTx(ctx, r.pool, func(q db.Querier) error {
		return fn(&Repository{q: q})
	})
}

func scanAggregate(row pgx.Row) (Aggregate, error) {
	var a Aggregate
	var ts string
	err := row.Scan(&a.ID, &a.Region, &ts, &a.ReadingDT,
		&a.PM25, &a.Sum, &a.Count, &a.Max, &a.Min,
		&a.AQI, &a.Category, &a.CreatedAt, &a.UpdatedAt)
	a.Timespan = Timespan(ts)
	return a, err
}

// Find returns the aggregate for a bucket, or nil when none exists.
func (r *Repository) Find(ctx context.Context, region string, ts Timespan, dt time.Time) (*Aggregate, error) {
	a, err := scanAggregate(r.q.QueryRow(ctx, `
		SELECT `+aggregateColumns+`
		FROM reading_aggregates ra
		WHERE ra.monitor_region = $1 AND ra.timespan = $2 AND ra.reading_dt = $3`,
		region, string(ts), dt))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("aggregates: find %s %s %s: %w", region, ts, dt.Format(time.DateTime), err)
	}
	return &a, nil
}

// Insert stores a new aggregate.
func (r *Repository) Insert(ctx context.Context, a Aggregate) (Aggregate, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO reading_aggregates AS ra (monitor_region, timespan, reading_dt,
			pm_2_5, pm_2_5_sum, pm_2_5_count, pm_2_5_max, pm_2_5_min, aqi_us, aqi_category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+aggregateColumns,
		a.Region, string(a.Timespan), a.ReadingDT,
		a.PM25, a.Sum, a.Count, a.Max, a.Min, a.AQI, a.Category)
	created, err := scanAggregate(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Aggregate{}, ErrDuplicate
		}
		return Aggregate{}, fmt.Errorf("aggregates: insert %s: %w", a.Region, err)
	}
	return created, nil
}

// Update rewrites the accumulated values of an existing aggregate.
func (r *Repository) Update(ctx context.Context, a Aggregate) error {
	_, err := r.q.Exec(ctx, `
		UPDATE reading_aggregates
		SET pm_2_5 = $2, pm_2_5_sum = $3, pm_2_5_count = $4, pm_2_5_max = $5, pm_2_5_min = $6,
			aqi_us = $7, aqi_category = $8, updated_at = now()
		WHERE id = $1`,
		a.ID, a.PM25, a.Sum, a.Count, a.Max, a.Min, a.AQI, a.Category)
	if err != nil {
		return fmt.Errorf("aggregates: update %d: %w", a.ID, err)
	}
	return nil
}

// List returns aggregates of enabled regions matching q ordered by reading_dt.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]Aggregate, error) {
	if !q.AllRegions && len(q.Regions) == 0 {
		return nil, nil
	}
	order := "asc"
	if q.Descending {
		order = "desc"
	}
	args := []any{q.From, q.To, string(q.Timespan)}
	query := `
		SELECT ` + aggregateColumns + `
		FROM reading_aggregates ra
		JOIN monitor_regions mr ON mr.name = ra.monitor_region
		WHERE ra.reading_dt BETWEEN $1 AND $2
			AND ra.timespan = $3
			AND mr.disabled = false`
	if !q.AllRegions {
		args = append(args, q.Regions)
		query += ` AND ra.monitor_region = ANY($4)`
	}
	query += ` ORDER BY ra.reading_dt ` + order + `, ra.monitor_region`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregates: list: %w", err)
	}
	defer rows.Close()
	var out []Aggregate
	for rows.Next() {
		a, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
