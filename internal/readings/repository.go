package readings

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/aqp/internal/platform/db"
)

const readingColumns = `r.id, r.air_monitor, r.reading_dt, r.pm_2_5, r.aqi_us, r.aqi_category,
	r.temperature, r.relative_humidity, r.co2, r.created_at, r.updated_at`

// Repository provides PostgreSQL backed persistence for monitor readings.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

func scanReading(row pgx.Row) (Reading, error) {
	var m Reading
	err := row.Scan(&m.ID, &m.Monitor, &m.ReadingDT, &m.PM25, &m.AQI, &m.Category,
		&m.Temperature, &m.RelativeHumidity, &m.CO2, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func collect(rows pgx.Rows) ([]Reading, error) {
	defer rows.Close()
	var out []Reading
	for rows.Next() {
		m, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get loads a reading by id.
func (r *Repository) Get(ctx context.Context, id int64) (Reading, error) {
	m, err := scanReading(r.q.QueryRow(ctx, `SELECT `+readingColumns+` FROM monitor_readings r WHERE r.id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Reading{}, ErrNotFound
		}
		return Reading{}, fmt.Errorf("readings: get %d: %w", id, err)
	}
	return m, nil
}

// Insert stores a reading. A second reading for the same monitor and time is a duplicate.
func (r *Repository) Insert(ctx context.Context, m Reading) (Reading, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO monitor_readings AS r (air_monitor, reading_dt, pm_2_5, aqi_us, aqi_category,
			temperature, relative_humidity, co2)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+readingColumns,
		m.Monitor, m.ReadingDT, m.PM25, m.AQI, m.Category, m.Temperature, m.RelativeHumidity, m.CO2)
	created, err := scanReading(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Reading{}, ErrDuplicateReading
		}
		return Reading{}, fmt.Errorf("readings: insert %s: %w", m.Monitor, err)
	}
	return created, nil
}

// Delete removes a reading and returns it.
func (r *Repository) Delete(ctx context.Context, id int64) (Reading, error) {
	m, err := scanReading(r.q.QueryRow(ctx, `DELETE FROM monitor_readings r WHERE r.id = $1 RETURNING `+readingColumns, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Reading{}, ErrNotFound
		}
		return Reading{}, fmt.Errorf("readings: delete %d: %w", id, err)
	}
	return m, nil
}

// LatestDT returns the newest reading timestamp, or nil without readings.
func (r *Repository) LatestDT(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	if err := r.q.QueryRow(ctx, `SELECT max(reading_dt) FROM monitor_readings`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("readings: latest reading dt: %w", err)
	}
	return latest, nil
}

// Find returns readings of enabled monitors matching q.
func (r *Repository) Find(ctx context.Context, q Query) ([]Reading, error) {
	if !q.AnyMonitor && len(q.Monitors) == 0 {
		return nil, nil
	}
	order := "asc"
	if q.Descending {
		order = "desc"
	}
	args := []any{q.From, q.To}
	query := `
		SELECT ` + readingColumns + `
		FROM monitor_readings r
		JOIN air_monitors m ON m.name = r.air_monitor
		WHERE r.reading_dt BETWEEN $1 AND $2
			AND m.disabled = false`
	if !q.AnyMonitor {
		args = append(args, q.Monitors)
		query += ` AND r.air_monitor = ANY($3)`
	}
	query += ` ORDER BY r.reading_dt ` + order + `, r.air_monitor`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("readings: find: %w", err)
	}
	return collect(rows)
}

// PM25Between returns the raw PM2.5 values of the monitors inside [from, to].
func (r *Repository) PM25Between(ctx context.Context, from, to time.Time, monitors []string) ([]float64, error) {
	if len(monitors) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT pm_2_5 FROM monitor_readings
		WHERE reading_dt BETWEEN $1 AND $2 AND air_monitor = ANY($3)
		ORDER BY reading_dt`, from, to, monitors)
	if err != nil {
		return nil, fmt.Errorf("readings: pm2.5 values: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[float64])
}
