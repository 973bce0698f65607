package regions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/aqp/internal/platform/db"
)

const regionColumns = `name, monitor_region_name, COALESCE(parent_monitor_region, ''), type, timezone, disabled, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for monitor regions.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

func scanRegion(row pgx.Row) (Region, error) {
	var r Region
	err := row.Scan(&r.Name, &r.RegionName, &r.Parent, &r.Type, &r.Timezone, &r.Disabled, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func collect(rows pgx.Rows) ([]Region, error) {
	defer rows.Close()
	var out []Region
	for rows.Next() {
		r, err := scanRegion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get loads a region by name.
func (r *Repository) Get(ctx context.Context, name string) (Region, error) {
	region, err := scanRegion(r.q.QueryRow(ctx, `SELECT `+regionColumns+` FROM monitor_regions WHERE name = $1`, name))
	if err != nil {
		if db.IsNoRows(err) {
			return Region{}, ErrNotFound
		}
		return Region{}, fmt.Errorf("regions: get %s: %w", name, err)
	}
	return region, nil
}

// All returns every region, enabled or not, in creation order.
func (r *Repository) All(ctx context.Context) ([]Region, error) {
	rows, err := r.q.Query(ctx, `SELECT `+regionColumns+` FROM monitor_regions ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("regions: list all: %w", err)
	}
	return collect(rows)
}

// Roots returns the names of regions without a parent.
func (r *Repository) Roots(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT name FROM monitor_regions WHERE parent_monitor_region IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("regions: roots: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// List returns enabled regions page by page.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Region, int, error) {
	order, err := db.OrderBy(params.SortBy, params.SortOrder, SortFields)
	if err != nil {
		return nil, 0, err
	}
	page := params.Page.Normalize()

	where := ` WHERE disabled = false`
	args := []any{}
	if params.Parent != "" {
		args = append(args, params.Parent)
		where += fmt.Sprintf(` AND parent_monitor_region = $%d`, len(args))
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM monitor_regions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("regions: count: %w", err)
	}

	args = append(args, page.Length, page.Start)
	query := `SELECT ` + regionColumns + ` FROM monitor_regions` + where + order +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("regions: list: %w", err)
	}
	regs, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

// Insert stores a new region.
func (r *Repository) Insert(ctx context.Context, region Region) (Region, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO monitor_regions (name, monitor_region_name, parent_monitor_region, type, timezone, disabled)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		RETURNING `+regionColumns,
		region.Name, region.RegionName, region.Parent, region.Type, region.Timezone, region.Disabled,
	)
	created, err := scanRegion(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Region{}, ErrDuplicate
		}
		return Region{}, fmt.Errorf("regions: insert %s: %w", region.Name, err)
	}
	return created, nil
}
