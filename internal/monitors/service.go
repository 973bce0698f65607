package monitors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/aqp/internal/platform/db"
)

// Store is the persistence contract used by the service.
type Store interface {
	Get(ctx context.Context, name string) (Monitor, error)
	Insert(ctx context.Context, m Monitor) (Monitor, error)
	List(ctx context.Context, params ListParams) ([]Monitor, int, error)
	DirectMonitors(ctx context.Context, region string) ([]string, error)
	InRegions(ctx context.Context, regions []string) ([]string, error)
	RefreshReadingBounds(ctx context.Context, name string) (first, last *time.Time, err error)
}

// RegionChecker confirms a region reference exists.
type RegionChecker interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// Service implements monitor business rules.
type Service struct {
	store    Store
	regions  RegionChecker
	validate *validator.Validate
}

// NewService constructs a monitor service. regions may be nil to skip reference checks.
func NewService(store Store, regions RegionChecker) *Service {
	return &Service{store: store, regions: regions, validate: validator.New()}
}

// Create cleans and stores a monitor.
func (s *Service) Create(ctx context.Context, in CreateInput) (Monitor, error) {
	in.Name = CleanWhitespace(in.Name)
	in.MonitorName = CleanWhitespace(in.MonitorName)
	in.City = CleanWhitespace(in.City)
	in.SerialNo = CleanWhitespace(in.SerialNo)
	if err := s.validate.Struct(in); err != nil {
		return Monitor{}, err
	}
	if in.Region != "" && s.regions != nil {
		ok, err := s.regions.Exists(ctx, in.Region)
		if err != nil {
			return Monitor{}, err
		}
		if !ok {
			return Monitor{}, fmt.Errorf("monitors: region %s: %w", in.Region, ErrRegionNotFound)
		}
	}
	return s.store.Insert(ctx, Monitor{
		Name:        in.Name,
		MonitorName: in.MonitorName,
		Region:      in.Region,
		Country:     in.Country,
		City:        in.City,
		SerialNo:    in.SerialNo,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		OnlineSince: in.OnlineSince,
	})
}

// Get returns a single monitor.
func (s *Service) Get(ctx context.Context, name string) (Monitor, error) {
	return s.store.Get(ctx, name)
}

// List returns a page of enabled monitors.
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	params.Page = params.Page.Normalize()
	data, total, err := s.store.List(ctx, params)
	if err != nil {
		return ListResult{}, err
	}
	if data == nil {
		data = []Monitor{}
	}
	return ListResult{
		Data: data,
		Pagination: db.Pagination{
			Count:      len(data),
			TotalCount: total,
			Start:      params.Page.Start,
			Length:     params.Page.Length,
		},
	}, nil
}

// OnlineAt lists every enabled monitor whose first reading is not after at, oldest first.
func (s *Service) OnlineAt(ctx context.Context, at time.Time) ([]Monitor, error) {
	data, _, err := s.store.List(ctx, ListParams{FirstReadingBefore: &at, SortBy: "created_at", SortOrder: "asc"})
	return data, err
}

// DirectMonitors returns enabled monitors assigned to exactly this region.
func (s *Service) DirectMonitors(ctx context.Context, region string) ([]string, error) {
	return s.store.DirectMonitors(ctx, region)
}

// InRegions returns enabled monitors assigned to any of the regions.
func (s *Service) InRegions(ctx context.Context, regions []string) ([]string, error) {
	return s.store.InRegions(ctx, regions)
}

// RefreshReadingBounds recomputes first and last reading timestamps.
func (s *Service) RefreshReadingBounds(ctx context.Context, name string) error {
	_, _, err := s.store.RefreshReadingBounds(ctx, name)
	return err
}
