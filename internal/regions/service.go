package regions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/aqp/internal/platform/db"
)

// Store is the persistence contract used by the service.
type Store interface {
	Get(ctx context.Context, name string) (Region, error)
	All(ctx context.Context) ([]Region, error)
	Roots(ctx context.Context) ([]string, error)
	List(ctx context.Context, params ListParams) ([]Region, int, error)
	Insert(ctx context.Context, region Region) (Region, error)
}

// Service implements region business rules.
type Service struct {
	store    Store
	validate *validator.Validate
}

// NewService constructs a region service.
func NewService(store Store) *Service {
	return &Service{store: store, validate: validator.New()}
}

// Create validates and stores a new region. A region without a parent becomes
// the root and is rejected when a root already exists.
func (s *Service) Create(ctx context.Context, in CreateInput) (Region, error) {
	in.RegionName = strings.TrimSpace(in.RegionName)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Region{}, err
	}
	if in.Name == "" {
		in.Name = in.RegionName
	}
	if in.Timezone != "" {
		if _, err := time.LoadLocation(in.Timezone); err != nil {
			return Region{}, fmt.Errorf("%w: %s", ErrInvalidZone, in.Timezone)
		}
	}

	if in.Parent == "" {
		roots, err := s.store.Roots(ctx)
		if err != nil {
			return Region{}, err
		}
		if len(roots) > 0 {
			return Region{}, ErrMultipleRoots
		}
	} else if _, err := s.store.Get(ctx, in.Parent); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Region{}, fmt.Errorf("%w: %s", ErrParentNotFound, in.Parent)
		}
		return Region{}, err
	}

	return s.store.Insert(ctx, Region{
		Name:       in.Name,
		RegionName: in.RegionName,
		Parent:     in.Parent,
		Type:       in.Type,
		Timezone:   in.Timezone,
	})
}

// EnsureRoot creates the Global root region when the table has no root.
func (s *Service) EnsureRoot(ctx context.Context) (string, bool, error) {
	roots, err := s.store.Roots(ctx)
	if err != nil {
		return "", false, err
	}
	if len(roots) > 0 {
		return roots[0], false, nil
	}
	created, err := s.store.Insert(ctx, Region{Name: RootName, RegionName: RootName})
	if err != nil {
		return "", false, err
	}
	return created.Name, true, nil
}

// Root returns the name of the root region.
func (s *Service) Root(ctx context.Context) (string, error) {
	roots, err := s.store.Roots(ctx)
	if err != nil {
		return "", err
	}
	switch len(roots) {
	case 0:
		return "", ErrRootNotFound
	case 1:
		return roots[0], nil
	default:
		return "", ErrMultipleRoots
	}
}

// Get returns a single region.
func (s *Service) Get(ctx context.Context, name string) (Region, error) {
	return s.store.Get(ctx, name)
}

// Tree loads every region and assembles the hierarchy.
func (s *Service) Tree(ctx context.Context) (*Tree, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(all)
}

// Enabled returns every region that is not disabled.
func (s *Service) Enabled(ctx context.Context) ([]Region, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if !r.Disabled {
			out = append(out, r)
		}
	}
	return out, nil
}

// BottomUp lists region names deepest level first.
func (s *Service) BottomUp(ctx context.Context) ([]string, error) {
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return tree.BottomUp(), nil
}

// Exists reports whether a region with that name is stored.
func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	if _, err := s.store.Get(ctx, name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns a page of enabled regions.
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	params.Page = params.Page.Normalize()
	data, total, err := s.store.List(ctx, params)
	if err != nil {
		return ListResult{}, err
	}
	if data == nil {
		data = []Region{}
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
