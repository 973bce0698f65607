package regions

import (
	"errors"
	"time"

	"github.com/odyssey-erp/aqp/internal/platform/db"
)

// RootName is the region created on install when no root exists.
const RootName = "Global"

var (
	ErrNotFound       = errors.New("regions: region not found")
	ErrRootNotFound   = errors.New("regions: root monitor region not found")
	ErrMultipleRoots  = errors.New("regions: multiple root monitor regions found")
	ErrInvalidZone    = errors.New("regions: unknown timezone")
	ErrParentNotFound = errors.New("regions: parent region not found")
	ErrDuplicate      = errors.New("regions: region already exists")
)

// Region is a node of the monitor region hierarchy.
type Region struct {
	Name       string    `json:"name"`
	RegionName string    `json:"monitor_region_name"`
	Parent     string    `json:"parent_monitor_region,omitempty"`
	Type       string    `json:"type,omitempty"`
	Timezone   string    `json:"timezone,omitempty"`
	Disabled   bool      `json:"disabled"`
	HasReading bool      `json:"has_reading,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateInput captures a new region.
type CreateInput struct {
	Name       string `json:"name" validate:"omitempty,max=140"`
	RegionName string `json:"monitor_region_name" validate:"required,max=140"`
	Parent     string `json:"parent_monitor_region" validate:"omitempty,max=140"`
	Type       string `json:"type" validate:"omitempty,oneof=Country Province City District Area"`
	Timezone   string `json:"timezone" validate:"omitempty,max=64"`
}

// ListParams filters and pages region listings.
type ListParams struct {
	Parent    string
	SortBy    string
	SortOrder string
	Page      db.Page
}

// ListResult is a page of regions.
type ListResult struct {
	Data       []Region      `json:"data"`
	Pagination db.Pagination `json:"pagination"`
}

// SortFields lists the columns accepted by sort_by.
var SortFields = []string{
	"name", "monitor_region_name", "parent_monitor_region", "type", "timezone", "created_at", "updated_at",
}
