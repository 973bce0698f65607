package monitors

import (
	"errors"
	"time"

	"github.com/odyssey-erp/aqp/internal/platform/db"
)

var (
	ErrNotFound       = errors.New("monitors: air monitor not found")
	ErrDuplicate      = errors.New("monitors: air monitor already exists")
	ErrRegionNotFound = errors.New("monitors: monitor region not found")
)

// Monitor is an air quality sensor installation.
type Monitor struct {
	Name           string     `json:"name"`
	MonitorName    string     `json:"monitor_name"`
	Region         string     `json:"monitor_region,omitempty"`
	Inactive       bool       `json:"inactive"`
	Disabled       bool       `json:"disabled"`
	Country        string     `json:"country,omitempty"`
	City           string     `json:"city,omitempty"`
	SerialNo       string     `json:"serial_no,omitempty"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	OnlineSince    *time.Time `json:"online_since,omitempty"`
	FirstReadingDT *time.Time `json:"first_reading_dt,omitempty"`
	LastReadingDT  *time.Time `json:"last_reading_dt,omitempty"`
	HasReading     bool       `json:"has_reading,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CreateInput captures a new monitor registration.
type CreateInput struct {
	Name        string     `json:"name" validate:"required,max=140"`
	MonitorName string     `json:"monitor_name" validate:"required,max=140"`
	Region      string     `json:"monitor_region" validate:"omitempty,max=140"`
	Country     string     `json:"country" validate:"omitempty,max=140"`
	City        string     `json:"city" validate:"omitempty,max=140"`
	SerialNo    string     `json:"serial_no" validate:"omitempty,max=140"`
	Latitude    *float64   `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64   `json:"longitude" validate:"omitempty,longitude"`
	OnlineSince *time.Time `json:"online_since"`
}

// ListParams filters and pages monitor listings. Disabled monitors are never listed.
type ListParams struct {
	Region             string
	FirstReadingBefore *time.Time
	SortBy             string
	SortOrder          string
	Page               db.Page
}

// ListResult is a page of monitors.
type ListResult struct {
	Data       []Monitor     `json:"data"`
	Pagination db.Pagination `json:"pagination"`
}

// SortFields lists the columns accepted by sort_by.
var SortFields = []string{
	"name", "monitor_name", "inactive", "country", "city", "latitude", "longitude",
	"online_since", "first_reading_dt", "last_reading_dt", "created_at", "updated_at",
}
