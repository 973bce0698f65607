package readings

import (
	"errors"
	"time"

	"github.com/odyssey-erp/aqp/internal/aggregates"
	"github.com/odyssey-erp/aqp/internal/monitors"
	"github.com/odyssey-erp/aqp/internal/regions"
)

// DefaultWindowMinutes is the lookback used by LatestReadings when none is given.
const DefaultWindowMinutes = 60

var (
	ErrNotFound         = errors.New("readings: monitor reading not found")
	ErrDuplicateReading = errors.New("readings: monitor reading already exists for air monitor at this time")
	ErrInvalidWindow    = errors.New("readings: window_minutes must be between 1 and 1440")
	ErrInvalidRange     = errors.New("readings: from and to datetimes are required")
	ErrMonitorNotFound  = errors.New("readings: air monitor not found")
)

// Reading is one measurement reported by an air monitor.
type Reading struct {
	ID               int64     `json:"name"`
	Monitor          string    `json:"air_monitor"`
	ReadingDT        time.Time `json:"reading_dt"`
	PM25             float64   `json:"pm_2_5"`
	AQI              int       `json:"aqi_us"`
	Category         string    `json:"aqi_category"`
	Temperature      *float64  `json:"temperature,omitempty"`
	RelativeHumidity *float64  `json:"relative_humidity,omitempty"`
	CO2              *float64  `json:"co2,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateInput captures a reading submitted by a monitor.
type CreateInput struct {
	Monitor          string    `json:"air_monitor" validate:"required,max=140"`
	ReadingDT        time.Time `json:"reading_dt" validate:"required"`
	PM25             float64   `json:"pm_2_5" validate:"gte=0"`
	Temperature      *float64  `json:"temperature"`
	RelativeHumidity *float64  `json:"relative_humidity" validate:"omitempty,gte=0,lte=100"`
	CO2              *float64  `json:"co2" validate:"omitempty,gte=0"`
}

// Query selects readings of enabled monitors inside [From, To].
type Query struct {
	From       time.Time
	To         time.Time
	Monitors   []string
	AnyMonitor bool
	Descending bool
}

// Latest is the snapshot served to the live map.
type Latest struct {
	Aggregates      []aggregates.Aggregate      `json:"aggregates"`
	Readings        []Reading                   `json:"readings"`
	Regions         []regions.Region            `json:"regions"`
	Monitors        map[string]monitors.Monitor `json:"monitors"`
	LatestReadingDT *time.Time                  `json:"latest_reading_dt"`
	FromDT          *time.Time                  `json:"from_dt"`
	ToDT            *time.Time                  `json:"to_dt"`
}
