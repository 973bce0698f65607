package aggregates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/aqp/internal/aqi"
)

// Timespan is the width of an aggregation bucket.
type Timespan string

const (
	Hourly Timespan = "Hourly"
	Daily  Timespan = "Daily"
)

var (
	ErrInvalidTimespan = errors.New("aggregates: timespan must be either Hourly or Daily")
	ErrInvalidRange    = errors.New("aggregates: from and to datetimes are required")
	ErrDuplicate       = errors.New("aggregates: reading aggregate already exists")
)

// Validate reports whether t is a supported timespan.
func (t Timespan) Validate() error {
	switch t {
	case Hourly, Daily:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTimespan, string(t))
	}
}

// Aggregate is the accumulated PM2.5 of one region over one timespan bucket.
type Aggregate struct {
	ID        int64     `json:"name"`
	Region    string    `json:"monitor_region"`
	Timespan  Timespan  `json:"timespan"`
	ReadingDT time.Time `json:"reading_dt"`
	PM25      float64   `json:"pm_2_5"`
	aqi.Accumulator
	AQI       int       `json:"aqi_us"`
	Category  string    `json:"aqi_category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// apply stores the accumulated values and derived index on a.
func (a *Aggregate) apply(acc aqi.Accumulator) {
	a.Accumulator = acc
	a.PM25 = acc.Mean()
	a.AQI, a.Category = aqi.PM25Index(a.PM25)
}

// ListQuery selects aggregates of a timespan inside [From, To].
type ListQuery struct {
	From       time.Time
	To         time.Time
	Timespan   Timespan
	Regions    []string
	AllRegions bool
	Descending bool
}

// Progress reports range aggregation advancement.
type Progress struct {
	Progress int      `json:"progress"`
	Total    int      `json:"total"`
	Message  string   `json:"message"`
	Timespan Timespan `json:"timespan"`
}

// Finished reports whether this is the final progress update of a range.
func (p Progress) Finished() bool {
	return p.Total > 0 && p.Progress == p.Total
}

// ProgressFunc receives one update per processed timestamp.
type ProgressFunc func(ctx context.Context, p Progress) error

// RangeOptions tunes AggregateForRange.
type RangeOptions struct {
	UpdateExisting bool
	Progress       ProgressFunc
}

// Result counts aggregates written by a pass.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Written is the total number of rows created or recomputed.
func (r Result) Written() int {
	return r.Created + r.Updated
}

func (r *Result) add(other Result) {
	r.Created += other.Created
	r.Updated += other.Updated
}
