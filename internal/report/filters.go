// Package report builds the air quality analytics report: filters, period
// columns, aggregated rows, the chart projection of checked rows and the
// per-view state shared between requests.
package report

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Tree types.
const (
	TreeMonitorRegion = "Monitor Region"
	TreeAirMonitor    = "Air Monitor"
)

// Value fields.
const (
	ValuePM25 = "PM2.5"
	ValueAQI  = "AQI (US)"
)

// Period ranges.
const (
	RangeDaily     = "Daily"
	RangeWeekly    = "Weekly"
	RangeMonthly   = "Monthly"
	RangeQuarterly = "Quarterly"
	RangeYearly    = "Yearly"
)

const dateLayout = time.DateOnly

var ErrInvalidRange = errors.New("report: from date must not be after to date")

// Filters are the user adjustable parameters of the report.
type Filters struct {
	TreeType      string `json:"tree_type" validate:"required,oneof='Monitor Region' 'Air Monitor'"`
	ValueField    string `json:"value_field" validate:"required,oneof='PM2.5' 'AQI (US)'"`
	FromDate      string `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToDate        string `json:"to_date" validate:"required,datetime=2006-01-02"`
	Range         string `json:"range" validate:"required,oneof=Daily Weekly Monthly Quarterly Yearly"`
	MonitorRegion string `json:"monitor_region,omitempty" validate:"omitempty,max=140"`
}

// DefaultFilters returns the filter defaults. Dates stay empty until the
// date range initializer fills them.
func DefaultFilters() Filters {
	return Filters{TreeType: TreeMonitorRegion, ValueField: ValuePM25, Range: RangeWeekly}
}

var validate = validator.New()

// Validate checks the filters and the order of the dates.
func (f Filters) Validate() error {
	if err := validate.Struct(f); err != nil {
		return err
	}
	from, to := f.Dates()
	if from.After(to) {
		return ErrInvalidRange
	}
	return nil
}

// Dates returns the parsed from and to dates. Unparseable dates are zero.
func (f Filters) Dates() (from, to time.Time) {
	from, _ = time.Parse(dateLayout, f.FromDate)
	to, _ = time.Parse(dateLayout, f.ToDate)
	return from, to
}

// HasDates reports whether either date is set.
func (f Filters) HasDates() bool {
	return f.FromDate != "" || f.ToDate != ""
}

// SetDates stores from and to in the date layout.
func (f *Filters) SetDates(from, to time.Time) {
	f.FromDate = from.Format(dateLayout)
	f.ToDate = to.Format(dateLayout)
}

// ParseFilters overlays query parameters on the defaults.
func ParseFilters(q url.Values) Filters {
	f := DefaultFilters()
	set := func(key string, target *string) {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			*target = v
		}
	}
	set("tree_type", &f.TreeType)
	set("value_field", &f.ValueField)
	set("from_date", &f.FromDate)
	set("to_date", &f.ToDate)
	set("range", &f.Range)
	set("monitor_region", &f.MonitorRegion)
	return f
}

// Encode returns the filters as query parameters.
func (f Filters) Encode() url.Values {
	q := url.Values{}
	q.Set("tree_type", f.TreeType)
	q.Set("value_field", f.ValueField)
	q.Set("range", f.Range)
	if f.FromDate != "" {
		q.Set("from_date", f.FromDate)
	}
	if f.ToDate != "" {
		q.Set("to_date", f.ToDate)
	}
	if f.MonitorRegion != "" {
		q.Set("monitor_region", f.MonitorRegion)
	}
	return q
}

// Title labels exports of the filtered report.
func (f Filters) Title() string {
	title := fmt.Sprintf("Air Quality Analytics: %s by %s (%s to %s)", f.ValueField, f.TreeType, f.FromDate, f.ToDate)
	if f.MonitorRegion != "" {
		title += " in " + f.MonitorRegion
	}
	return title
}

// FilterDefinition describes one filter control.
type FilterDefinition struct {
	Fieldname string   `json:"fieldname"`
	Label     string   `json:"label"`
	Fieldtype string   `json:"fieldtype"`
	Options   []string `json:"options,omitempty"`
	Default   string   `json:"default,omitempty"`
	Required  bool     `json:"reqd"`
}

// Definitions returns the filter surface of the report.
func Definitions() []FilterDefinition {
	defaults := DefaultFilters()
	return []FilterDefinition{
		{Fieldname: "tree_type", Label: "Tree Type", Fieldtype: "Select", Options: []string{TreeMonitorRegion, TreeAirMonitor}, Default: defaults.TreeType, Required: true},
		{Fieldname: "value_field", Label: "Value Type", Fieldtype: "Select", Options: []string{ValuePM25, ValueAQI}, Default: defaults.ValueField, Required: true},
		{Fieldname: "from_date", Label: "From Date", Fieldtype: "Date", Required: true},
		{Fieldname: "to_date", Label: "To Date", Fieldtype: "Date", Required: true},
		{Fieldname: "range", Label: "Range", Fieldtype: "Select", Options: []string{RangeDaily, RangeWeekly, RangeMonthly, RangeQuarterly, RangeYearly}, Default: defaults.Range, Required: true},
		{Fieldname: "monitor_region", Label: "Monitor Region", Fieldtype: "Link", Options: []string{TreeMonitorRegion}},
	}
}
