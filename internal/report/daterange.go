package report

import (
	"context"
	"time"
)

// DefaultWindowMonths is the span of the initial date range.
const DefaultWindowMonths = 12

// LatestReadingSource returns the newest reading timestamp, or nil without readings.
type LatestReadingSource interface {
	LatestReadingDT(ctx context.Context) (*time.Time, error)
}

// Initializer fills the date filters on first load.
type Initializer struct {
	source LatestReadingSource
	now    func() time.Time
}

// NewInitializer builds an initializer over the latest reading source.
func NewInitializer(source LatestReadingSource) *Initializer {
	return &Initializer{source: source, now: time.Now}
}

// Range returns the default window ending at the latest reading date, or today
// when there are no readings.
func (i *Initializer) Range(ctx context.Context) (from, to time.Time, err error) {
	anchor := i.now()
	latest, err := i.source.LatestReadingDT(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if latest != nil {
		anchor = *latest
	}
	to = dateOf(anchor)
	return AddMonths(to, -DefaultWindowMonths), to, nil
}

// Apply sets from_date and to_date when neither is set. It reports whether
// the filters changed. Filters with any date set are left alone.
func (i *Initializer) Apply(ctx context.Context, f *Filters) (bool, error) {
	if f.HasDates() {
		return false, nil
	}
	from, to, err := i.Range(ctx)
	if err != nil {
		return false, err
	}
	f.SetDates(from, to)
	return true, nil
}
