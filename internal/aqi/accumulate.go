package aqi

import (
	"sort"
	"time"
)

// Accumulator collects PM2.5 sum, count, max and min across readings or
// previously accumulated aggregates.
type Accumulator struct {
	Sum   float64 `json:"pm_2_5_sum"`
	Count int     `json:"pm_2_5_count"`
	Max   float64 `json:"pm_2_5_max"`
	Min   float64 `json:"pm_2_5_min"`
}

// AddReading folds one raw PM2.5 value in. Zero values carry no measurement and are skipped.
func (a *Accumulator) AddReading(pm25 float64) {
	if pm25 == 0 {
		return
	}
	a.merge(pm25, 1, pm25, pm25)
}

// AddAccumulated folds a stored aggregate in. Aggregates whose mean is zero are skipped.
func (a *Accumulator) AddAccumulated(mean float64, other Accumulator) {
	if mean == 0 {
		return
	}
	a.merge(other.Sum, other.Count, other.Max, other.Min)
}

func (a *Accumulator) merge(sum float64, count int, maxValue, minValue float64) {
	if maxValue > a.Max {
		a.Max = maxValue
	}
	if a.Min == 0 || minValue < a.Min {
		a.Min = minValue
	}
	a.Sum += sum
	a.Count += count
}

// HasData reports whether any measurement was accumulated.
func (a Accumulator) HasData() bool {
	return a.Count > 0
}

// Mean returns the truncated PM2.5 mean, or zero when nothing was accumulated.
func (a Accumulator) Mean() float64 {
	if a.Count == 0 {
		return 0
	}
	return truncate(a.Sum/float64(a.Count), tables[PM25].precision)
}

// Sample is a timestamped PM2.5 value.
type Sample struct {
	At   time.Time
	PM25 float64
}

// Daily is the accumulated PM2.5 summary of one calendar day.
type Daily struct {
	Date string `json:"date"`
	Accumulator
	PM25     float64 `json:"pm_2_5"`
	AQI      int     `json:"aqi_us"`
	Category string  `json:"aqi_category"`
}

// DailyAggregates groups samples by calendar date in their own location. Samples
// without PM2.5 are ignored, so days with no measurement are absent.
func DailyAggregates(samples []Sample) map[string]Daily {
	byDate := make(map[string]*Accumulator)
	for _, s := range samples {
		if s.PM25 == 0 {
			continue
		}
		key := s.At.Format(time.DateOnly)
		acc, ok := byDate[key]
		if !ok {
			acc = &Accumulator{}
			byDate[key] = acc
		}
		acc.AddReading(s.PM25)
	}

	out := make(map[string]Daily, len(byDate))
	for date, acc := range byDate {
		mean := acc.Mean()
		index, category := PM25Index(mean)
		out[date] = Daily{Date: date, Accumulator: *acc, PM25: mean, AQI: index, Category: category}
	}
	return out
}

// SortedDates returns the keys of a DailyAggregates result in ascending order.
func SortedDates(daily map[string]Daily) []string {
	dates := make([]string, 0, len(daily))
	for date := range daily {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
