package aggregates

import "time"

// Truncate floors dt to the start of its hour or day in dt's location.
func Truncate(dt time.Time, ts Timespan) (time.Time, error) {
	if err := ts.Validate(); err != nil {
		return time.Time{}, err
	}
	y, m, d := dt.Date()
	if ts == Hourly {
		return time.Date(y, m, d, dt.Hour(), 0, 0, 0, dt.Location()), nil
	}
	return time.Date(y, m, d, 0, 0, 0, 0, dt.Location()), nil
}

// TimeRange returns the inclusive bounds covered by the bucket at dt. An hourly
// bucket labelled 10:00 holds (09:00, 10:00]; a daily bucket holds the whole day.
func TimeRange(dt time.Time, ts Timespan) (from, to time.Time, err error) {
	dt, err = Truncate(dt, ts)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if ts == Hourly {
		return dt.Add(-time.Hour + time.Microsecond), dt, nil
	}
	return dt, endOfDay(dt), nil
}

// DateTimesForRange lists every bucket timestamp from from to to, both truncated, inclusive.
func DateTimesForRange(from, to time.Time, ts Timespan) ([]time.Time, error) {
	start, err := Truncate(from, ts)
	if err != nil {
		return nil, err
	}
	end, _ := Truncate(to, ts)

	var out []time.Time
	for current := start; !current.After(end); current = next(current, ts) {
		out = append(out, current)
	}
	return out, nil
}

func next(dt time.Time, ts Timespan) time.Time {
	if ts == Hourly {
		return dt.Add(time.Hour)
	}
	return dt.AddDate(0, 0, 1)
}

func endOfDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Microsecond), day.Location())
}

// DayBounds returns the first and last instant of the calendar days from and to.
func DayBounds(from, to time.Time) (time.Time, time.Time) {
	y, m, d := from.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, from.Location()), endOfDay(to)
}
