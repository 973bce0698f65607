package report

import (
	"fmt"
	"strings"
	"time"
)

var monthIncrement = map[string]int{
	RangeMonthly:   1,
	RangeQuarterly: 3,
	RangeYearly:    12,
}

// PeriodEndDates splits [from, to] into consecutive periods of the range and
// returns the end date of each. The last period is clamped to to.
func PeriodEndDates(from, to time.Time, periodRange string) []time.Time {
	from, to = dateOf(from), dateOf(to)
	switch periodRange {
	case RangeMonthly, RangeQuarterly, RangeYearly:
		from = time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	case RangeWeekly:
		from = from.AddDate(0, 0, -mondayOffset(from))
	}

	var ends []time.Time
	for {
		var end time.Time
		switch periodRange {
		case RangeDaily:
			end = from
		case RangeWeekly:
			end = from.AddDate(0, 0, 6)
		default:
			increment, ok := monthIncrement[periodRange]
			if !ok {
				increment = 1
			}
			end = AddMonths(from, increment).AddDate(0, 0, -1)
		}
		if end.After(to) {
			end = to
		}
		ends = append(ends, end)
		from = end.AddDate(0, 0, 1)
		if !end.Before(to) {
			return ends
		}
	}
}

// PeriodLabel names the period of the range that contains date.
func PeriodLabel(date time.Time, periodRange string) string {
	switch periodRange {
	case RangeDaily:
		return date.Format("02-01-2006")
	case RangeWeekly:
		return fmt.Sprintf("W%d %d", mondayWeek(date), date.Year())
	case RangeMonthly:
		return date.Format("Jan 2006")
	case RangeQuarterly:
		return fmt.Sprintf("Q%d %d", (int(date.Month())-1)/3+1, date.Year())
	default:
		return fmt.Sprintf("%d", date.Year())
	}
}

// Scrub turns a label into a field name.
func Scrub(label string) string {
	return strings.ToLower(strings.NewReplacer(" ", "_", "-", "_").Replace(label))
}

// AddMonths moves date by n calendar months, clamping the day to the end of
// the target month.
func AddMonths(date time.Time, n int) time.Time {
	y, m, d := date.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, date.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

func daysIn(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, month.Location()).Day()
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// mondayOffset is the number of days since the most recent Monday.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// mondayWeek numbers weeks from the first Monday of the year; earlier days are week 0.
func mondayWeek(t time.Time) int {
	return (t.YearDay() - 1 + 7 - mondayOffset(t)) / 7
}
