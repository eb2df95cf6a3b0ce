package pricing

import "time"

// Sampling thresholds for historical series. Wide ranges trade accuracy for
// call volume against the rate-limited providers.
const (
	dailyCutoff  = 60 * 24 * time.Hour  // ~2 months
	weeklyCutoff = 180 * 24 * time.Hour // ~6 months
)

// SampleDates returns the dates a historical series should be evaluated at:
// daily for ranges under ~2 months, weekly up to ~6 months, monthly beyond.
// Both endpoints are always included.
func SampleDates(from, to time.Time) []time.Time {
	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) {
		return nil
	}

	span := to.Sub(from)
	step := func(t time.Time) time.Time {
		switch {
		case span < dailyCutoff:
			return t.AddDate(0, 0, 1)
		case span < weeklyCutoff:
			return t.AddDate(0, 0, 7)
		default:
			return t.AddDate(0, 1, 0)
		}
	}

	var dates []time.Time
	for d := from; !d.After(to); d = step(d) {
		dates = append(dates, d)
	}
	if last := dates[len(dates)-1]; !last.Equal(to) {
		dates = append(dates, to)
	}
	return dates
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
