package domain

import "time"

// Period is a creation-time range. Start is always inclusive; End is
// inclusive only when IncludeEnd is set.
type Period struct {
	Start      time.Time
	End        time.Time
	IncludeEnd bool
}

// NewClosedPeriod returns [start, end] with both bounds normalized to UTC
func NewClosedPeriod(start, end time.Time) (Period, error) {
	start, end = start.UTC(), end.UTC()
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end, IncludeEnd: true}, nil
}

// MonthPeriod returns [first day of month 00:00 UTC, first day of next month 00:00 UTC)
func MonthPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, ErrInvalidMonth
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// Contains reports whether t falls inside the period
func (p Period) Contains(t time.Time) bool {
	if t.Before(p.Start) {
		return false
	}
	if p.IncludeEnd {
		return !t.After(p.End)
	}
	return t.Before(p.End)
}
