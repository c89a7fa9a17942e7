package interval

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage layout for calendar dates.
const DateLayout = "2006-01-02"

// Interval is a closed range [Start, End].
type Interval struct {
	Start time.Time
	End   time.Time
}

// New builds an interval without validating it.
func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Overlaps reports whether a and b share at least one instant. Touching endpoints overlap.
func Overlaps(a, b Interval) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// Contains reports whether inner lies within outer, bounds inclusive.
func Contains(outer, inner Interval) bool {
	return !inner.Start.Before(outer.Start) && !inner.End.After(outer.End)
}

// IsValid reports whether start does not come after end.
func IsValid(i Interval) bool {
	return !i.Start.After(i.End)
}

// Overlaps is the method form of the package level Overlaps.
func (i Interval) Overlaps(other Interval) bool { return Overlaps(i, other) }

// Contains is the method form of the package level Contains.
func (i Interval) Contains(inner Interval) bool { return Contains(i, inner) }

// IsValid is the method form of the package level IsValid.
func (i Interval) IsValid() bool { return IsValid(i) }

// Days returns the number of calendar days covered by a date interval, counting both ends.
func (i Interval) Days() int {
	if !i.IsValid() {
		return 0
	}
	start := truncateDay(i.Start)
	end := truncateDay(i.End)
	return int(end.Sub(start).Hours()/24) + 1
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s]", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

// ParseDate parses a calendar date in DateLayout as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

// ParseDates parses both bounds of a date interval.
func ParseDates(start, end string) (Interval, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Interval{}, err
	}
	return New(s, e), nil
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
