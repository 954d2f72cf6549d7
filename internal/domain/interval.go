package domain

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval rejects empty and inverted ranges.
func NewInterval(start, end time.Time) (Interval, error) {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return Interval{}, ErrInvalidInterval()
	}
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps is true iff s1 < e2 AND s2 < e1. Touching endpoints do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }
