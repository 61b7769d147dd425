package services

import (
	"time"
)

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow builds a window, rejecting empty or inverted ranges.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	if !end.After(start) {
		return TimeWindow{}, ValidationError("end_time", "end time must be after start time")
	}
	return TimeWindow{Start: start.UTC(), End: end.UTC()}, nil
}

// WindowFrom builds the window occupied by an appointment of the given length.
func WindowFrom(start time.Time, d time.Duration) TimeWindow {
	start = start.UTC()
	return TimeWindow{Start: start, End: start.Add(d)}
}

// Overlaps reports whether two half-open windows share any instant.
// Windows that merely touch do not overlap.
func Overlaps(a, b TimeWindow) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Contains reports whether t lies in the closed range [Start, End].
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
