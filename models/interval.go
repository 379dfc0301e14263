package models

import (
	"fmt"
	"time"
)

// TimeInterval is a half-open interval [Start, End) in the configured
// timezone. Immutable once constructed; Start < End always holds.
type TimeInterval struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

// NewTimeInterval validates and constructs an interval.
func NewTimeInterval(start, end time.Time) (TimeInterval, error) {
	if !start.Before(end) {
		return TimeInterval{}, fmt.Errorf("invalid interval: start %s not before end %s", start, end)
	}
	return TimeInterval{Start: start, End: end}, nil
}

// MustInterval constructs an interval and panics on a malformed one.
// A malformed interval this deep in the engine is a programming error;
// the panic aborts the turn via the recovery middleware.
func MustInterval(start, end time.Time) TimeInterval {
	iv, err := NewTimeInterval(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

// Duration returns the interval length.
func (iv TimeInterval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether the two half-open intervals share any instant.
func (iv TimeInterval) Overlaps(other TimeInterval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Touches reports whether the intervals are adjacent without overlapping.
func (iv TimeInterval) Touches(other TimeInterval) bool {
	return iv.End.Equal(other.Start) || other.End.Equal(iv.Start)
}

// Contains reports whether other lies fully within iv.
func (iv TimeInterval) Contains(other TimeInterval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Gap returns the idle time between two disjoint intervals, zero when they
// overlap or touch.
func (iv TimeInterval) Gap(other TimeInterval) time.Duration {
	if iv.Overlaps(other) || iv.Touches(other) {
		return 0
	}
	if iv.End.Before(other.Start) {
		return other.Start.Sub(iv.End)
	}
	return iv.Start.Sub(other.End)
}

// Clip returns the part of iv inside bounds, and false when nothing remains.
func (iv TimeInterval) Clip(bounds TimeInterval) (TimeInterval, bool) {
	start, end := iv.Start, iv.End
	if start.Before(bounds.Start) {
		start = bounds.Start
	}
	if end.After(bounds.End) {
		end = bounds.End
	}
	if !start.Before(end) {
		return TimeInterval{}, false
	}
	return TimeInterval{Start: start, End: end}, true
}

// Midpoint returns the instant halfway through the interval.
func (iv TimeInterval) Midpoint() time.Time {
	return iv.Start.Add(iv.Duration() / 2)
}

func (iv TimeInterval) String() string {
	return fmt.Sprintf("%s - %s", iv.Start.Format("Mon Jan 2 15:04"), iv.End.Format("15:04"))
}

// TimeRange is a time-of-day window in minutes from midnight, e.g.
// "afternoon" as {720, 1080}. It is date-independent.
type TimeRange struct {
	StartMin int `json:"startMin" bson:"startMin"`
	EndMin   int `json:"endMin" bson:"endMin"`
}

// Valid reports whether the range is well formed within one day.
func (tr TimeRange) Valid() bool {
	return tr.StartMin >= 0 && tr.EndMin <= 24*60 && tr.StartMin < tr.EndMin
}

// OnDate projects the time-of-day range onto a calendar day.
func (tr TimeRange) OnDate(day time.Time) TimeInterval {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return MustInterval(
		midnight.Add(time.Duration(tr.StartMin)*time.Minute),
		midnight.Add(time.Duration(tr.EndMin)*time.Minute),
	)
}

// Intersect narrows the range by another, false when they are disjoint.
func (tr TimeRange) Intersect(other TimeRange) (TimeRange, bool) {
	out := TimeRange{StartMin: max(tr.StartMin, other.StartMin), EndMin: min(tr.EndMin, other.EndMin)}
	if out.StartMin >= out.EndMin {
		return TimeRange{}, false
	}
	return out, true
}

// MidMin returns the midpoint of the range in minutes from midnight.
func (tr TimeRange) MidMin() int {
	return (tr.StartMin + tr.EndMin) / 2
}
