package scheduling

import (
	"sort"
	"time"

	"meetsync/models"
)

// AvailabilityView is a normalized view of one calendar day: an ordered,
// non-overlapping, non-touching sequence of busy intervals. Rebuilt per
// query, never mutated in place.
type AvailabilityView struct {
	Date  time.Time             // midnight of the covered day
	Range models.TimeInterval   // the covered range
	Busy  []models.TimeInterval // sorted ascending by start, coalesced
}

// BuildAvailabilityView filters raw events to the range, clips partial
// overlaps to the range boundary, sorts and merges. The output is identical
// for any input ordering of the same event set.
func BuildAvailabilityView(raw []models.TimeInterval, rangeStart, rangeEnd time.Time) AvailabilityView {
	bounds := models.MustInterval(rangeStart, rangeEnd)

	clipped := make([]models.TimeInterval, 0, len(raw))
	for _, ev := range raw {
		if !ev.Start.Before(ev.End) {
			continue // tolerate malformed provider events
		}
		if iv, ok := ev.Clip(bounds); ok {
			clipped = append(clipped, iv)
		}
	}

	sort.Slice(clipped, func(i, j int) bool {
		if clipped[i].Start.Equal(clipped[j].Start) {
			return clipped[i].End.Before(clipped[j].End)
		}
		return clipped[i].Start.Before(clipped[j].Start)
	})

	var merged []models.TimeInterval
	for _, iv := range clipped {
		n := len(merged)
		if n > 0 && !merged[n-1].End.Before(iv.Start) {
			// Overlapping or touching the previous interval: coalesce.
			if iv.End.After(merged[n-1].End) {
				merged[n-1].End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}

	day := time.Date(rangeStart.Year(), rangeStart.Month(), rangeStart.Day(), 0, 0, 0, 0, rangeStart.Location())
	return AvailabilityView{Date: day, Range: bounds, Busy: merged}
}

// FreeWithin returns the complement of the busy sequence inside window.
func (v AvailabilityView) FreeWithin(window models.TimeInterval) []models.TimeInterval {
	var free []models.TimeInterval
	cursor := window.Start
	for _, busy := range v.Busy {
		b, ok := busy.Clip(window)
		if !ok {
			continue
		}
		if cursor.Before(b.Start) {
			free = append(free, models.TimeInterval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(window.End) {
		free = append(free, models.TimeInterval{Start: cursor, End: window.End})
	}
	return free
}
