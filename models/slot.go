package models

import "fmt"

// Rationale tags attached to candidate slots for explainability.
const (
	TagNearMidpoint = "near-preferred-midpoint"
	TagAmpleBuffer  = "ample-buffer"
	TagEarliest     = "earliest-available"
	TagSweetSpot    = "time-of-day-sweet-spot"
	TagAdjacentDay  = "adjacent-day"
	TagRelaxed      = "relaxed-time-range"
)

// CandidateSlot is a scored, proposed placement for the requested meeting.
// Ephemeral: produced and consumed within a single ranking call.
type CandidateSlot struct {
	Interval TimeInterval `json:"interval"`
	Score    float64      `json:"score"`
	// RationaleTags names the heuristics that contributed to the score.
	RationaleTags []string `json:"rationaleTags,omitempty"`
	// Actual idle minutes available on each side of the placement.
	BufferBeforeMin int `json:"bufferBeforeMin"`
	BufferAfterMin  int `json:"bufferAfterMin"`
}

// HasTag reports whether the slot carries the given rationale tag.
func (s CandidateSlot) HasTag(tag string) bool {
	for _, t := range s.RationaleTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Label renders the slot the way it is spoken to the user.
func (s CandidateSlot) Label() string {
	return fmt.Sprintf("%s at %s until %s",
		s.Interval.Start.Format("Monday, January 2"),
		s.Interval.Start.Format("3:04 PM"),
		s.Interval.End.Format("3:04 PM"))
}
