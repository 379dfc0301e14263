package scheduling

import (
	"sort"
	"strings"

	"meetsync/models"
)

// BufferPolicy is the minimum idle gap required around a meeting, by meeting
// type. In-person meetings need more slack than calls.
type BufferPolicy struct {
	ByType     map[string]int // meeting type -> minutes
	DefaultMin int
}

// BufferFor resolves the buffer for a meeting type, falling back from exact
// match to keyword heuristics to the default.
func (p BufferPolicy) BufferFor(meetingType string) int {
	mt := strings.ToLower(strings.TrimSpace(meetingType))
	if minutes, ok := p.ByType[mt]; ok {
		return minutes
	}
	keys := make([]string, 0, len(p.ByType))
	for key := range p.ByType {
		keys = append(keys, key)
	}
	// Longest key first: the more specific entry wins when several match,
	// independent of map order. Ties fall back to lexicographic.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		if key != "" && strings.Contains(mt, key) {
			return p.ByType[key]
		}
	}
	return p.DefaultMin
}

// ScoreWeights control the weighted sum of the ranking heuristics. They
// should sum to 1 so scores stay in [0,1].
type ScoreWeights struct {
	Proximity float64 // closeness to the midpoint of the requested range
	Buffer    float64 // surplus idle time around the meeting
	Urgency   float64 // earliest-slot bonus under high urgency
	TimeOfDay float64 // preference curve over the working day
}

// DefaultScoreWeights are the validated defaults; override via configuration.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Proximity: 0.35, Buffer: 0.25, Urgency: 0.20, TimeOfDay: 0.20}
}

// RankerConfig bundles the tunables the ranker needs.
type RankerConfig struct {
	WorkDay models.TimeRange // working-hours window; slots never leave it
	Buffers BufferPolicy
	Weights ScoreWeights
	TopK    int // candidates returned per ranking call
}
