package scheduling

import (
	"testing"
	"time"

	"meetsync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRanker() *SlotRanker {
	return NewSlotRanker(RankerConfig{
		WorkDay: models.TimeRange{StartMin: 9 * 60, EndMin: 18 * 60},
		Buffers: BufferPolicy{
			ByType:     map[string]int{"call": 10, "in-person": 30},
			DefaultMin: 15,
		},
		Weights: DefaultScoreWeights(),
		TopK:    3,
	}, zap.NewNop())
}

func day() time.Time {
	return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
}

// A 60-minute call on an empty afternoon: three options inside the window,
// the one centered on the window midpoint on top.
func TestRankEmptyAfternoon(t *testing.T) {
	r := testRanker()
	view := BuildAvailabilityView(nil, at(9, 0), at(18, 0))
	q := models.SlotQuery{
		Date:            day(),
		DurationMinutes: 60,
		Window:          &models.TimeRange{StartMin: 12 * 60, EndMin: 18 * 60},
		Urgency:         models.UrgencyNormal,
		Flexibility:     models.FlexibilityFlexible,
		MeetingType:     "call",
	}

	cands := r.Rank(q, view)
	require.Len(t, cands, 3)

	window := iv(12, 0, 18, 0)
	for _, c := range cands {
		assert.True(t, window.Contains(c.Interval), "candidate %s escapes the window", c.Interval)
	}

	// Midpoint of 12:00-18:00 is 15:00; the 14:30-15:30 placement is
	// centered exactly on it.
	assert.Equal(t, at(14, 30), cands[0].Interval.Start)
	assert.True(t, cands[0].HasTag(models.TagNearMidpoint))

	for i := 1; i < len(cands); i++ {
		assert.GreaterOrEqual(t, cands[i-1].Score, cands[i].Score, "ranking must be sorted by score")
	}
}

// In-person meetings need 30 minutes clear on both sides; a gap that only
// just fits yields a single tight candidate while a roomier gap wins.
func TestRankRespectsBuffers(t *testing.T) {
	r := testRanker()
	view := BuildAvailabilityView([]models.TimeInterval{
		iv(9, 0, 10, 30),
		iv(12, 30, 13, 0),
		iv(16, 0, 18, 0),
	}, at(9, 0), at(18, 0))
	q := models.SlotQuery{
		Date:            day(),
		DurationMinutes: 60,
		Urgency:         models.UrgencyNormal,
		Flexibility:     models.FlexibilityFlexible,
		MeetingType:     "in-person",
	}

	cands := r.Rank(q, view)
	require.NotEmpty(t, cands)

	for _, c := range cands {
		assert.GreaterOrEqual(t, c.BufferBeforeMin, 30, "candidate %s starts too close to a busy block", c.Interval)
		assert.GreaterOrEqual(t, c.BufferAfterMin, 30, "candidate %s ends too close to a busy block", c.Interval)
	}

	// 14:00-15:00 sits dead center in the 13:00-16:00 gap with an hour of
	// slack either side.
	assert.Equal(t, at(14, 0), cands[0].Interval.Start)
	assert.True(t, cands[0].HasTag(models.TagAmpleBuffer))
}

// The buffer requirement is waived where a free interval touches the edge
// of the working day; otherwise the first and last slots of the day would
// never be offered.
func TestRankBufferWaivedAtWorkdayEdge(t *testing.T) {
	r := testRanker()
	view := BuildAvailabilityView([]models.TimeInterval{
		iv(10, 30, 18, 0),
	}, at(9, 0), at(18, 0))
	q := models.SlotQuery{
		Date:            day(),
		DurationMinutes: 60,
		Urgency:         models.UrgencyNormal,
		Flexibility:     models.FlexibilityFlexible,
	}

	cands := r.Rank(q, view)
	require.Len(t, cands, 1)
	assert.Equal(t, at(9, 0), cands[0].Interval.Start)
	assert.Equal(t, 0, cands[0].BufferBeforeMin)
}

// High urgency makes an earlier slot outscore a later one that is otherwise
// identical.
func TestRankHighUrgencyFavorsEarlier(t *testing.T) {
	r := testRanker()
	view := BuildAvailabilityView(nil, at(9, 0), at(18, 0))

	scoreAt := func(urgency models.Urgency, start time.Time) float64 {
		q := models.SlotQuery{
			Date:            day(),
			DurationMinutes: 30,
			Urgency:         urgency,
			Flexibility:     models.FlexibilityFlexible,
		}
		for _, c := range r.CandidatesForView(q, view) {
			if c.Interval.Start.Equal(start) {
				return c.Score
			}
		}
		t.Fatalf("no candidate starting at %s", start)
		return 0
	}

	// 10:00 and 11:00 land in the same time-of-day band with identical
	// buffers, so only urgency can separate them.
	assert.Equal(t, scoreAt(models.UrgencyNormal, at(10, 0)), scoreAt(models.UrgencyNormal, at(11, 0)))
	assert.Greater(t, scoreAt(models.UrgencyHigh, at(10, 0)), scoreAt(models.UrgencyHigh, at(11, 0)))
}

func TestRankDisjointWindowYieldsNothing(t *testing.T) {
	r := testRanker()
	view := BuildAvailabilityView(nil, at(9, 0), at(18, 0))
	q := models.SlotQuery{
		Date:            day(),
		DurationMinutes: 30,
		Window:          &models.TimeRange{StartMin: 19 * 60, EndMin: 21 * 60},
		Flexibility:     models.FlexibilityFlexible,
	}
	assert.Empty(t, r.Rank(q, view), "a window outside working hours has no feasible placements")
}

func TestBufferPolicyFallbacks(t *testing.T) {
	p := BufferPolicy{ByType: map[string]int{"call": 10, "in-person": 30}, DefaultMin: 15}
	assert.Equal(t, 10, p.BufferFor("call"))
	assert.Equal(t, 10, p.BufferFor("Video Call"))
	assert.Equal(t, 30, p.BufferFor("in-person"))
	assert.Equal(t, 15, p.BufferFor(""))
	assert.Equal(t, 15, p.BufferFor("workshop"))
}

// When two configured types both substring-match, the more specific one wins,
// every time.
func TestBufferPolicyPrefersMostSpecificMatch(t *testing.T) {
	p := BufferPolicy{ByType: map[string]int{"call": 10, "video call": 5}, DefaultMin: 15}
	for i := 0; i < 50; i++ {
		assert.Equal(t, 5, p.BufferFor("long video call"))
		assert.Equal(t, 10, p.BufferFor("phone call"))
	}
}
