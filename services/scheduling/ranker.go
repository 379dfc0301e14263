package scheduling

import (
	"math"
	"sort"
	"time"

	"meetsync/models"

	"go.uber.org/zap"
)

const (
	// placementStepMin aligns candidate starts to the half hour.
	placementStepMin = 30
	// surplusCapMin is where extra buffer stops improving the score; a free
	// interval touching the working-day edge counts as this much slack.
	surplusCapMin = 60
	// urgencyLookaheadDays normalizes the earliest-slot bonus.
	urgencyLookaheadDays = 7
)

// SlotRanker turns a complete slot query plus availability views into a
// scored, ordered list of candidate slots.
type SlotRanker struct {
	Cfg    RankerConfig
	Logger *zap.Logger
}

func NewSlotRanker(cfg RankerConfig, logger *zap.Logger) *SlotRanker {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.Weights == (ScoreWeights{}) {
		cfg.Weights = DefaultScoreWeights()
	}
	return &SlotRanker{Cfg: cfg, Logger: logger}
}

// Rank scores every feasible placement across the given views and returns the
// top K, sorted by descending score with ties broken by earliest start.
// An empty result is the normal no-fit outcome, not an error.
func (r *SlotRanker) Rank(q models.SlotQuery, views ...AvailabilityView) []models.CandidateSlot {
	var out []models.CandidateSlot
	for _, v := range views {
		out = append(out, r.CandidatesForView(q, v)...)
	}
	SortCandidates(out)
	return Truncate(out, r.Cfg.TopK)
}

// CandidatesForView generates scored placements for a single day, without
// sorting or truncation. The resolver pools these across days.
func (r *SlotRanker) CandidatesForView(q models.SlotQuery, v AvailabilityView) []models.CandidateSlot {
	window := r.Cfg.WorkDay
	if q.Window != nil {
		w, ok := r.Cfg.WorkDay.Intersect(*q.Window)
		if !ok {
			return nil
		}
		window = w
	}

	workday := r.Cfg.WorkDay.OnDate(v.Date)
	allowed := window.OnDate(v.Date)
	bufferMin := r.Cfg.Buffers.BufferFor(q.MeetingType)
	duration := time.Duration(q.DurationMinutes) * time.Minute

	var out []models.CandidateSlot
	for _, free := range v.FreeWithin(workday) {
		// Buffer must fit on both sides of the meeting, except where the
		// free interval touches the working-day boundary.
		reqLead, reqTrail := bufferMin, bufferMin
		if free.Start.Equal(workday.Start) {
			reqLead = 0
		}
		if free.End.Equal(workday.End) {
			reqTrail = 0
		}

		earliest := maxTime(free.Start.Add(time.Duration(reqLead)*time.Minute), allowed.Start)
		latestEnd := minTime(free.End.Add(-time.Duration(reqTrail)*time.Minute), allowed.End)
		if latestEnd.Sub(earliest) < duration {
			continue
		}

		start := alignUp(earliest)
		if start.Add(duration).After(latestEnd) {
			start = earliest
		}
		for ; !start.Add(duration).After(latestEnd); start = start.Add(placementStepMin * time.Minute) {
			out = append(out, r.place(q, v, free, workday, start, duration, bufferMin))
		}
	}

	if len(out) > 0 {
		out[0].RationaleTags = append(out[0].RationaleTags, models.TagEarliest)
	}
	return out
}

func (r *SlotRanker) place(
	q models.SlotQuery,
	v AvailabilityView,
	free, workday models.TimeInterval,
	start time.Time,
	duration time.Duration,
	bufferMin int,
) models.CandidateSlot {
	end := start.Add(duration)
	gapBefore := int(start.Sub(free.Start) / time.Minute)
	gapAfter := int(free.End.Sub(end) / time.Minute)

	// Surplus slack beyond the required minimum, seen from the tighter side;
	// the working-day edge counts as fully slack.
	surplusBefore := surplusCapMin
	if !free.Start.Equal(workday.Start) {
		surplusBefore = gapBefore - bufferMin
	}
	surplusAfter := surplusCapMin
	if !free.End.Equal(workday.End) {
		surplusAfter = gapAfter - bufferMin
	}
	surplus := clampInt(min(surplusBefore, surplusAfter), 0, surplusCapMin)

	w := r.Cfg.Weights
	var tags []string

	proximity := 0.5
	if q.Window != nil {
		mid := q.Window.MidMin()
		slotMid := minutesOfDay(start.Add(duration / 2))
		half := float64(q.Window.EndMin-q.Window.StartMin) / 2
		proximity = clamp01(1 - math.Abs(float64(slotMid-mid))/half)
		if proximity >= 0.8 {
			tags = append(tags, models.TagNearMidpoint)
		}
	}

	bufferScore := 1 - math.Exp(-float64(surplus)/30)
	if surplus >= 20 {
		tags = append(tags, models.TagAmpleBuffer)
	}

	urgency := 0.5
	if q.Urgency == models.UrgencyHigh {
		dayLen := r.Cfg.WorkDay.EndMin - r.Cfg.WorkDay.StartMin
		dayDiff := int(v.Date.Sub(q.Date).Hours() / 24)
		pos := float64(dayDiff*dayLen + minutesOfDay(start) - r.Cfg.WorkDay.StartMin)
		urgency = clamp01(1 - pos/float64(urgencyLookaheadDays*dayLen))
	}

	// An explicit time range silences the time-of-day curve: the user asked
	// for exactly this part of the day.
	timeOfDay := 0.7
	if q.Window == nil {
		timeOfDay = timeOfDayScore(start)
		if timeOfDay >= 0.9 {
			tags = append(tags, models.TagSweetSpot)
		}
	}

	score := clamp01(w.Proximity*proximity + w.Buffer*bufferScore + w.Urgency*urgency + w.TimeOfDay*timeOfDay)

	return models.CandidateSlot{
		Interval:        models.MustInterval(start, end),
		Score:           score,
		RationaleTags:   tags,
		BufferBeforeMin: gapBefore,
		BufferAfterMin:  gapAfter,
	}
}

// timeOfDayScore is the preference curve over an unconstrained day: late
// morning is best, early afternoon good, lunch and the fringes penalized.
func timeOfDayScore(start time.Time) float64 {
	h := float64(minutesOfDay(start)) / 60
	switch {
	case h >= 10 && h < 12:
		return 1.0
	case h >= 14 && h < 16:
		return 0.9
	case h >= 12 && h < 14:
		return 0.55
	case h < 9 || h >= 17:
		return 0.2
	default:
		return 0.7
	}
}

// SortCandidates orders by descending score, ties broken by earliest start.
func SortCandidates(cands []models.CandidateSlot) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Interval.Start.Before(cands[j].Interval.Start)
	})
}

// Truncate returns at most k candidates.
func Truncate(cands []models.CandidateSlot, k int) []models.CandidateSlot {
	if len(cands) > k {
		return cands[:k]
	}
	return cands
}

func alignUp(t time.Time) time.Time {
	step := placementStepMin * time.Minute
	aligned := t.Truncate(step)
	if aligned.Before(t) {
		aligned = aligned.Add(step)
	}
	return aligned
}

func minutesOfDay(t time.Time) int { return t.Hour()*60 + t.Minute() }

func clamp01(f float64) float64 { return math.Max(0, math.Min(1, f)) }

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
