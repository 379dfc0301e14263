package scheduling

import (
	"context"
	"fmt"
	"time"

	"meetsync/models"

	"go.uber.org/zap"
)

// NoAvailabilityError reports an exhausted search window. It is an expected
// business outcome and always reaches the user with the window attached.
type NoAvailabilityError struct {
	From       time.Time
	To         time.Time
	DaysViewed int
}

func (e *NoAvailabilityError) Error() string {
	return fmt.Sprintf("no availability between %s and %s (%d day(s) searched)",
		e.From.Format("2006-01-02"), e.To.Format("2006-01-02"), e.DaysViewed)
}

// AvailabilitySource provides the merged busy view for a working day.
type AvailabilitySource interface {
	ViewForDate(ctx context.Context, date time.Time) (AvailabilityView, error)
}

// ResolveStrategy names which fallback produced the candidates.
type ResolveStrategy string

const (
	StrategyDirect  ResolveStrategy = "direct"
	StrategyHorizon ResolveStrategy = "horizon"
	StrategyRelaxed ResolveStrategy = "relaxed"
)

// ConflictResolver searches adjacent days and relaxes constraints, in that
// order, when the requested day yields too few candidates.
type ConflictResolver struct {
	Ranker        *SlotRanker
	Source        AvailabilitySource
	HorizonDays   int     // adjacent days searched beyond the requested one
	MinAcceptable int     // fewer candidates than this triggers fallback
	DayPenalty    float64 // score subtracted per day of distance
	Logger        *zap.Logger
}

// FindSlots ranks the requested day and, when that falls short, applies the
// fallback policy. A rigid request never leaves its date; it goes straight to
// relaxing the time range.
func (cr *ConflictResolver) FindSlots(ctx context.Context, q models.SlotQuery) ([]models.CandidateSlot, ResolveStrategy, error) {
	view, err := cr.Source.ViewForDate(ctx, q.Date)
	if err != nil {
		return nil, StrategyDirect, err
	}

	cands := cr.Ranker.Rank(q, view)
	if len(cands) >= cr.MinAcceptable {
		return cands, StrategyDirect, nil
	}

	// The exhausted window reported on failure must cover exactly the days
	// actually consulted: one for a rigid request, the whole horizon otherwise.
	searchedTo, daysViewed := q.Date, 1

	if q.Flexibility == models.FlexibilityFlexible {
		pooled, err := cr.searchHorizon(ctx, q, view)
		if err != nil {
			return nil, StrategyHorizon, err
		}
		searchedTo = q.Date.AddDate(0, 0, cr.HorizonDays)
		daysViewed = cr.HorizonDays + 1
		if len(pooled) >= cr.MinAcceptable {
			return pooled, StrategyHorizon, nil
		}
	}

	if q.Window != nil {
		relaxed := q
		relaxed.Window = nil
		cands = cr.Ranker.Rank(relaxed, view)
		for i := range cands {
			cands[i].RationaleTags = append(cands[i].RationaleTags, models.TagRelaxed)
		}
		if len(cands) >= cr.MinAcceptable {
			cr.Logger.Info("resolver relaxed time range",
				zap.String("date", q.Date.Format("2006-01-02")), zap.Int("candidates", len(cands)))
			return cands, StrategyRelaxed, nil
		}
	}

	return nil, "", &NoAvailabilityError{
		From:       q.Date,
		To:         searchedTo,
		DaysViewed: daysViewed,
	}
}

// searchHorizon pools candidates from the requested day and the next N days,
// preserving the time-range constraint, and re-ranks with a day-distance
// penalty so nearer days win unless their slots are markedly worse.
func (cr *ConflictResolver) searchHorizon(ctx context.Context, q models.SlotQuery, dayZero AvailabilityView) ([]models.CandidateSlot, error) {
	pool := cr.Ranker.CandidatesForView(q, dayZero)

	for d := 1; d <= cr.HorizonDays; d++ {
		date := q.Date.AddDate(0, 0, d)
		view, err := cr.Source.ViewForDate(ctx, date)
		if err != nil {
			return nil, err
		}
		// q.Date stays anchored on the requested day so the urgency bonus
		// still favors the earliest slot across the whole horizon.
		for _, c := range cr.Ranker.CandidatesForView(q, view) {
			c.Score = clamp01(c.Score - float64(d)*cr.DayPenalty)
			c.RationaleTags = append(c.RationaleTags, models.TagAdjacentDay)
			pool = append(pool, c)
		}
	}

	SortCandidates(pool)
	return Truncate(pool, cr.Ranker.Cfg.TopK), nil
}
