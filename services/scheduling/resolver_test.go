package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"meetsync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	busy  map[string][]models.TimeInterval // date key -> raw busy events
	err   error
	calls []string
}

func dateKey(d time.Time) string { return d.Format("2006-01-02") }

func (f *fakeSource) ViewForDate(_ context.Context, date time.Time) (AvailabilityView, error) {
	f.calls = append(f.calls, dateKey(date))
	if f.err != nil {
		return AvailabilityView{}, f.err
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), 9, 0, 0, 0, date.Location())
	end := time.Date(date.Year(), date.Month(), date.Day(), 18, 0, 0, 0, date.Location())
	return BuildAvailabilityView(f.busy[dateKey(date)], start, end), nil
}

func fullDay(date time.Time) []models.TimeInterval {
	return []models.TimeInterval{models.MustInterval(
		time.Date(date.Year(), date.Month(), date.Day(), 9, 0, 0, 0, date.Location()),
		time.Date(date.Year(), date.Month(), date.Day(), 18, 0, 0, 0, date.Location()),
	)}
}

func testResolver(src AvailabilitySource) *ConflictResolver {
	return &ConflictResolver{
		Ranker:        testRanker(),
		Source:        src,
		HorizonDays:   7,
		MinAcceptable: 1,
		DayPenalty:    0.08,
		Logger:        zap.NewNop(),
	}
}

func TestFindSlotsDirect(t *testing.T) {
	src := &fakeSource{busy: map[string][]models.TimeInterval{}}
	cr := testResolver(src)

	q := models.SlotQuery{
		Date:            day(),
		DurationMinutes: 60,
		Urgency:         models.UrgencyNormal,
		Flexibility:     models.FlexibilityFlexible,
	}
	cands, strategy, err := cr.FindSlots(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, StrategyDirect, strategy)
	require.NotEmpty(t, cands)
	for _, c := range cands {
		assert.Equal(t, day().Day(), c.Interval.Start.Day(), "direct hits stay on the requested date")
		assert.False(t, c.HasTag(models.TagAdjacentDay))
	}
	assert.Equal(t, []string{dateKey(day())}, src.calls, "a satisfied day triggers no extra fetches")
}

// A flexible request on a packed day spills onto adjacent days, with the
// borrowed slots labelled as such.
func TestFindSlotsHorizonFallback(t *testing.T) {
	d0 := day()
	src := &fakeSource{busy: map[string][]models.TimeInterval{
		dateKey(d0): fullDay(d0),
	}}
	cr := testResolver(src)

	q := models.SlotQuery{
		Date:            d0,
		DurationMinutes: 60,
		Window:          &models.TimeRange{StartMin: 12 * 60, EndMin: 18 * 60},
		Urgency:         models.UrgencyNormal,
		Flexibility:     models.FlexibilityFlexible,
	}
	cands, strategy, err := cr.FindSlots(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, StrategyHorizon, strategy)
	require.NotEmpty(t, cands)

	window := models.TimeRange{StartMin: 12 * 60, EndMin: 18 * 60}
	for _, c := range cands {
		assert.True(t, c.HasTag(models.TagAdjacentDay))
		assert.False(t, c.Interval.Start.Day() == d0.Day(), "the packed day offers nothing")
		assert.True(t, window.OnDate(c.Interval.Start).Contains(c.Interval),
			"the time-range constraint survives the day change")
	}
	assert.LessOrEqual(t, len(src.calls), cr.HorizonDays+1, "search is bounded by the horizon")
}

// Nearer days win the pooled ranking unless markedly worse: day 1 and day 2
// offer identical availability, so the per-day penalty decides.
func TestFindSlotsHorizonPrefersNearerDays(t *testing.T) {
	d0 := day()
	src := &fakeSource{busy: map[string][]models.TimeInterval{
		dateKey(d0): fullDay(d0),
	}}
	cr := testResolver(src)

	q := models.SlotQuery{
		Date:            d0,
		DurationMinutes: 60,
		Window:          &models.TimeRange{StartMin: 14 * 60, EndMin: 16 * 60},
		Urgency:         models.UrgencyNormal,
		Flexibility:     models.FlexibilityFlexible,
	}
	cands, _, err := cr.FindSlots(context.Background(), q)
	require.NotEmpty(t, cands)
	require.NoError(t, err)
	assert.Equal(t, d0.AddDate(0, 0, 1).Day(), cands[0].Interval.Start.Day())
}

// A rigid request never leaves its date: the resolver relaxes the time range
// on the same day instead of looking at neighbors.
func TestFindSlotsRigidRelaxesWindow(t *testing.T) {
	d0 := day()
	src := &fakeSource{busy: map[string][]models.TimeInterval{
		dateKey(d0): {iv(12, 0, 18, 0)}, // afternoon packed, morning free
	}}
	cr := testResolver(src)

	q := models.SlotQuery{
		Date:            d0,
		DurationMinutes: 60,
		Window:          &models.TimeRange{StartMin: 12 * 60, EndMin: 18 * 60},
		Urgency:         models.UrgencyNormal,
		Flexibility:     models.FlexibilityRigid,
	}
	cands, strategy, err := cr.FindSlots(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, StrategyRelaxed, strategy)
	require.NotEmpty(t, cands)
	for _, c := range cands {
		assert.Equal(t, d0.Day(), c.Interval.Start.Day(), "rigid search must not change the date")
		assert.True(t, c.HasTag(models.TagRelaxed))
		assert.Less(t, c.Interval.Start.Hour(), 12, "relaxed slots land in the free morning")
	}
	assert.Equal(t, []string{dateKey(d0)}, src.calls, "rigid search fetches only the requested day")
}

func TestFindSlotsNoAvailability(t *testing.T) {
	d0 := day()
	busy := map[string][]models.TimeInterval{}
	for d := 0; d <= 7; d++ {
		date := d0.AddDate(0, 0, d)
		busy[dateKey(date)] = fullDay(date)
	}
	src := &fakeSource{busy: busy}
	cr := testResolver(src)

	q := models.SlotQuery{
		Date:            d0,
		DurationMinutes: 60,
		Window:          &models.TimeRange{StartMin: 12 * 60, EndMin: 18 * 60},
		Urgency:         models.UrgencyNormal,
		Flexibility:     models.FlexibilityFlexible,
	}
	_, _, err := cr.FindSlots(context.Background(), q)
	var na *NoAvailabilityError
	require.ErrorAs(t, err, &na)
	assert.Equal(t, d0, na.From)
	assert.Equal(t, d0.AddDate(0, 0, cr.HorizonDays), na.To)
	assert.Equal(t, cr.HorizonDays+1, na.DaysViewed)
}

// A rigid search consults a single day, so the exhaustion report must claim
// exactly that day rather than the whole horizon.
func TestFindSlotsNoAvailabilityRigidReportsOneDay(t *testing.T) {
	d0 := day()
	src := &fakeSource{busy: map[string][]models.TimeInterval{
		dateKey(d0): fullDay(d0),
	}}
	cr := testResolver(src)

	q := models.SlotQuery{
		Date:            d0,
		DurationMinutes: 60,
		Window:          &models.TimeRange{StartMin: 12 * 60, EndMin: 18 * 60},
		Urgency:         models.UrgencyNormal,
		Flexibility:     models.FlexibilityRigid,
	}
	_, _, err := cr.FindSlots(context.Background(), q)
	var na *NoAvailabilityError
	require.ErrorAs(t, err, &na)
	assert.Equal(t, []string{dateKey(d0)}, src.calls, "only the requested day was fetched")
	assert.Equal(t, d0, na.From)
	assert.Equal(t, d0, na.To)
	assert.Equal(t, 1, na.DaysViewed)
}

func TestFindSlotsPropagatesSourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("calendar timeout")}
	cr := testResolver(src)

	q := models.SlotQuery{Date: day(), DurationMinutes: 30, Flexibility: models.FlexibilityFlexible}
	_, _, err := cr.FindSlots(context.Background(), q)
	require.Error(t, err)
	var na *NoAvailabilityError
	assert.False(t, errors.As(err, &na), "a provider failure must not masquerade as no availability")
}
