package negotiation

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"meetsync/models"
	"meetsync/services/calendar"
	"meetsync/services/extraction"
	"meetsync/services/scheduling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	m map[string]string
}

func newMemStore() *memStore { return &memStore{m: map[string]string{}} }

func (s *memStore) Get(_ context.Context, id string) (*models.NegotiationSession, error) {
	data, ok := s.m[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	var sess models.NegotiationSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *memStore) Save(_ context.Context, sess *models.NegotiationSession) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.m[sess.ID] = string(b)
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	delete(s.m, id)
	return nil
}

func (s *memStore) ActiveIDs(_ context.Context) ([]string, error) {
	var ids []string
	for id := range s.m {
		ids = append(ids, id)
	}
	return ids, nil
}

// scriptedExtractor pops one pre-baked result per turn.
type scriptedExtractor struct {
	script []extraction.Result
}

func (e *scriptedExtractor) Extract(context.Context, string, *models.MeetingRequest, models.ConversationState) (extraction.Result, error) {
	if len(e.script) == 0 {
		return extraction.Result{}, nil
	}
	res := e.script[0]
	e.script = e.script[1:]
	return res, nil
}

type fakeCalendar struct {
	busy      []models.TimeInterval
	conflicts int // next N BookEvent calls fail with a conflict
	booked    []models.TimeInterval
}

func (f *fakeCalendar) FetchBusyIntervals(context.Context, time.Time, time.Time) ([]models.TimeInterval, error) {
	return f.busy, nil
}

func (f *fakeCalendar) BookEvent(_ context.Context, slot models.TimeInterval, _, _ string) (string, error) {
	if f.conflicts > 0 {
		f.conflicts--
		return "", &calendar.ConflictError{Slot: slot}
	}
	f.booked = append(f.booked, slot)
	return fmt.Sprintf("evt-%d", len(f.booked)), nil
}

type memBookings struct {
	records []models.MeetingBooking
}

func (b *memBookings) Create(_ context.Context, booking models.MeetingBooking) error {
	b.records = append(b.records, booking)
	return nil
}

func (b *memBookings) GetByID(context.Context, string) (*models.MeetingBooking, error) {
	return nil, fmt.Errorf("not implemented")
}

func (b *memBookings) GetByIdempotencyKey(_ context.Context, key string) (*models.MeetingBooking, error) {
	for i := range b.records {
		if b.records[i].IdempotencyKey == key {
			return &b.records[i], nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (b *memBookings) ListByUser(context.Context, string) ([]models.MeetingBooking, error) {
	return b.records, nil
}

func newTestService(cal *fakeCalendar, extractor extraction.Extractor, bookings *memBookings) *DefaultNegotiationService {
	workDay := models.TimeRange{StartMin: 9 * 60, EndMin: 18 * 60}
	ranker := scheduling.NewSlotRanker(scheduling.RankerConfig{
		WorkDay: workDay,
		Buffers: scheduling.BufferPolicy{
			ByType:     map[string]int{"call": 10, "in-person": 30},
			DefaultMin: 15,
		},
		Weights: scheduling.DefaultScoreWeights(),
		TopK:    3,
	}, zap.NewNop())
	availability := &CalendarAvailability{Calendar: cal, WorkDay: workDay}

	return &DefaultNegotiationService{
		Store:     newMemStore(),
		Extractor: extractor,
		Calendar:  cal,
		Resolver: &scheduling.ConflictResolver{
			Ranker:        ranker,
			Source:        availability,
			HorizonDays:   7,
			MinAcceptable: 1,
			DayPenalty:    0.08,
			Logger:        zap.NewNop(),
		},
		Availability:   availability,
		Bookings:       bookings,
		Logger:         zap.NewNop(),
		Threshold:      0.6,
		IdleTimeout:    30 * time.Minute,
		MaxTurnRetries: 3,
		Loc:            time.UTC,
		// Monday, March 9 2026, mid-morning.
		Now: func() time.Time { return time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC) },
	}
}

func turn(t *testing.T, svc *DefaultNegotiationService, sessionID, text string) *models.TurnResponse {
	t.Helper()
	resp, err := svc.ProcessTurn(context.Background(), sessionID, models.TurnRequest{Text: text})
	require.NoError(t, err)
	return resp
}

// Full happy path: vague opener, details over two turns, pick an option.
func TestConversationBooksAMeeting(t *testing.T) {
	cal := &fakeCalendar{}
	bookings := &memBookings{}
	extractor := &scriptedExtractor{script: []extraction.Result{
		{}, // "I need to book something" yields nothing extractable
		{Updates: []extraction.FieldUpdate{
			{Name: models.FieldDuration, Value: 60, Confidence: 0.9},
		}},
	}}
	svc := newTestService(cal, extractor, bookings)

	sess, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	resp := turn(t, svc, sess.ID, "I need to book something")
	assert.Equal(t, models.StateCollectingInfo, resp.State)
	assert.Contains(t, resp.Reply, "How long", "the first missing field is asked about")

	// Date and time range arrive via the deterministic parsers.
	resp = turn(t, svc, sess.ID, "an hour tomorrow afternoon")
	assert.Equal(t, models.StateAwaitingSlotConfirm, resp.State)
	require.Len(t, resp.Actions, 3)
	assert.Contains(t, resp.Reply, "Option 1")
	for _, a := range resp.Actions {
		assert.Contains(t, a.Label, "March 10", "slots land on the requested day")
	}

	resp = turn(t, svc, sess.ID, "the second one")
	assert.Equal(t, models.StateConfirmed, resp.State)
	assert.NotEmpty(t, resp.BookingID)
	assert.Contains(t, resp.Reply, "booked")

	require.Len(t, bookings.records, 1)
	assert.Equal(t, "user-1", bookings.records[0].UserID)
	require.Len(t, cal.booked, 1)

	// A confirmed session is gone; the next turn cannot resurrect it.
	_, err = svc.ProcessTurn(context.Background(), sess.ID, models.TurnRequest{Text: "hello"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// A conflict between offer and confirmation triggers an automatic re-search
// rather than an error.
func TestConversationRebooksAfterConflict(t *testing.T) {
	cal := &fakeCalendar{conflicts: 1}
	bookings := &memBookings{}
	extractor := &scriptedExtractor{script: []extraction.Result{
		{Updates: []extraction.FieldUpdate{
			{Name: models.FieldDuration, Value: 30, Confidence: 0.9},
		}},
	}}
	svc := newTestService(cal, extractor, bookings)

	sess, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	resp := turn(t, svc, sess.ID, "30 minutes tomorrow morning")
	require.Equal(t, models.StateAwaitingSlotConfirm, resp.State)

	resp = turn(t, svc, sess.ID, "option 1")
	assert.Equal(t, models.StateAwaitingSlotConfirm, resp.State, "conflict loops back to fresh options")
	assert.Contains(t, resp.Reply, "taken")
	assert.NotEmpty(t, resp.Actions)

	resp = turn(t, svc, sess.ID, "option 1")
	assert.Equal(t, models.StateConfirmed, resp.State)
	require.Len(t, bookings.records, 1)
}

// Rejecting every option forces one flexible retry; rejecting again asks the
// user to change something instead of looping.
func TestConversationRejectionFlow(t *testing.T) {
	cal := &fakeCalendar{}
	bookings := &memBookings{}
	extractor := &scriptedExtractor{script: []extraction.Result{
		{Updates: []extraction.FieldUpdate{
			{Name: models.FieldDuration, Value: 60, Confidence: 0.9},
			{Name: models.FieldFlexibility, Value: "rigid", Confidence: 0.9},
		}},
	}}
	svc := newTestService(cal, extractor, bookings)

	sess, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	resp := turn(t, svc, sess.ID, "an hour tomorrow afternoon, has to be that day")
	require.Equal(t, models.StateAwaitingSlotConfirm, resp.State)

	resp = turn(t, svc, sess.ID, "none of these work")
	assert.Equal(t, models.StateAwaitingSlotConfirm, resp.State, "one wider retry happens even for a rigid request")
	assert.NotEmpty(t, resp.Actions)

	resp = turn(t, svc, sess.ID, "none of these work")
	assert.Equal(t, models.StateAwaitingClarify, resp.State)
	assert.Contains(t, resp.Reply, "couldn't find")
	assert.Empty(t, bookings.records)
}

func TestConversationCancel(t *testing.T) {
	cal := &fakeCalendar{}
	svc := newTestService(cal, &scriptedExtractor{}, &memBookings{})

	sess, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	resp := turn(t, svc, sess.ID, "never mind, goodbye")
	assert.Equal(t, models.StateAbandoned, resp.State)
	assert.Contains(t, resp.Reply, "cancelled")

	_, err = svc.Store.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConversationScheduleLookup(t *testing.T) {
	cal := &fakeCalendar{busy: []models.TimeInterval{
		models.MustInterval(
			time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
		),
	}}
	svc := newTestService(cal, &scriptedExtractor{}, &memBookings{})

	sess, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	resp := turn(t, svc, sess.ID, "am I busy tomorrow?")
	assert.Equal(t, models.StateCollectingInfo, resp.State, "a lookup does not disturb the negotiation")
	assert.Contains(t, resp.Reply, "10:00 AM")
}

func TestConversationBadTurnsResetAccumulator(t *testing.T) {
	cal := &fakeCalendar{}
	extractor := &scriptedExtractor{script: []extraction.Result{
		{Updates: []extraction.FieldUpdate{
			{Name: models.FieldDuration, Value: 45, Confidence: 0.9},
		}},
	}}
	svc := newTestService(cal, extractor, &memBookings{})

	sess, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	turn(t, svc, sess.ID, "45 minutes please")

	// Three unusable turns in a row wipe the accumulator.
	turn(t, svc, sess.ID, "mumble")
	turn(t, svc, sess.ID, "static noise")
	resp := turn(t, svc, sess.ID, "garbled")
	assert.Contains(t, resp.Reply, "start fresh")
	assert.Equal(t, models.StateCollectingInfo, resp.State)

	stored, err := svc.Store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Request.DurationMinutes, "the reset dropped previously gathered fields")
}

func TestConversationIdleTimeout(t *testing.T) {
	cal := &fakeCalendar{}
	svc := newTestService(cal, &scriptedExtractor{}, &memBookings{})

	sess, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	// Jump the clock past the idle window.
	svc.Now = func() time.Time { return time.Date(2026, 3, 9, 11, 0, 1, 0, time.UTC) }

	resp := turn(t, svc, sess.ID, "hello?")
	assert.Equal(t, models.StateAbandoned, resp.State)
	assert.Contains(t, resp.Reply, "timed out")
}
