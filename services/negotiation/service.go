// File: services/negotiation/service.go
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"meetsync/database/repository"
	"meetsync/metrics"
	"meetsync/models"
	"meetsync/services/calendar"
	"meetsync/services/extraction"
	"meetsync/services/scheduling"
	"meetsync/services/tasks"
	"meetsync/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// NegotiationService drives the whole conversation: sessions, turns, slot
// search, and booking.
type NegotiationService interface {
	StartSession(ctx context.Context, userID string) (*models.NegotiationSession, error)
	ProcessTurn(ctx context.Context, sessionID string, turn models.TurnRequest) (*models.TurnResponse, error)
	CancelSession(ctx context.Context, sessionID string) error
	SweepIdleSessions(ctx context.Context) error
}

// DefaultNegotiationService is the production implementation. It owns no
// conversation logic itself; every state change goes through Transition, and
// this service only performs the effects the machine asks for.
type DefaultNegotiationService struct {
	Store        SessionStore
	Extractor    extraction.Extractor
	Calendar     calendar.Service
	Resolver     *scheduling.ConflictResolver
	Availability scheduling.AvailabilitySource
	Bookings     repository.MeetingBookingRepository
	Reminders    *asynq.Client
	Locks        *redis.Client
	Metrics      *metrics.Metrics
	Logger       *zap.Logger

	Threshold      float64
	IdleTimeout    time.Duration
	MaxTurnRetries int
	Loc            *time.Location
	// Now is overridable for tests; defaults to time.Now in Loc.
	Now func() time.Time
}

func (s *DefaultNegotiationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().In(s.Loc)
}

func (s *DefaultNegotiationService) today() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())
}

func (s *DefaultNegotiationService) StartSession(ctx context.Context, userID string) (*models.NegotiationSession, error) {
	now := s.now()
	sess := &models.NegotiationSession{
		ID:         uuid.New().String(),
		UserID:     userID,
		State:      models.StateCollectingInfo,
		Request:    models.NewMeetingRequest(),
		CreatedAt:  now,
		LastActive: now,
	}
	if err := s.Store.Save(ctx, sess); err != nil {
		return nil, err
	}
	if s.Metrics != nil {
		s.Metrics.ActiveSessions.Inc()
	}
	s.Logger.Info("negotiation session started",
		zap.String("sessionID", sess.ID), zap.String("userID", userID))
	return sess, nil
}

// ProcessTurn handles one user utterance. Sessions are single-user and turns
// within one are processed one at a time, so no locking happens here.
func (s *DefaultNegotiationService) ProcessTurn(ctx context.Context, sessionID string, turn models.TurnRequest) (*models.TurnResponse, error) {
	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &models.TurnResponse{SessionID: sess.ID}
	now := s.now()

	if sess.State.Terminal() {
		resp.State = sess.State
		resp.Reply = "That conversation has ended. Start a new session to book another meeting."
		return resp, nil
	}
	if s.IdleTimeout > 0 && now.Sub(sess.LastActive) > s.IdleTimeout {
		s.dispatch(ctx, sess, EvIdleTimeout{}, resp)
		resp.State = sess.State
		resp.Reply = "That conversation timed out. Start a new session to book a meeting."
		return resp, nil
	}
	sess.LastActive = now

	text := strings.TrimSpace(turn.Text)
	switch {
	case text == "":
		s.badTurn(sess, resp, "I didn't catch that. Could you say it again?")
	case IsExit(text):
		s.dispatch(ctx, sess, EvCancel{}, resp)
	case IsScheduleLookup(text):
		resp.Reply = s.scheduleSummary(ctx, text)
	case sess.State == models.StateAwaitingSlotConfirm && s.handleSelection(ctx, sess, resp, text):
		// Selection, agreement, or rejection consumed the turn.
	case IsGreeting(text) && len(sess.Request.Confidence) == 0:
		resp.Reply = "Hi! I can help you schedule meetings. What would you like to set up?"
	default:
		ev := s.mergeTurn(ctx, sess, text)
		if ev.Changed || ev.Clarification != "" {
			sess.BadTurns = 0
			s.dispatch(ctx, sess, ev, resp)
		} else if sess.State == models.StateAwaitingSlotConfirm {
			resp.Reply = "Which option works for you? Say something like 'option 1' or 'the second one'."
		} else {
			prompt := "Sorry, I didn't understand that."
			if missing := ev.Missing; len(missing) > 0 {
				prompt += " " + questionFor(missing[0])
			}
			s.badTurn(sess, resp, prompt)
		}
	}

	if !sess.State.Terminal() {
		if err := s.Store.Save(ctx, sess); err != nil {
			return nil, err
		}
	}
	resp.State = sess.State
	if s.Metrics != nil {
		s.Metrics.TurnsProcessed.WithLabelValues(string(sess.State)).Inc()
	}
	return resp, nil
}

func (s *DefaultNegotiationService) CancelSession(ctx context.Context, sessionID string) error {
	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	resp := &models.TurnResponse{SessionID: sess.ID}
	s.dispatch(ctx, sess, EvCancel{}, resp)
	return nil
}

// SweepIdleSessions abandons sessions silent past the idle timeout. Redis
// TTLs already expire the payloads; the sweep keeps the metrics honest and
// frees sessions whose TTL was pushed out by a recent save.
func (s *DefaultNegotiationService) SweepIdleSessions(ctx context.Context) error {
	ids, err := s.Store.ActiveIDs(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	active := 0
	for _, id := range ids {
		sess, err := s.Store.Get(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if now.Sub(sess.LastActive) > s.IdleTimeout {
			resp := &models.TurnResponse{SessionID: sess.ID}
			s.dispatch(ctx, sess, EvIdleTimeout{}, resp)
			s.Logger.Info("idle session swept", zap.String("sessionID", id))
			continue
		}
		active++
	}
	if s.Metrics != nil {
		s.Metrics.ActiveSessions.Set(float64(active))
	}
	return nil
}

// dispatch runs the machine to quiescence: each effect may produce a
// follow-up event (search results, booking outcomes) which feeds straight
// back into Transition.
func (s *DefaultNegotiationService) dispatch(ctx context.Context, sess *models.NegotiationSession, ev Event, resp *models.TurnResponse) {
	var replies []string
	if resp.Reply != "" {
		replies = append(replies, resp.Reply)
	}
	for ev != nil {
		next, effects := Transition(sess.State, ev)
		sess.State = next
		ev = nil
		for _, fx := range effects {
			switch f := fx.(type) {
			case FxSay:
				replies = append(replies, f.Text)
			case FxAsk:
				replies = append(replies, f.Question)
			case FxSearch:
				ev = s.search(ctx, sess, f)
			case FxPresent:
				replies = append(replies, s.present(sess, f, resp))
			case FxBook:
				ev = s.book(ctx, sess, f.Index, resp)
			case FxEnd:
				s.end(ctx, sess, f.Reason)
			}
		}
	}
	resp.Reply = strings.Join(replies, " ")
}

// badTurn counts an unusable utterance. Past the retry cap the accumulator
// resets instead of abandoning the session.
func (s *DefaultNegotiationService) badTurn(sess *models.NegotiationSession, resp *models.TurnResponse, reply string) {
	sess.BadTurns++
	if sess.BadTurns >= s.MaxTurnRetries {
		sess.Request = models.NewMeetingRequest()
		sess.BadTurns = 0
		sess.Presented = nil
		sess.SearchAttempts = 0
		sess.ForcedFlexible = false
		sess.State = models.StateCollectingInfo
		resp.Reply = "I'm having trouble following. Let's start fresh. What would you like to schedule?"
		return
	}
	resp.Reply = reply
}

// handleSelection consumes option numbers, plain agreement, and rejections
// while candidates are on the table. Returns false when the utterance looks
// like new scheduling information instead.
func (s *DefaultNegotiationService) handleSelection(ctx context.Context, sess *models.NegotiationSession, resp *models.TurnResponse, text string) bool {
	// Rejection first: "none of these" must never read as a selection.
	if IsRejection(text) {
		s.dispatch(ctx, sess, EvSlotsRejected{}, resp)
		return true
	}
	if n := ExtractOptionNumber(text); n > 0 {
		if n <= len(sess.Presented) {
			s.dispatch(ctx, sess, EvSlotChosen{Index: n}, resp)
		} else {
			resp.Reply = fmt.Sprintf("I only offered %d options. Which number would you like?", len(sess.Presented))
		}
		return true
	}
	if IsAffirmative(text) {
		s.dispatch(ctx, sess, EvSlotChosen{Index: 1}, resp)
		return true
	}
	return false
}

// fallbackConfidence is assigned to values recovered by the deterministic
// parsers; below the extractor's default so a model-provided value wins.
const fallbackConfidence = 0.85

// mergeTurn extracts fields from the utterance and folds them into the
// accumulator, with deterministic date and time-of-day parsing as backstop.
func (s *DefaultNegotiationService) mergeTurn(ctx context.Context, sess *models.NegotiationSession, text string) EvFieldsMerged {
	started := time.Now()
	res, err := s.Extractor.Extract(ctx, text, sess.Request, sess.State)
	if s.Metrics != nil {
		s.Metrics.ExtractionDuration.Observe(time.Since(started).Seconds())
	}
	if err != nil {
		s.Logger.Warn("extraction failed, falling back to deterministic parsing", zap.Error(err))
	}

	changed := false
	sawDate, sawRange := false, false
	for _, u := range res.Updates {
		switch u.Name {
		case models.FieldDate:
			sawDate = true
		case models.FieldTimeRange:
			sawRange = true
		}
		switch sess.Request.Merge(u.Name, u.Value, u.Confidence) {
		case models.MergeApplied:
			changed = true
		case models.MergeIgnored:
			s.Logger.Debug("ignored field update",
				zap.String("field", u.Name), zap.Float64("confidence", u.Confidence))
		}
	}

	if !sawDate {
		if d, ok := utils.ParseDatePhrase(text, s.today()); ok {
			if sess.Request.Merge(models.FieldDate, d, fallbackConfidence) == models.MergeApplied {
				changed = true
			}
		}
	}
	if !sawRange {
		if tr, ok := utils.TimeRangeForPhrase(text); ok {
			if sess.Request.Merge(models.FieldTimeRange, tr, fallbackConfidence) == models.MergeApplied {
				changed = true
			}
		}
	}

	clar := res.Clarification
	if clar == "" && len(sess.Request.PendingClarifications) > 0 {
		clar = "I want to make sure I got that right. " + questionFor(sess.Request.PendingClarifications[0])
	}
	return EvFieldsMerged{
		Missing:       sess.Request.MissingRequiredFields(s.Threshold),
		Complete:      sess.Request.IsComplete(s.Threshold),
		Changed:       changed,
		Clarification: clar,
	}
}

// search performs the FxSearch effect and returns the outcome event.
func (s *DefaultNegotiationService) search(ctx context.Context, sess *models.NegotiationSession, fx FxSearch) Event {
	if fx.ForceFlexible {
		if sess.ForcedFlexible {
			// A second full rejection would just reproduce the same pool,
			// so report the window exhausted and let the user change
			// something.
			start := s.today()
			if sess.Request.PreferredDate != nil {
				start = *sess.Request.PreferredDate
			}
			return EvNoAvailability{
				From:       start,
				To:         start.AddDate(0, 0, s.Resolver.HorizonDays),
				DaysViewed: s.Resolver.HorizonDays + 1,
			}
		}
		sess.ForcedFlexible = true
	}
	sess.SearchAttempts++

	q, err := sess.Request.ToQuery(s.today(), s.Threshold)
	if err != nil {
		var inc *models.IncompleteRequestError
		if errors.As(err, &inc) {
			return EvFieldsMerged{Missing: inc.Missing}
		}
		s.Logger.Error("query build failed", zap.Error(err))
		return EvTransient{}
	}
	if sess.ForcedFlexible {
		q.Flexibility = models.FlexibilityFlexible
	}

	cands, strategy, err := s.Resolver.FindSlots(ctx, q)
	if err != nil {
		var na *scheduling.NoAvailabilityError
		if errors.As(err, &na) {
			if s.Metrics != nil {
				s.Metrics.NoAvailability.Inc()
			}
			return EvNoAvailability{From: na.From, To: na.To, DaysViewed: na.DaysViewed}
		}
		if !calendar.IsTransient(err) {
			s.Logger.Error("slot search failed", zap.Error(err))
		}
		return EvTransient{}
	}
	if strategy != scheduling.StrategyDirect && s.Metrics != nil {
		s.Metrics.ConflictsResolved.WithLabelValues(string(strategy)).Inc()
	}
	return EvSlotsFound{
		Candidates: cands,
		Relaxed:    strategy == scheduling.StrategyRelaxed,
		Rebooking:  fx.Rebooking,
	}
}

// present performs the FxPresent effect: remember what was offered and
// render it for the user.
func (s *DefaultNegotiationService) present(sess *models.NegotiationSession, f FxPresent, resp *models.TurnResponse) string {
	sess.Presented = f.Candidates
	resp.Actions = resp.Actions[:0]

	intro := "Here's what I found."
	if f.Rebooking {
		intro = "Here are the updated options."
	}
	if f.Relaxed {
		intro = "Nothing fit your preferred time range, so I looked across the whole day."
	}
	parts := []string{intro}
	for i, c := range f.Candidates {
		parts = append(parts, fmt.Sprintf("Option %d: %s.", i+1, c.Label()))
		resp.Actions = append(resp.Actions, models.TurnAction{
			Label: c.Label(),
			Index: i + 1,
			Score: c.Score,
			Tags:  c.RationaleTags,
		})
	}
	parts = append(parts, "Which one works for you?")
	return strings.Join(parts, " ")
}

const bookingLockTTL = 24 * time.Hour

// book performs the FxBook effect. The idempotency key covers both the
// Redis guard and the calendar write, so a retried confirmation never
// produces a second event.
func (s *DefaultNegotiationService) book(ctx context.Context, sess *models.NegotiationSession, index int, resp *models.TurnResponse) Event {
	if index < 1 || index > len(sess.Presented) {
		return nil
	}
	slot := sess.Presented[index-1]
	if sess.BookedEventID != "" {
		return EvBookingSucceeded{BookingID: sess.BookedEventID, Slot: slot}
	}

	idemKey := fmt.Sprintf("%s:%d", sess.ID, slot.Interval.Start.Unix())
	lockKey := "negotiation:book:" + sess.ID
	if s.Locks != nil {
		ok, err := s.Locks.SetNX(ctx, lockKey, idemKey, bookingLockTTL).Result()
		if err != nil {
			s.Logger.Error("booking lock failed", zap.Error(err))
			return EvTransient{}
		}
		if !ok {
			if existing, err := s.Bookings.GetByIdempotencyKey(ctx, idemKey); err == nil {
				sess.BookedEventID = existing.CalendarEventID
				resp.BookingID = existing.ID
				return EvBookingSucceeded{BookingID: existing.ID, Slot: slot}
			}
			// Lock held but nothing recorded: a previous attempt died
			// mid-flight. The calendar-side key makes the retry safe.
		}
	}

	title := titleFor(sess.Request)
	eventID, err := s.Calendar.BookEvent(ctx, slot.Interval, title, idemKey)
	if err != nil {
		if s.Locks != nil {
			s.Locks.Del(ctx, lockKey)
		}
		if calendar.IsConflict(err) {
			if s.Metrics != nil {
				s.Metrics.BookingConflicts.Inc()
			}
			s.Logger.Info("booking conflict, re-searching",
				zap.String("sessionID", sess.ID), zap.String("slot", slot.Interval.String()))
			return EvBookingConflict{Slot: slot}
		}
		s.Logger.Error("calendar booking failed", zap.Error(err))
		return EvTransient{}
	}

	sess.BookedEventID = eventID
	booking := models.MeetingBooking{
		ID:              uuid.New().String(),
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		Title:           title,
		Interval:        slot.Interval,
		MeetingType:     sess.Request.MeetingType,
		CalendarEventID: eventID,
		IdempotencyKey:  idemKey,
		CreatedAt:       s.now(),
	}
	if err := s.Bookings.Create(ctx, booking); err != nil {
		s.Logger.Error("failed to persist booking", zap.Error(err))
	}
	s.scheduleReminder(booking)
	if s.Metrics != nil {
		s.Metrics.BookingsConfirmed.Inc()
	}
	resp.BookingID = booking.ID
	return EvBookingSucceeded{BookingID: booking.ID, Slot: slot}
}

// end performs the FxEnd effect: freeze the accumulator and drop the session.
func (s *DefaultNegotiationService) end(ctx context.Context, sess *models.NegotiationSession, reason string) {
	sess.Request.Freeze()
	if s.Metrics != nil {
		if reason != "confirmed" {
			s.Metrics.SessionsAbandoned.Inc()
		}
		s.Metrics.ActiveSessions.Dec()
	}
	if err := s.Store.Delete(ctx, sess.ID); err != nil {
		s.Logger.Warn("failed to delete ended session", zap.String("sessionID", sess.ID), zap.Error(err))
	}
	s.Logger.Info("negotiation session ended",
		zap.String("sessionID", sess.ID), zap.String("reason", reason))
}

func (s *DefaultNegotiationService) scheduleReminder(booking models.MeetingBooking) {
	if s.Reminders == nil {
		return
	}
	task, opts, err := tasks.NewMeetingReminderTask(models.ReminderPayload{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Title:     booking.Title,
		Interval:  booking.Interval,
	})
	if err != nil {
		s.Logger.Error("failed to build reminder task", zap.Error(err))
		return
	}
	if _, err := s.Reminders.Enqueue(task, opts...); err != nil {
		s.Logger.Error("failed to enqueue reminder", zap.Error(err))
	}
}

// scheduleSummary answers a calendar-view question without disturbing the
// negotiation in progress.
func (s *DefaultNegotiationService) scheduleSummary(ctx context.Context, text string) string {
	date, ok := utils.ParseDatePhrase(text, s.today())
	if !ok {
		date = s.today()
	}
	view, err := s.Availability.ViewForDate(ctx, date)
	if err != nil {
		return "I couldn't reach your calendar just now. Please try again shortly."
	}
	day := date.Format("Monday, January 2")
	if len(view.Busy) == 0 {
		return fmt.Sprintf("You're completely free on %s.", day)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "On %s you have %d busy blocks:", day, len(view.Busy))
	for i, iv := range view.Busy {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, " %s to %s", iv.Start.Format("3:04 PM"), iv.End.Format("3:04 PM"))
	}
	b.WriteString(".")
	return b.String()
}

func titleFor(req *models.MeetingRequest) string {
	switch {
	case strings.Contains(req.MeetingType, "call"):
		return "Call"
	case strings.Contains(req.MeetingType, "person"):
		return "In-person meeting"
	default:
		return "Meeting"
	}
}
