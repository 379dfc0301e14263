// File: services/calendar/google.go
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"meetsync/models"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const retryBackoff = 500 * time.Millisecond

// GoogleCalendarService implements Service against the Google Calendar API.
// One instance serves one calendar; writeMu serializes bookings on it so two
// concurrent sessions cannot interleave their insert/verify sequences.
type GoogleCalendarService struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
	timeout    time.Duration
	writeMu    sync.Mutex
	logger     *zap.Logger
}

func NewGoogleCalendarService(ctx context.Context, credentialsFile, calendarID string, loc *time.Location, timeout time.Duration, logger *zap.Logger) (*GoogleCalendarService, error) {
	svc, err := gcal.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	return &GoogleCalendarService{
		svc:        svc,
		calendarID: calendarID,
		loc:        loc,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

func (g *GoogleCalendarService) FetchBusyIntervals(ctx context.Context, from, to time.Time) ([]models.TimeInterval, error) {
	var events []models.TimeInterval
	err := g.withRetry(ctx, "fetch", func(ctx context.Context) error {
		resp, err := g.svc.Events.List(g.calendarID).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx).Do()
		if err != nil {
			return err
		}
		events = events[:0]
		for _, item := range resp.Items {
			iv, ok := g.parseEvent(item)
			if !ok {
				continue
			}
			events = append(events, iv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (g *GoogleCalendarService) BookEvent(ctx context.Context, slot models.TimeInterval, title, idempotencyKey string) (string, error) {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	// The slot was never held, so another session may have taken it since it
	// was offered. Check right before writing.
	busy, err := g.FetchBusyIntervals(ctx, slot.Start.Add(-time.Hour), slot.End.Add(time.Hour))
	if err != nil {
		return "", err
	}
	for _, b := range busy {
		if b.Overlaps(slot) {
			return "", &ConflictError{Slot: slot}
		}
	}

	event := &gcal.Event{
		Summary:     title,
		Description: "Scheduled via assistant",
		Start:       &gcal.EventDateTime{DateTime: slot.Start.Format(time.RFC3339), TimeZone: g.loc.String()},
		End:         &gcal.EventDateTime{DateTime: slot.End.Format(time.RFC3339), TimeZone: g.loc.String()},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{"idempotencyKey": idempotencyKey},
		},
	}

	var created *gcal.Event
	err = g.withRetry(ctx, "insert", func(ctx context.Context) error {
		// Idempotent across the retry: a copy may already exist if the first
		// attempt timed out after the write landed.
		if existing := g.findByIdempotencyKey(ctx, slot, idempotencyKey); existing != nil {
			created = existing
			return nil
		}
		ev, err := g.svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
		if err != nil {
			return err
		}
		created = ev
		return nil
	})
	if err != nil {
		return "", err
	}

	// Read-verification guards against a duplicate submission racing ours.
	if err := g.verifyBooked(ctx, created.Id); err != nil {
		return "", err
	}

	g.logger.Info("calendar event booked",
		zap.String("eventId", created.Id), zap.String("slot", slot.String()))
	return created.Id, nil
}

func (g *GoogleCalendarService) findByIdempotencyKey(ctx context.Context, slot models.TimeInterval, key string) *gcal.Event {
	resp, err := g.svc.Events.List(g.calendarID).
		TimeMin(slot.Start.Add(-time.Hour).Format(time.RFC3339)).
		TimeMax(slot.End.Add(time.Hour).Format(time.RFC3339)).
		SingleEvents(true).
		PrivateExtendedProperty("idempotencyKey=" + key).
		Context(ctx).Do()
	if err != nil || len(resp.Items) == 0 {
		return nil
	}
	return resp.Items[0]
}

func (g *GoogleCalendarService) verifyBooked(ctx context.Context, eventID string) error {
	return g.withRetry(ctx, "verify", func(ctx context.Context) error {
		ev, err := g.svc.Events.Get(g.calendarID, eventID).Context(ctx).Do()
		if err != nil {
			return err
		}
		if ev.Status == "cancelled" {
			return fmt.Errorf("event %s cancelled by provider after insert", eventID)
		}
		return nil
	})
}

func (g *GoogleCalendarService) parseEvent(item *gcal.Event) (models.TimeInterval, bool) {
	if item.Start == nil || item.End == nil || item.Status == "cancelled" {
		return models.TimeInterval{}, false
	}
	start, ok1 := g.parseEventTime(item.Start)
	end, ok2 := g.parseEventTime(item.End)
	if !ok1 || !ok2 || !start.Before(end) {
		return models.TimeInterval{}, false
	}
	return models.TimeInterval{Start: start, End: end}, true
}

func (g *GoogleCalendarService) parseEventTime(t *gcal.EventDateTime) (time.Time, bool) {
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return parsed.In(g.loc), true
	}
	if t.Date != "" { // all-day event
		parsed, err := time.ParseInLocation("2006-01-02", t.Date, g.loc)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

// withRetry runs op under the configured timeout with one automatic retry on
// retryable failures; a second failure surfaces as a TransientError.
func (g *GoogleCalendarService) withRetry(ctx context.Context, opName string, op func(context.Context) error) error {
	attempt := func() error {
		opCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return op(opCtx)
	}

	err := attempt()
	if err == nil {
		return nil
	}
	if !isRetryable(err) {
		return fmt.Errorf("calendar %s failed: %w", opName, err)
	}

	g.logger.Warn("calendar call failed, retrying once",
		zap.String("op", opName), zap.Error(err))
	time.Sleep(retryBackoff)

	if err = attempt(); err != nil {
		return &TransientError{Op: opName, Cause: err}
	}
	return nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= 500 || gerr.Code == 429
	}
	return false
}
