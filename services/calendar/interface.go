// File: services/calendar/interface.go
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meetsync/models"
)

// Service is the calendar provider boundary. Reads may run concurrently
// across sessions; writes are serialized per calendar by the implementation.
type Service interface {
	// FetchBusyIntervals returns raw busy events overlapping the range. The
	// result may be unsorted, overlapping, and may spill outside the range;
	// callers clip and merge.
	FetchBusyIntervals(ctx context.Context, from, to time.Time) ([]models.TimeInterval, error)
	// BookEvent writes the meeting and returns the provider event id. At
	// most one call per confirmed slot per session, guarded by the
	// idempotency key.
	BookEvent(ctx context.Context, slot models.TimeInterval, title, idempotencyKey string) (string, error)
}

// TransientError wraps a timeout or provider-side failure that was retried
// once and still failed. Surfaced as "try again shortly", never as "no
// availability".
type TransientError struct {
	Op    string
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("calendar %s failed transiently: %v", e.Op, e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// ConflictError reports that the slot was taken between offer and
// confirmation. Triggers an automatic re-search, not a fatal error.
type ConflictError struct {
	Slot models.TimeInterval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s already taken", e.Slot)
}

// IsConflict reports whether err is a booking conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
