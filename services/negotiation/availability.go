// File: services/negotiation/availability.go
package negotiation

import (
	"context"
	"time"

	"meetsync/metrics"
	"meetsync/models"
	"meetsync/services/calendar"
	"meetsync/services/scheduling"
)

// CalendarAvailability adapts the calendar provider into the availability
// source the resolver consumes: one fetch per working day, normalized into a
// merged busy view.
type CalendarAvailability struct {
	Calendar calendar.Service
	WorkDay  models.TimeRange
	Metrics  *metrics.Metrics
}

func (a *CalendarAvailability) ViewForDate(ctx context.Context, date time.Time) (scheduling.AvailabilityView, error) {
	window := a.WorkDay.OnDate(date)

	started := time.Now()
	raw, err := a.Calendar.FetchBusyIntervals(ctx, window.Start, window.End)
	if a.Metrics != nil {
		a.Metrics.CalendarFetchDuration.Observe(time.Since(started).Seconds())
	}
	if err != nil {
		return scheduling.AvailabilityView{}, err
	}
	return scheduling.BuildAvailabilityView(raw, window.Start, window.End), nil
}
