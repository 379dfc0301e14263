package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TurnsProcessed        *prometheus.CounterVec
	BookingsConfirmed     prometheus.Counter
	BookingConflicts      prometheus.Counter
	ConflictsResolved     *prometheus.CounterVec
	NoAvailability        prometheus.Counter
	SessionsAbandoned     prometheus.Counter
	ActiveSessions        prometheus.Gauge
	CalendarFetchDuration prometheus.Histogram
	ExtractionDuration    prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		TurnsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_turns_processed_total",
			Help: "Total number of conversation turns processed, by resulting state",
		}, []string{"state"}),
		BookingsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_bookings_confirmed_total",
			Help: "Total number of meetings booked",
		}),
		BookingConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_booking_conflicts_total",
			Help: "Total number of bookings rejected because the slot was taken",
		}),
		ConflictsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_conflicts_resolved_total",
			Help: "Total number of searches rescued by the conflict resolver, by strategy",
		}, []string{"strategy"}),
		NoAvailability: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_no_availability_total",
			Help: "Total number of searches that exhausted the horizon",
		}),
		SessionsAbandoned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_sessions_abandoned_total",
			Help: "Total number of sessions abandoned by cancellation or idle timeout",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "assistant_active_sessions",
			Help: "Current number of active negotiation sessions",
		}),
		CalendarFetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "assistant_calendar_fetch_duration_seconds",
			Help:    "Time taken to fetch busy intervals from the calendar provider",
			Buckets: prometheus.DefBuckets,
		}),
		ExtractionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "assistant_extraction_duration_seconds",
			Help:    "Time taken by the field-extraction model",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
