package models

import (
	"fmt"
	"strings"
	"time"
)

// Urgency of the requested meeting.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// ParseUrgency maps free-form extraction output onto the enum.
func ParseUrgency(s string) (Urgency, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return UrgencyLow, true
	case "normal", "medium":
		return UrgencyNormal, true
	case "high", "urgent":
		return UrgencyHigh, true
	}
	return "", false
}

// Flexibility governs whether the resolver may search other days.
type Flexibility string

const (
	FlexibilityRigid    Flexibility = "rigid"
	FlexibilityFlexible Flexibility = "flexible"
)

// ParseFlexibility maps free-form extraction output onto the enum.
func ParseFlexibility(s string) (Flexibility, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rigid", "fixed":
		return FlexibilityRigid, true
	case "flexible", "somewhat_flexible":
		return FlexibilityFlexible, true
	}
	return "", false
}

// Field identifiers used by the extraction contract.
const (
	FieldDuration    = "duration_minutes"
	FieldDate        = "preferred_date"
	FieldTimeRange   = "time_range"
	FieldUrgency     = "urgency"
	FieldFlexibility = "flexibility"
	FieldMeetingType = "meeting_type"
)

// MergeOutcome is the result of applying one extracted field.
type MergeOutcome string

const (
	MergeApplied MergeOutcome = "applied"
	// MergeQueuedForClarification means a lower-confidence value conflicted
	// with one already held; the field needs a direct question.
	MergeQueuedForClarification MergeOutcome = "queued_for_clarification"
	// MergeIgnored covers below-floor confidence and unknown field names.
	MergeIgnored MergeOutcome = "ignored"
)

// minMergeConfidence is the floor below which extracted values are discarded
// outright rather than queued.
const minMergeConfidence = 0.3

// MeetingRequest accumulates extracted fields across conversation turns.
// Each set field carries the confidence the extractor reported for it.
type MeetingRequest struct {
	DurationMinutes int         `json:"durationMinutes,omitempty"`
	PreferredDate   *time.Time  `json:"preferredDate,omitempty"`
	TimeRange       *TimeRange  `json:"timeRange,omitempty"`
	Urgency         Urgency     `json:"urgency,omitempty"`
	Flexibility     Flexibility `json:"flexibility,omitempty"`
	MeetingType     string      `json:"meetingType,omitempty"`

	Confidence map[string]float64 `json:"confidence,omitempty"`
	// PendingClarifications lists fields whose lower-confidence updates were
	// queued for a disambiguating question, in arrival order.
	PendingClarifications []string `json:"pendingClarifications,omitempty"`
	Frozen                bool     `json:"frozen,omitempty"`
}

// NewMeetingRequest returns an empty accumulator with sensible enum defaults.
func NewMeetingRequest() *MeetingRequest {
	return &MeetingRequest{
		Urgency:     UrgencyNormal,
		Flexibility: FlexibilityFlexible,
		Confidence:  map[string]float64{},
	}
}

// Freeze stops all further merging; used once a booking is confirmed or the
// conversation is abandoned.
func (r *MeetingRequest) Freeze() { r.Frozen = true }

// Merge applies one extracted (field, value, confidence) triple. New values
// with confidence at or above the held one overwrite; lower-confidence values
// are queued for clarification. It never fails: unknown fields and values of
// the wrong shape are ignored.
func (r *MeetingRequest) Merge(field string, value any, confidence float64) MergeOutcome {
	if r.Frozen || value == nil || confidence < minMergeConfidence {
		return MergeIgnored
	}
	if r.Confidence == nil {
		r.Confidence = map[string]float64{}
	}

	switch field {
	case FieldDuration:
		v, ok := asMinutes(value)
		if !ok || v <= 0 {
			return MergeIgnored
		}
		return r.apply(field, confidence, func() { r.DurationMinutes = v })
	case FieldDate:
		v, ok := asDate(value)
		if !ok {
			return MergeIgnored
		}
		return r.apply(field, confidence, func() { r.PreferredDate = &v })
	case FieldTimeRange:
		v, ok := value.(TimeRange)
		if !ok || !v.Valid() {
			return MergeIgnored
		}
		return r.apply(field, confidence, func() { r.TimeRange = &v })
	case FieldUrgency:
		s, _ := value.(string)
		v, ok := ParseUrgency(s)
		if !ok {
			return MergeIgnored
		}
		return r.apply(field, confidence, func() { r.Urgency = v })
	case FieldFlexibility:
		s, _ := value.(string)
		v, ok := ParseFlexibility(s)
		if !ok {
			return MergeIgnored
		}
		return r.apply(field, confidence, func() { r.Flexibility = v })
	case FieldMeetingType:
		s, _ := value.(string)
		s = strings.TrimSpace(strings.ToLower(s))
		if s == "" {
			return MergeIgnored
		}
		return r.apply(field, confidence, func() { r.MeetingType = s })
	}
	return MergeIgnored
}

func (r *MeetingRequest) apply(field string, confidence float64, set func()) MergeOutcome {
	if held, ok := r.Confidence[field]; ok && confidence < held {
		r.queueClarification(field)
		return MergeQueuedForClarification
	}
	set()
	r.Confidence[field] = confidence
	r.clearClarification(field)
	return MergeApplied
}

func (r *MeetingRequest) queueClarification(field string) {
	for _, f := range r.PendingClarifications {
		if f == field {
			return
		}
	}
	r.PendingClarifications = append(r.PendingClarifications, field)
}

func (r *MeetingRequest) clearClarification(field string) {
	out := r.PendingClarifications[:0]
	for _, f := range r.PendingClarifications {
		if f != field {
			out = append(out, f)
		}
	}
	r.PendingClarifications = out
}

func (r *MeetingRequest) confidentlySet(field string, threshold float64) bool {
	c, ok := r.Confidence[field]
	return ok && c >= threshold
}

// IsComplete reports whether the request can be turned into a slot query:
// duration set, and at least one of date / time range held with confidence
// at or above the threshold.
func (r *MeetingRequest) IsComplete(threshold float64) bool {
	if r.DurationMinutes <= 0 || !r.confidentlySet(FieldDuration, threshold) {
		return false
	}
	return (r.PreferredDate != nil && r.confidentlySet(FieldDate, threshold)) ||
		(r.TimeRange != nil && r.confidentlySet(FieldTimeRange, threshold))
}

// MissingRequiredFields returns unanswered fields in question-priority order:
// duration first, then a date or time preference, then meeting type.
func (r *MeetingRequest) MissingRequiredFields(threshold float64) []string {
	var missing []string
	if r.DurationMinutes <= 0 || !r.confidentlySet(FieldDuration, threshold) {
		missing = append(missing, FieldDuration)
	}
	dateOK := r.PreferredDate != nil && r.confidentlySet(FieldDate, threshold)
	rangeOK := r.TimeRange != nil && r.confidentlySet(FieldTimeRange, threshold)
	if !dateOK && !rangeOK {
		missing = append(missing, FieldDate)
	}
	if r.MeetingType == "" {
		missing = append(missing, FieldMeetingType)
	}
	return missing
}

// SlotQuery is the completed request as the ranker consumes it.
type SlotQuery struct {
	Date            time.Time
	DurationMinutes int
	Window          *TimeRange
	Urgency         Urgency
	Flexibility     Flexibility
	MeetingType     string
}

// IncompleteRequestError signals ToQuery was called before the request was
// complete. Raised outside the collecting phase it is a programming error.
type IncompleteRequestError struct {
	Missing []string
}

func (e *IncompleteRequestError) Error() string {
	return fmt.Sprintf("meeting request incomplete, missing: %s", strings.Join(e.Missing, ", "))
}

// ToQuery converts the accumulator into a slot query. When only a time range
// was given, the query targets refDate (today in the engine's timezone).
func (r *MeetingRequest) ToQuery(refDate time.Time, threshold float64) (SlotQuery, error) {
	if !r.IsComplete(threshold) {
		return SlotQuery{}, &IncompleteRequestError{Missing: r.MissingRequiredFields(threshold)}
	}
	date := refDate
	if r.PreferredDate != nil {
		date = *r.PreferredDate
	}
	return SlotQuery{
		Date:            time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
		DurationMinutes: r.DurationMinutes,
		Window:          r.TimeRange,
		Urgency:         r.Urgency,
		Flexibility:     r.Flexibility,
		MeetingType:     r.MeetingType,
	}, nil
}

func asMinutes(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case string:
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
