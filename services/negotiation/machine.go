// File: services/negotiation/machine.go
package negotiation

import (
	"fmt"
	"time"

	"meetsync/models"
)

// Event is an input to the conversation state machine.
type Event interface{ isEvent() }

// EvFieldsMerged reports the outcome of merging one turn's extraction output.
type EvFieldsMerged struct {
	Missing  []string // unanswered fields in question-priority order
	Complete bool
	Changed  bool // at least one field was applied this turn
	// Clarification is a question queued by a lower-confidence merge or
	// proposed by the extractor itself.
	Clarification string
}

// EvSlotsFound carries ranked candidates out of a search.
type EvSlotsFound struct {
	Candidates []models.CandidateSlot
	Relaxed    bool // the time range was dropped to find these
	Rebooking  bool // search re-run after a booking conflict
}

// EvNoAvailability reports an exhausted search window.
type EvNoAvailability struct {
	From, To   time.Time
	DaysViewed int
}

// EvSlotChosen selects a presented candidate, 1-based.
type EvSlotChosen struct{ Index int }

// EvSlotsRejected means the user turned down every presented candidate.
type EvSlotsRejected struct{}

// EvBookingSucceeded confirms the calendar write.
type EvBookingSucceeded struct {
	BookingID string
	Slot      models.CandidateSlot
}

// EvBookingConflict means the slot was taken between offer and confirmation.
type EvBookingConflict struct{ Slot models.CandidateSlot }

// EvTransient is a provider failure that survived its retry.
type EvTransient struct{}

// EvCancel is an explicit user cancellation.
type EvCancel struct{}

// EvIdleTimeout fires when a session has been silent too long.
type EvIdleTimeout struct{}

func (EvFieldsMerged) isEvent()     {}
func (EvSlotsFound) isEvent()       {}
func (EvNoAvailability) isEvent()   {}
func (EvSlotChosen) isEvent()       {}
func (EvSlotsRejected) isEvent()    {}
func (EvBookingSucceeded) isEvent() {}
func (EvBookingConflict) isEvent()  {}
func (EvTransient) isEvent()        {}
func (EvCancel) isEvent()           {}
func (EvIdleTimeout) isEvent()      {}

// Effect is a side effect the machine wants performed. Effects are returned
// as data, never executed inside the transition, so transitions stay pure
// and independently testable.
type Effect interface{ isEffect() }

// FxSay speaks a line to the user.
type FxSay struct{ Text string }

// FxAsk poses the next clarifying question for a field.
type FxAsk struct {
	Field    string
	Question string
}

// FxSearch runs the slot search against the calendar.
type FxSearch struct {
	// ForceFlexible overrides a rigid request after a full rejection.
	ForceFlexible bool
	Rebooking     bool
}

// FxPresent offers candidates to the user, in score order.
type FxPresent struct {
	Candidates []models.CandidateSlot
	Relaxed    bool
	Rebooking  bool
}

// FxBook writes the chosen slot to the calendar.
type FxBook struct{ Index int }

// FxEnd tears the session down.
type FxEnd struct{ Reason string }

func (FxSay) isEffect()     {}
func (FxAsk) isEffect()     {}
func (FxSearch) isEffect()  {}
func (FxPresent) isEffect() {}
func (FxBook) isEffect()    {}
func (FxEnd) isEffect()     {}

// questionFor maps a missing field to the question the assistant asks.
func questionFor(field string) string {
	switch field {
	case models.FieldDuration:
		return "How long should the meeting be? For example, '30 minutes' or 'an hour'."
	case models.FieldDate:
		return "When would you like to meet? For example, 'tomorrow afternoon' or 'next Tuesday'."
	case models.FieldTimeRange:
		return "What time of day works best, like morning or afternoon?"
	case models.FieldMeetingType:
		return "Is this a call or an in-person meeting?"
	}
	return "Could you tell me more about the meeting?"
}

// Transition is the pure state-transition function: (state, event) into
// (state, effects). It performs no I/O and touches no session fields.
func Transition(state models.ConversationState, ev Event) (models.ConversationState, []Effect) {
	// Cancellation and idle timeout end any non-terminal state.
	switch ev.(type) {
	case EvCancel:
		if state.Terminal() {
			return state, nil
		}
		return models.StateAbandoned, []Effect{
			FxSay{Text: "Okay, I've cancelled that. Goodbye!"},
			FxEnd{Reason: "cancelled"},
		}
	case EvIdleTimeout:
		if state.Terminal() {
			return state, nil
		}
		return models.StateAbandoned, []Effect{FxEnd{Reason: "idle_timeout"}}
	}

	switch state {
	case models.StateCollectingInfo, models.StateAwaitingClarify, models.StateSearchingSlots:
		if m, ok := ev.(EvFieldsMerged); ok {
			return onFieldsMerged(m)
		}

	case models.StateAwaitingSlotConfirm:
		switch e := ev.(type) {
		case EvSlotChosen:
			return models.StateAwaitingSlotConfirm, []Effect{FxBook{Index: e.Index}}
		case EvBookingSucceeded:
			return models.StateConfirmed, []Effect{
				FxSay{Text: fmt.Sprintf("Great, your meeting is booked for %s.", e.Slot.Label())},
				FxEnd{Reason: "confirmed"},
			}
		case EvBookingConflict:
			return models.StateSearchingSlots, []Effect{
				FxSay{Text: "That slot just got taken, let me find you updated options."},
				FxSearch{Rebooking: true},
			}
		case EvTransient:
			// Keep the offered options live; the user can confirm again.
			return models.StateAwaitingSlotConfirm, []Effect{
				FxSay{Text: "I'm having trouble reaching the calendar right now. Please try confirming again shortly."},
			}
		case EvSlotsRejected:
			// One retry with cross-day search forced on, even for a
			// request that arrived rigid.
			return models.StateSearchingSlots, []Effect{
				FxSay{Text: "No problem, let me look further afield."},
				FxSearch{ForceFlexible: true},
			}
		case EvFieldsMerged:
			if e.Changed {
				return onFieldsMerged(e)
			}
			return models.StateAwaitingSlotConfirm, []Effect{
				FxSay{Text: "Which option works for you? Say something like 'option 1' or 'the second one'."},
			}
		}
	}

	// Search outcomes can surface from any searching entry point.
	switch e := ev.(type) {
	case EvSlotsFound:
		return models.StateAwaitingSlotConfirm, []Effect{
			FxPresent{Candidates: e.Candidates, Relaxed: e.Relaxed, Rebooking: e.Rebooking},
		}
	case EvNoAvailability:
		return models.StateAwaitingClarify, []Effect{
			FxSay{Text: fmt.Sprintf(
				"I couldn't find any openings between %s and %s. Want to try a shorter meeting, another date, or give me more flexibility?",
				e.From.Format("January 2"), e.To.Format("January 2"))},
		}
	case EvTransient:
		return models.StateSearchingSlots, []Effect{
			FxSay{Text: "I'm having trouble reaching the calendar right now. Please try again shortly."},
		}
	}

	return state, []Effect{FxSay{Text: "I'm not sure how to help with that. Could you try again?"}}
}

func onFieldsMerged(m EvFieldsMerged) (models.ConversationState, []Effect) {
	// A pending ambiguity blocks the search even when the request is
	// otherwise complete; booking on a doubted value wastes everyone's time.
	if m.Clarification != "" {
		return models.StateAwaitingClarify, []Effect{FxSay{Text: m.Clarification}}
	}
	if m.Complete {
		return models.StateSearchingSlots, []Effect{FxSearch{}}
	}
	if len(m.Missing) > 0 {
		field := m.Missing[0]
		return models.StateCollectingInfo, []Effect{FxAsk{Field: field, Question: questionFor(field)}}
	}
	return models.StateCollectingInfo, []Effect{
		FxAsk{Field: "", Question: "What would you like to schedule?"},
	}
}
