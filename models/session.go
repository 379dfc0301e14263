package models

import "time"

// ConversationState enumerates the negotiation phases.
type ConversationState string

const (
	StateCollectingInfo      ConversationState = "collecting_info"
	StateSearchingSlots      ConversationState = "searching_slots"
	StateAwaitingSlotConfirm ConversationState = "awaiting_slot_confirmation"
	StateAwaitingClarify     ConversationState = "awaiting_clarification"
	StateConfirmed           ConversationState = "confirmed"
	StateAbandoned           ConversationState = "abandoned"
)

// Terminal reports whether the session is finished.
func (s ConversationState) Terminal() bool {
	return s == StateConfirmed || s == StateAbandoned
}

// NegotiationSession holds one user's negotiation between turns. One session
// per active negotiation; never shared across sessions, so no locking.
type NegotiationSession struct {
	ID     string `json:"sessionId"`
	UserID string `json:"userId"`

	State   ConversationState `json:"state"`
	Request *MeetingRequest   `json:"request"`

	// Presented holds the candidates last offered, in the order spoken.
	Presented []CandidateSlot `json:"presented,omitempty"`
	// SearchAttempts counts re-searches after the user rejected a batch;
	// the second attempt forces flexible cross-day search.
	SearchAttempts int `json:"searchAttempts"`
	// ForcedFlexible is set when a rejection overrode a rigid request.
	ForcedFlexible bool `json:"forcedFlexible,omitempty"`
	// BadTurns counts consecutive unusable turns; beyond the configured
	// maximum the accumulator is reset rather than the session abandoned.
	BadTurns int `json:"badTurns"`

	BookedEventID string `json:"bookedEventId,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}
