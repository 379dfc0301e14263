package models

// TurnRequest is the payload coming into /api/assistant/session/:id/turn.
type TurnRequest struct {
	Text string `json:"text"` // user's utterance (voice→text or typed)
}

// TurnAction is a single selectable option returned with a turn reply.
type TurnAction struct {
	Label string   `json:"label"`          // text spoken/shown for the option
	Index int      `json:"index"`          // 1-based option number
	Score float64  `json:"score"`          // ranking score, for the client UI
	Tags  []string `json:"tags,omitempty"` // rationale tags, for transparency
}

// TurnResponse is what the assistant returns for one processed turn.
type TurnResponse struct {
	SessionID string            `json:"sessionId"`
	State     ConversationState `json:"state"`
	Reply     string            `json:"reply"`
	Actions   []TurnAction      `json:"actions,omitempty"`
	BookingID string            `json:"bookingId,omitempty"`
}

// ReminderPayload is carried by the meeting-reminder task.
type ReminderPayload struct {
	BookingID string       `json:"bookingId"`
	UserID    string       `json:"userId"`
	Title     string       `json:"title"`
	Interval  TimeInterval `json:"interval"`
}
