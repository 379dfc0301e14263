// File: services/extraction/interface.go
package extraction

import (
	"context"

	"meetsync/models"
)

// FieldUpdate is one extracted field with its reliability score.
type FieldUpdate struct {
	Name       string
	Value      any
	Confidence float64
}

// Result is the extractor's output for one utterance. Any subset of fields
// may be present; callers must never assume a field arrived.
type Result struct {
	Updates []FieldUpdate
	// Clarification is a question the extractor itself proposes when it
	// detects ambiguity it cannot resolve.
	Clarification string
}

// Extractor turns a raw utterance plus conversation context into field
// updates for the meeting request accumulator.
type Extractor interface {
	Extract(ctx context.Context, utterance string, req *models.MeetingRequest, state models.ConversationState) (Result, error)
}
