// File: services/extraction/gemini.go
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"meetsync/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const extractionSystemPrompt = `You are a scheduling assistant that extracts meeting info from natural language.
Return ONLY JSON with:
- duration_minutes (int or null)
- preferred_date (YYYY-MM-DD or null)
- time_range (object with start_hour and end_hour as numbers, or null)
- urgency ("high", "normal", "low", or null)
- flexibility ("flexible" or "rigid", or null)
- meeting_type (short tag like "call" or "in-person", or null)
- confidences (object mapping each returned field name to a number in [0,1])
- clarifying_question (string, only when the input is too ambiguous to extract)`

// GeminiExtractor implements Extractor against the Gemini API.
type GeminiExtractor struct {
	model *genai.GenerativeModel
	loc   *time.Location
	now   func() time.Time
}

func NewGeminiExtractor(apiKey string, loc *time.Location) (*GeminiExtractor, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel("models/gemini-1.5-flash")
	return &GeminiExtractor{model: model, loc: loc, now: time.Now}, nil
}

func (g *GeminiExtractor) Extract(ctx context.Context, utterance string, req *models.MeetingRequest, state models.ConversationState) (Result, error) {
	reqJSON, _ := json.Marshal(req)
	today := g.now().In(g.loc)

	prompt := fmt.Sprintf("%s\n\nUser input: %q\nToday's date: %s\nConversation state: %s\nCurrent request: %s\n",
		extractionSystemPrompt, utterance, today.Format("2006-01-02"), state, reqJSON)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Result{}, fmt.Errorf("gemini generate error: %w", err)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if textPart, ok := part.(genai.Text); ok {
				sb.WriteString(string(textPart))
			}
		}
	}
	if sb.Len() == 0 {
		return Result{}, fmt.Errorf("gemini returned no usable content")
	}

	return parseExtraction(sb.String(), g.loc)
}

// payload mirrors the JSON contract above. Unknown keys are tolerated and
// forwarded so merge can log-and-ignore them.
type payload struct {
	DurationMinutes *float64 `json:"duration_minutes"`
	PreferredDate   *string  `json:"preferred_date"`
	TimeRange       *struct {
		StartHour float64 `json:"start_hour"`
		EndHour   float64 `json:"end_hour"`
	} `json:"time_range"`
	Urgency            *string            `json:"urgency"`
	Flexibility        *string            `json:"flexibility"`
	MeetingType        *string            `json:"meeting_type"`
	Confidences        map[string]float64 `json:"confidences"`
	ClarifyingQuestion string             `json:"clarifying_question"`
}

// defaultConfidence is assumed when the model omits a field's confidence.
const defaultConfidence = 0.9

func parseExtraction(content string, loc *time.Location) (Result, error) {
	cleaned := stripCodeFences(content)

	var p payload
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return Result{}, fmt.Errorf("unparseable extraction output: %w", err)
	}

	conf := func(field string) float64 {
		if c, ok := p.Confidences[field]; ok {
			return c
		}
		return defaultConfidence
	}

	var res Result
	res.Clarification = p.ClarifyingQuestion

	if p.DurationMinutes != nil {
		res.Updates = append(res.Updates, FieldUpdate{
			Name: models.FieldDuration, Value: int(*p.DurationMinutes), Confidence: conf(models.FieldDuration),
		})
	}
	if p.PreferredDate != nil {
		if d, err := time.ParseInLocation("2006-01-02", *p.PreferredDate, loc); err == nil {
			res.Updates = append(res.Updates, FieldUpdate{
				Name: models.FieldDate, Value: d, Confidence: conf(models.FieldDate),
			})
		}
	}
	if p.TimeRange != nil {
		tr := models.TimeRange{
			StartMin: int(p.TimeRange.StartHour * 60),
			EndMin:   int(p.TimeRange.EndHour * 60),
		}
		if tr.Valid() {
			res.Updates = append(res.Updates, FieldUpdate{
				Name: models.FieldTimeRange, Value: tr, Confidence: conf(models.FieldTimeRange),
			})
		}
	}
	if p.Urgency != nil {
		res.Updates = append(res.Updates, FieldUpdate{
			Name: models.FieldUrgency, Value: *p.Urgency, Confidence: conf(models.FieldUrgency),
		})
	}
	if p.Flexibility != nil {
		res.Updates = append(res.Updates, FieldUpdate{
			Name: models.FieldFlexibility, Value: *p.Flexibility, Confidence: conf(models.FieldFlexibility),
		})
	}
	if p.MeetingType != nil {
		res.Updates = append(res.Updates, FieldUpdate{
			Name: models.FieldMeetingType, Value: *p.MeetingType, Confidence: conf(models.FieldMeetingType),
		})
	}

	// Forward unknown keys so drift in the model output surfaces in logs
	// instead of breaking the turn.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err == nil {
		for key, val := range raw {
			switch key {
			case models.FieldDuration, models.FieldDate, models.FieldTimeRange,
				models.FieldUrgency, models.FieldFlexibility, models.FieldMeetingType,
				"confidences", "clarifying_question":
			default:
				res.Updates = append(res.Updates, FieldUpdate{Name: key, Value: string(val), Confidence: conf(key)})
			}
		}
	}

	return res, nil
}

// stripCodeFences removes a markdown ```json wrapper the model often adds.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
