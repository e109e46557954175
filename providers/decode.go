package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mat-labs/insight-engine/internal/schema"
)

// Prompt templates shared by the hosted generators (OpenAI, Bedrock). The
// model is instructed to answer with a single JSON object matching the
// stored-insight contract; decodeInsight enforces it.

const insightSystemPrompt = `You are a sports performance analyst for competitive wrestling.
Analyze the chart data you are given and respond with a single JSON object, no prose, with this shape:
{"summary": string, "patterns": [string], "recommendations": [{"text": string, "priority": "high"|"medium"|"low"}], "anomalies": [{"label": string, "date": "YYYY-MM-DD", "value": number}], "warnings": [string], "confidence": number between 0 and 1}
Write summary, patterns, recommendations and warnings in the locale you are given. The athlete is identified only by an opaque id; never invent personal details.`

const programSystemPrompt = `You are a strength and conditioning coach for competitive wrestling.
Design a one-day training program for the goal and date you are given and respond with a single JSON object, no prose, with this shape:
{"date": "YYYY-MM-DD", "title": string, "focus": string, "blocks": [{"name": string, "sets": number, "reps": string}], "nutrition": string, "recovery": string, "recommendations": [string]}`

// insightUserPrompt renders the sanitized request as the user turn.
func insightUserPrompt(req InsightRequest) (string, error) {
	payload := map[string]any{
		"wrestler_id": req.WrestlerID,
		"chart_id":    req.ChartID,
		"chart_data":  req.ChartData,
		"locale":      req.Locale,
	}
	if req.Section != "" {
		payload["section"] = req.Section
	}
	if req.Context != nil {
		payload["context"] = req.Context
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrMalformedOutput, err)
	}
	return string(b), nil
}

func programUserPrompt(req ProgramRequest) string {
	return fmt.Sprintf(`{"goal": %q, "target_date": %q, "locale": %q}`, req.Goal, req.TargetDate, req.Locale)
}

// decodeInsight turns raw model output into a validated Insight. The
// payload is schema-checked before decoding so a malformed response can
// never reach the cache.
func decodeInsight(text string) (*Insight, error) {
	raw := []byte(stripFences(text))
	if err := schema.ValidateInsight(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	var ins Insight
	if err := json.Unmarshal(raw, &ins); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := ins.Validate(); err != nil {
		return nil, err
	}
	return &ins, nil
}

// decodeProgram turns raw model output into a validated TrainingProgram.
func decodeProgram(text string) (*TrainingProgram, error) {
	raw := []byte(stripFences(text))
	if err := schema.ValidateProgram(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	var prog TrainingProgram
	if err := json.Unmarshal(raw, &prog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	return &prog, nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
