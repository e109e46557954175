// Package schema validates the JSON emitted by AI generators against the
// stored-insight contract before anything is persisted. A payload that
// fails here is malformed output, never a partial record.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const insightSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["summary", "patterns", "recommendations"],
	"properties": {
		"summary": {"type": "string", "minLength": 1},
		"patterns": {"type": "array", "items": {"type": "string"}},
		"recommendations": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["text", "priority"],
				"properties": {
					"text": {"type": "string", "minLength": 1},
					"priority": {"enum": ["high", "medium", "low"]}
				}
			}
		},
		"anomalies": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["label", "date", "value"],
				"properties": {
					"label": {"type": "string"},
					"date": {"type": "string"},
					"value": {"type": "number"}
				}
			}
		},
		"warnings": {"type": "array", "items": {"type": "string"}},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

const programSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["title", "focus", "blocks"],
	"properties": {
		"date": {"type": "string"},
		"title": {"type": "string", "minLength": 1},
		"focus": {"type": "string"},
		"blocks": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "sets", "reps"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"sets": {"type": "integer", "minimum": 0},
					"reps": {"type": "string"}
				}
			}
		},
		"nutrition": {"type": "string"},
		"recovery": {"type": "string"},
		"recommendations": {"type": "array", "items": {"type": "string"}}
	}
}`

var (
	insightCompiled = jsonschema.MustCompileString("insight.json", insightSchema)
	programCompiled = jsonschema.MustCompileString("program.json", programSchema)
)

// ValidateInsight checks raw JSON against the insight contract.
func ValidateInsight(raw []byte) error {
	return validate(insightCompiled, raw)
}

// ValidateProgram checks raw JSON against the training-program contract.
func ValidateProgram(raw []byte) error {
	return validate(programCompiled, raw)
}

func validate(sch *jsonschema.Schema, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("schema violation: %w", err)
	}
	return nil
}
