package llm

const (
	// Velocity constraints
	velocityMin     = 0
	velocityMax     = 127
	velocityDefault = 80

	// Duration constraints, in quarter lengths
	quarterLengthMin = 0

	ContinuationSchemaName        = "midi_continuation"
	continuationSchemaDescription = "Right-hand and left-hand event lists continuing a piece"
)

// GetContinuationEventSchema returns the JSON schema of one hand-off event
// (note, chord or rest).
func GetContinuationEventSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type":          map[string]any{"type": "string", "enum": []string{"note", "chord", "rest"}},
			"pitch":         map[string]any{"type": "string", "description": "Note name with octave, e.g. C#4 or E-5"},
			"pitches":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"offset":        map[string]any{"type": "number", "minimum": 0},
			"quarterLength": map[string]any{"type": "number", "minimum": quarterLengthMin},
			"velocity":      map[string]any{"type": "integer", "minimum": velocityMin, "maximum": velocityMax, "default": velocityDefault},
		},
		"required": []string{"type", "offset", "quarterLength"},
	}
}

// GetContinuationOutputSchema returns the JSON schema for a continuation:
// {"right_hand": [...], "left_hand": [...]}
func GetContinuationOutputSchema() map[string]any {
	hand := map[string]any{
		"type":  "array",
		"items": GetContinuationEventSchema(),
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"right_hand": hand,
			"left_hand":  hand,
		},
		"required":             []string{"right_hand", "left_hand"},
		"additionalProperties": false,
	}
}

// ContinuationOutputSchema wraps the continuation schema for a GenerationRequest.
func ContinuationOutputSchema() *OutputSchema {
	return &OutputSchema{
		Name:        ContinuationSchemaName,
		Description: continuationSchemaDescription,
		Schema:      GetContinuationOutputSchema(),
	}
}
