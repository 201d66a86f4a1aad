package prompt

import (
	"strings"
	"testing"
)

func TestBuildContinuationPrompt(t *testing.T) {
	builder := NewPromptBuilder()

	got, err := builder.BuildContinuationPrompt(ContinuationContext{
		Key:           "C major",
		BPM:           "96",
		TimeSignature: "3/4",
		LastOffset:    "24.0",
		RightHand:     `[{"type":"note","pitch":"E5","offset":23.0,"quarterLength":1.0,"velocity":80}]`,
		MinBars:       4,
		MaxBars:       8,
	})
	if err != nil {
		t.Fatalf("BuildContinuationPrompt() returned error: %v", err)
	}

	for _, want := range []string{
		"- Key: C major",
		"- Tempo (BPM): 96",
		"- Time signature: 3/4",
		"- Last offset (end of the piece, in quarter lengths): 24.0",
		`"pitch":"E5"`,
		"Write 4 to 8 bars",
		"DO NOT END ON THE TONIC",
		`"right_hand" and "left_hand"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// missing left hand renders as an empty list
	if !strings.Contains(got, "```json\n[]\n```") {
		t.Error("empty left hand was not rendered as []")
	}
}

func TestBuildContinuationPrompt_FixedBarCount(t *testing.T) {
	builder := NewPromptBuilder()

	got, err := builder.BuildContinuationPrompt(ContinuationContext{MinBars: 6, MaxBars: 2})
	if err != nil {
		t.Fatalf("BuildContinuationPrompt() returned error: %v", err)
	}
	if !strings.Contains(got, "Write 6 bars") {
		t.Error("expected a fixed bar count when MaxBars < MinBars")
	}
}

func TestSystemPrompt(t *testing.T) {
	builder := NewPromptBuilder()
	got, err := builder.SystemPrompt()
	if err != nil {
		t.Fatalf("SystemPrompt() returned error: %v", err)
	}
	if !strings.Contains(got, "JSON") {
		t.Error("system prompt should ask for JSON")
	}
}
