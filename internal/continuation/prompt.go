package continuation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/Conceptual-Machines/midi-insight-api/internal/analysis"
	"github.com/Conceptual-Machines/midi-insight-api/internal/prompt"
	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
)

var promptBuilder = prompt.NewPromptBuilder()

// TempoAndMeter reads the tempo and effective meter back from an analysis,
// falling back to 120 BPM and 4/4 when either is a sentinel.
func TempoAndMeter(res *analysis.Result) (int, score.Meter) {
	bpm := int(score.DefaultBPM)
	meter := score.CommonTime
	if res == nil {
		return bpm, meter
	}
	if v, ok := res.BPM.Value(); ok && v > 0 {
		bpm = v
	}
	if m, err := score.ParseMeter(res.TimeSignature); err == nil {
		meter = m
	}
	return bpm, meter
}

// RequestedBars converts a length in seconds into a bar count at the given
// tempo and meter, clamped to [minBars, maxBars].
func RequestedBars(lengthSeconds float64, bpm int, m score.Meter, minBars, maxBars int) int {
	if bpm <= 0 || !m.Valid() {
		return minBars
	}
	secondsPerBar := 60 / float64(bpm) * float64(m.Numerator) * 4 / float64(m.Denominator)
	bars := int(math.Ceil(lengthSeconds/secondsPerBar - 1e-9))
	return clamp(bars, minBars, maxBars)
}

// BuildPrompt renders the system and user prompts for one continuation.
func BuildPrompt(res *analysis.Result, right, left []EventJSON, p Params) (system, user string, err error) {
	system, err = promptBuilder.SystemPrompt()
	if err != nil {
		return "", "", err
	}

	rightJSON, err := encodeHand(right)
	if err != nil {
		return "", "", err
	}
	leftJSON, err := encodeHand(left)
	if err != nil {
		return "", "", err
	}

	bpm, meter := TempoAndMeter(res)
	bars := RequestedBars(p.LengthSeconds, bpm, meter, DefaultMinBars, DefaultMaxBars)

	key := analysis.Unknown
	lastOffset := 0.0
	if res != nil {
		key = res.Key
		lastOffset = res.LastOffset
	}

	user, err = promptBuilder.BuildContinuationPrompt(prompt.ContinuationContext{
		Key:           key,
		BPM:           strconv.Itoa(bpm),
		TimeSignature: meter.String(),
		LastOffset:    strconv.FormatFloat(lastOffset, 'f', -1, 64),
		RightHand:     rightJSON,
		LeftHand:      leftJSON,
		MinBars:       bars,
		MaxBars:       bars,
	})
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func encodeHand(events []EventJSON) (string, error) {
	if events == nil {
		events = []EventJSON{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode primer: %w", err)
	}
	return string(data), nil
}
