package analysis

import (
	"encoding/json"
	"fmt"
)

// Sentinel values for fields that could not be computed.
const (
	Unknown    = "unknown"
	None       = "none"
	Failed     = "error"
	Indefinite = "indefinite"
)

// Chord complexity categories.
const (
	ComplexityMinimal  = "minimal"
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// Rhythmic density categories.
const (
	DensityLow    = "low"
	DensityMedium = "medium"
	DensityHigh   = "high"
)

// Int is an integer field that is either known or carries a sentinel. It
// serializes as a JSON number when known and as the sentinel string otherwise.
type Int struct {
	value    int
	sentinel string
}

// KnownInt wraps a computed value.
func KnownInt(v int) Int {
	return Int{value: v}
}

// SentinelInt marks a value as unknown, none or error.
func SentinelInt(s string) Int {
	return Int{sentinel: s}
}

// Value returns the integer and whether it is known.
func (i Int) Value() (int, bool) {
	return i.value, i.sentinel == ""
}

// Sentinel returns the sentinel string, or "" when the value is known.
func (i Int) Sentinel() string {
	return i.sentinel
}

func (i Int) String() string {
	if i.sentinel != "" {
		return i.sentinel
	}
	return fmt.Sprintf("%d", i.value)
}

func (i Int) MarshalJSON() ([]byte, error) {
	if i.sentinel != "" {
		return json.Marshal(i.sentinel)
	}
	return json.Marshal(i.value)
}

func (i *Int) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*i = KnownInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("analysis: field is neither integer nor sentinel: %s", data)
	}
	*i = SentinelInt(s)
	return nil
}

// Result is the analysis record for one document. Every field is always
// present; fields that could not be computed hold a sentinel.
type Result struct {
	BPM                        Int    `json:"bpm"`
	Key                        string `json:"key"`
	TimeSignature              string `json:"time_signature"`
	NumBars                    Int    `json:"num_bars"`
	MelodicRange               string `json:"melodic_range"`
	ChordComplexity            string `json:"chord_complexity"`
	HarmonicProgressionPreview string `json:"harmonic_progression_preview"`
	RhythmicDensity            string `json:"rhythmic_density"`
	RhythmicPatternSummary     string `json:"rhythmic_pattern_summary"`
	NarrativeText              string `json:"narrative_text"`

	KeyConfidence         float64 `json:"key_confidence"`
	DeclaredKey           string  `json:"declared_key"`
	DetectedTimeSignature string  `json:"detected_time_signature"`
	LastOffset            float64 `json:"last_offset"`
	FinalChordAnalysis    string  `json:"final_chord_analysis"`
	FinalMelodyAnalysis   string  `json:"final_melody_analysis"`

	failures []error
}

// Failures lists the stages that failed and were recovered from.
func (r *Result) Failures() []error {
	return r.failures
}

func newResult(sentinel string) *Result {
	return &Result{
		BPM:                        SentinelInt(sentinel),
		Key:                        sentinel,
		TimeSignature:              sentinel,
		NumBars:                    SentinelInt(sentinel),
		MelodicRange:               sentinel,
		ChordComplexity:            sentinel,
		HarmonicProgressionPreview: sentinel,
		RhythmicDensity:            sentinel,
		RhythmicPatternSummary:     sentinel,
		DeclaredKey:                sentinel,
		DetectedTimeSignature:      sentinel,
		FinalChordAnalysis:         sentinel,
		FinalMelodyAnalysis:        sentinel,
	}
}

// IsSentinel reports whether s is one of the sentinel strings.
func IsSentinel(s string) bool {
	switch s {
	case Unknown, None, Failed, Indefinite:
		return true
	}
	return false
}
