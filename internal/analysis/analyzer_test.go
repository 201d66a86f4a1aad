package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/midi-insight-api/internal/midifile"
	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
)

func chord(offset, duration float64, pitches ...int) *score.Chord {
	notes := make([]*score.Note, len(pitches))
	for i, p := range pitches {
		notes[i] = score.NewNote(p, offset, duration, 80)
	}
	return score.NewChord(offset, duration, notes...)
}

// progression is I IV V I in C major, one whole-note chord per bar.
func progression() *score.Score {
	return &score.Score{Parts: []*score.Part{score.NewPart("Piano", []score.Event{
		chord(0, 4, 60, 64, 67),
		chord(4, 4, 53, 57, 60),
		chord(8, 4, 55, 59, 62),
		chord(12, 4, 60, 64, 67),
	})}}
}

func melody(marks []score.TimeSignatureMark, pitches ...int) *score.Score {
	events := make([]score.Event, len(pitches))
	for i, p := range pitches {
		events[i] = score.NewNote(p, float64(i), 1, 80)
	}
	return &score.Score{
		Parts:          []*score.Part{score.NewPart("Melody", events)},
		TimeSignatures: marks,
	}
}

func TestAnalyze_Progression(t *testing.T) {
	a := New(DefaultConfig())
	res := a.Analyze(context.Background(), progression())

	bpm, ok := res.BPM.Value()
	require.True(t, ok)
	assert.Equal(t, 60, bpm)
	assert.Equal(t, "C major", res.Key)
	assert.Greater(t, res.KeyConfidence, 0.9)
	assert.Equal(t, None, res.DeclaredKey)
	assert.Equal(t, "4/4", res.TimeSignature)
	assert.Equal(t, "4/4", res.DetectedTimeSignature)
	bars, ok := res.NumBars.Value()
	require.True(t, ok)
	assert.Equal(t, 4, bars)
	assert.Equal(t, "1 octave", res.MelodicRange)
	assert.Equal(t, ComplexitySimple, res.ChordComplexity)
	assert.Equal(t, "I -> IV -> V", res.HarmonicProgressionPreview)
	assert.Equal(t, DensityLow, res.RhythmicDensity)
	assert.Equal(t, "Predominance of whole notes", res.RhythmicPatternSummary)
	assert.Equal(t, 16.0, res.LastOffset)
	assert.Equal(t, "The piece ends on a C major triad, functioning as I.", res.FinalChordAnalysis)
	assert.Equal(t, "The melody ends on G4, the dominant of the key.", res.FinalMelodyAnalysis)
	assert.Empty(t, res.Failures())

	assert.Equal(t,
		"The average tempo is approximately 60 BPM. "+
			"The main key appears to be C major. "+
			"It uses a time signature of 4/4. "+
			"The piece spans 4 bars. "+
			"The melody spans 1 octave. "+
			"The harmonic complexity is simple. "+
			"The initial harmonic progression observed is: I -> IV -> V. "+
			"The rhythmic density is low. "+
			"Predominance of whole notes. "+
			"The piece ends on a C major triad, functioning as I. "+
			"The melody ends on G4, the dominant of the key.",
		res.NarrativeText)
}

func TestAnalyze_Portuguese(t *testing.T) {
	a := New(Config{Locale: "pt-BR"})
	res := a.Analyze(context.Background(), progression())

	assert.Equal(t, "C maior", res.Key)
	assert.Equal(t, "1 Oitava", res.MelodicRange)
	assert.Equal(t, "Predominância de Semibreves", res.RhythmicPatternSummary)
	assert.Contains(t, res.NarrativeText, "O andamento médio é de aproximadamente 60 BPM.")
	assert.Contains(t, res.NarrativeText, "A tonalidade principal parece ser C maior.")
	assert.Contains(t, res.NarrativeText, "A melodia se estende por 1 oitava.")
	assert.Contains(t, res.NarrativeText, "A complexidade harmônica é simples.")
	assert.Contains(t, res.NarrativeText, "a Dominante da tonalidade.")
	// categorical fields stay canonical
	assert.Equal(t, ComplexitySimple, res.ChordComplexity)
	assert.Equal(t, DensityLow, res.RhythmicDensity)
}

func TestAnalyze_TempoMarks(t *testing.T) {
	tests := []struct {
		name     string
		marks    []float64
		expected int
	}{
		{"median of plausible marks", []float64{118, 120, 300}, 119},
		{"single mark", []float64{96}, 96},
		{"median ties to even", []float64{100, 101}, 100},
		{"implausible marks fall back to estimate", []float64{10, 400}, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := progression()
			for i, bpm := range tt.marks {
				s.TempoMarks = append(s.TempoMarks, score.TempoMark{Offset: float64(i), BPM: bpm})
			}
			res := New(DefaultConfig()).Analyze(context.Background(), s)
			bpm, ok := res.BPM.Value()
			require.True(t, ok)
			assert.Equal(t, tt.expected, bpm)
		})
	}
}

func TestAnalyze_TempoDefault(t *testing.T) {
	s := melody(nil, 60)
	res := New(DefaultConfig()).Analyze(context.Background(), s)
	bpm, ok := res.BPM.Value()
	require.True(t, ok)
	assert.Equal(t, 120, bpm)
}

func TestAnalyze_TimeSignature(t *testing.T) {
	tests := []struct {
		name      string
		meter     score.Meter
		effective string
		detected  string
		caveat    bool
	}{
		{"simplified by gcd", score.Meter{Numerator: 12, Denominator: 16}, "3/4", "3/4", false},
		{"coprime terms are kept", score.Meter{Numerator: 9, Denominator: 16}, "9/16", "9/16", false},
		{"small terms untouched", score.Meter{Numerator: 6, Denominator: 8}, "6/8", "6/8", false},
		{"suspicious two-four", score.Meter{Numerator: 2, Denominator: 4}, "4/4", "2/4", true},
		{"suspicious one-four", score.Meter{Numerator: 1, Denominator: 4}, "4/4", "1/4", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := melody([]score.TimeSignatureMark{{Offset: 0, Meter: tt.meter}}, 60, 62, 64, 65, 67, 69, 71, 72)
			res := New(DefaultConfig()).Analyze(context.Background(), s)

			assert.Equal(t, tt.effective, res.TimeSignature)
			assert.Equal(t, tt.detected, res.DetectedTimeSignature)
			if tt.caveat {
				assert.Contains(t, res.NarrativeText,
					"Detected a time signature of "+tt.detected+". The rhythmic structure is probably 3/4 or 4/4.")
			} else {
				assert.Contains(t, res.NarrativeText, "It uses a time signature of "+tt.effective+".")
			}
		})
	}
}

func TestAnalyze_SuspiciousMetersConfigurable(t *testing.T) {
	s := melody([]score.TimeSignatureMark{{Offset: 0, Meter: score.Meter{Numerator: 2, Denominator: 4}}}, 60, 62, 64, 65)
	res := New(Config{SuspiciousMeters: []score.Meter{}}).Analyze(context.Background(), s)
	assert.Equal(t, "2/4", res.TimeSignature)
}

func TestAnalyze_BarsFromDurationUseEffectiveMeter(t *testing.T) {
	// eight quarter notes under a suspicious 2/4 count as two bars of 4/4
	s := melody([]score.TimeSignatureMark{{Offset: 0, Meter: score.Meter{Numerator: 2, Denominator: 4}}}, 60, 62, 64, 65, 67, 69, 71, 72)
	res := New(DefaultConfig()).Analyze(context.Background(), s)
	bars, ok := res.NumBars.Value()
	require.True(t, ok)
	assert.Equal(t, 2, bars)
}

func TestAnalyze_ShortPieceHasOneBar(t *testing.T) {
	s := melody(nil, 60)
	res := New(DefaultConfig()).Analyze(context.Background(), s)
	bars, ok := res.NumBars.Value()
	require.True(t, ok)
	assert.Equal(t, 1, bars)
}

func TestAnalyze_LowKeyConfidence(t *testing.T) {
	s := &score.Score{Parts: []*score.Part{score.NewPart("Piano", []score.Event{
		chord(0, 4, 60, 64, 67),
		chord(4, 4, 66, 70, 73),
	})}}
	res := New(DefaultConfig()).Analyze(context.Background(), s)

	assert.Equal(t, Indefinite, res.Key)
	assert.Less(t, res.KeyConfidence, DefaultKeyConfidenceThreshold)
	assert.Equal(t, "C major triad -> F♯ major triad", res.HarmonicProgressionPreview)
	assert.Contains(t, res.NarrativeText, "The main key could not be determined with confidence.")
	assert.NotContains(t, res.NarrativeText, "The main key appears")
	assert.Equal(t, "The melody ends on C♯5.", res.FinalMelodyAnalysis)
}

func TestAnalyze_ThresholdIsConfigurable(t *testing.T) {
	s := &score.Score{Parts: []*score.Part{score.NewPart("Piano", []score.Event{
		chord(0, 4, 60, 64, 67),
		chord(4, 4, 66, 70, 73),
	})}}
	res := New(Config{KeyConfidenceThreshold: 0.1}).Analyze(context.Background(), s)
	assert.NotEqual(t, Indefinite, res.Key)
}

func TestAnalyze_Monophonic(t *testing.T) {
	s := melody(nil, 60, 62, 64, 65, 67)
	res := New(DefaultConfig()).Analyze(context.Background(), s)

	assert.Equal(t, None, res.ChordComplexity)
	assert.Equal(t, Unknown, res.HarmonicProgressionPreview)
	assert.Equal(t, "Predominance of quarter notes", res.RhythmicPatternSummary)
	assert.Equal(t, "The piece ends on a single G4.", res.FinalChordAnalysis)
	assert.NotContains(t, res.NarrativeText, "harmonic complexity")
	assert.NotContains(t, res.NarrativeText, "progression")
}

func TestAnalyze_OctavesAreMinimal(t *testing.T) {
	s := &score.Score{Parts: []*score.Part{score.NewPart("Piano", []score.Event{
		chord(0, 2, 48, 60),
		chord(2, 2, 43, 55),
	})}}
	res := New(DefaultConfig()).Analyze(context.Background(), s)
	assert.Equal(t, ComplexityMinimal, res.ChordComplexity)
}

func TestAnalyze_Empty(t *testing.T) {
	for _, s := range []*score.Score{nil, {}, {Parts: []*score.Part{score.NewPart("empty", nil)}}} {
		res := New(DefaultConfig()).Analyze(context.Background(), s)

		assert.Equal(t, english.Empty, res.NarrativeText)
		assert.Equal(t, Unknown, res.BPM.Sentinel())
		assert.Equal(t, Unknown, res.NumBars.Sentinel())
		assert.Equal(t, Unknown, res.Key)
		assert.Equal(t, Unknown, res.TimeSignature)
		assert.Equal(t, Unknown, res.ChordComplexity)
		require.Len(t, res.Failures(), 1)
		assert.ErrorIs(t, res.Failures()[0], ErrEmptyScore)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := New(DefaultConfig())
	s := progression()
	s.TempoMarks = []score.TempoMark{{Offset: 0, BPM: 92}}

	first, err := json.Marshal(a.Analyze(context.Background(), s))
	require.NoError(t, err)
	second, err := json.Marshal(a.Analyze(context.Background(), s))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
	assert.Len(t, s.TempoMarks, 1)
}

func TestAnalyze_RecoversFromPanickingStage(t *testing.T) {
	a := New(DefaultConfig())
	p := &pass{score: progression(), res: newResult(Unknown)}
	err := a.runStage(context.Background(), p, stage{
		name: "boom",
		run:  func(*pass) error { panic("index out of range") },
	})

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "boom", stageErr.Stage)
	assert.Contains(t, err.Error(), "index out of range")
}

func TestAnalyze_StageFailureLeavesUnknown(t *testing.T) {
	// a rest-only part has no pitches to find a key from
	s := &score.Score{Parts: []*score.Part{score.NewPart("silence", []score.Event{score.NewRest(0, 4)})}}
	res := New(DefaultConfig()).Analyze(context.Background(), s)

	assert.Equal(t, Unknown, res.Key)
	assert.Equal(t, "no notes", res.MelodicRange)
	assert.NotEmpty(t, res.Failures())
	assert.NotContains(t, res.NarrativeText, "key")
	assert.NotContains(t, res.NarrativeText, "melody spans")
}

func TestAnalyzeMIDI(t *testing.T) {
	data, err := midifile.Encode(progression().Parts, 96, score.CommonTime)
	require.NoError(t, err)

	a := New(DefaultConfig())
	res, s, err := a.AnalyzeMIDI(context.Background(), data, midifile.DefaultParseOptions())
	require.NoError(t, err)
	require.NotNil(t, s)

	bpm, _ := res.BPM.Value()
	assert.Equal(t, 96, bpm)
	assert.Equal(t, "C major", res.Key)
	bars, _ := res.NumBars.Value()
	assert.Equal(t, 4, bars)
}

func TestAnalyzeMIDI_ParseFailure(t *testing.T) {
	a := New(DefaultConfig())
	res, s, err := a.AnalyzeMIDI(context.Background(), []byte("definitely not midi"), midifile.DefaultParseOptions())

	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrParseFailure)
	assert.ErrorIs(t, err, midifile.ErrInvalidMIDI)
	assert.Equal(t, Failed, res.BPM.Sentinel())
	assert.Equal(t, Failed, res.Key)
	assert.Equal(t, Failed, res.RhythmicPatternSummary)
	assert.Contains(t, res.NarrativeText, "Error processing the MIDI file:")
}

func TestResult_JSON(t *testing.T) {
	res := New(DefaultConfig()).Analyze(context.Background(), progression())
	data, err := json.Marshal(res)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(60), raw["bpm"])
	assert.Equal(t, float64(4), raw["num_bars"])
	for _, field := range []string{
		"bpm", "key", "time_signature", "num_bars", "melodic_range", "chord_complexity",
		"harmonic_progression_preview", "rhythmic_density", "rhythmic_pattern_summary", "narrative_text",
	} {
		assert.Contains(t, raw, field)
	}

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, res.BPM, decoded.BPM)

	empty, err := json.Marshal(New(DefaultConfig()).Analyze(context.Background(), &score.Score{}))
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"bpm":"unknown"`)
}

func TestAnalyze_RhythmicDensity(t *testing.T) {
	tests := []struct {
		name   string
		perBar int
		want   string
	}{
		{"just below medium", 7, DensityLow},
		{"medium at the lower edge", 8, DensityMedium},
		{"just below high", 19, DensityMedium},
		{"high at the edge", 20, DensityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := make([]score.Event, 2*tt.perBar)
			for i := range events {
				events[i] = score.NewNote(60+i%12, float64(i)*0.25, 0.25, 80)
			}
			part := score.NewPart("Melody", events)
			part.Measures = []score.Measure{{Number: 1}, {Number: 2}}

			res := New(DefaultConfig()).Analyze(context.Background(), &score.Score{Parts: []*score.Part{part}})
			bars, ok := res.NumBars.Value()
			require.True(t, ok)
			require.Equal(t, 2, bars)
			assert.Equal(t, tt.want, res.RhythmicDensity)
		})
	}
}

func TestAnalyze_ChordComplexity(t *testing.T) {
	shapes := [][]int{
		{60, 64, 67},     // major
		{57, 60, 64},     // minor
		{59, 62, 65},     // diminished
		{60, 65, 67},     // sus4
		{55, 59, 62, 65}, // dominant seventh
	}
	tests := []struct {
		name      string
		qualities int
		want      string
	}{
		{"two qualities", 2, ComplexitySimple},
		{"three qualities", 3, ComplexityModerate},
		{"four qualities", 4, ComplexityModerate},
		{"five qualities", 5, ComplexityComplex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []score.Event
			for i, pitches := range shapes[:tt.qualities] {
				events = append(events, chord(float64(4*i), 4, pitches...))
			}
			s := &score.Score{Parts: []*score.Part{score.NewPart("Piano", events)}}
			res := New(DefaultConfig()).Analyze(context.Background(), s)
			assert.Equal(t, tt.want, res.ChordComplexity)
		})
	}
}

func TestAnalyze_HyphenatedQualitiesWithoutKey(t *testing.T) {
	s := &score.Score{Parts: []*score.Part{score.NewPart("Piano", []score.Event{
		chord(0, 4, 60, 65, 67),
		chord(4, 4, 48, 51, 55, 59),
		chord(8, 4, 54, 57, 60, 64),
	})}}
	res := New(Config{KeyConfidenceThreshold: 1.01}).Analyze(context.Background(), s)

	require.Equal(t, Indefinite, res.Key)
	assert.Equal(t,
		"C suspended-fourth triad -> C minor-major seventh chord -> F♯ half-diminished seventh chord",
		res.HarmonicProgressionPreview)
	assert.Equal(t, "The piece ends on a F♯ half-diminished seventh chord.", res.FinalChordAnalysis)
	assert.NotContains(t, res.NarrativeText, "♭")
}

func TestAnalyze_NonFunctionalChordFallsBackToName(t *testing.T) {
	s := &score.Score{Parts: []*score.Part{score.NewPart("Piano", []score.Event{
		chord(0, 4, 60, 64, 67),
		chord(4, 4, 53, 57, 60),
		chord(8, 4, 60, 65, 67),
		chord(12, 4, 55, 59, 62),
		chord(16, 4, 60, 64, 67),
	})}}
	res := New(DefaultConfig()).Analyze(context.Background(), s)

	require.Equal(t, "C major", res.Key)
	assert.Equal(t, "I -> IV -> C suspended-fourth triad -> V", res.HarmonicProgressionPreview)
	assert.Equal(t, ComplexitySimple, res.ChordComplexity)
}

func TestAnalyze_BarsTakeHighestMeasureAcrossParts(t *testing.T) {
	right := score.NewPart("Right", []score.Event{score.NewNote(72, 0, 4, 80)})
	right.Measures = []score.Measure{{Number: 1}, {Number: 2}, {Number: 3}}
	left := score.NewPart("Left", []score.Event{score.NewNote(48, 0, 4, 80)})
	left.Measures = []score.Measure{{Number: 1}, {Number: 2}, {Number: 3}, {Number: 4}, {Number: 5}}

	res := New(DefaultConfig()).Analyze(context.Background(), &score.Score{Parts: []*score.Part{right, left}})
	bars, ok := res.NumBars.Value()
	require.True(t, ok)
	assert.Equal(t, 5, bars)
}

func TestAnalyze_PatternTieGoesToFirstDuration(t *testing.T) {
	s := &score.Score{Parts: []*score.Part{score.NewPart("Melody", []score.Event{
		score.NewNote(60, 0, 1, 80),
		score.NewNote(62, 1, 1, 80),
		score.NewNote(64, 2, 0.5, 80),
		score.NewNote(65, 2.5, 0.5, 80),
	})}}
	res := New(DefaultConfig()).Analyze(context.Background(), s)
	assert.Equal(t, "Predominance of quarter notes", res.RhythmicPatternSummary)
}
