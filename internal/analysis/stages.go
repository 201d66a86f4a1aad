package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/Conceptual-Machines/midi-insight-api/internal/logger"
	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
	"github.com/Conceptual-Machines/midi-insight-api/internal/theory"
)

func (a *Analyzer) stages() []stage {
	return []stage{
		{"tempo", a.tempoStage},
		{"key", a.keyStage},
		{"time_signature", a.meterStage},
		{"bars", a.barsStage},
		{"melodic_range", a.rangeStage},
		{"harmony", a.harmonyStage},
		{"ending", a.endingStage},
		{"rhythmic_density", a.densityStage},
		{"rhythmic_pattern", a.patternStage},
	}
}

// tempoStage: median of plausible tempo marks, else an estimate from the
// onsets, else the MIDI default.
func (a *Analyzer) tempoStage(p *pass) error {
	var plausible []float64
	for _, m := range p.score.TempoMarks {
		if m.BPM >= minPlausibleBPM && m.BPM <= maxPlausibleBPM {
			plausible = append(plausible, m.BPM)
		}
	}
	if len(plausible) > 0 {
		p.res.BPM = KnownInt(roundHalfEven(median(plausible)))
		return nil
	}

	bpm, err := p.score.EstimateTempo()
	if err != nil {
		logger.Debug("Tempo estimation failed, using default", logger.Fields{"error": err.Error()})
		p.res.BPM = KnownInt(int(score.DefaultBPM))
		return nil
	}
	bpm = math.Max(minPlausibleBPM, math.Min(maxPlausibleBPM, bpm))
	p.res.BPM = KnownInt(roundHalfEven(bpm))
	return nil
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// keyStage: one Krumhansl-Kessler pass; a key below the confidence threshold
// is reported as indefinite and withheld from later stages.
func (a *Analyzer) keyStage(p *pass) error {
	p.res.DeclaredKey = None
	if marks := p.score.KeySignatures; len(marks) > 0 {
		p.res.DeclaredKey = a.book.KeyName(theory.KeyFromSignature(marks[0].Sharps, marks[0].Minor))
	}

	k, err := theory.FindKey(p.score.PitchClassHistogram())
	if err != nil {
		return err
	}
	p.res.KeyConfidence = math.Round(k.Confidence*1e4) / 1e4
	if k.Confidence < a.cfg.KeyConfidenceThreshold {
		p.res.Key = Indefinite
		return nil
	}
	p.key = &k
	p.res.Key = a.book.KeyName(k)
	return nil
}

// meterStage: first explicit signature, else the best-fitting estimate,
// else 4/4; then simplification and the suspicious-meter override.
func (a *Analyzer) meterStage(p *pass) error {
	var m score.Meter
	if marks := p.score.TimeSignatures; len(marks) > 0 {
		m = marks[0].Meter
	} else if est, err := p.score.BestTimeSignature(); err == nil {
		m = est
	} else {
		logger.Debug("Meter estimation failed, assuming 4/4", logger.Fields{"error": err.Error()})
		m = score.CommonTime
	}
	if !m.Valid() {
		return fmt.Errorf("invalid time signature %s", m)
	}

	m = m.Simplify()
	p.res.DetectedTimeSignature = m.String()
	if a.cfg.isSuspicious(m) {
		p.suspicious = true
		m = score.CommonTime
	}
	p.meter = m
	p.res.TimeSignature = m.String()
	return nil
}

// barsStage: highest measure number, else measure count, else total length
// over the effective bar length.
func (a *Analyzer) barsStage(p *pass) error {
	last := 0
	for _, part := range p.score.Parts {
		highest := 0
		for _, m := range part.Measures {
			if m.Number > highest {
				highest = m.Number
			}
		}
		if highest == 0 {
			highest = len(part.Measures)
		}
		if highest > last {
			last = highest
		}
	}
	if last > 0 {
		p.bars = last
		p.res.NumBars = KnownInt(last)
		return nil
	}

	if !p.meter.Valid() {
		return errors.New("no effective time signature")
	}
	total := p.score.HighestTime()
	if total <= 0 {
		return errors.New("document has no duration")
	}
	bars := roundHalfEven(total / p.meter.BarLength())
	if bars < 1 {
		bars = 1
	}
	p.bars = bars
	p.res.NumBars = KnownInt(bars)
	return nil
}

func (a *Analyzer) rangeStage(p *pass) error {
	pitches := p.score.Pitches()
	if len(pitches) == 0 {
		p.noNotes = true
		p.res.MelodicRange = a.book.NoNotes
		return nil
	}
	values := make([]float64, len(pitches))
	for i, pitch := range pitches {
		values[i] = float64(pitch)
	}
	lo, hi := floats.Min(values), floats.Max(values)
	p.res.MelodicRange = a.book.RangeLabel((hi-lo)/12, lo == hi)
	return nil
}

func (a *Analyzer) spelling(p *pass) theory.Spelling {
	if p.key != nil {
		return p.key.Spelling()
	}
	return theory.SpellDefault
}

// harmonyStage: chord complexity from the number of distinct chord
// qualities, and a preview of the first distinct chords.
func (a *Analyzer) harmonyStage(p *pass) error {
	chords := p.score.Chords()
	if len(chords) == 0 {
		p.res.ChordComplexity = None
		return nil
	}

	sp := a.spelling(p)
	qualities := make(map[theory.Quality]bool)
	seen := make(map[string]bool)
	var preview []string
	for _, v := range chords {
		info := theory.IdentifyChord(v.Pitches)
		if info.Quality != "" {
			qualities[info.Quality] = true
		}

		name := info.Name(sp)
		if seen[name] || len(preview) >= previewLength {
			continue
		}
		seen[name] = true
		preview = append(preview, a.chordLabel(p, info, sp))
	}

	switch n := len(qualities); {
	case n == 0:
		p.res.ChordComplexity = ComplexityMinimal
	case n <= 2:
		p.res.ChordComplexity = ComplexitySimple
	case n <= 4:
		p.res.ChordComplexity = ComplexityModerate
	default:
		p.res.ChordComplexity = ComplexityComplex
	}
	p.res.HarmonicProgressionPreview = strings.Join(preview, " -> ")
	return nil
}

// chordLabel is the roman numeral when the key is known and the chord has
// one, otherwise the chord name.
func (a *Analyzer) chordLabel(p *pass, info theory.ChordInfo, sp theory.Spelling) string {
	if p.key != nil {
		if rn, err := theory.RomanNumeral(info, *p.key); err == nil {
			return rn
		}
	}
	return info.DisplayName(sp)
}

// endingStage describes the last sonority and the last melody note.
func (a *Analyzer) endingStage(p *pass) error {
	p.res.LastOffset = p.score.HighestTime()

	verts := p.score.Chordify()
	if len(verts) == 0 {
		p.res.FinalChordAnalysis = None
		p.res.FinalMelodyAnalysis = None
		return nil
	}
	last := verts[len(verts)-1]
	sp := a.spelling(p)

	if last.IsChord() {
		info := theory.IdentifyChord(last.Pitches)
		name := info.DisplayName(sp)
		p.res.FinalChordAnalysis = fmt.Sprintf(a.book.FinalChord, name)
		if p.key != nil {
			if rn, err := theory.RomanNumeral(info, *p.key); err == nil {
				p.res.FinalChordAnalysis = fmt.Sprintf(a.book.FinalChordRoman, name, rn)
			}
		}
	} else {
		p.res.FinalChordAnalysis = fmt.Sprintf(a.book.FinalNote, theory.Display(theory.NameWithOctave(last.Pitches[0], sp)))
	}

	top := last.Pitches[len(last.Pitches)-1]
	note := theory.Display(theory.NameWithOctave(top, sp))
	p.res.FinalMelodyAnalysis = fmt.Sprintf(a.book.FinalMelody, note)
	if p.key != nil {
		if degree, ok := theory.ScaleDegree(theory.PitchClassOf(top), *p.key); ok {
			p.res.FinalMelodyAnalysis = fmt.Sprintf(a.book.FinalMelodyRole, note, a.book.Degrees[degree])
		}
	}
	return nil
}

// densityStage: events per bar.
func (a *Analyzer) densityStage(p *pass) error {
	events := len(p.score.NotesAndRests())
	if events == 0 {
		p.res.RhythmicDensity = None
		return nil
	}
	if p.bars <= 0 {
		return errors.New("bar count unknown")
	}

	perBar := float64(events) / float64(p.bars)
	switch {
	case perBar < lowDensityLimit:
		p.res.RhythmicDensity = DensityLow
	case perBar < mediumDensityLimit:
		p.res.RhythmicDensity = DensityMedium
	default:
		p.res.RhythmicDensity = DensityHigh
	}
	return nil
}

// patternStage names the most frequent note length.
func (a *Analyzer) patternStage(p *pass) error {
	notes := p.score.Notes()
	if len(notes) == 0 {
		p.noPattern = true
		p.res.RhythmicPatternSummary = a.book.NoNotes
		return nil
	}

	durations := make([]float64, len(notes))
	for i, n := range notes {
		durations[i] = math.Round(n.Duration()*1e6) / 1e6
	}
	ql := score.Mode(durations)

	d, err := score.TypeFor(ql)
	if err != nil {
		p.res.RhythmicPatternSummary = a.book.PatternFallback(math.Round(ql*1000) / 1000)
		return nil
	}
	p.res.RhythmicPatternSummary = a.book.PatternSummary(d)
	return nil
}
