package analysis

import (
	"fmt"
	"strings"
)

// narrate writes one sentence per field that carries a real value, in stage
// order. Sentinel fields are skipped.
func (a *Analyzer) narrate(p *pass) string {
	b := a.book
	res := p.res
	var sentences []string

	if bpm, ok := res.BPM.Value(); ok {
		sentences = append(sentences, fmt.Sprintf(b.Tempo, bpm))
	}

	switch {
	case p.key != nil:
		sentences = append(sentences, fmt.Sprintf(b.Key, res.Key))
	case res.Key == Indefinite:
		sentences = append(sentences, b.KeyIndefinite)
	}

	if !IsSentinel(res.TimeSignature) {
		if p.suspicious {
			sentences = append(sentences, fmt.Sprintf(b.MeterSuspicious, res.DetectedTimeSignature))
		} else {
			sentences = append(sentences, fmt.Sprintf(b.Meter, res.TimeSignature))
		}
	}

	if bars, ok := res.NumBars.Value(); ok {
		if bars == 1 {
			sentences = append(sentences, b.OneBar)
		} else {
			sentences = append(sentences, fmt.Sprintf(b.Bars, bars))
		}
	}

	if !p.noNotes && !IsSentinel(res.MelodicRange) {
		sentences = append(sentences, fmt.Sprintf(b.Range, strings.ToLower(res.MelodicRange)))
	}

	if label, ok := b.Complexities[res.ChordComplexity]; ok {
		sentences = append(sentences, fmt.Sprintf(b.Complexity, label))
	}
	if !IsSentinel(res.HarmonicProgressionPreview) {
		sentences = append(sentences, fmt.Sprintf(b.Preview, res.HarmonicProgressionPreview))
	}

	if label, ok := b.Densities[res.RhythmicDensity]; ok {
		sentences = append(sentences, fmt.Sprintf(b.Density, label))
	}

	if !p.noPattern && !IsSentinel(res.RhythmicPatternSummary) {
		sentences = append(sentences, fmt.Sprintf(b.Pattern, res.RhythmicPatternSummary))
	}

	if !IsSentinel(res.FinalChordAnalysis) {
		sentences = append(sentences, res.FinalChordAnalysis)
	}
	if !IsSentinel(res.FinalMelodyAnalysis) {
		sentences = append(sentences, res.FinalMelodyAnalysis)
	}

	if len(sentences) == 0 {
		return b.NoInformation
	}
	return strings.Join(sentences, " ")
}
