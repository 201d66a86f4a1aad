package score

import (
	"math"
	"sort"
)

const (
	minEstimatedBPM = 30
	maxEstimatedBPM = 280
)

// EstimateTempo guesses a tempo from the most common gap between distinct
// onsets. The gap is folded into half a beat to two beats and read against
// the MIDI default tempo. The estimate is clamped to [30, 280].
func (s *Score) EstimateTempo() (float64, error) {
	var onsets []float64
	seen := make(map[float64]bool)
	for _, n := range s.Notes() {
		key := roundTo(n.Offset(), 1e6)
		if !seen[key] {
			seen[key] = true
			onsets = append(onsets, key)
		}
	}
	if len(onsets) < 2 {
		return 0, ErrTooFewOnsets
	}
	sort.Float64s(onsets)

	gaps := make([]float64, 0, len(onsets)-1)
	for i := 1; i < len(onsets); i++ {
		gaps = append(gaps, roundTo(onsets[i]-onsets[i-1], 1e6))
	}

	ioi := Mode(gaps)
	for ioi < 0.5 {
		ioi *= 2
	}
	for ioi > 2 {
		ioi /= 2
	}

	bpm := DefaultBPM / ioi
	return math.Max(minEstimatedBPM, math.Min(maxEstimatedBPM, bpm)), nil
}

// Mode returns the most frequent value; ties go to the value seen first.
// Values are compared exactly, so callers round first. Mode of an empty
// slice is 0.
func Mode(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	counts := make(map[float64]int, len(values))
	best, bestCount := values[0], 0
	for _, v := range values {
		counts[v]++
	}
	for _, v := range values {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func roundTo(x, scale float64) float64 {
	return math.Round(x*scale) / scale
}
