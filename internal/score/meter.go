package score

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrTooFewOnsets is returned by the estimators when there is not enough
// rhythmic material to judge.
var ErrTooFewOnsets = errors.New("score: not enough onsets to estimate")

// Meter is a time signature such as 3/4.
type Meter struct {
	Numerator   int
	Denominator int
}

// CommonTime is 4/4.
var CommonTime = Meter{Numerator: 4, Denominator: 4}

// ParseMeter parses "n/d".
func ParseMeter(s string) (Meter, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Meter{}, fmt.Errorf("invalid meter %q", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return Meter{}, fmt.Errorf("invalid meter numerator %q: %w", s, err)
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil {
		return Meter{}, fmt.Errorf("invalid meter denominator %q: %w", s, err)
	}
	m := Meter{Numerator: n, Denominator: d}
	if !m.Valid() {
		return Meter{}, fmt.Errorf("invalid meter %q", s)
	}
	return m, nil
}

// String returns "n/d".
func (m Meter) String() string {
	return fmt.Sprintf("%d/%d", m.Numerator, m.Denominator)
}

// Valid reports whether both terms are positive.
func (m Meter) Valid() bool {
	return m.Numerator > 0 && m.Denominator > 0
}

// BarLength is the length of one bar in quarter-lengths.
func (m Meter) BarLength() float64 {
	if !m.Valid() {
		return 0
	}
	return 4 * float64(m.Numerator) / float64(m.Denominator)
}

// Simplify reduces a meter with a term above 8 by the greatest common
// divisor of its terms (12/16 becomes 3/4). Meters with both terms at most 8,
// and meters whose terms are coprime, are returned unchanged.
func (m Meter) Simplify() Meter {
	if m.Numerator <= 8 && m.Denominator <= 8 {
		return m
	}
	g := gcd(m.Numerator, m.Denominator)
	if g <= 1 {
		return m
	}
	return Meter{Numerator: m.Numerator / g, Denominator: m.Denominator / g}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

type meterCandidate struct {
	meter Meter
	beat  float64 // beat unit in quarter-lengths
}

// Candidates in order of preference; a later one must score strictly higher.
var meterCandidates = []meterCandidate{
	{Meter{4, 4}, 1},
	{Meter{3, 4}, 1},
	{Meter{6, 8}, 1.5},
	{Meter{2, 4}, 1},
	{Meter{5, 4}, 1},
	{Meter{7, 8}, 0.5},
	{Meter{9, 8}, 1.5},
}

const minOnsetsForMeter = 4

// BestTimeSignature estimates the meter from where long notes fall. Each
// candidate is scored per bar: duration starting on the downbeat, minus the
// mean duration starting on each other beat, minus duration starting off
// the beat grid.
func (s *Score) BestTimeSignature() (Meter, error) {
	notes := s.Notes()
	onsets := make(map[float64]bool)
	for _, n := range notes {
		onsets[n.Offset()] = true
	}
	if len(onsets) < minOnsetsForMeter {
		return Meter{}, ErrTooFewOnsets
	}

	highest := s.HighestTime()
	best := Meter{}
	bestScore := 0.0
	for _, c := range meterCandidates {
		barLen := c.meter.BarLength()
		if highest < 2*barLen-epsilon {
			continue
		}
		beatsPerBar := int(barLen/c.beat + epsilon)
		bars := int(highest/barLen + 1 - epsilon)

		var down, other, offGrid float64
		for _, n := range notes {
			pos := modulo(n.Offset(), barLen)
			switch {
			case nearZero(pos) || nearZero(pos-barLen):
				down += n.Duration()
			case nearInteger(pos / c.beat):
				other += n.Duration()
			default:
				offGrid += n.Duration()
			}
		}

		score := (down - offGrid) / float64(bars)
		if beatsPerBar > 1 {
			score -= other / float64(bars*(beatsPerBar-1))
		}
		if !best.Valid() || score > bestScore+epsilon {
			best, bestScore = c.meter, score
		}
	}

	if !best.Valid() {
		return Meter{}, fmt.Errorf("%w: fewer than two bars of material", ErrTooFewOnsets)
	}
	return best, nil
}
