package theory

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrNoPitchContent is returned by FindKey when the histogram carries no weight.
var ErrNoPitchContent = errors.New("theory: no pitch content to correlate")

// Mode of a key.
type Mode int

const (
	Major Mode = iota
	Minor
)

func (m Mode) String() string {
	if m == Minor {
		return "minor"
	}
	return "major"
}

// Krumhansl-Kessler probe-tone profiles, tonic first.
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

var (
	majorTonicNames = [12]string{"C", "D-", "D", "E-", "E", "F", "F#", "G", "A-", "A", "B-", "B"}
	minorTonicNames = [12]string{"C", "C#", "D", "E-", "E", "F", "F#", "G", "G#", "A", "B-", "B"}

	majorScale = []int{0, 2, 4, 5, 7, 9, 11}
	minorScale = []int{0, 2, 3, 5, 7, 8, 10}
)

// Key is a tonic and mode, with the correlation that selected it when it
// came from FindKey.
type Key struct {
	Tonic      PitchClass
	Mode       Mode
	Confidence float64
}

// TonicName spells the tonic the way the key is conventionally written.
func (k Key) TonicName() string {
	if k.Mode == Minor {
		return minorTonicNames[PitchClassOf(int(k.Tonic))]
	}
	return majorTonicNames[PitchClassOf(int(k.Tonic))]
}

// String returns e.g. "E♭ major".
func (k Key) String() string {
	return Display(k.TonicName()) + " " + k.Mode.String()
}

// Sharps returns the signature of the key: positive for sharps, negative for flats.
func (k Key) Sharps() int {
	// relative major tonic
	tonic := k.Tonic
	if k.Mode == Minor {
		tonic = tonic.Transpose(3)
	}
	// position on the circle of fifths; the F♯/G♭ tritone follows the tonic spelling
	fifths := (int(tonic) * 7) % 12
	if fifths > 6 || (fifths == 6 && k.Mode == Minor) {
		fifths -= 12
	}
	return fifths
}

// Spelling returns the accidental preference for pitches inside this key.
func (k Key) Spelling() Spelling {
	switch n := k.Sharps(); {
	case n < 0:
		return SpellFlats
	case n > 0:
		return SpellSharps
	default:
		return SpellDefault
	}
}

// ScaleDegree returns the 1-based degree of pc in k. In minor keys both the
// subtonic and the raised leading tone map to degree 7.
func ScaleDegree(pc PitchClass, k Key) (int, bool) {
	interval := k.Tonic.IntervalTo(pc)
	scale := majorScale
	if k.Mode == Minor {
		scale = minorScale
		if interval == 11 {
			return 7, true
		}
	}
	for i, step := range scale {
		if step == interval {
			return i + 1, true
		}
	}
	return 0, false
}

// KeyFromSignature converts a key-signature meta event (sharps count and
// mode flag) into a Key.
func KeyFromSignature(sharps int, minor bool) Key {
	tonic := PitchClassOf(sharps * 7)
	if minor {
		return Key{Tonic: tonic.Transpose(-3), Mode: Minor}
	}
	return Key{Tonic: tonic, Mode: Major}
}

// FindKey correlates a pitch-class weight histogram against the rotated
// major and minor profiles and returns the best-scoring key. Candidates are
// visited tonic C..B, major before minor; a later candidate only wins with a
// strictly greater correlation.
func FindKey(histogram [12]float64) (Key, error) {
	total := 0.0
	for _, w := range histogram {
		total += w
	}
	if total <= 0 {
		return Key{}, ErrNoPitchContent
	}

	x := histogram[:]
	best := Key{Confidence: math.Inf(-1)}
	found := false
	for tonic := 0; tonic < 12; tonic++ {
		for _, mode := range []Mode{Major, Minor} {
			profile := majorProfile
			if mode == Minor {
				profile = minorProfile
			}
			r := stat.Correlation(x, rotateProfile(profile, tonic), nil)
			if math.IsNaN(r) {
				continue
			}
			if r > best.Confidence {
				best = Key{Tonic: PitchClass(tonic), Mode: mode, Confidence: r}
				found = true
			}
		}
	}
	if !found {
		return Key{}, fmt.Errorf("%w: histogram is flat", ErrNoPitchContent)
	}
	return best, nil
}

func rotateProfile(profile []float64, shift int) []float64 {
	rotated := make([]float64, 12)
	for i := range rotated {
		rotated[i] = profile[(i-shift+12)%12]
	}
	return rotated
}
