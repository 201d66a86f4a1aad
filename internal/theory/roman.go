package theory

import (
	"errors"
	"fmt"
)

// ErrNotFunctional is returned for chords that have no roman-numeral reading
// (dyads, suspended triads, clusters and octaves).
var ErrNotFunctional = errors.New("theory: chord has no roman numeral")

type degreeMark struct {
	degree     int
	accidental string
}

var (
	majorDegrees = map[int]degreeMark{
		0: {1, ""}, 1: {2, "♭"}, 2: {2, ""}, 3: {3, "♭"}, 4: {3, ""}, 5: {4, ""},
		6: {4, "♯"}, 7: {5, ""}, 8: {6, "♭"}, 9: {6, ""}, 10: {7, "♭"}, 11: {7, ""},
	}
	minorDegrees = map[int]degreeMark{
		0: {1, ""}, 1: {2, "♭"}, 2: {2, ""}, 3: {3, ""}, 4: {3, "♯"}, 5: {4, ""},
		6: {4, "♯"}, 7: {5, ""}, 8: {6, ""}, 9: {6, "♯"}, 10: {7, ""}, 11: {7, ""},
	}

	numerals = [8]string{"", "I", "II", "III", "IV", "V", "VI", "VII"}
	lower    = [8]string{"", "i", "ii", "iii", "iv", "v", "vi", "vii"}
)

// RomanNumeral returns the functional label of c in key k, e.g. "V7",
// "ii6", "viiø65" or "♭VI".
func RomanNumeral(c ChordInfo, k Key) (string, error) {
	if !c.IsTertian() {
		return "", fmt.Errorf("%w: %s", ErrNotFunctional, c.Name(k.Spelling()))
	}

	degrees := majorDegrees
	if k.Mode == Minor {
		degrees = minorDegrees
	}
	mark := degrees[k.Tonic.IntervalTo(c.Root)]

	numeral := numerals[mark.degree]
	switch c.Quality {
	case MinorTriad, DiminishedTriad, MinorSeventh, HalfDiminishedSeventh,
		DiminishedSeventh, MinorMajorSeventh:
		numeral = lower[mark.degree]
	}

	var quality string
	switch c.Quality {
	case DiminishedTriad, DiminishedSeventh:
		quality = "o"
	case AugmentedTriad, AugmentedSeventh:
		quality = "+"
	case HalfDiminishedSeventh:
		quality = "ø"
	case MajorSeventh, MinorMajorSeventh:
		quality = "maj"
	case AugmentedMajorSeventh:
		quality = "+maj"
	}

	return mark.accidental + numeral + quality + inversionFigure(c), nil
}

func inversionFigure(c ChordInfo) string {
	if c.Kind == KindSeventh {
		return [4]string{"7", "65", "43", "42"}[c.Inversion]
	}
	switch c.Inversion {
	case 1:
		return "6"
	case 2:
		return "64"
	}
	return ""
}
