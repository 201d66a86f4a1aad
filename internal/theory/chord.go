package theory

import (
	"sort"
	"strings"
)

// Quality names a chord type. The zero value means a single pitch class.
type Quality string

const (
	MajorTriad      Quality = "major triad"
	MinorTriad      Quality = "minor triad"
	DiminishedTriad Quality = "diminished triad"
	AugmentedTriad  Quality = "augmented triad"
	Sus4Triad       Quality = "suspended-fourth triad"
	Sus2Triad       Quality = "suspended-second triad"

	DominantSeventh       Quality = "dominant seventh chord"
	MajorSeventh          Quality = "major seventh chord"
	MinorSeventh          Quality = "minor seventh chord"
	HalfDiminishedSeventh Quality = "half-diminished seventh chord"
	DiminishedSeventh     Quality = "diminished seventh chord"
	MinorMajorSeventh     Quality = "minor-major seventh chord"
	AugmentedMajorSeventh Quality = "augmented major seventh chord"
	AugmentedSeventh      Quality = "augmented seventh chord"

	// Other covers any collection of three or more pitch classes that is
	// neither a tertian triad nor a seventh chord.
	Other Quality = "other"
)

// Kind groups qualities by how many chord tones they stack.
type Kind int

const (
	KindSingle Kind = iota
	KindDyad
	KindTriad
	KindSeventh
	KindOther
)

type chordShape struct {
	quality   Quality
	intervals []int
}

// Shapes are listed root position, intervals above the root.
var (
	triadShapes = []chordShape{
		{MajorTriad, []int{0, 4, 7}},      // Root, Major 3rd, Perfect 5th
		{MinorTriad, []int{0, 3, 7}},      // Root, Minor 3rd, Perfect 5th
		{DiminishedTriad, []int{0, 3, 6}}, // Root, Minor 3rd, Diminished 5th
		{AugmentedTriad, []int{0, 4, 8}},  // Root, Major 3rd, Augmented 5th
		{Sus4Triad, []int{0, 5, 7}},       // Root, Perfect 4th, Perfect 5th
		{Sus2Triad, []int{0, 2, 7}},       // Root, Major 2nd, Perfect 5th
	}

	seventhShapes = []chordShape{
		{DominantSeventh, []int{0, 4, 7, 10}},
		{MajorSeventh, []int{0, 4, 7, 11}},
		{MinorSeventh, []int{0, 3, 7, 10}},
		{HalfDiminishedSeventh, []int{0, 3, 6, 10}},
		{DiminishedSeventh, []int{0, 3, 6, 9}},
		{MinorMajorSeventh, []int{0, 3, 7, 11}},
		{AugmentedMajorSeventh, []int{0, 4, 8, 11}},
		{AugmentedSeventh, []int{0, 4, 8, 10}},
	}

	dyadNames = [12]Quality{
		1:  "minor second",
		2:  "major second",
		3:  "minor third",
		4:  "major third",
		5:  "perfect fourth",
		6:  "tritone",
		7:  "perfect fifth",
		8:  "minor sixth",
		9:  "major sixth",
		10: "minor seventh",
		11: "major seventh",
	}
)

// ChordInfo is the identification of a set of simultaneously sounding pitches.
type ChordInfo struct {
	Root         PitchClass
	Bass         PitchClass
	Quality      Quality
	Kind         Kind
	PitchClasses []PitchClass // distinct, ascending from C
	Inversion    int          // 0 root position, 1 first, 2 second, 3 third
}

// IdentifyChord names the chord formed by the given MIDI pitches. The lowest
// pitch is the bass; when several roots would fit a symmetric shape the bass
// is preferred.
func IdentifyChord(pitches []int) ChordInfo {
	if len(pitches) == 0 {
		return ChordInfo{Kind: KindSingle}
	}

	lowest := pitches[0]
	seen := make(map[PitchClass]bool)
	var pcs []PitchClass
	for _, p := range pitches {
		if p < lowest {
			lowest = p
		}
		pc := PitchClassOf(p)
		if !seen[pc] {
			seen[pc] = true
			pcs = append(pcs, pc)
		}
	}
	sort.Slice(pcs, func(i, j int) bool { return pcs[i] < pcs[j] })

	bass := PitchClassOf(lowest)
	info := ChordInfo{Root: bass, Bass: bass, PitchClasses: pcs}

	switch len(pcs) {
	case 1:
		info.Kind = KindSingle
		return info
	case 2:
		other := pcs[0]
		if other == bass {
			other = pcs[1]
		}
		info.Kind = KindDyad
		info.Quality = dyadNames[bass.IntervalTo(other)]
		return info
	case 3:
		if matchShape(&info, triadShapes) {
			info.Kind = KindTriad
			return info
		}
	case 4:
		if matchShape(&info, seventhShapes) {
			info.Kind = KindSeventh
			return info
		}
	}

	info.Kind = KindOther
	info.Quality = Other
	return info
}

func matchShape(info *ChordInfo, shapes []chordShape) bool {
	candidates := make([]PitchClass, 0, len(info.PitchClasses))
	candidates = append(candidates, info.Bass)
	for _, pc := range info.PitchClasses {
		if pc != info.Bass {
			candidates = append(candidates, pc)
		}
	}

	for _, root := range candidates {
		intervals := make([]int, len(info.PitchClasses))
		for i, pc := range info.PitchClasses {
			intervals[i] = root.IntervalTo(pc)
		}
		sort.Ints(intervals)
		for _, shape := range shapes {
			if equalInts(intervals, shape.intervals) {
				info.Root = root
				info.Quality = shape.quality
				info.Inversion = inversionOf(root.IntervalTo(info.Bass))
				return true
			}
		}
	}
	return false
}

func inversionOf(bassInterval int) int {
	switch {
	case bassInterval == 0:
		return 0
	case bassInterval <= 4:
		return 1
	case bassInterval <= 8:
		return 2
	default:
		return 3
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Name returns the ASCII chord name, e.g. "E- major triad" or "C octave".
func (c ChordInfo) Name(sp Spelling) string {
	return c.name(func(pc PitchClass) string { return pc.Name(sp) })
}

// DisplayName is Name with typographic accidentals on the pitch names only;
// hyphens in quality names such as "half-diminished" are kept.
func (c ChordInfo) DisplayName(sp Spelling) string {
	return c.name(func(pc PitchClass) string { return Display(pc.Name(sp)) })
}

func (c ChordInfo) name(pitch func(PitchClass) string) string {
	switch c.Kind {
	case KindSingle:
		return pitch(c.Root) + " octave"
	case KindOther:
		names := make([]string, len(c.PitchClasses))
		for i, pc := range c.PitchClasses {
			names[i] = pitch(pc)
		}
		return "cluster " + strings.Join(names, " ")
	default:
		return pitch(c.Root) + " " + string(c.Quality)
	}
}

// IsTertian reports whether the chord is a triad or seventh built in thirds.
func (c ChordInfo) IsTertian() bool {
	switch c.Quality {
	case Sus2Triad, Sus4Triad:
		return false
	}
	return c.Kind == KindTriad || c.Kind == KindSeventh
}
