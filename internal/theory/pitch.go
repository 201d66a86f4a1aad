package theory

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MIDI note number constraints
	midiNoteMin = 0
	midiNoteMax = 127

	semitonesPerOctave = 12
)

// PitchClass is a pitch modulo the octave, 0 = C.
type PitchClass int

// Spelling selects how chromatic pitch classes are named.
type Spelling int

const (
	// SpellDefault mixes sharps and flats the way most notation software does
	// when no key is known: C# E- F# G# B-.
	SpellDefault Spelling = iota
	SpellSharps
	SpellFlats
)

var (
	defaultNames = [12]string{"C", "C#", "D", "E-", "E", "F", "F#", "G", "G#", "A", "B-", "B"}
	sharpNames   = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	flatNames    = [12]string{"C", "D-", "D", "E-", "E", "F", "G-", "G", "A-", "A", "B-", "B"}
)

// PitchClassOf folds a MIDI note number into its pitch class.
func PitchClassOf(midiNote int) PitchClass {
	pc := midiNote % semitonesPerOctave
	if pc < 0 {
		pc += semitonesPerOctave
	}
	return PitchClass(pc)
}

// Transpose returns the pitch class n semitones above pc.
func (pc PitchClass) Transpose(n int) PitchClass {
	return PitchClassOf(int(pc) + n)
}

// IntervalTo returns the ascending distance in semitones from pc to other.
func (pc PitchClass) IntervalTo(other PitchClass) int {
	return int(PitchClassOf(int(other) - int(pc)))
}

// Name returns the ASCII spelling of pc ("E-" for E flat).
func (pc PitchClass) Name(sp Spelling) string {
	p := PitchClassOf(int(pc))
	switch sp {
	case SpellSharps:
		return sharpNames[p]
	case SpellFlats:
		return flatNames[p]
	default:
		return defaultNames[p]
	}
}

// String implements fmt.Stringer using the default spelling.
func (pc PitchClass) String() string {
	return pc.Name(SpellDefault)
}

// Display converts an ASCII pitch spelling to the typographic form shown
// to people: "E-" becomes "E♭" and "F#" becomes "F♯".
func Display(name string) string {
	r := strings.NewReplacer("-", "♭", "#", "♯")
	return r.Replace(name)
}

// NameWithOctave spells a MIDI note number with its octave, middle C = C4.
func NameWithOctave(midiNote int, sp Spelling) string {
	octave := midiNote/semitonesPerOctave - 1
	return PitchClassOf(midiNote).Name(sp) + strconv.Itoa(octave)
}

// ParsePitch converts a note name like "C4", "F#3", "Bb2", "E-5" or "D♭4"
// into a MIDI note number. A missing octave means octave 4.
func ParsePitch(name string) (int, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, fmt.Errorf("empty note name")
	}

	semitone, ok := letterSemitones[strings.ToUpper(s[:1])]
	if !ok {
		return 0, fmt.Errorf("invalid note name: %s", name)
	}
	s = s[1:]

	// Accidentals; 'b' is only a flat when it follows the letter.
accidentals:
	for s != "" {
		switch {
		case strings.HasPrefix(s, "#"):
			semitone++
			s = s[1:]
		case strings.HasPrefix(s, "♯"):
			semitone++
			s = s[len("♯"):]
		case strings.HasPrefix(s, "b"), strings.HasPrefix(s, "-"):
			semitone--
			s = s[1:]
		case strings.HasPrefix(s, "♭"):
			semitone--
			s = s[len("♭"):]
		default:
			break accidentals
		}
	}

	oct := 4
	if s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid octave in note name %s: %w", name, err)
		}
		oct = n
	}

	midiNote := (oct+1)*semitonesPerOctave + semitone
	if midiNote < midiNoteMin || midiNote > midiNoteMax {
		return 0, fmt.Errorf("note %s out of MIDI range", name)
	}
	return midiNote, nil
}

var letterSemitones = map[string]int{
	"C": 0,
	"D": 2,
	"E": 4,
	"F": 5,
	"G": 7,
	"A": 9,
	"B": 11,
}
