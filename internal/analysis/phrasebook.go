package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
	"github.com/Conceptual-Machines/midi-insight-api/internal/theory"
)

// Supported locales.
const (
	LocaleEnglish    = "en"
	LocalePortuguese = "pt-BR"
)

// Phrasebook holds every user-facing string of one locale.
type Phrasebook struct {
	Locale string

	Tempo           string
	Key             string
	KeyIndefinite   string
	Meter           string
	MeterSuspicious string
	Bars            string
	OneBar          string
	Range           string
	Complexity      string
	Preview         string
	Density         string
	Pattern         string
	Empty           string
	NoInformation   string
	Failure         string

	FinalChord      string
	FinalChordRoman string
	FinalNote       string
	FinalMelody     string
	FinalMelodyRole string

	Major, Minor string

	SingleTone     string
	AboutOneOctave string
	OneOctave      string
	TwoOctaves     string
	ThreeOctaves   string
	AboutNOctaves  string
	NoNotes        string

	PatternPrefix string
	PatternRaw    string

	Durations  map[string][2]string // singular, plural
	Dots       [4]string
	Triplet    string
	DotsBefore bool // adjective precedes the noun

	Degrees      [8]string
	Complexities map[string]string
	Densities    map[string]string
}

var english = &Phrasebook{
	Locale: LocaleEnglish,

	Tempo:           "The average tempo is approximately %d BPM.",
	Key:             "The main key appears to be %s.",
	KeyIndefinite:   "The main key could not be determined with confidence.",
	Meter:           "It uses a time signature of %s.",
	MeterSuspicious: "Detected a time signature of %s. The rhythmic structure is probably 3/4 or 4/4.",
	Bars:            "The piece spans %d bars.",
	OneBar:          "The piece spans a single bar.",
	Range:           "The melody spans %s.",
	Complexity:      "The harmonic complexity is %s.",
	Preview:         "The initial harmonic progression observed is: %s.",
	Density:         "The rhythmic density is %s.",
	Pattern:         "%s.",
	Empty:           "The MIDI file was loaded, but it contains no notes or rests.",
	NoInformation:   "No detailed information could be extracted.",
	Failure:         "Error processing the MIDI file: %v",

	FinalChord:      "The piece ends on a %s.",
	FinalChordRoman: "The piece ends on a %s, functioning as %s.",
	FinalNote:       "The piece ends on a single %s.",
	FinalMelody:     "The melody ends on %s.",
	FinalMelodyRole: "The melody ends on %s, the %s of the key.",

	Major: "major",
	Minor: "minor",

	SingleTone:     "single tone",
	AboutOneOctave: "~1 octave",
	OneOctave:      "1 octave",
	TwoOctaves:     "2 octaves",
	ThreeOctaves:   "3 octaves",
	AboutNOctaves:  "~%d octaves",
	NoNotes:        "no notes",

	PatternPrefix: "Predominance of %s",
	PatternRaw:    "Most common duration: %s quarter lengths",

	Durations: map[string][2]string{
		"duplex-maxima": {"duplex maxima", "duplex maximas"},
		"maxima":        {"maxima", "maximas"},
		"longa":         {"longa", "longas"},
		"breve":         {"breve", "breves"},
		"whole":         {"whole note", "whole notes"},
		"half":          {"half note", "half notes"},
		"quarter":       {"quarter note", "quarter notes"},
		"eighth":        {"eighth note", "eighth notes"},
		"16th":          {"16th note", "16th notes"},
		"32nd":          {"32nd note", "32nd notes"},
		"64th":          {"64th note", "64th notes"},
		"128th":         {"128th note", "128th notes"},
		"zero":          {"zero-length note", "zero-length notes"},
	},
	Dots:       [4]string{"", "dotted", "double-dotted", "triple-dotted"},
	Triplet:    "triplet",
	DotsBefore: true,

	Degrees: [8]string{"", "tonic", "supertonic", "mediant", "subdominant", "dominant", "submediant", "leading tone"},
	Complexities: map[string]string{
		ComplexityMinimal:  "minimal",
		ComplexitySimple:   "simple",
		ComplexityModerate: "moderate",
		ComplexityComplex:  "complex",
	},
	Densities: map[string]string{
		DensityLow:    "low",
		DensityMedium: "medium",
		DensityHigh:   "high",
	},
}

var portuguese = &Phrasebook{
	Locale: LocalePortuguese,

	Tempo:           "O andamento médio é de aproximadamente %d BPM.",
	Key:             "A tonalidade principal parece ser %s.",
	KeyIndefinite:   "Não foi possível determinar a tonalidade principal com confiança.",
	Meter:           "Utiliza um compasso de %s.",
	MeterSuspicious: "Detectado compasso de %s. A estrutura rítmica é provavelmente 3/4 ou 4/4.",
	Bars:            "A peça tem %d compassos.",
	OneBar:          "A peça tem um único compasso.",
	Range:           "A melodia se estende por %s.",
	Complexity:      "A complexidade harmônica é %s.",
	Preview:         "A progressão harmônica inicial observada é: %s.",
	Density:         "A densidade rítmica é %s.",
	Pattern:         "%s.",
	Empty:           "O arquivo MIDI foi carregado, mas não contém notas ou pausas.",
	NoInformation:   "Não foi possível extrair informações detalhadas.",
	Failure:         "Erro ao processar o arquivo MIDI: %v",

	FinalChord:      "A peça termina em um %s.",
	FinalChordRoman: "A peça termina em um %s, com função de %s.",
	FinalNote:       "A peça termina em uma única nota %s.",
	FinalMelody:     "A melodia termina na nota %s.",
	FinalMelodyRole: "A melodia termina na nota %s, a %s da tonalidade.",

	Major: "maior",
	Minor: "menor",

	SingleTone:     "Tom único",
	AboutOneOctave: "~ 1 Oitava",
	OneOctave:      "1 Oitava",
	TwoOctaves:     "2 Oitavas",
	ThreeOctaves:   "3 Oitavas",
	AboutNOctaves:  "~ %d Oitavas",
	NoNotes:        "Nenhuma nota",

	PatternPrefix: "Predominância de %s",
	PatternRaw:    "Duração mais comum: %s tempos",

	Durations: map[string][2]string{
		"duplex-maxima": {"Máxima Dupla", "Máximas Duplas"},
		"maxima":        {"Máxima", "Máximas"},
		"longa":         {"Longa", "Longas"},
		"breve":         {"Breve", "Breves"},
		"whole":         {"Semibreve", "Semibreves"},
		"half":          {"Mínima", "Mínimas"},
		"quarter":       {"Semínima", "Semínimas"},
		"eighth":        {"Colcheia", "Colcheias"},
		"16th":          {"Semicolcheia", "Semicolcheias"},
		"32nd":          {"Fusa", "Fusas"},
		"64th":          {"Semifusa", "Semifusas"},
		"128th":         {"Quartifusa", "Quartifusas"},
		"zero":          {"Duração Zero", "Durações Zero"},
	},
	Dots:    [4]string{"", "pontuadas", "duplamente pontuadas", "triplamente pontuadas"},
	Triplet: "de tercina",

	Degrees: [8]string{"", "Tônica", "Supertônica", "Mediante", "Subdominante", "Dominante", "Superdominante", "Sensível"},
	Complexities: map[string]string{
		ComplexityMinimal:  "mínima",
		ComplexitySimple:   "simples",
		ComplexityModerate: "moderada",
		ComplexityComplex:  "complexa",
	},
	Densities: map[string]string{
		DensityLow:    "baixa",
		DensityMedium: "média",
		DensityHigh:   "alta",
	},
}

// PhrasebookFor returns the phrasebook of a locale. Anything that is not
// Portuguese falls back to English.
func PhrasebookFor(locale string) *Phrasebook {
	l := strings.ToLower(strings.ReplaceAll(locale, "_", "-"))
	if l == "pt" || strings.HasPrefix(l, "pt-") {
		return portuguese
	}
	return english
}

// KeyName localizes a key, e.g. "E♭ major" or "E♭ maior".
func (b *Phrasebook) KeyName(k theory.Key) string {
	mode := b.Major
	if k.Mode == theory.Minor {
		mode = b.Minor
	}
	return theory.Display(k.TonicName()) + " " + mode
}

// RangeLabel buckets a span in octaves. unique is true when every note has
// the same pitch.
func (b *Phrasebook) RangeLabel(octaves float64, unique bool) string {
	switch {
	case unique:
		return b.SingleTone
	case octaves < 1:
		return b.AboutOneOctave
	case octaves < 1.5:
		return b.OneOctave
	case octaves < 2.5:
		return b.TwoOctaves
	case octaves < 3.5:
		return b.ThreeOctaves
	default:
		return fmt.Sprintf(b.AboutNOctaves, roundHalfEven(octaves))
	}
}

// DurationLabel names a notated duration in the plural, with its dots or
// triplet qualifier.
func (b *Phrasebook) DurationLabel(d score.DurationType) string {
	names, ok := b.Durations[d.Type]
	if !ok {
		names = [2]string{d.Type, d.Type}
	}
	noun := names[1]

	var adjective string
	switch {
	case d.Tuplet:
		adjective = b.Triplet
	case d.Dots > 0 && d.Dots < len(b.Dots):
		adjective = b.Dots[d.Dots]
	}
	if adjective == "" {
		return noun
	}
	if b.DotsBefore {
		return adjective + " " + noun
	}
	return noun + " " + adjective
}

// PatternSummary renders the predominant-duration label.
func (b *Phrasebook) PatternSummary(d score.DurationType) string {
	return fmt.Sprintf(b.PatternPrefix, b.DurationLabel(d))
}

// PatternFallback renders a duration that has no notated name.
func (b *Phrasebook) PatternFallback(ql float64) string {
	return fmt.Sprintf(b.PatternRaw, strconv.FormatFloat(ql, 'f', -1, 64))
}
