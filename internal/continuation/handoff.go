// Package continuation asks a language model to extend a piece and turns
// its answer back into MIDI. Events travel between the two as JSON in the
// hand-off format of EventJSON.
package continuation

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
	"github.com/Conceptual-Machines/midi-insight-api/internal/theory"
)

// Event types of the hand-off format.
const (
	TypeNote  = "note"
	TypeChord = "chord"
	TypeRest  = "rest"
)

// DefaultPrimerLimit is how many trailing events of each hand are sent as context.
const DefaultPrimerLimit = 64

var ErrInvalidEvent = errors.New("continuation: invalid event")

// EventJSON is one note, chord or rest in the hand-off format.
type EventJSON struct {
	Type          string   `json:"type"`
	Pitch         string   `json:"pitch,omitempty"`
	Pitches       []string `json:"pitches,omitempty"`
	Offset        float64  `json:"offset"`
	QuarterLength float64  `json:"quarterLength"`
	Velocity      *int     `json:"velocity,omitempty"`
}

// ToEventJSON converts a score event. Rests carry no velocity.
func ToEventJSON(e score.Event) EventJSON {
	out := EventJSON{Offset: e.Offset(), QuarterLength: e.Duration()}
	switch ev := e.(type) {
	case *score.Note:
		out.Type = TypeNote
		out.Pitch = theory.NameWithOctave(ev.Pitch(), theory.SpellDefault)
		v := ev.Velocity()
		out.Velocity = &v
	case *score.Chord:
		out.Type = TypeChord
		for _, p := range ev.Pitches() {
			out.Pitches = append(out.Pitches, theory.NameWithOctave(p, theory.SpellDefault))
		}
		v := ev.Velocity()
		out.Velocity = &v
	case *score.Rest:
		out.Type = TypeRest
	}
	return out
}

// FromEventJSON converts a hand-off event back into a score event.
// A missing velocity means score.DefaultVelocity.
func FromEventJSON(e EventJSON) (score.Event, error) {
	if e.QuarterLength <= 0 {
		return nil, fmt.Errorf("%w: %s at %v has quarterLength %v", ErrInvalidEvent, e.Type, e.Offset, e.QuarterLength)
	}
	velocity := score.DefaultVelocity
	if e.Velocity != nil {
		velocity = clamp(*e.Velocity, 0, 127)
	}

	switch e.Type {
	case TypeNote:
		pitch, err := theory.ParsePitch(e.Pitch)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		return score.NewNote(pitch, e.Offset, e.QuarterLength, velocity), nil
	case TypeChord:
		if len(e.Pitches) == 0 {
			return nil, fmt.Errorf("%w: chord at %v has no pitches", ErrInvalidEvent, e.Offset)
		}
		notes := make([]*score.Note, 0, len(e.Pitches))
		for _, name := range e.Pitches {
			pitch, err := theory.ParsePitch(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
			}
			notes = append(notes, score.NewNote(pitch, e.Offset, e.QuarterLength, velocity))
		}
		return score.NewChord(e.Offset, e.QuarterLength, notes...), nil
	case TypeRest:
		return score.NewRest(e.Offset, e.QuarterLength), nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
}

// Primer returns the last limit notes, chords and rests of a part in
// hand-off format. A nil part yields an empty list.
func Primer(part *score.Part, limit int) []EventJSON {
	out := []EventJSON{}
	if part == nil {
		return out
	}
	events := part.Events
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	for _, e := range events {
		out = append(out, ToEventJSON(e))
	}
	return out
}

// SeparateHands picks the right and left hand from the first two parts:
// the part with the higher mean pitch is the right hand. A part without
// notes is dropped; a single part is the right hand alone.
func SeparateHands(s *score.Score) (right, left *score.Part) {
	if s == nil || len(s.Parts) == 0 {
		return nil, nil
	}
	if len(s.Parts) == 1 {
		return s.Parts[0], nil
	}

	first, second := s.Parts[0], s.Parts[1]
	firstMean, firstOK := meanPitch(first)
	secondMean, secondOK := meanPitch(second)
	switch {
	case !firstOK && !secondOK:
		return nil, nil
	case !firstOK:
		return second, nil
	case !secondOK:
		return first, nil
	case firstMean > secondMean:
		return first, second
	default:
		return second, first
	}
}

func meanPitch(p *score.Part) (float64, bool) {
	var pitches []float64
	for _, e := range p.Events {
		switch ev := e.(type) {
		case *score.Note:
			pitches = append(pitches, float64(ev.Pitch()))
		case *score.Chord:
			for _, pitch := range ev.Pitches() {
				pitches = append(pitches, float64(pitch))
			}
		}
	}
	if len(pitches) == 0 {
		return 0, false
	}
	return stat.Mean(pitches, nil), true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
