package continuation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
)

func velocity(v int) *int { return &v }

func chordOf(offset, duration float64, velocities []int, pitches ...int) *score.Chord {
	notes := make([]*score.Note, len(pitches))
	for i, p := range pitches {
		notes[i] = score.NewNote(p, offset, duration, velocities[i%len(velocities)])
	}
	return score.NewChord(offset, duration, notes...)
}

func TestToEventJSON(t *testing.T) {
	tests := []struct {
		name  string
		event score.Event
		want  EventJSON
	}{
		{
			name:  "note",
			event: score.NewNote(61, 2, 1.5, 90),
			want:  EventJSON{Type: TypeNote, Pitch: "C#4", Offset: 2, QuarterLength: 1.5, Velocity: velocity(90)},
		},
		{
			name:  "chord uses the rounded mean velocity",
			event: chordOf(4, 2, []int{60, 70, 80}, 67, 60, 63),
			want:  EventJSON{Type: TypeChord, Pitches: []string{"C4", "E-4", "G4"}, Offset: 4, QuarterLength: 2, Velocity: velocity(70)},
		},
		{
			name:  "rest",
			event: score.NewRest(6, 1),
			want:  EventJSON{Type: TypeRest, Offset: 6, QuarterLength: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToEventJSON(tt.event))
		})
	}
}

func TestEventJSON_RestOmitsVelocity(t *testing.T) {
	data, err := json.Marshal(ToEventJSON(score.NewRest(0, 1)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"rest","offset":0,"quarterLength":1}`, string(data))
}

func TestFromEventJSON(t *testing.T) {
	tests := []struct {
		name         string
		in           EventJSON
		wantPitches  []int
		wantVelocity int
		wantRest     bool
	}{
		{name: "note with flat", in: EventJSON{Type: TypeNote, Pitch: "E-5", QuarterLength: 1, Velocity: velocity(64)}, wantPitches: []int{75}, wantVelocity: 64},
		{name: "default velocity", in: EventJSON{Type: TypeNote, Pitch: "A4", QuarterLength: 1}, wantPitches: []int{69}, wantVelocity: 80},
		{name: "velocity clamped", in: EventJSON{Type: TypeNote, Pitch: "A4", QuarterLength: 1, Velocity: velocity(200)}, wantPitches: []int{69}, wantVelocity: 127},
		{name: "chord", in: EventJSON{Type: TypeChord, Pitches: []string{"G3", "C3"}, QuarterLength: 2, Velocity: velocity(50)}, wantPitches: []int{48, 55}, wantVelocity: 50},
		{name: "rest", in: EventJSON{Type: TypeRest, QuarterLength: 0.5}, wantRest: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := FromEventJSON(tt.in)
			require.NoError(t, err)
			switch e := ev.(type) {
			case *score.Note:
				assert.Equal(t, tt.wantPitches, []int{e.Pitch()})
				assert.Equal(t, tt.wantVelocity, e.Velocity())
			case *score.Chord:
				assert.Equal(t, tt.wantPitches, e.Pitches())
				assert.Equal(t, tt.wantVelocity, e.Velocity())
			case *score.Rest:
				assert.True(t, tt.wantRest)
			}
			assert.Equal(t, tt.in.QuarterLength, ev.Duration())
		})
	}
}

func TestFromEventJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   EventJSON
	}{
		{"zero length", EventJSON{Type: TypeNote, Pitch: "C4"}},
		{"bad pitch", EventJSON{Type: TypeNote, Pitch: "H2", QuarterLength: 1}},
		{"out of range", EventJSON{Type: TypeNote, Pitch: "C10", QuarterLength: 1}},
		{"chord without pitches", EventJSON{Type: TypeChord, QuarterLength: 1}},
		{"chord with a bad member", EventJSON{Type: TypeChord, Pitches: []string{"C4", "?"}, QuarterLength: 1}},
		{"unknown type", EventJSON{Type: "trill", QuarterLength: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEventJSON(tt.in)
			assert.True(t, errors.Is(err, ErrInvalidEvent), "got %v", err)
		})
	}
}

func TestPrimer(t *testing.T) {
	var events []score.Event
	for i := 0; i < 10; i++ {
		events = append(events, score.NewNote(60+i, float64(i), 1, 80))
	}
	part := score.NewPart("Melody", events)

	primer := Primer(part, 3)
	require.Len(t, primer, 3)
	assert.Equal(t, "G4", primer[0].Pitch)
	assert.Equal(t, "A4", primer[2].Pitch)
	assert.Equal(t, 9.0, primer[2].Offset)

	assert.Len(t, Primer(part, 0), 10)

	empty := Primer(nil, DefaultPrimerLimit)
	require.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSeparateHands(t *testing.T) {
	low := score.NewPart("Bass", []score.Event{score.NewNote(40, 0, 1, 80), chordOf(1, 1, []int{80}, 43, 47)})
	high := score.NewPart("Melody", []score.Event{score.NewNote(72, 0, 1, 80)})
	silent := score.NewPart("Silent", []score.Event{score.NewRest(0, 4)})

	tests := []struct {
		name      string
		parts     []*score.Part
		wantRight *score.Part
		wantLeft  *score.Part
	}{
		{"higher part second", []*score.Part{low, high}, high, low},
		{"higher part first", []*score.Part{high, low}, high, low},
		{"single part", []*score.Part{low}, low, nil},
		{"first part silent", []*score.Part{silent, low}, low, nil},
		{"second part silent", []*score.Part{high, silent}, high, nil},
		{"both silent", []*score.Part{silent, silent}, nil, nil},
		{"no parts", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			right, left := SeparateHands(&score.Score{Parts: tt.parts})
			assert.Same(t, tt.wantRight, right)
			assert.Same(t, tt.wantLeft, left)
		})
	}

	right, left := SeparateHands(nil)
	assert.Nil(t, right)
	assert.Nil(t, left)
}
