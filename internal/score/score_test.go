package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notesAt(pitch int, duration float64, offsets ...float64) []Event {
	events := make([]Event, len(offsets))
	for i, o := range offsets {
		events[i] = NewNote(pitch, o, duration, 90)
	}
	return events
}

func TestChord_Velocity(t *testing.T) {
	c := NewChord(0, 1, NewNote(67, 0, 1, 80), NewNote(60, 0, 1, 90), NewNote(64, 0, 1, 101))
	assert.Equal(t, 90, c.Velocity())
	assert.Equal(t, []int{60, 64, 67}, c.Pitches())
}

func TestScore_NotesAndRests(t *testing.T) {
	upper := NewPart("upper", []Event{NewNote(72, 1, 1, 80), NewNote(74, 0, 1, 80)})
	lower := NewPart("lower", []Event{NewRest(0, 1), NewNote(48, 1, 1, 80)})
	s := &Score{Parts: []*Part{upper, lower}}

	events := s.NotesAndRests()
	require.Len(t, events, 4)
	assert.Equal(t, 74, events[0].(*Note).Pitch())
	assert.IsType(t, &Rest{}, events[1])
	assert.Equal(t, 72, events[2].(*Note).Pitch())
	assert.Equal(t, 48, events[3].(*Note).Pitch())

	assert.Len(t, s.Notes(), 3)
	assert.Equal(t, []int{74, 72, 48}, s.Pitches())
	assert.Equal(t, 2.0, s.HighestTime())
}

func TestScore_PitchClassHistogram(t *testing.T) {
	s := &Score{Parts: []*Part{NewPart("p", []Event{
		NewNote(60, 0, 2, 80),
		NewChord(2, 1, NewNote(64, 2, 1, 80), NewNote(72, 2, 1, 80)),
	})}}
	h := s.PitchClassHistogram()
	assert.Equal(t, 3.0, h[0])
	assert.Equal(t, 1.0, h[4])
}

func TestScore_Chordify(t *testing.T) {
	s := &Score{Parts: []*Part{
		NewPart("a", []Event{NewNote(60, 0, 2, 80)}),
		NewPart("b", []Event{NewNote(64, 1, 2, 80), NewNote(70, 5, 0, 80)}),
	}}

	verts := s.Chordify()
	require.Len(t, verts, 3)
	assert.Equal(t, Verticality{Offset: 0, Duration: 1, Pitches: []int{60}}, verts[0])
	assert.Equal(t, Verticality{Offset: 1, Duration: 1, Pitches: []int{60, 64}}, verts[1])
	assert.Equal(t, Verticality{Offset: 2, Duration: 1, Pitches: []int{64}}, verts[2])

	chords := s.Chords()
	require.Len(t, chords, 1)
	assert.Equal(t, 1.0, chords[0].Offset)
}

func TestScore_Chordify_SkipsSilence(t *testing.T) {
	s := &Score{Parts: []*Part{NewPart("a", []Event{
		NewNote(60, 0, 1, 80),
		NewChord(3, 1, NewNote(60, 3, 1, 80), NewNote(60, 3, 1, 80), NewNote(67, 3, 1, 80)),
	})}}
	verts := s.Chordify()
	require.Len(t, verts, 2)
	assert.Equal(t, 3.0, verts[1].Offset)
	assert.Equal(t, []int{60, 67}, verts[1].Pitches)
}

func TestScore_EstimateTempo(t *testing.T) {
	tests := []struct {
		name     string
		offsets  []float64
		expected float64
	}{
		{"quarter pulse", []float64{0, 1, 2, 3, 4}, 120},
		{"eighth pulse", []float64{0, 0.5, 1, 1.5, 2}, 240},
		{"sixteenths fold up", []float64{0, 0.25, 0.5, 0.75, 1}, 240},
		{"dotted halves fold down", []float64{0, 3, 6, 9}, 80},
		{"tie goes to the earlier gap", []float64{0, 1, 3}, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Score{Parts: []*Part{NewPart("p", notesAt(60, 0.5, tt.offsets...))}}
			bpm, err := s.EstimateTempo()
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, bpm, 1e-9)
		})
	}
}

func TestScore_EstimateTempo_TooFewOnsets(t *testing.T) {
	s := &Score{Parts: []*Part{NewPart("p", []Event{NewNote(60, 0, 1, 80), NewNote(64, 0, 1, 80)})}}
	_, err := s.EstimateTempo()
	assert.ErrorIs(t, err, ErrTooFewOnsets)
}

func TestMode(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{0.5}, 0.5},
		{"clear winner", []float64{2, 1, 2}, 2},
		{"tie goes to first seen", []float64{2, 1, 2, 1}, 2},
		{"tie with larger value later", []float64{1, 1, 0.5, 0.5}, 1},
		{"tie with smaller value later", []float64{0.5, 1, 1, 0.5}, 0.5},
		{"later majority wins", []float64{1, 0.5, 0.5}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.values))
		})
	}
}

func TestScore_BestTimeSignature(t *testing.T) {
	var waltz []Event
	for bar := 0; bar < 4; bar++ {
		o := float64(bar * 3)
		waltz = append(waltz, NewNote(48, o, 3, 80), NewNote(64, o+1, 1, 80), NewNote(67, o+2, 1, 80))
	}
	m, err := (&Score{Parts: []*Part{NewPart("p", waltz)}}).BestTimeSignature()
	require.NoError(t, err)
	assert.Equal(t, Meter{3, 4}, m)

	var common []Event
	for bar := 0; bar < 3; bar++ {
		o := float64(bar * 4)
		common = append(common, NewNote(60, o, 2, 80), NewNote(62, o+2, 1, 80), NewNote(64, o+3, 1, 80))
	}
	m, err = (&Score{Parts: []*Part{NewPart("p", common)}}).BestTimeSignature()
	require.NoError(t, err)
	assert.Equal(t, Meter{4, 4}, m)
}

func TestScore_BestTimeSignature_Errors(t *testing.T) {
	few := &Score{Parts: []*Part{NewPart("p", notesAt(60, 1, 0, 1, 2))}}
	_, err := few.BestTimeSignature()
	assert.ErrorIs(t, err, ErrTooFewOnsets)

	short := &Score{Parts: []*Part{NewPart("p", notesAt(60, 0.25, 0, 0.25, 0.5, 0.75))}}
	_, err = short.BestTimeSignature()
	assert.ErrorIs(t, err, ErrTooFewOnsets)
}

func TestMeter_Simplify(t *testing.T) {
	tests := []struct {
		in, out Meter
	}{
		{Meter{12, 16}, Meter{3, 4}},
		{Meter{6, 8}, Meter{6, 8}},
		{Meter{9, 16}, Meter{9, 16}},
		{Meter{10, 4}, Meter{5, 2}},
		{Meter{4, 4}, Meter{4, 4}},
		{Meter{2, 4}, Meter{2, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.out, tt.in.Simplify())
		})
	}
}

func TestParseMeter(t *testing.T) {
	m, err := ParseMeter(" 7/8 ")
	require.NoError(t, err)
	assert.Equal(t, Meter{7, 8}, m)
	assert.Equal(t, 3.5, m.BarLength())

	for _, bad := range []string{"", "3", "a/4", "3/b", "0/4", "3/0"} {
		_, err := ParseMeter(bad)
		assert.Error(t, err, bad)
	}
}

func TestQuantize(t *testing.T) {
	assert.Equal(t, 0.5, Quantize(0.49))
	assert.InDelta(t, 1.0/3, Quantize(0.34), 1e-12)
	assert.Equal(t, 1.0, Quantize(1.01))
	assert.Equal(t, 0.0, Quantize(0.05))
	assert.Equal(t, 0.0, Quantize(-1))
}

func TestTypeFor(t *testing.T) {
	tests := []struct {
		ql       float64
		expected DurationType
	}{
		{1, DurationType{Type: "quarter"}},
		{4, DurationType{Type: "whole"}},
		{0.25, DurationType{Type: "16th"}},
		{1.5, DurationType{Type: "quarter", Dots: 1}},
		{3, DurationType{Type: "half", Dots: 1}},
		{0.75, DurationType{Type: "eighth", Dots: 1}},
		{1.75, DurationType{Type: "quarter", Dots: 2}},
		{1.0 / 3, DurationType{Type: "eighth", Tuplet: true}},
		{2.0 / 3, DurationType{Type: "quarter", Tuplet: true}},
		{0, DurationType{Type: "zero"}},
	}
	for _, tt := range tests {
		got, err := TypeFor(tt.ql)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got, "ql %v", tt.ql)
	}

	_, err := TypeFor(0.2)
	assert.ErrorIs(t, err, ErrUnnamedDuration)
}

func TestFillRests(t *testing.T) {
	events := FillRests([]Event{NewNote(60, 3, 1, 80), NewNote(62, 1, 1, 80), NewRest(0, 4)})
	require.Len(t, events, 4)
	assert.Equal(t, NewRest(0, 1), events[0])
	assert.Equal(t, 62, events[1].(*Note).Pitch())
	assert.Equal(t, NewRest(2, 1), events[2])
	assert.Equal(t, 60, events[3].(*Note).Pitch())
}

func TestBuildMeasures(t *testing.T) {
	assert.Nil(t, BuildMeasures(nil, 10))

	measures := BuildMeasures([]TimeSignatureMark{{Offset: 0, Meter: Meter{3, 4}}}, 7)
	require.Len(t, measures, 3)
	assert.Equal(t, 3, measures[2].Number)
	assert.Equal(t, 6.0, measures[2].Offset)

	measures = BuildMeasures([]TimeSignatureMark{
		{Offset: 4, Meter: Meter{3, 4}},
		{Offset: 0, Meter: Meter{4, 4}},
	}, 10)
	require.Len(t, measures, 3)
	assert.Equal(t, 4.0, measures[0].Duration)
	assert.Equal(t, 3.0, measures[1].Duration)
	assert.Equal(t, 7.0, measures[2].Offset)
}
