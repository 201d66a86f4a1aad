// Package score holds the symbolic-music document the analyzer works on:
// parts of timed notes, chords and rests, plus the tempo, meter and key
// marks found in the source file. Times are in quarter-lengths.
package score

import (
	"math"
	"sort"
)

const (
	// DefaultBPM is the MIDI tempo assumed when a file carries no tempo event.
	DefaultBPM = 120.0

	// DefaultVelocity is used for events that have no velocity of their own.
	DefaultVelocity = 80

	epsilon = 1e-6
)

// Event is one of *Note, *Chord or *Rest.
type Event interface {
	Offset() float64
	Duration() float64
	Velocity() int
	event()
}

// Note is a single pitched event.
type Note struct {
	pitch    int
	offset   float64
	duration float64
	velocity int
}

// NewNote creates a note. Pitch is a MIDI note number.
func NewNote(pitch int, offset, duration float64, velocity int) *Note {
	return &Note{pitch: pitch, offset: offset, duration: duration, velocity: velocity}
}

func (n *Note) Pitch() int { return n.pitch }
func (n *Note) Offset() float64 { return n.offset }
func (n *Note) Duration() float64 { return n.duration }
func (n *Note) Velocity() int { return n.velocity }
func (n *Note) End() float64 { return n.offset + n.duration }
func (n *Note) event() {}

// Chord is a group of notes sharing onset and length.
type Chord struct {
	notes    []*Note
	offset   float64
	duration float64
}

// NewChord creates a chord from its member notes; members are ordered by pitch.
func NewChord(offset, duration float64, notes ...*Note) *Chord {
	members := make([]*Note, len(notes))
	copy(members, notes)
	sort.SliceStable(members, func(i, j int) bool { return members[i].pitch < members[j].pitch })
	return &Chord{notes: members, offset: offset, duration: duration}
}

func (c *Chord) Notes() []*Note { return c.notes }
func (c *Chord) Offset() float64 { return c.offset }
func (c *Chord) Duration() float64 { return c.duration }
func (c *Chord) End() float64 { return c.offset + c.duration }
func (c *Chord) event() {}

// Pitches returns the member pitches, lowest first.
func (c *Chord) Pitches() []int {
	pitches := make([]int, len(c.notes))
	for i, n := range c.notes {
		pitches[i] = n.pitch
	}
	return pitches
}

// Velocity is the rounded mean of the member velocities.
func (c *Chord) Velocity() int {
	if len(c.notes) == 0 {
		return DefaultVelocity
	}
	sum := 0
	for _, n := range c.notes {
		sum += n.velocity
	}
	return int(math.RoundToEven(float64(sum) / float64(len(c.notes))))
}

// Rest is a silent span.
type Rest struct {
	offset   float64
	duration float64
}

// NewRest creates a rest.
func NewRest(offset, duration float64) *Rest {
	return &Rest{offset: offset, duration: duration}
}

func (r *Rest) Offset() float64 { return r.offset }
func (r *Rest) Duration() float64 { return r.duration }
func (r *Rest) Velocity() int { return 0 }
func (r *Rest) End() float64 { return r.offset + r.duration }
func (r *Rest) event() {}

// Measure is a bar of a part. Number is 0 for unnumbered measures.
type Measure struct {
	Number   int
	Offset   float64
	Duration float64
	Meter    Meter
}

// Part is one voice or instrument of the score.
type Part struct {
	Name     string
	Program  int
	Channel  int
	Measures []Measure
	Events   []Event
}

// NewPart creates a part whose events are ordered by offset; events that
// start together keep their given order.
func NewPart(name string, events []Event) *Part {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sortEvents(sorted)
	return &Part{Name: name, Events: sorted}
}

// HighestTime is the latest end time of any event in the part.
func (p *Part) HighestTime() float64 {
	highest := 0.0
	for _, e := range p.Events {
		if end := e.Offset() + e.Duration(); end > highest {
			highest = end
		}
	}
	return highest
}

// Notes returns the part's notes and chords.
func (p *Part) Notes() []Event {
	var out []Event
	for _, e := range p.Events {
		if _, isRest := e.(*Rest); !isRest {
			out = append(out, e)
		}
	}
	return out
}

// TempoMark is a tempo change in beats per minute.
type TempoMark struct {
	Offset float64
	BPM    float64
}

// TimeSignatureMark is a meter change.
type TimeSignatureMark struct {
	Offset float64
	Meter  Meter
}

// KeySignatureMark is a key-signature meta event: sharps > 0, flats < 0.
type KeySignatureMark struct {
	Offset float64
	Sharps int
	Minor  bool
}

// Score is a parsed document.
type Score struct {
	Parts          []*Part
	TempoMarks     []TempoMark
	TimeSignatures []TimeSignatureMark
	KeySignatures  []KeySignatureMark
	Resolution     int // ticks per quarter note of the source file
	Warnings       []string
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Offset() < events[j].Offset()
	})
}
