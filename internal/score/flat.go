package score

import "sort"

// NotesAndRests flattens every part into one offset-ordered sequence.
// Events that start together keep part order.
func (s *Score) NotesAndRests() []Event {
	var out []Event
	for _, p := range s.Parts {
		out = append(out, p.Events...)
	}
	sortEvents(out)
	return out
}

// Notes is NotesAndRests without the rests.
func (s *Score) Notes() []Event {
	var out []Event
	for _, e := range s.NotesAndRests() {
		if _, isRest := e.(*Rest); !isRest {
			out = append(out, e)
		}
	}
	return out
}

// Pitches lists the MIDI pitch of every note, chord members included, in
// flattened order.
func (s *Score) Pitches() []int {
	var out []int
	for _, e := range s.Notes() {
		switch ev := e.(type) {
		case *Note:
			out = append(out, ev.Pitch())
		case *Chord:
			out = append(out, ev.Pitches()...)
		}
	}
	return out
}

// HighestTime is the latest end time across all parts.
func (s *Score) HighestTime() float64 {
	highest := 0.0
	for _, p := range s.Parts {
		if h := p.HighestTime(); h > highest {
			highest = h
		}
	}
	return highest
}

// PitchClassHistogram weights each pitch class by the total length it sounds.
func (s *Score) PitchClassHistogram() [12]float64 {
	var h [12]float64
	for _, e := range s.Notes() {
		switch ev := e.(type) {
		case *Note:
			h[pitchClass(ev.Pitch())] += ev.Duration()
		case *Chord:
			for _, p := range ev.Pitches() {
				h[pitchClass(p)] += ev.Duration()
			}
		}
	}
	return h
}

func pitchClass(p int) int {
	pc := p % 12
	if pc < 0 {
		pc += 12
	}
	return pc
}

// Verticality is the set of pitches sounding between two consecutive
// onset or release points of the score.
type Verticality struct {
	Offset   float64
	Duration float64
	Pitches  []int // distinct, ascending
}

// IsChord reports whether at least two distinct pitches sound.
func (v Verticality) IsChord() bool {
	return len(v.Pitches) >= 2
}

type span struct {
	start, end float64
	pitch      int
}

// Chordify reduces all parts to a sequence of verticalities, one for every
// interval between distinct start and end points in which something sounds.
// Zero-length notes never sound.
func (s *Score) Chordify() []Verticality {
	var spans []span
	pointSet := make(map[float64]bool)
	for _, e := range s.Notes() {
		if e.Duration() <= epsilon {
			continue
		}
		start, end := e.Offset(), e.Offset()+e.Duration()
		var pitches []int
		switch ev := e.(type) {
		case *Note:
			pitches = []int{ev.Pitch()}
		case *Chord:
			pitches = ev.Pitches()
		}
		for _, p := range pitches {
			spans = append(spans, span{start: start, end: end, pitch: p})
		}
		pointSet[roundTo(start, 1e6)] = true
		pointSet[roundTo(end, 1e6)] = true
	}
	if len(spans) == 0 {
		return nil
	}

	points := make([]float64, 0, len(pointSet))
	for p := range pointSet {
		points = append(points, p)
	}
	sort.Float64s(points)
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var out []Verticality
	var active []span
	next := 0
	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]
		for next < len(spans) && spans[next].start <= a+epsilon {
			active = append(active, spans[next])
			next++
		}
		kept := active[:0]
		for _, sp := range active {
			if sp.end > a+epsilon {
				kept = append(kept, sp)
			}
		}
		active = kept
		if len(active) == 0 {
			continue
		}

		seen := make(map[int]bool)
		var pitches []int
		for _, sp := range active {
			if !seen[sp.pitch] {
				seen[sp.pitch] = true
				pitches = append(pitches, sp.pitch)
			}
		}
		sort.Ints(pitches)
		out = append(out, Verticality{Offset: a, Duration: b - a, Pitches: pitches})
	}
	return out
}

// Chords returns the verticalities in which two or more pitches sound.
func (s *Score) Chords() []Verticality {
	var out []Verticality
	for _, v := range s.Chordify() {
		if v.IsChord() {
			out = append(out, v)
		}
	}
	return out
}
