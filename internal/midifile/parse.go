package midifile

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/yalue/midi"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/midi-insight-api/internal/logger"
	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
)

const (
	metaTrackName = 0x03
	metaTimeSig   = 0x58
	metaKeySig    = 0x59

	drumChannel = 9
)

type rawNote struct {
	channel  int
	pitch    int
	velocity int
	start    int64
	end      int64
}

type rawTrack struct {
	name     string
	programs map[int]int
	notes    []rawNote
}

type parser struct {
	opts       ParseOptions
	resolution float64
	out        *score.Score
}

// Parse reads an SMF into a Score. Every track that contains notes becomes
// a part; a single-track (format 0) file is split into one part per
// channel. Note lengths and onsets are quantized, notes sharing onset and
// length become chords, and silent gaps become rests. opts.AutoDownloadResources
// has no effect.
func Parse(data []byte, opts ParseOptions) (*score.Score, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMIDI, err)
	}

	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || ticks.Resolution() == 0 {
		return nil, fmt.Errorf("%w: time format %v", ErrUnsupportedFormat, s.TimeFormat)
	}

	if opts.AutoDownloadResources {
		logger.Debug("MIDI parse allows resource downloads; none are needed", logger.Fields{
			"tracks": len(s.Tracks),
		})
	}

	p := &parser{
		opts:       opts,
		resolution: float64(ticks.Resolution()),
		out:        &score.Score{Resolution: int(ticks.Resolution())},
	}

	var tracks []rawTrack
	for i, track := range s.Tracks {
		tracks = append(tracks, p.readTrack(i, track))
	}
	p.finishMarks()

	if len(tracks) == 1 {
		tracks = splitByChannel(tracks[0])
	}
	for i, t := range tracks {
		if len(t.notes) == 0 {
			continue
		}
		p.out.Parts = append(p.out.Parts, p.buildPart(i, t))
	}

	return p.out, nil
}

func (p *parser) readTrack(index int, track smf.Track) rawTrack {
	rt := rawTrack{programs: make(map[int]int)}
	open := make(map[[2]int][]rawNote)

	var tick int64
	for _, ev := range track {
		tick += int64(ev.Delta)
		msg := ev.Message

		var ch, key, vel uint8
		var bpm float64
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			k := [2]int{int(ch), int(key)}
			open[k] = append(open[k], rawNote{channel: int(ch), pitch: int(key), velocity: int(vel), start: tick})

		case msg.GetNoteEnd(&ch, &key):
			k := [2]int{int(ch), int(key)}
			pending := open[k]
			if len(pending) == 0 {
				p.warn(fmt.Sprintf("track %d: note-off without note-on (channel %d, key %d) at tick %d", index, ch, key, tick))
				continue
			}
			n := pending[0]
			open[k] = pending[1:]
			n.end = tick
			rt.notes = append(rt.notes, n)

		case msg.GetMetaTempo(&bpm):
			if bpm > 0 {
				p.out.TempoMarks = append(p.out.TempoMarks, score.TempoMark{Offset: p.ql(tick), BPM: bpm})
			}

		default:
			p.readOther(&rt, []byte(msg), tick)
		}
	}

	// Close anything still sounding at the end of the track.
	var dangling []rawNote
	for _, pending := range open {
		dangling = append(dangling, pending...)
	}
	sort.Slice(dangling, func(i, j int) bool {
		if dangling[i].start != dangling[j].start {
			return dangling[i].start < dangling[j].start
		}
		return dangling[i].pitch < dangling[j].pitch
	})
	for _, n := range dangling {
		p.warn(fmt.Sprintf("track %d: note %d started at tick %d never ends", index, n.pitch, n.start))
		n.end = tick
		rt.notes = append(rt.notes, n)
	}

	return rt
}

func (p *parser) readOther(rt *rawTrack, raw []byte, tick int64) {
	if len(raw) == 2 && raw[0]&0xF0 == 0xC0 {
		ch := int(raw[0] & 0x0F)
		if _, seen := rt.programs[ch]; !seen {
			rt.programs[ch] = int(raw[1])
		}
		return
	}

	typ, data, ok := metaPayload(raw)
	if !ok {
		return
	}
	switch typ {
	case metaTrackName:
		if rt.name == "" {
			rt.name = string(data)
		}
	case metaTimeSig:
		if len(data) >= 2 && data[1] < 16 {
			m := score.Meter{Numerator: int(data[0]), Denominator: 1 << data[1]}
			if m.Valid() {
				p.out.TimeSignatures = append(p.out.TimeSignatures, score.TimeSignatureMark{Offset: p.ql(tick), Meter: m})
			}
		}
	case metaKeySig:
		if len(data) >= 2 {
			p.out.KeySignatures = append(p.out.KeySignatures, score.KeySignatureMark{
				Offset: p.ql(tick),
				Sharps: int(int8(data[0])),
				Minor:  data[1] == 1,
			})
		}
	}
}

// metaPayload splits a meta event (FF type length data) into its type and data.
func metaPayload(raw []byte) (byte, []byte, bool) {
	if len(raw) < 3 || raw[0] != 0xFF {
		return 0, nil, false
	}
	r := bytes.NewReader(raw[2:])
	length, err := midi.ReadVariableInt(r)
	if err != nil {
		return 0, nil, false
	}
	start := len(raw) - r.Len()
	end := start + int(length)
	if end > len(raw) {
		end = len(raw)
	}
	return raw[1], raw[start:end], true
}

// finishMarks orders the collected marks and drops exact duplicates that
// several tracks repeat.
func (p *parser) finishMarks() {
	sort.SliceStable(p.out.TempoMarks, func(i, j int) bool {
		return p.out.TempoMarks[i].Offset < p.out.TempoMarks[j].Offset
	})
	sort.SliceStable(p.out.KeySignatures, func(i, j int) bool {
		return p.out.KeySignatures[i].Offset < p.out.KeySignatures[j].Offset
	})

	marks := p.out.TimeSignatures
	sort.SliceStable(marks, func(i, j int) bool { return marks[i].Offset < marks[j].Offset })
	var unique []score.TimeSignatureMark
	for _, m := range marks {
		if n := len(unique); n > 0 && unique[n-1] == m {
			continue
		}
		unique = append(unique, m)
	}
	p.out.TimeSignatures = unique
}

func splitByChannel(t rawTrack) []rawTrack {
	byChannel := make(map[int]*rawTrack)
	var channels []int
	for _, n := range t.notes {
		rt, ok := byChannel[n.channel]
		if !ok {
			rt = &rawTrack{name: t.name, programs: t.programs}
			byChannel[n.channel] = rt
			channels = append(channels, n.channel)
		}
		rt.notes = append(rt.notes, n)
	}
	if len(channels) <= 1 {
		return []rawTrack{t}
	}

	sort.Ints(channels)
	out := make([]rawTrack, 0, len(channels))
	for _, ch := range channels {
		rt := byChannel[ch]
		rt.name = fmt.Sprintf("Channel %d", ch+1)
		out = append(out, *rt)
	}
	return out
}

func (p *parser) buildPart(index int, t rawTrack) *score.Part {
	notes := make([]*score.Note, 0, len(t.notes))
	for _, n := range t.notes {
		offset := score.Quantize(p.ql(n.start))
		duration := score.Quantize(p.ql(n.end) - p.ql(n.start))
		notes = append(notes, score.NewNote(n.pitch, offset, duration, n.velocity))
	}
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Offset() != notes[j].Offset() {
			return notes[i].Offset() < notes[j].Offset()
		}
		return notes[i].Pitch() < notes[j].Pitch()
	})

	// Notes with the same onset and length sound as one chord.
	var events []score.Event
	for i := 0; i < len(notes); {
		j := i + 1
		for j < len(notes) && notes[j].Offset() == notes[i].Offset() && notes[j].Duration() == notes[i].Duration() {
			j++
		}
		if j-i == 1 {
			events = append(events, notes[i])
		} else {
			events = append(events, score.NewChord(notes[i].Offset(), notes[i].Duration(), notes[i:j]...))
		}
		i = j
	}

	name := t.name
	if name == "" {
		name = fmt.Sprintf("Track %d", index+1)
	}
	part := score.NewPart(name, score.FillRests(events))
	part.Channel = t.notes[0].channel
	part.Program = t.programs[part.Channel]
	part.Measures = score.BuildMeasures(p.out.TimeSignatures, part.HighestTime())
	return part
}

func (p *parser) ql(tick int64) float64 {
	return float64(tick) / p.resolution
}

func (p *parser) warn(msg string) {
	p.out.Warnings = append(p.out.Warnings, msg)
	if !p.opts.SuppressWarnings {
		logger.Warn("MIDI parse warning", logger.Fields{"warning": msg})
	}
}
