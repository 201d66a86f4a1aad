package midifile

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
)

// TicksPerQuarter is the resolution of files written by Write.
const TicksPerQuarter = 480

type timedMessage struct {
	tick  int64
	off   bool
	pitch int
	msg   []byte
}

// Write encodes parts as a format 1 SMF: a conductor track carrying tempo
// and meter, then one track per part. Each part gets its own channel,
// skipping the General MIDI drum channel.
func Write(w io.Writer, parts []*score.Part, bpm int, meter score.Meter) error {
	if bpm <= 0 {
		bpm = int(score.DefaultBPM)
	}
	if !meter.Valid() {
		meter = score.CommonTime
	}

	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var conductor smf.Track
	conductor.Add(0, timeSignatureMessage(meter))
	conductor.Add(0, smf.MetaTempo(float64(bpm)))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return fmt.Errorf("failed to add conductor track: %w", err)
	}

	for i, part := range parts {
		track, err := encodePart(part, channelFor(i))
		if err != nil {
			return err
		}
		if err := s.Add(track); err != nil {
			return fmt.Errorf("failed to add track %q: %w", part.Name, err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write MIDI: %w", err)
	}
	return nil
}

// Encode is Write into a byte slice.
func Encode(parts []*score.Part, bpm int, meter score.Meter) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, parts, bpm, meter); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func channelFor(index int) uint8 {
	ch := index % 15
	if ch >= drumChannel {
		ch++
	}
	return uint8(ch)
}

// timeSignatureMessage builds FF 58 04 nn dd cc bb with the denominator as
// a power of two.
func timeSignatureMessage(m score.Meter) smf.Message {
	power := uint8(0)
	for d := m.Denominator; d > 1; d /= 2 {
		power++
	}
	return smf.Message([]byte{0xFF, metaTimeSig, 0x04, uint8(m.Numerator), power, 0x18, 0x08})
}

func encodePart(part *score.Part, channel uint8) (smf.Track, error) {
	var track smf.Track
	if part.Name != "" {
		track.Add(0, smf.MetaTrackSequenceName(part.Name))
	}
	if part.Program > 0 && part.Program < 128 {
		track.Add(0, midi.ProgramChange(channel, uint8(part.Program)))
	}

	var messages []timedMessage
	addNote := func(pitch, velocity int, offset, duration float64) error {
		if pitch < 0 || pitch > 127 {
			return fmt.Errorf("pitch %d out of MIDI range in part %q", pitch, part.Name)
		}
		start := toTicks(offset)
		end := toTicks(offset + duration)
		if end <= start {
			end = start + 1
		}
		vel := clampVelocity(velocity)
		messages = append(messages,
			timedMessage{tick: start, pitch: pitch, msg: midi.NoteOn(channel, uint8(pitch), vel)},
			timedMessage{tick: end, off: true, pitch: pitch, msg: midi.NoteOff(channel, uint8(pitch))},
		)
		return nil
	}

	for _, e := range part.Events {
		switch ev := e.(type) {
		case *score.Note:
			if err := addNote(ev.Pitch(), ev.Velocity(), ev.Offset(), ev.Duration()); err != nil {
				return nil, err
			}
		case *score.Chord:
			for _, n := range ev.Notes() {
				if err := addNote(n.Pitch(), n.Velocity(), ev.Offset(), ev.Duration()); err != nil {
					return nil, err
				}
			}
		case *score.Rest:
		}
	}

	// Releases go before attacks on the same tick so repeated notes retrigger.
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].tick != messages[j].tick {
			return messages[i].tick < messages[j].tick
		}
		if messages[i].off != messages[j].off {
			return messages[i].off
		}
		return messages[i].pitch < messages[j].pitch
	})

	var last int64
	for _, m := range messages {
		track.Add(uint32(m.tick-last), m.msg)
		last = m.tick
	}
	track.Close(0)
	return track, nil
}

func toTicks(ql float64) int64 {
	if ql < 0 {
		return 0
	}
	return int64(math.Round(ql * TicksPerQuarter))
}

func clampVelocity(v int) uint8 {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
