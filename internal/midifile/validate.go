package midifile

import (
	"bytes"
	"fmt"

	"github.com/yalue/midi"
)

// Info summarizes a file that passed validation.
type Info struct {
	Tracks          int
	Events          int
	TicksPerQuarter int
}

// Validate checks that data is a syntactically valid SMF with metrical
// (ticks per quarter note) timing. It does not interpret the events.
func Validate(data []byte) (*Info, error) {
	f, err := midi.ParseSMFFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMIDI, err)
	}

	ticks := f.Division.TicksPerQuarterNote()
	if ticks == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Division.String())
	}

	info := &Info{Tracks: len(f.Tracks), TicksPerQuarter: int(ticks)}
	for _, t := range f.Tracks {
		info.Events += len(t.Messages)
	}
	return info, nil
}
