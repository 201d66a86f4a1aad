package continuation

import (
	"github.com/Conceptual-Machines/midi-insight-api/internal/midifile"
	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
)

// Render writes the continuation parts as a standalone SMF at the tempo and
// meter of the analysed piece.
func Render(parts []*score.Part, bpm int, meter score.Meter) ([]byte, error) {
	return midifile.Encode(parts, bpm, meter)
}
