package continuation

import (
	"math/rand/v2"

	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
)

const (
	// Maximum timing drift in quarter lengths, either direction.
	timingJitter = 0.0075
	// Maximum velocity change, either direction.
	velocityJitter = 4
)

// Humanize nudges the timing and velocity of every note and chord by a
// small random amount. Rests are left alone.
func Humanize(parts []*score.Part, rng *rand.Rand) {
	for _, p := range parts {
		if p == nil {
			continue
		}
		for i, e := range p.Events {
			if _, ok := e.(*score.Rest); ok {
				continue
			}
			drift := (rng.Float64()*2 - 1) * timingJitter
			velocity := rng.IntN(2*velocityJitter+1) - velocityJitter
			p.Events[i] = shift(e, drift, velocity)
		}
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
