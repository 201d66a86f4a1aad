package score

import (
	"errors"
	"math"
)

// ErrUnnamedDuration is returned when a length has no notated duration type.
var ErrUnnamedDuration = errors.New("score: duration has no notated type")

// Quantize snaps a quarter-length to the nearer of the sixteenth-note grid
// and the eighth-triplet grid. Exact ties go to the sixteenth grid.
func Quantize(ql float64) float64 {
	if ql <= 0 {
		return 0
	}
	q4 := math.Round(ql*4) / 4
	q3 := math.Round(ql*3) / 3
	if math.Abs(q3-ql) < math.Abs(q4-ql)-epsilon {
		return q3
	}
	return q4
}

// DurationType is a notated duration: a base type with augmentation dots,
// optionally inside a triplet.
type DurationType struct {
	Type   string
	Dots   int
	Tuplet bool
}

type baseDuration struct {
	name string
	ql   float64
}

// Longest first.
var baseDurations = []baseDuration{
	{"duplex-maxima", 64},
	{"maxima", 32},
	{"longa", 16},
	{"breve", 8},
	{"whole", 4},
	{"half", 2},
	{"quarter", 1},
	{"eighth", 0.5},
	{"16th", 0.25},
	{"32nd", 0.125},
	{"64th", 0.0625},
	{"128th", 0.03125},
}

const maxDots = 3

// TypeFor names a quarter-length: undotted and dotted base types first, then
// triplet values (two thirds of a base type).
func TypeFor(ql float64) (DurationType, error) {
	if nearZero(ql) {
		return DurationType{Type: "zero"}, nil
	}
	for dots := 0; dots <= maxDots; dots++ {
		factor := 2 - 1/math.Pow(2, float64(dots))
		for _, b := range baseDurations {
			if nearZero(ql - b.ql*factor) {
				return DurationType{Type: b.name, Dots: dots}, nil
			}
		}
	}
	for _, b := range baseDurations {
		if nearZero(ql*1.5 - b.ql) {
			return DurationType{Type: b.name, Tuplet: true}, nil
		}
	}
	return DurationType{}, ErrUnnamedDuration
}

func nearZero(x float64) bool {
	return math.Abs(x) < epsilon
}

func nearInteger(x float64) bool {
	return nearZero(x - math.Round(x))
}

func modulo(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}
