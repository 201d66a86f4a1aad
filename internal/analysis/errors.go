package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrParseFailure means the input could not be read as a symbolic-music
	// document. It is the only error Analyze callers ever see.
	ErrParseFailure = errors.New("analysis: could not parse MIDI document")

	// ErrEmptyScore is recorded when a document has no notes or rests.
	ErrEmptyScore = errors.New("analysis: document contains no notes or rests")
)

// StageError records a stage that failed. The analysis carries on and the
// stage's fields keep their sentinel values.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("analysis stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
