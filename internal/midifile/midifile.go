// Package midifile reads Standard MIDI Files into a score.Score and writes
// parts back out as SMF.
package midifile

import "errors"

var (
	// ErrInvalidMIDI means the bytes are not a well-formed Standard MIDI File.
	ErrInvalidMIDI = errors.New("midifile: invalid MIDI data")

	// ErrUnsupportedFormat means the file is well formed but uses a feature
	// the parser does not handle, such as SMPTE time division.
	ErrUnsupportedFormat = errors.New("midifile: unsupported MIDI format")
)

// ParseOptions configures Parse.
type ParseOptions struct {
	// SuppressWarnings stops recoverable oddities (dangling note-ons,
	// unmatched note-offs) from being logged. They are still collected on
	// the returned score.
	SuppressWarnings bool

	// AutoDownloadResources is reserved and has no effect: Parse never
	// fetches anything. Setting it only adds a debug log line.
	AutoDownloadResources bool
}

// DefaultParseOptions silences warnings and forbids downloads.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{SuppressWarnings: true}
}
