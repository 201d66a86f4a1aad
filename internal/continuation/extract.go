package continuation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
)

var (
	ErrNoJSON            = errors.New("continuation: no JSON object in model output")
	ErrEmptyContinuation = errors.New("continuation: model returned no events")
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

const (
	rightHandName = "Right Hand"
	leftHandName  = "Left Hand"
)

// Response is the model's answer in hand-off format.
type Response struct {
	RightHand []EventJSON `json:"right_hand"`
	LeftHand  []EventJSON `json:"left_hand"`
}

// Continuation is a decoded answer. Skipped holds the events that could not
// be converted and were left out.
type Continuation struct {
	RightHand *score.Part
	LeftHand  *score.Part
	Skipped   []error
}

// Parts returns the non-empty hands, right hand first.
func (c *Continuation) Parts() []*score.Part {
	var parts []*score.Part
	for _, p := range []*score.Part{c.RightHand, c.LeftHand} {
		if p != nil && len(p.Events) > 0 {
			parts = append(parts, p)
		}
	}
	return parts
}

// ExtractJSON finds the JSON object in free model text: a ```json fenced
// block first, otherwise everything from the first '{' to the last '}'.
func ExtractJSON(text string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// ParseResponse decodes the extracted JSON object.
func ParseResponse(raw string) (*Response, error) {
	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode continuation JSON: %w", err)
	}
	return &resp, nil
}

// Decode converts both hands into parts. Invalid events are skipped and
// reported in Continuation.Skipped; ErrEmptyContinuation is returned when
// neither hand has a note or chord left.
func Decode(resp *Response) (*Continuation, error) {
	c := &Continuation{}
	c.RightHand = c.decodeHand(rightHandName, resp.RightHand)
	c.LeftHand = c.decodeHand(leftHandName, resp.LeftHand)

	if !hasSound(c.RightHand) && !hasSound(c.LeftHand) {
		return c, ErrEmptyContinuation
	}
	return c, nil
}

func (c *Continuation) decodeHand(name string, events []EventJSON) *score.Part {
	decoded := make([]score.Event, 0, len(events))
	for _, e := range events {
		ev, err := FromEventJSON(e)
		if err != nil {
			c.Skipped = append(c.Skipped, fmt.Errorf("%s: %w", name, err))
			continue
		}
		decoded = append(decoded, ev)
	}
	return score.NewPart(name, decoded)
}

func hasSound(p *score.Part) bool {
	return p != nil && len(p.Notes()) > 0
}

// Normalize shifts every part so the earliest event starts at offset 0.
func Normalize(parts []*score.Part) {
	earliest := math.Inf(1)
	for _, p := range parts {
		if p != nil && len(p.Events) > 0 {
			earliest = math.Min(earliest, p.Events[0].Offset())
		}
	}
	if math.IsInf(earliest, 1) || earliest == 0 {
		return
	}
	for _, p := range parts {
		if p == nil {
			continue
		}
		for i, e := range p.Events {
			p.Events[i] = shift(e, -earliest, 0)
		}
	}
}

// shift rebuilds an event moved by delta quarter lengths with its velocity
// changed by velocityDelta. Offsets never go below zero.
func shift(e score.Event, delta float64, velocityDelta int) score.Event {
	offset := math.Max(0, e.Offset()+delta)
	switch ev := e.(type) {
	case *score.Note:
		return score.NewNote(ev.Pitch(), offset, ev.Duration(), clamp(ev.Velocity()+velocityDelta, 0, 127))
	case *score.Chord:
		notes := make([]*score.Note, 0, len(ev.Notes()))
		for _, n := range ev.Notes() {
			notes = append(notes, score.NewNote(n.Pitch(), offset, ev.Duration(), clamp(n.Velocity()+velocityDelta, 0, 127)))
		}
		return score.NewChord(offset, ev.Duration(), notes...)
	default:
		return score.NewRest(offset, e.Duration())
	}
}
