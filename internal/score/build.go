package score

import "sort"

const maxMeasures = 100000

// FillRests returns events with rests inserted into every silent gap of the
// part, including a gap before the first sounding event.
func FillRests(events []Event) []Event {
	sorted := make([]Event, 0, len(events))
	for _, e := range events {
		if _, isRest := e.(*Rest); !isRest {
			sorted = append(sorted, e)
		}
	}
	sortEvents(sorted)

	out := make([]Event, 0, len(sorted))
	cursor := 0.0
	for _, e := range sorted {
		if e.Offset() > cursor+epsilon {
			out = append(out, NewRest(cursor, e.Offset()-cursor))
		}
		out = append(out, e)
		if end := e.Offset() + e.Duration(); end > cursor {
			cursor = end
		}
	}
	return out
}

// BuildMeasures lays bars end to end from offset 0 until end, following
// the meter marks. Before the first mark the meter is 4/4. With no marks at
// all there are no measures.
func BuildMeasures(marks []TimeSignatureMark, end float64) []Measure {
	if len(marks) == 0 {
		return nil
	}
	sorted := make([]TimeSignatureMark, len(marks))
	copy(sorted, marks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	meterAt := func(offset float64) Meter {
		m := CommonTime
		for _, mark := range sorted {
			if mark.Offset > offset+epsilon {
				break
			}
			if mark.Meter.Valid() {
				m = mark.Meter
			}
		}
		return m
	}

	var measures []Measure
	offset := 0.0
	for number := 1; number <= maxMeasures; number++ {
		m := meterAt(offset)
		length := m.BarLength()
		measures = append(measures, Measure{Number: number, Offset: offset, Duration: length, Meter: m})
		offset += length
		if offset >= end-epsilon {
			break
		}
	}
	return measures
}
