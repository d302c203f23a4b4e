package seq

import (
	"fmt"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadSMF imports a Standard MIDI File as a sequence at the given
// timebase. All tracks are merged into one tick-ordered stream, tempo
// meta events become the tempo map, and ticks are rescaled from the
// file's resolution to ticksPerBeat. Event times are stamped before
// returning.
func ReadSMF(path string, ticksPerBeat uint32) (*Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MIDI file: %w", err)
	}
	defer f.Close()

	data, err := smf.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI file %s: %w", path, err)
	}

	ppq := 480
	if mt, ok := data.TimeFormat.(smf.MetricTicks); ok {
		ppq = int(mt)
	}

	var events []Event
	var changes []TempoChange
	for _, track := range data.Tracks {
		absTick := 0
		for _, ev := range track {
			absTick += int(ev.Delta)
			tick := uint32(uint64(absTick) * uint64(ticksPerBeat) / uint64(ppq))
			msg := ev.Message

			var bpm float64
			if msg.GetMetaTempo(&bpm) {
				changes = append(changes, TempoChange{
					Tick: tick,
					USPQ: uint32(60000000 / bpm),
				})
				continue
			}
			if msg.IsMeta() || !msg.IsPlayable() {
				continue
			}

			raw := msg.Bytes()
			if len(raw) == 0 || raw[0] < 0x80 || raw[0] >= 0xF0 {
				continue
			}
			e := Event{Tick: tick, Status: raw[0]}
			if len(raw) > 1 {
				e.Arg1 = raw[1]
			}
			if len(raw) > 2 {
				e.Arg2 = raw[2]
			}
			events = append(events, e)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Tick < events[j].Tick
	})
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Tick < changes[j].Tick
	})

	RecomputeEventTimes(events, changes, ticksPerBeat)
	return &Sequence{Events: events, TempoChanges: changes}, nil
}
