package seq

// MIDI status high nibbles for the message types the engine dispatches.
const (
	StatusNoteOff         = 0x80
	StatusNoteOn          = 0x90
	StatusPolyAftertouch  = 0xA0
	StatusController      = 0xB0
	StatusProgramChange   = 0xC0
	StatusChannelPressure = 0xD0
	StatusPitchBend       = 0xE0
)

// DefaultUSPQ is the tempo assumed before the first tempo change:
// 500000 microseconds per quarter note, 120 BPM.
const DefaultUSPQ = 500000

// DefaultTicksPerBeat is the engine timebase until a ticks-per-beat
// command changes it.
const DefaultTicksPerBeat = 384

// Event is one sequencer event: a musical position plus a raw channel
// message. AtNs is the derived wall-time offset from song start and is
// populated by RecomputeEventTimes.
type Event struct {
	Tick   uint32
	AtNs   uint64
	Status byte
	Arg1   byte
	Arg2   byte
}

// Kind returns the message type nibble (StatusNoteOn etc).
func (e Event) Kind() byte { return e.Status & 0xf0 }

// Channel returns the 0-15 channel nibble.
func (e Event) Channel() byte { return e.Status & 0x0f }

// TempoChange sets the tempo from Tick onward. AtNs is derived like an
// event's.
type TempoChange struct {
	Tick uint32
	AtNs uint64
	USPQ uint32
}

// Sequence is an immutable pair of tick-ordered event and tempo-change
// lists. Readers snapshot the active sequence once per frame and must not
// mutate it; replacement happens by publishing a new Sequence.
type Sequence struct {
	Events       []Event
	TempoChanges []TempoChange
}

// WireSize returns the number of bytes a message occupies on the wire.
// Program change and channel pressure carry a single data byte.
func WireSize(status byte) int {
	switch status & 0xf0 {
	case StatusProgramChange, StatusChannelPressure:
		return 2
	}
	return 3
}

// IsNoteOn reports whether the message is a sounding note-on.
func IsNoteOn(status, velocity byte) bool {
	return status&0xf0 == StatusNoteOn && velocity > 0
}

// IsNoteOff reports whether the message releases a note. A note-on with
// zero velocity counts.
func IsNoteOff(status, velocity byte) bool {
	kind := status & 0xf0
	return kind == StatusNoteOff || (kind == StatusNoteOn && velocity == 0)
}
