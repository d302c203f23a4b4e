package player

import (
	"os"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"epichord/midi"
	"epichord/seq"
)

// FrameSizeNs is the dispatcher's look-ahead slice: 20ms of events are
// emitted one frame ahead of the wall clock.
const FrameSizeNs = 20_000_000

// Engine is the sound core. It owns the active sequence, the transport
// state, and the dispatcher that turns both into wall-stamped MIDI.
//
// Concurrency follows a single-writer discipline per field: the control
// surface writes the flags, the dispatcher reads them once per frame and
// owns the anchors; the sequence handle is the only aliased heap object
// and goes through the store's atomic swap.
type Engine struct {
	port   midi.Port
	clock  Clock
	logger *log.Logger

	playFlag atomic.Bool
	songNs   atomic.Uint64

	onlineSeekFlag     atomic.Bool
	onlineSeekTargetNs atomic.Uint64
	cutAllFlag         atomic.Bool

	loopFlag        atomic.Bool
	loopInitialized atomic.Bool
	loopStartNs     atomic.Uint64
	loopEndNs       atomic.Uint64
	loopStartBeat   float64 // control thread only
	loopEndBeat     float64

	ticksPerBeat atomic.Uint32

	store *store
	notes noteTable // dispatcher-owned while playing, control-owned while stopped
	list  midi.List // reused per frame; building a frame never allocates

	// wall-time anchors, dispatcher thread only
	absolutePlayHeadNs    uint64
	absoluteLeadingEdgeNs uint64
	absoluteSongStartNs   uint64

	dispatchDone chan struct{}

	// fatalf reports a design-boundary violation: table overflow,
	// reclamation overflow, packet-list overflow, oversleep. Continuing
	// past any of these would produce silent musical corruption.
	fatalf func(format string, args ...any)
}

// New builds an engine around a MIDI port and a clock. The port's stamps
// must come from the same clock.
func New(port midi.Port, clock Clock, logger *log.Logger) *Engine {
	e := &Engine{port: port, clock: clock, logger: logger}
	e.ticksPerBeat.Store(seq.DefaultTicksPerBeat)
	e.fatalf = func(format string, args ...any) {
		logger.Errorf("** "+format, args...)
		os.Exit(-1)
	}
	e.store = newStore(func(format string, args ...any) {
		e.fatalf(format, args...)
	})
	return e
}

// Close stops playback if running and shuts down the reclaimer.
func (e *Engine) Close() {
	if e.playFlag.Load() {
		e.playFlag.Store(false)
		e.joinDispatcher()
	}
	e.store.close()
}

// Playing reports whether the dispatcher is running.
func (e *Engine) Playing() bool {
	return e.playFlag.Load()
}

// TicksPerBeat returns the current timebase.
func (e *Engine) TicksPerBeat() uint32 {
	return e.ticksPerBeat.Load()
}
