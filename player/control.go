package player

import (
	"fmt"

	"epichord/seq"
)

// The control surface. Every method here runs on the control thread; the
// dispatcher observes the effects at its next frame boundary. Methods
// returning an error report user-input problems the command loop logs
// and drops — the engine keeps running.

// Load decodes a sequence dump and its tempo dump, stamps event times at
// the current timebase, and publishes the result as the active sequence.
// An untrusted path is a user error; a short or unreadable file is fatal.
func (e *Engine) Load(sequencePath, tempoPath string) error {
	if !seq.Trusted(sequencePath) {
		return fmt.Errorf("refuse to load file from this location (%s)", sequencePath)
	}
	if !seq.Trusted(tempoPath) {
		return fmt.Errorf("refuse to load file from this location (%s)", tempoPath)
	}
	s, err := seq.Load(sequencePath, tempoPath, e.ticksPerBeat.Load())
	if err != nil {
		e.fatalf("%v", err)
		return err
	}
	e.publish(s)
	return nil
}

// LoadSMF imports a Standard MIDI File as the active sequence. SMF files
// are user documents, not editor dumps, so a bad one is a user error.
func (e *Engine) LoadSMF(path string) error {
	s, err := seq.ReadSMF(path, e.ticksPerBeat.Load())
	if err != nil {
		return err
	}
	e.publish(s)
	return nil
}

// publish swaps in a new sequence, rewires loop endpoints to its tempo
// map, and wakes the reclaimer to drain whatever the dispatcher retired.
func (e *Engine) publish(s *seq.Sequence) {
	e.store.publish(s)
	if e.loopInitialized.Load() {
		e.recomputeLoopNs()
	}
	e.store.wake()
}

// Play starts the dispatcher. Ignored while already playing.
func (e *Engine) Play() {
	if e.playFlag.Load() {
		e.logger.Error("refusing to play, already playing")
		return
	}
	e.playFlag.Store(true)
	e.spawnDispatcher()
}

// Stop clears the play flag and waits for the dispatcher to emit its
// final killAll and exit.
func (e *Engine) Stop() {
	if !e.playFlag.Load() {
		e.logger.Error("stop ignored, not playing")
		return
	}
	e.playFlag.Store(false)
	e.joinDispatcher()
}

// Seek moves the playhead to beat number + numerator/denominator. While
// stopped the move is immediate; while playing it is handed to the
// dispatcher and this call waits one frame for it to land.
func (e *Engine) Seek(number, numerator, denominator int) {
	if denominator == 0 {
		denominator = 1
	}
	beat := float64(number) + float64(numerator)/float64(denominator)
	targetNs := seq.BeatToNs(e.store.snapshot().TempoChanges, beat, e.ticksPerBeat.Load())
	if !e.playFlag.Load() {
		e.songNs.Store(targetNs)
		return
	}
	e.onlineSeekTargetNs.Store(targetNs)
	e.onlineSeekFlag.Store(true)
	e.clock.Sleep(FrameSizeNs)
}

// CutAll silences every hanging note. While stopped the cut happens
// here; while playing it is flagged for the dispatcher and this call
// waits one frame.
func (e *Engine) CutAll() {
	if !e.playFlag.Load() {
		e.emitKillAll()
		return
	}
	e.cutAllFlag.Store(true)
	e.clock.Sleep(FrameSizeNs)
}

// SetLoop records loop endpoints by beat under the active tempo map.
func (e *Engine) SetLoop(startBeat, endBeat float64) {
	e.loopStartBeat = startBeat
	e.loopEndBeat = endBeat
	e.recomputeLoopNs()
	e.loopInitialized.Store(true)
}

// recomputeLoopNs rewires the stored beat endpoints to the active tempo
// map and timebase.
func (e *Engine) recomputeLoopNs() {
	changes := e.store.snapshot().TempoChanges
	tpb := e.ticksPerBeat.Load()
	e.loopStartNs.Store(seq.BeatToNs(changes, e.loopStartBeat, tpb))
	e.loopEndNs.Store(seq.BeatToNs(changes, e.loopEndBeat, tpb))
}

// EnableLoop turns looping on. Endpoints must have been set first.
func (e *Engine) EnableLoop() error {
	if !e.loopInitialized.Load() {
		return fmt.Errorf("can't enable loop, not initialized")
	}
	e.loopFlag.Store(true)
	return nil
}

// DisableLoop turns looping off.
func (e *Engine) DisableLoop() {
	e.loopFlag.Store(false)
}

// Loop reports the loop state for monitoring.
func (e *Engine) Loop() (enabled bool, startBeat, endBeat float64) {
	return e.loopFlag.Load(), e.loopStartBeat, e.loopEndBeat
}

// SetTicksPerBeat updates the timebase. Refused while playing; event
// times are restamped on the next load.
func (e *Engine) SetTicksPerBeat(n int) error {
	if n <= 0 {
		return fmt.Errorf("ignoring setting ticks per beat to %d", n)
	}
	if e.playFlag.Load() {
		return fmt.Errorf("not changing ticks per beat while playing")
	}
	e.ticksPerBeat.Store(uint32(n))
	return nil
}

// CurrentBeat reports the playhead position in beats under the active
// tempo map.
func (e *Engine) CurrentBeat() float64 {
	return seq.NsToBeat(e.store.snapshot().TempoChanges, e.songNs.Load(), e.ticksPerBeat.Load())
}

// Execute emits a single MIDI message immediately, mirroring note state.
// Ignored while playing: the dispatcher owns the port and the table.
func (e *Engine) Execute(kind, channel, arg1, arg2 int) error {
	if e.playFlag.Load() {
		return nil
	}
	status := byte(kind)<<4 | byte(channel)&0x0f
	e.trackNoteState(status, byte(arg1), byte(arg2))
	e.list.Reset()
	wire := [3]byte{status, byte(arg1), byte(arg2)}
	if err := e.list.Add(e.clock.Now(), wire[:seq.WireSize(status)]); err != nil {
		e.fatalf("'execute' unable to add packet: %v", err)
		return err
	}
	if err := e.port.Send(&e.list); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	return nil
}
