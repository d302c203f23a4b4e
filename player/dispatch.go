package player

import "epichord/seq"

// The dispatcher plays the song in 20ms frames, one frame ahead of the
// wall clock: emit the next frame's events stamped with their true wall
// times, sleep to the frame boundary, repeat. Control flags are polled
// once per frame, so a command observed at frame N takes effect no later
// than the start of frame N+1.

// spawnDispatcher starts the dispatch worker. The caller must have set
// playFlag first.
func (e *Engine) spawnDispatcher() {
	e.dispatchDone = make(chan struct{})
	go func() {
		defer close(e.dispatchDone)
		e.dispatchLoop()
	}()
}

// joinDispatcher waits for the worker to finalize and exit.
func (e *Engine) joinDispatcher() {
	<-e.dispatchDone
}

// rebaseAnchors re-anchors the wall-time frame after a discontinuity
// (online seek, loop wrap): the playhead restarts at currentNs and the
// song origin shifts so songNs maps onto it.
func (e *Engine) rebaseAnchors(currentNs uint64) {
	e.absolutePlayHeadNs = currentNs
	e.absoluteLeadingEdgeNs = e.absolutePlayHeadNs + FrameSizeNs
	e.absoluteSongStartNs = e.absolutePlayHeadNs - e.songNs.Load()
}

// dispatchLoop runs frames until playFlag clears, then emits a final
// killAll and exits. The frame order is load-bearing: snapshot/retire,
// stop, online seek, cut-all, loop wrap, dispatch, sleep.
func (e *Engine) dispatchLoop() {
	currentNs := e.clock.Now()
	e.absolutePlayHeadNs = currentNs - currentNs%FrameSizeNs + FrameSizeNs
	e.absoluteLeadingEdgeNs = e.absolutePlayHeadNs + FrameSizeNs
	e.absoluteSongStartNs = e.absolutePlayHeadNs - e.songNs.Load()

	var prev *seq.Sequence
	for {
		snap := e.store.snapshot()
		if prev != nil && prev != snap {
			e.store.retire(prev)
		}
		prev = snap

		if !e.playFlag.Load() {
			e.onlineSeekFlag.Store(false)
			e.emitKillAll()
			return
		}
		if e.onlineSeekFlag.Load() {
			e.emitKillAll()
			e.songNs.Store(e.onlineSeekTargetNs.Load())
			e.rebaseAnchors(currentNs)
			e.onlineSeekFlag.Store(false)
		}
		if e.cutAllFlag.Load() {
			e.emitKillAll()
			e.cutAllFlag.Store(false)
		}

		songNs := e.songNs.Load()
		loopEndNs := e.loopEndNs.Load()
		if e.loopFlag.Load() && songNs > loopEndNs {
			e.emitKillAll()
			songNs = e.loopStartNs.Load()
			e.songNs.Store(songNs)
			e.rebaseAnchors(currentNs)
		}

		if e.loopFlag.Load() && songNs+FrameSizeNs > loopEndNs {
			// split the frame across the loop point; the +1 keeps
			// note-offs landing exactly on the endpoint inside the
			// outgoing pass
			loopStartNs := e.loopStartNs.Load()
			overshot := songNs + FrameSizeNs - loopEndNs
			e.dispatchRange(snap, songNs, loopEndNs+1)
			e.absolutePlayHeadNs += loopEndNs - songNs
			e.absoluteSongStartNs = e.absolutePlayHeadNs - loopStartNs
			e.dispatchRange(snap, loopStartNs, loopStartNs+overshot)
			e.songNs.Store(loopStartNs + overshot)
		} else {
			e.dispatchRange(snap, songNs, songNs+FrameSizeNs)
			e.songNs.Store(songNs + FrameSizeNs)
		}

		// measured against the clock reading taken before dispatch;
		// recomputing here would accumulate drift
		sleepTargetNs := e.absolutePlayHeadNs - currentNs
		e.absolutePlayHeadNs += FrameSizeNs
		e.absoluteLeadingEdgeNs += FrameSizeNs
		e.clock.Sleep(sleepTargetNs)
		currentNs = e.clock.Now()
		if currentNs > e.absolutePlayHeadNs {
			e.fatalf("over slept! game over man!")
			return
		}
	}
}

// dispatchRange emits every event with atNs in [fromNs, toNs), stamped
// at its absolute wall time, mirroring note state into the table.
func (e *Engine) dispatchRange(s *seq.Sequence, fromNs, toNs uint64) {
	events := s.Events
	i := 0
	for ; i < len(events); i++ {
		if events[i].AtNs >= fromNs {
			break
		}
	}

	e.list.Reset()
	for ; i < len(events); i++ {
		ev := events[i]
		if ev.AtNs >= toNs {
			break
		}
		e.trackNoteState(ev.Status, ev.Arg1, ev.Arg2)
		wire := [3]byte{ev.Status, ev.Arg1, ev.Arg2}
		if err := e.list.Add(ev.AtNs+e.absoluteSongStartNs, wire[:seq.WireSize(ev.Status)]); err != nil {
			e.fatalf("unable to add packet: %v", err)
			return
		}
	}
	if e.list.Len() == 0 {
		return
	}
	if err := e.port.Send(&e.list); err != nil {
		e.logger.Error("MIDI send failed", "err", err)
	}
}

// emitKillAll cuts every hanging note, stamped at the leading edge so
// the offs land at or after anything already emitted this frame.
func (e *Engine) emitKillAll() {
	if e.notes.count == 0 {
		return
	}
	e.list.Reset()
	if err := e.notes.killAll(&e.list, e.absoluteLeadingEdgeNs); err != nil {
		e.fatalf("unable to add packet (cut all): %v", err)
		return
	}
	if err := e.port.Send(&e.list); err != nil {
		e.logger.Error("MIDI send failed", "err", err)
	}
}

// trackNoteState mirrors an emitted message into the playing-note table.
func (e *Engine) trackNoteState(status, arg1, arg2 byte) {
	if seq.IsNoteOn(status, arg2) {
		if err := e.notes.remember(status&0x0f, arg1); err != nil {
			e.fatalf("%v", err)
		}
	}
	if seq.IsNoteOff(status, arg2) {
		e.notes.forget(status&0x0f, arg1)
	}
}
