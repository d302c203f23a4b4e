package seq

// The time map converts between musical time (beats, ticks) and song-local
// nanoseconds under an arbitrary tempo-change list. One tick lasts
// 1000*uspq/ticksPerBeat nanoseconds; the conversions integrate that
// piecewise. All functions are pure over a sequence snapshot.

// tempoAtTick locates the last tempo change whose tick is at or before
// targetTick. An empty list, or a target before the first change, yields
// the default segment (base 0, 120 BPM).
func tempoAtTick(changes []TempoChange, targetTick uint32) (baseTick uint32, baseNs uint64, uspq uint32) {
	if len(changes) == 0 || targetTick < changes[0].Tick {
		return 0, 0, DefaultUSPQ
	}
	i := 0
	for i < len(changes)-1 && changes[i+1].Tick <= targetTick {
		i++
	}
	return changes[i].Tick, changes[i].AtNs, changes[i].USPQ
}

// tempoAtNs is tempoAtTick keyed by the changes' derived wall offsets.
func tempoAtNs(changes []TempoChange, targetNs uint64) (baseTick uint32, baseNs uint64, uspq uint32) {
	if len(changes) == 0 || targetNs < changes[0].AtNs {
		return 0, 0, DefaultUSPQ
	}
	i := 0
	for i < len(changes)-1 && changes[i+1].AtNs <= targetNs {
		i++
	}
	return changes[i].Tick, changes[i].AtNs, changes[i].USPQ
}

// tickSpanNs returns the duration of deltaTicks at uspq. Float64
// intermediates truncated to uint64, to stay bit-compatible with
// previously recorded timings.
func tickSpanNs(deltaTicks uint32, uspq uint32, ticksPerBeat uint32) uint64 {
	return uint64(float64(deltaTicks) * 1000.0 * float64(uspq) / float64(ticksPerBeat))
}

// BeatToNs converts a position in beats to song-local nanoseconds.
func BeatToNs(changes []TempoChange, beat float64, ticksPerBeat uint32) uint64 {
	targetTick := uint32(beat * float64(ticksPerBeat))
	baseTick, baseNs, uspq := tempoAtTick(changes, targetTick)
	return baseNs + tickSpanNs(targetTick-baseTick, uspq, ticksPerBeat)
}

// NsToBeat converts song-local nanoseconds to a position in beats.
func NsToBeat(changes []TempoChange, ns uint64, ticksPerBeat uint32) float64 {
	baseTick, baseNs, uspq := tempoAtNs(changes, ns)
	return float64(baseTick)/float64(ticksPerBeat) + float64(ns-baseNs)/(1000.0*float64(uspq))
}

// RecomputeEventTimes derives AtNs for every tempo change and event in a
// single pass. Events are drained up to each change boundary and stamped
// with the outgoing segment's tempo, so an event sharing a change's tick
// is timed by the tempo in force before the change.
func RecomputeEventTimes(events []Event, changes []TempoChange, ticksPerBeat uint32) {
	uspq := uint32(DefaultUSPQ)
	var prevTick uint32
	var prevNs uint64

	j := 0
	for i := range changes {
		changes[i].AtNs = prevNs + tickSpanNs(changes[i].Tick-prevTick, uspq, ticksPerBeat)

		for j < len(events) {
			atNs := prevNs + tickSpanNs(events[j].Tick-prevTick, uspq, ticksPerBeat)
			if atNs > changes[i].AtNs {
				break
			}
			events[j].AtNs = atNs
			j++
		}

		prevTick = changes[i].Tick
		prevNs = changes[i].AtNs
		uspq = changes[i].USPQ
	}

	for ; j < len(events); j++ {
		events[j].AtNs = prevNs + tickSpanNs(events[j].Tick-prevTick, uspq, ticksPerBeat)
	}
}
