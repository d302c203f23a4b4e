package seq

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRecomputeEventTimesDefaultTempo(t *testing.T) {
	// one beat at 120 BPM is half a second
	events := []Event{
		{Tick: 0, Status: 0x90, Arg1: 60, Arg2: 100},
		{Tick: 384, Status: 0x80, Arg1: 60, Arg2: 0},
	}
	RecomputeEventTimes(events, nil, 384)

	if events[0].AtNs != 0 {
		t.Errorf("event 0 at %d, want 0", events[0].AtNs)
	}
	if events[1].AtNs != 500_000_000 {
		t.Errorf("event 1 at %d, want 500000000", events[1].AtNs)
	}
}

func TestRecomputeEventTimesTempoChange(t *testing.T) {
	// 120 BPM for one beat, then 240 BPM: beat 2 takes 250ms
	changes := []TempoChange{
		{Tick: 0, USPQ: 500000},
		{Tick: 384, USPQ: 250000},
	}
	events := []Event{
		{Tick: 0, Status: 0x90, Arg1: 60, Arg2: 100},
		{Tick: 384, Status: 0x90, Arg1: 62, Arg2: 100},
		{Tick: 768, Status: 0x80, Arg1: 62, Arg2: 0},
	}
	RecomputeEventTimes(events, changes, 384)

	if changes[0].AtNs != 0 || changes[1].AtNs != 500_000_000 {
		t.Errorf("change times %d, %d, want 0, 500000000", changes[0].AtNs, changes[1].AtNs)
	}

	want := []uint64{0, 500_000_000, 750_000_000}
	for i, ev := range events {
		if ev.AtNs != want[i] {
			t.Errorf("event %d at %d, want %d", i, ev.AtNs, want[i])
		}
	}
}

func TestRecomputeEventTimesBoundaryUsesOutgoingTempo(t *testing.T) {
	// an event exactly on a tempo change is stamped from the segment
	// before the change
	changes := []TempoChange{{Tick: 384, USPQ: 250000}}
	events := []Event{{Tick: 384, Status: 0x90, Arg1: 60, Arg2: 100}}
	RecomputeEventTimes(events, changes, 384)

	if events[0].AtNs != 500_000_000 {
		t.Errorf("boundary event at %d, want 500000000 (outgoing tempo)", events[0].AtNs)
	}
}

func TestBeatToNsEmptyTempoMap(t *testing.T) {
	if got := BeatToNs(nil, 2.0, 384); got != 1_000_000_000 {
		t.Errorf("BeatToNs(2.0) = %d, want 1000000000", got)
	}
	if got := BeatToNs(nil, 0, 384); got != 0 {
		t.Errorf("BeatToNs(0) = %d, want 0", got)
	}
}

func TestBeatToNsAccumulatesAcrossChanges(t *testing.T) {
	changes := []TempoChange{
		{Tick: 0, USPQ: 500000},
		{Tick: 384, USPQ: 250000},
	}
	RecomputeEventTimes(nil, changes, 384)

	// beat 2 sits one full beat past the change: 500ms + 250ms
	if got := BeatToNs(changes, 2.0, 384); got != 750_000_000 {
		t.Errorf("BeatToNs(2.0) = %d, want 750000000", got)
	}
}

func TestNsToBeat(t *testing.T) {
	changes := []TempoChange{
		{Tick: 0, USPQ: 500000},
		{Tick: 384, USPQ: 250000},
	}
	RecomputeEventTimes(nil, changes, 384)

	cases := []struct {
		ns   uint64
		want float64
	}{
		{0, 0},
		{250_000_000, 0.5},
		{500_000_000, 1.0},
		{750_000_000, 2.0},
	}
	for _, c := range cases {
		got := NsToBeat(changes, c.ns, 384)
		if diff := got - c.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("NsToBeat(%d) = %f, want %f", c.ns, got, c.want)
		}
	}
}

func TestNsToBeatEmptyTempoMap(t *testing.T) {
	if got := NsToBeat(nil, 1_000_000_000, 384); got != 2.0 {
		t.Errorf("NsToBeat(1s) = %f, want 2.0", got)
	}
}

// randomTempoMap derives a sorted tempo-change list from a seed.
func randomTempoMap(seed int64, count int, ticksPerBeat uint32) []TempoChange {
	rng := rand.New(rand.NewSource(seed))
	changes := make([]TempoChange, 0, count)
	tick := uint32(0)
	for i := 0; i < count; i++ {
		tick += uint32(rng.Intn(4 * int(ticksPerBeat)))
		changes = append(changes, TempoChange{
			Tick: tick,
			USPQ: uint32(60000 + rng.Intn(1940001)), // 60000..2000000
		})
		tick++
	}
	return changes
}

func TestPropertyConsecutiveChangeSpacing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("change deltas follow the outgoing tempo", prop.ForAll(
		func(seed int64, count int, tpb int) bool {
			ticksPerBeat := uint32(tpb)
			changes := randomTempoMap(seed, count, ticksPerBeat)
			RecomputeEventTimes(nil, changes, ticksPerBeat)

			for i := 0; i+1 < len(changes); i++ {
				delta := changes[i+1].Tick - changes[i].Tick
				want := tickSpanNs(delta, changes[i].USPQ, ticksPerBeat)
				if changes[i+1].AtNs-changes[i].AtNs != want {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(0, 8),
		gen.IntRange(24, 960),
	))

	properties.TestingRun(t)
}

func TestPropertyBeatNsRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("BeatToNs(NsToBeat(x)) stays within one tick", prop.ForAll(
		func(seed int64, count int, tpb int, tick int) bool {
			ticksPerBeat := uint32(tpb)
			changes := randomTempoMap(seed, count, ticksPerBeat)
			RecomputeEventTimes(nil, changes, ticksPerBeat)

			x := BeatToNs(changes, float64(tick)/float64(ticksPerBeat), ticksPerBeat)
			x2 := BeatToNs(changes, NsToBeat(changes, x, ticksPerBeat), ticksPerBeat)

			_, _, uspq := tempoAtNs(changes, x)
			tolerance := tickSpanNs(1, uspq, ticksPerBeat) + 1
			diff := x2 - x
			if x > x2 {
				diff = x - x2
			}
			return diff <= tolerance
		},
		gen.Int64(),
		gen.IntRange(0, 8),
		gen.IntRange(24, 960),
		gen.IntRange(0, 1<<20),
	))

	properties.TestingRun(t)
}
