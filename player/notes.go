package player

import (
	"fmt"

	"epichord/midi"
	"epichord/seq"
)

// playingMax bounds simultaneous hanging notes. The table is fixed
// storage so tracking a note on the dispatch path never allocates.
const playingMax = 1024

type playingNote struct {
	active  bool
	channel uint8
	note    uint8
}

// noteTable tracks which (channel, note) pairs have an outstanding
// note-on, so interruptions (stop, seek, loop wrap, cut-all) can
// synthesize matching note-offs. Duplicate pairs are allowed; forget
// clears the first match it finds.
type noteTable struct {
	slots [playingMax]playingNote
	count int
}

// remember records an emitted note-on in the first free slot. A full
// table is a design-boundary violation reported to the caller.
func (t *noteTable) remember(channel, note uint8) error {
	for i := range t.slots {
		if t.slots[i].active {
			continue
		}
		t.slots[i] = playingNote{active: true, channel: channel, note: note}
		t.count++
		return nil
	}
	return fmt.Errorf("remembering too many on-notes")
}

// forget clears the table entry matching an emitted note-off. No-op if
// the pair is not present.
func (t *noteTable) forget(channel, note uint8) {
	seen := 0
	for i := range t.slots {
		if seen >= t.count {
			return
		}
		if !t.slots[i].active {
			continue
		}
		seen++
		if t.slots[i].channel == channel && t.slots[i].note == note {
			t.slots[i].active = false
			t.count--
			return
		}
	}
}

// killAll appends a note-off for every hanging note to list, all stamped
// with timestampNs, and empties the table.
func (t *noteTable) killAll(list *midi.List, timestampNs uint64) error {
	seen := 0
	for i := range t.slots {
		if seen >= t.count {
			break
		}
		if !t.slots[i].active {
			continue
		}
		seen++
		off := [3]byte{seq.StatusNoteOff | t.slots[i].channel, t.slots[i].note, 0}
		if err := list.Add(timestampNs, off[:]); err != nil {
			return err
		}
		t.slots[i].active = false
	}
	t.count = 0
	return nil
}
