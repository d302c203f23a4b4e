package player

import (
	"testing"

	"epichord/midi"
)

func TestNoteTableRememberForget(t *testing.T) {
	var table noteTable

	if err := table.remember(0, 60); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if err := table.remember(1, 62); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if table.count != 2 {
		t.Fatalf("count = %d, want 2", table.count)
	}

	table.forget(0, 60)
	if table.count != 1 {
		t.Errorf("count after forget = %d, want 1", table.count)
	}

	// forgetting an absent pair is a no-op
	table.forget(5, 99)
	if table.count != 1 {
		t.Errorf("count after absent forget = %d, want 1", table.count)
	}
}

func TestNoteTableDuplicatePairs(t *testing.T) {
	var table noteTable
	table.remember(0, 60)
	table.remember(0, 60)
	if table.count != 2 {
		t.Fatalf("count = %d, want 2", table.count)
	}
	table.forget(0, 60)
	if table.count != 1 {
		t.Errorf("one forget cleared %d entries", 2-table.count)
	}
	table.forget(0, 60)
	if table.count != 0 {
		t.Errorf("count = %d, want 0", table.count)
	}
}

func TestNoteTableKillAll(t *testing.T) {
	var table noteTable
	table.remember(0, 60)
	table.remember(3, 64)
	table.remember(15, 127)

	list := midi.NewList()
	if err := table.killAll(list, 12345); err != nil {
		t.Fatalf("killAll: %v", err)
	}

	packets := list.Packets()
	if len(packets) != 3 {
		t.Fatalf("got %d packets, want 3", len(packets))
	}
	for _, p := range packets {
		if p.TimestampNs != 12345 {
			t.Errorf("packet stamped %d, want 12345", p.TimestampNs)
		}
		raw := p.Bytes()
		if len(raw) != 3 || raw[0]&0xf0 != 0x80 || raw[2] != 0 {
			t.Errorf("packet bytes = %v, want note-off", raw)
		}
	}
	if raw := packets[1].Bytes(); raw[0] != 0x83 || raw[1] != 64 {
		t.Errorf("packet 1 = %v, want channel 3 note 64", raw)
	}

	if table.count != 0 {
		t.Errorf("count after killAll = %d, want 0", table.count)
	}
	// the table is reusable afterwards
	if err := table.remember(0, 61); err != nil {
		t.Errorf("remember after killAll: %v", err)
	}
}

func TestNoteTableOverflow(t *testing.T) {
	var table noteTable
	for i := 0; i < playingMax; i++ {
		if err := table.remember(uint8(i%16), uint8(i%128)); err != nil {
			t.Fatalf("remember %d: %v", i, err)
		}
	}
	if err := table.remember(0, 60); err == nil {
		t.Error("overflowing remember succeeded, want error")
	}
}
