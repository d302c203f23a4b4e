package seq

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

// trustedPrefix is the only location the editor writes dump files to.
// Anything else is refused.
const trustedPrefix = "/tmp/epichord-"

// Trusted reports whether path lives under the editor's dump prefix.
func Trusted(path string) bool {
	return strings.HasPrefix(path, trustedPrefix)
}

// readRecords feeds r's content to fn in 7-byte records. A trailing
// partial record is an error: the file was truncated mid-write and the
// sequence cannot be trusted.
func readRecords(r io.Reader, fn func(rec [7]byte)) error {
	var rec [7]byte
	for {
		n, err := io.ReadFull(r, rec[:])
		if err == io.EOF {
			return nil
		}
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("data file ends with %d bytes not 7", n)
		}
		if err != nil {
			return err
		}
		fn(rec)
	}
}

// ReadEvents decodes a stream of 7-byte sequence records, big-endian:
// tick[4] status[1] arg1[1] arg2[1]. Records are expected in
// tick-ascending order.
func ReadEvents(r io.Reader) ([]Event, error) {
	events := make([]Event, 0, 256)
	err := readRecords(r, func(rec [7]byte) {
		events = append(events, Event{
			Tick:   binary.BigEndian.Uint32(rec[0:4]),
			Status: rec[4],
			Arg1:   rec[5],
			Arg2:   rec[6],
		})
	})
	if err != nil {
		return nil, fmt.Errorf("sequence %w", err)
	}
	return events, nil
}

// ReadTempoChanges decodes a stream of 7-byte tempo records, big-endian:
// tick[4] uspq[3].
func ReadTempoChanges(r io.Reader) ([]TempoChange, error) {
	changes := make([]TempoChange, 0, 32)
	err := readRecords(r, func(rec [7]byte) {
		changes = append(changes, TempoChange{
			Tick: binary.BigEndian.Uint32(rec[0:4]),
			USPQ: uint32(rec[4])<<16 | uint32(rec[5])<<8 | uint32(rec[6]),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("tempo %w", err)
	}
	return changes, nil
}

// Load reads a sequence dump and its tempo dump, stamps event times at the
// given timebase, and returns the assembled sequence. Both paths must be
// Trusted; callers should check that first to treat it as a user error
// rather than a fatal one.
func Load(sequencePath, tempoPath string, ticksPerBeat uint32) (*Sequence, error) {
	for _, path := range []string{sequencePath, tempoPath} {
		if !Trusted(path) {
			return nil, fmt.Errorf("refuse to load file from this location (%s)", path)
		}
	}

	tempoFile, err := os.Open(tempoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open tempo file: %w", err)
	}
	changes, err := ReadTempoChanges(tempoFile)
	tempoFile.Close()
	if err != nil {
		return nil, err
	}

	sequenceFile, err := os.Open(sequencePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sequence file: %w", err)
	}
	events, err := ReadEvents(sequenceFile)
	sequenceFile.Close()
	if err != nil {
		return nil, err
	}

	RecomputeEventTimes(events, changes, ticksPerBeat)
	return &Sequence{Events: events, TempoChanges: changes}, nil
}
