package midi

import "fmt"

// ListSize is the byte budget for one frame's emissions, counting a
// timestamp and length header per packet like the platform layout does.
const ListSize = 4096

// packetHeader is the per-packet bookkeeping cost inside a list:
// 8 bytes of timestamp plus 2 of length.
const packetHeader = 10

// Packet is one wall-stamped MIDI message. TimestampNs is absolute wall
// time; the port owns delivering the bytes at that moment.
type Packet struct {
	TimestampNs uint64
	Length      int
	Data        [3]byte
}

// Bytes returns the wire bytes of the packet.
func (p *Packet) Bytes() []byte { return p.Data[:p.Length] }

// List accumulates wall-stamped packets under a fixed byte budget. The
// dispatcher owns one and resets it per frame, so building a frame never
// allocates.
type List struct {
	packets []Packet
	used    int
}

// NewList returns an empty list.
func NewList() *List {
	return &List{packets: make([]Packet, 0, 64)}
}

// Reset empties the list for the next frame.
func (l *List) Reset() {
	l.packets = l.packets[:0]
	l.used = 0
}

// Add appends a stamped message. It fails when the frame's byte budget is
// exhausted, which the engine treats as a design-boundary violation.
func (l *List) Add(timestampNs uint64, data []byte) error {
	need := packetHeader + len(data)
	if l.used+need > ListSize {
		return fmt.Errorf("packet list full (%d bytes)", ListSize)
	}
	p := Packet{TimestampNs: timestampNs, Length: len(data)}
	copy(p.Data[:], data)
	l.packets = append(l.packets, p)
	l.used += need
	return nil
}

// Packets returns the accumulated packets in insertion order.
func (l *List) Packets() []Packet { return l.packets }

// Len returns the number of packets in the list.
func (l *List) Len() int { return len(l.packets) }
