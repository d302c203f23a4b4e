package midi

import (
	"fmt"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Port is the platform MIDI binding. It accepts lists of wall-stamped
// packets; sub-frame scheduling of the individual messages is the port's
// problem, not the caller's.
type Port interface {
	Send(list *List) error
	Close() error
}

// OutPort delivers stamped packets to a system MIDI output. Packets
// stamped in the future are timer-scheduled; past or immediate stamps go
// out right away.
type OutPort struct {
	out  drivers.Out
	send func(gomidi.Message) error
	now  func() uint64
}

// OpenOut opens the named system output, or the first available one when
// name is empty. now must be the same clock the stamps are produced from.
func OpenOut(name string, now func() uint64) (*OutPort, error) {
	var out drivers.Out
	var err error
	if name == "" {
		outs := gomidi.GetOutPorts()
		if len(outs) == 0 {
			return nil, fmt.Errorf("no MIDI output ports available")
		}
		out = outs[0]
	} else {
		out, err = gomidi.FindOutPort(name)
		if err != nil {
			return nil, fmt.Errorf("failed to find MIDI output %q: %w", name, err)
		}
	}

	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open MIDI output %q: %w", out.String(), err)
	}
	return &OutPort{out: out, send: send, now: now}, nil
}

// String returns the system name of the underlying output.
func (p *OutPort) String() string { return p.out.String() }

// Send schedules every packet in the list for delivery at its stamp.
func (p *OutPort) Send(list *List) error {
	for _, pkt := range list.Packets() {
		msg := gomidi.Message(append([]byte(nil), pkt.Bytes()...))
		now := p.now()
		if pkt.TimestampNs <= now {
			if err := p.send(msg); err != nil {
				return fmt.Errorf("MIDI send: %w", err)
			}
			continue
		}
		time.AfterFunc(time.Duration(pkt.TimestampNs-now), func() {
			p.send(msg)
		})
	}
	return nil
}

// Close silences every channel and releases the output. The all-notes-off
// sweep covers messages a pending timer may still deliver after us.
func (p *OutPort) Close() error {
	for ch := 0; ch < 16; ch++ {
		p.send(gomidi.ControlChange(uint8(ch), 123, 0))
	}
	err := p.out.Close()
	gomidi.CloseDriver()
	return err
}

// OutPortNames lists the system MIDI outputs by name.
func OutPortNames() []string {
	var names []string
	for _, out := range gomidi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}
