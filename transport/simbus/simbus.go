// Package simbus is an in-memory stand-in for a shared RS-485 bus: every
// Port attached to a Bus sees every frame any other Port sends, the way
// responders on a real half-duplex line all hear a controller's
// transmission. It exists for tests that exercise controller/responder
// interaction (discovery, GET/SET round trips) without real hardware.
package simbus

import (
	"sync"
	"time"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/driver"
)

// Bus is a shared half-duplex medium. The zero value is not usable; build
// one with New.
type Bus struct {
	mu            sync.Mutex
	ports         []*Port
	dropRemaining int
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Attach creates a new Port on the bus. Every frame a Port sends is
// delivered to every other Port already or later attached to the same Bus;
// it is not delivered back to the sender, matching how a transceiver on a
// real RS-485 line doesn't hear its own transmission echoed by the bus
// driver.
func (b *Bus) Attach() *Port {
	p := &Port{
		bus:    b,
		inbox:  make(chan []byte, 64),
		dmxBox: make(chan []byte, 4),
	}

	b.mu.Lock()
	b.ports = append(b.ports, p)
	b.mu.Unlock()

	return p
}

// Detach removes a port from the bus; frames sent afterward are no longer
// delivered to it.
func (b *Bus) Detach(p *Port) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, other := range b.ports {
		if other == p {
			b.ports = append(b.ports[:i], b.ports[i+1:]...)
			return
		}
	}
}

// DropNext makes the bus silently swallow the next n RDM frames sent on it
// by any port, in send order, before resuming normal delivery. It gives
// tests deterministic control over frame loss, unlike broadcastRDM's
// ordinary slow-reader drop which only fires non-deterministically when a
// receiver's inbox is full.
func (b *Bus) DropNext(n int) {
	b.mu.Lock()
	b.dropRemaining = n
	b.mu.Unlock()
}

func (b *Bus) broadcastRDM(from *Port, frame []byte) {
	b.mu.Lock()
	if b.dropRemaining > 0 {
		b.dropRemaining--
		b.mu.Unlock()
		return
	}
	targets := make([]*Port, 0, len(b.ports))
	for _, p := range b.ports {
		if p != from {
			targets = append(targets, p)
		}
	}
	b.mu.Unlock()

	cp := append([]byte(nil), frame...)
	for _, p := range targets {
		select {
		case p.inbox <- cp:
		default:
			// Slow reader drops the frame, same as a responder that fails
			// to service its UART FIFO in time on real hardware.
		}
	}
}

func (b *Bus) broadcastDMX(from *Port, levels []byte) {
	b.mu.Lock()
	targets := make([]*Port, 0, len(b.ports))
	for _, p := range b.ports {
		if p != from {
			targets = append(targets, p)
		}
	}
	b.mu.Unlock()

	cp := append([]byte(nil), levels...)
	for _, p := range targets {
		p.mu.Lock()
		p.lastDMX = cp
		p.mu.Unlock()

		select {
		case p.dmxBox <- cp:
		default:
		}
	}
}

// Port is one transceiver attached to a Bus. It implements driver.Driver.
type Port struct {
	bus    *Bus
	inbox  chan []byte
	dmxBox chan []byte

	mu      sync.Mutex
	lastDMX []byte
}

var _ driver.Driver = (*Port)(nil)

// SendRDM broadcasts an already-encoded RDM or discovery-response frame to
// every other port on the bus.
func (p *Port) SendRDM(frame []byte) error {
	p.bus.broadcastRDM(p, frame)
	return nil
}

// SendDMX broadcasts a DMX512 level packet to every other port on the bus.
func (p *Port) SendDMX(levels []byte) error {
	p.bus.broadcastDMX(p, levels)
	return nil
}

// ReceiveRDM blocks until a frame sent by another port arrives or deadline
// elapses. A zero deadline blocks indefinitely.
func (p *Port) ReceiveRDM(deadline time.Duration) ([]byte, error) {
	if deadline <= 0 {
		return <-p.inbox, nil
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case frame := <-p.inbox:
		return frame, nil
	case <-timer.C:
		return nil, driver.ErrTimeout
	}
}

// LastDMX returns the most recently received DMX512 level packet, or nil if
// none has arrived yet. It exists so tests can assert on responder output
// without racing ReceiveRDM's blocking semantics.
func (p *Port) LastDMX() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastDMX
}

// NeedsRepaint is false: simbus keeps the last DMX frame around for
// inspection, so tests don't need to resend it to observe it.
func (p *Port) NeedsRepaint() bool { return false }
