//go:build rp2040 || rp2350

// Package rp2040uart implements driver.Driver on a TinyGo RP2040/RP2350
// UART, bit-banging the break/mark-after-break sequence DMX512 requires by
// dropping the TX pin to a plain GPIO output for the break duration and
// handing it back to the UART peripheral before the frame itself.
package rp2040uart

import (
	"machine"
	"time"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/driver"
)

const (
	// DMX512 §5.2: break is at least 88µs, mark-after-break at least 8µs.
	// These margins are generous for the timer resolution TinyGo exposes.
	breakDuration = 120 * time.Microsecond
	mabDuration   = 16 * time.Microsecond

	workingBaud = 250000
)

// Port drives a DMX512/RDM link from an RP2040/RP2350 UART peripheral.
type Port struct {
	uart *machine.UART
	tx   machine.Pin
	rx   machine.Pin

	inbox []byte
}

var _ driver.Driver = (*Port)(nil)

// Config selects the UART peripheral and pins to drive.
type Config struct {
	UART *machine.UART
	TX   machine.Pin
	RX   machine.Pin
}

// Open configures cfg.UART at the DMX512 link rate (250000 8N2) and returns
// a Port ready to send and receive.
func Open(cfg Config) (*Port, error) {
	if err := cfg.UART.Configure(machine.UARTConfig{
		BaudRate: workingBaud,
		TX:       cfg.TX,
		RX:       cfg.RX,
	}); err != nil {
		return nil, err
	}
	return &Port{uart: cfg.UART, tx: cfg.TX, rx: cfg.RX}, nil
}

func (p *Port) sendBreak() {
	p.tx.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.tx.Low()
	time.Sleep(breakDuration)
	p.tx.High()
	time.Sleep(mabDuration)
	p.tx.Configure(machine.PinConfig{Mode: machine.PinUART})
}

// SendDMX transmits a DMX512 level packet, prepending break/MAB and the
// null start code (0x00).
func (p *Port) SendDMX(levels []byte) error {
	if len(levels) > 512 {
		return driver.ErrFraming
	}
	p.sendBreak()
	if _, err := p.uart.Write([]byte{0x00}); err != nil {
		return err
	}
	_, err := p.uart.Write(levels)
	return err
}

// SendRDM transmits an already-encoded RDM or discovery-response frame,
// prepending break/MAB.
func (p *Port) SendRDM(frame []byte) error {
	p.sendBreak()
	_, err := p.uart.Write(frame)
	return err
}

// ReceiveRDM polls the UART's receive buffer until a frame arrives or
// deadline elapses, treating a quiet gap as end-of-frame the same way
// hostserial.Port does.
func (p *Port) ReceiveRDM(deadline time.Duration) ([]byte, error) {
	cutoff := time.Now().Add(deadline)
	p.inbox = p.inbox[:0]

	for {
		n := p.uart.Buffered()
		if n > 0 {
			for i := 0; i < n; i++ {
				b, err := p.uart.ReadByte()
				if err != nil {
					break
				}
				p.inbox = append(p.inbox, b)
			}
			time.Sleep(50 * time.Microsecond)
			if p.uart.Buffered() == 0 {
				out := make([]byte, len(p.inbox))
				copy(out, p.inbox)
				return out, nil
			}
			continue
		}
		if deadline > 0 && time.Now().After(cutoff) {
			return nil, driver.ErrTimeout
		}
	}
}

// NeedsRepaint reports true: a real RS-485 link holds no state of its own,
// so the DMX512 universe must be refreshed continuously.
func (p *Port) NeedsRepaint() bool { return true }
