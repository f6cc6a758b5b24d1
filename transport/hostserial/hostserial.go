// Package hostserial implements driver.Driver over a USB-to-RS485 adapter
// using github.com/tarm/serial.
//
// The OS serial API tarm/serial exposes has no primitive for sending a raw
// UART break, so the break/mark-after-break DMX512 requires before every
// frame (ANSI E1.11 §5.2) is approximated by dropping to a slow baud rate
// and writing a single zero byte: at 56700 baud its start bit and eight zero
// data bits hold the line low for roughly 159µs, comfortably inside the
// 88µs-to-1s break window the standard allows, and
// switching back to the link's working baud rate before the frame itself
// produces the required mark-after-break gap. This matches how a number of
// inexpensive USB-RS485 dongles are driven from a generic OS serial port
// when the dongle itself has no dedicated break command.
package hostserial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/driver"
)

const (
	workingBaud = 250000
	breakBaud   = 56700

	mabSettle = 100 * time.Microsecond
)

// Port drives a DMX512/RDM link over a native serial port.
type Port struct {
	device string
	port   *serial.Port
}

var _ driver.Driver = (*Port)(nil)

// Open opens device at the standard DMX512 link rate (250000 8N2).
func Open(device string) (*Port, error) {
	cfg := &serial.Config{
		Name:        device,
		Baud:        workingBaud,
		Size:        8,
		StopBits:    serial.Stop2,
		ReadTimeout: time.Millisecond,
	}
	sp, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("hostserial: opening %s: %w", device, err)
	}
	return &Port{device: device, port: sp}, nil
}

// Close releases the underlying serial port.
func (p *Port) Close() error {
	return p.port.Close()
}

func (p *Port) sendBreak() error {
	if err := p.reconfigure(breakBaud); err != nil {
		return err
	}
	if _, err := p.port.Write([]byte{0x00}); err != nil {
		return fmt.Errorf("hostserial: writing break: %w", err)
	}
	if err := p.reconfigure(workingBaud); err != nil {
		return err
	}
	time.Sleep(mabSettle)
	return nil
}

func (p *Port) reconfigure(baud int) error {
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("hostserial: closing for reconfigure: %w", err)
	}
	sp, err := serial.OpenPort(&serial.Config{
		Name:        p.device,
		Baud:        baud,
		Size:        8,
		StopBits:    serial.Stop2,
		ReadTimeout: time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("hostserial: reopening at %d baud: %w", baud, err)
	}
	p.port = sp
	return nil
}

// SendDMX transmits a DMX512 level packet, prepending break/MAB and the
// null start code (0x00).
func (p *Port) SendDMX(levels []byte) error {
	if len(levels) > 512 {
		return fmt.Errorf("hostserial: %d levels exceeds the 512 slot DMX512 universe", len(levels))
	}
	if err := p.sendBreak(); err != nil {
		return err
	}
	frame := make([]byte, 0, len(levels)+1)
	frame = append(frame, 0x00)
	frame = append(frame, levels...)
	if _, err := p.port.Write(frame); err != nil {
		return fmt.Errorf("hostserial: writing DMX frame: %w", err)
	}
	return nil
}

// SendRDM transmits an already-encoded RDM or discovery-response frame,
// prepending break/MAB.
func (p *Port) SendRDM(frame []byte) error {
	if err := p.sendBreak(); err != nil {
		return err
	}
	if _, err := p.port.Write(frame); err != nil {
		return fmt.Errorf("hostserial: writing RDM frame: %w", err)
	}
	return nil
}

// ReceiveRDM polls the port in small slices until a start code and a
// complete frame arrive or deadline elapses. tarm/serial has no per-call
// deadline, only the fixed ReadTimeout set at Open, so this loops its own
// short reads against a wall-clock deadline.
func (p *Port) ReceiveRDM(deadline time.Duration) ([]byte, error) {
	cutoff := time.Now().Add(deadline)
	var buf []byte
	chunk := make([]byte, 256)

	for {
		n, _ := p.port.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			// A gap with no further bytes for one read-timeout window is
			// treated as end-of-frame, since DMX512/RDM frames are sent
			// back-to-back without inter-byte gaps of this size.
			more := make([]byte, 256)
			nn, _ := p.port.Read(more)
			if nn > 0 {
				buf = append(buf, more[:nn]...)
				continue
			}
			return buf, nil
		}
		if deadline > 0 && time.Now().After(cutoff) {
			return nil, driver.ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}
}

// NeedsRepaint reports true: a real RS-485 link holds no state of its own,
// so the DMX512 universe must be refreshed continuously.
func (p *Port) NeedsRepaint() bool { return true }
