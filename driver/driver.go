// Package driver defines the transport abstraction DMX512/RDM traffic rides
// on: a half-duplex, byte-oriented link a controller or responder drives
// directly, independent of whether the other end is a real RS-485 bus, a
// UART on bare metal, or an in-memory bus used for tests.
package driver

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Driver.ReceiveRDM when no frame arrives within the
// caller's deadline. Implementations must return this sentinel — wrapped is
// fine — rather than a driver-specific timeout error, so that callers in
// controller and responder can use errors.Is uniformly.
var ErrTimeout = errors.New("driver: receive timed out")

// ErrFraming is returned when bytes were received but did not form a frame
// the transport's own layer understood (a broken byte count, a line-level
// framing error reported by the UART itself, and so on). It is distinct
// from a codec error in rdmproto, which only ever sees bytes a transport
// has already judged complete.
var ErrFraming = errors.New("driver: framing error on receive")

// ErrBusBusy is returned by SendRDM or SendDMX when the half-duplex bus cannot currently
// be driven — a break/MAB sequence or another transmission is still in
// flight.
var ErrBusBusy = errors.New("driver: bus busy")

// Driver is the transport a controller or responder runs RDM and DMX512
// traffic over. Implementations own the break/mark-after-break timing
// DMX512 requires before every frame; callers never see that detail.
//
// SendRDM and SendDMX are synchronous: they return once the frame has been
// placed on the wire. ReceiveRDM blocks until a frame arrives, deadline
// expires, or the driver is closed.
type Driver interface {
	// SendDMX transmits a DMX512 level packet. levels must not exceed 512
	// slots; implementations prepend the break/MAB and null start code.
	SendDMX(levels []byte) error

	// SendRDM transmits a complete, already-encoded RDM frame (as produced
	// by rdmproto.EncodeRequest/EncodeResponse) or a discovery response (as
	// produced by rdmproto.EncodeDiscoveryResponse).
	SendRDM(frame []byte) error

	// ReceiveRDM blocks until a frame is available or deadline elapses,
	// returning the raw bytes for rdmproto to decode. A zero deadline means
	// no timeout.
	ReceiveRDM(deadline time.Duration) ([]byte, error)

	// NeedsRepaint reports whether this transport requires the caller to
	// resend the full DMX512 universe on every refresh cycle rather than
	// relying on the bus to hold the last frame — true for every real
	// RS-485 link, false only for transports (like simbus) that keep their
	// own last-frame state for inspection.
	NeedsRepaint() bool
}
