// Package uid implements the 48-bit RDM Unique Identifier (ANSI E1.20 §6.2.1)
// and the tagged destination-address variants built on top of it.
package uid

import (
	"errors"
	"fmt"
)

// ErrBroadcastUID is returned when a constructor is asked to build a device
// UID that is actually one of the broadcast sentinels.
var ErrBroadcastUID = errors.New("uid: broadcast values are not valid device UIDs")

// ErrMalformed is returned when decoding a byte slice or integer that does
// not carry a 48-bit UID.
var ErrMalformed = errors.New("uid: malformed UID encoding")

// deviceBroadcast is the device-id part shared by both broadcast sentinels.
const deviceBroadcast = 0xFFFFFFFF

// manufacturerBroadcast is the manufacturer-id part of the full broadcast UID.
const manufacturerBroadcast = 0xFFFF

// UID is a 48-bit Unique Identifier: a 16-bit ESTA manufacturer id and a
// 32-bit device id. UID is an immutable value type.
type UID struct {
	manufacturer uint16
	device       uint32
}

// New builds a device UID, rejecting the full-broadcast and
// manufacturer-broadcast sentinels — those may only be represented as an
// Address, never as a bare device UID.
func New(manufacturer uint16, device uint32) (UID, error) {
	if device == deviceBroadcast {
		return UID{}, ErrBroadcastUID
	}
	return UID{manufacturer: manufacturer, device: device}, nil
}

// Manufacturer returns the 16-bit ESTA manufacturer id.
func (u UID) Manufacturer() uint16 { return u.manufacturer }

// Device returns the 32-bit device id.
func (u UID) Device() uint32 { return u.device }

// Uint64 packs the UID into the low 48 bits of a uint64, manufacturer in the
// high 16 bits — the representation used for discovery-range bisection.
func (u UID) Uint64() uint64 {
	return uint64(u.manufacturer)<<32 | uint64(u.device)
}

// FromUint64 unpacks a 48-bit value produced by Uint64 back into a UID. The
// upper 16 bits of value must be zero.
func FromUint64(value uint64) (UID, error) {
	if value>>48 != 0 {
		return UID{}, ErrMalformed
	}
	manufacturer := uint16(value >> 32)
	device := uint32(value)
	return New(manufacturer, device)
}

// Bytes renders the UID as 6 big-endian bytes: manufacturer then device.
func (u UID) Bytes() [6]byte {
	var b [6]byte
	b[0] = byte(u.manufacturer >> 8)
	b[1] = byte(u.manufacturer)
	b[2] = byte(u.device >> 24)
	b[3] = byte(u.device >> 16)
	b[4] = byte(u.device >> 8)
	b[5] = byte(u.device)
	return b
}

// FromBytes parses 6 big-endian bytes into a device UID.
func FromBytes(b [6]byte) (UID, error) {
	manufacturer := uint16(b[0])<<8 | uint16(b[1])
	device := uint32(b[2])<<24 | uint32(b[3])<<16 | uint32(b[4])<<8 | uint32(b[5])
	return New(manufacturer, device)
}

// Less orders UIDs by their packed 48-bit value, the order discovery
// bisection walks the address space in.
func (u UID) Less(other UID) bool {
	return u.Uint64() < other.Uint64()
}

// Equal reports whether two UIDs carry the same manufacturer and device id.
func (u UID) Equal(other UID) bool {
	return u.manufacturer == other.manufacturer && u.device == other.device
}

// String renders the UID in the conventional MMMM:DDDDDDDD hex notation.
func (u UID) String() string {
	return fmt.Sprintf("%04X:%08X", u.manufacturer, u.device)
}
