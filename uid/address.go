package uid

// Address is the tagged destination-address variant used on the wire: every
// RDM frame's destination field is one of these three shapes per E1.20
// §6.2.4.
type Address struct {
	kind         addressKind
	device       UID
	manufacturer uint16
}

type addressKind uint8

const (
	kindDevice addressKind = iota
	kindBroadcast
	kindManufacturerBroadcast
)

// Device builds an Address targeting a single device.
func Device(u UID) Address {
	return Address{kind: kindDevice, device: u}
}

// Broadcast is the all-devices destination address.
func Broadcast() Address {
	return Address{kind: kindBroadcast}
}

// ManufacturerBroadcast is the destination address reaching every device
// from a single manufacturer.
func ManufacturerBroadcast(manufacturer uint16) Address {
	return Address{kind: kindManufacturerBroadcast, manufacturer: manufacturer}
}

// IsBroadcast reports whether the address is either broadcast variant — no
// response is ever expected for a request sent to one of these, except
// DISC_UNIQUE_BRANCH.
func (a Address) IsBroadcast() bool {
	return a.kind == kindBroadcast || a.kind == kindManufacturerBroadcast
}

// AsDevice reports the targeted UID and whether the address is a Device
// variant.
func (a Address) AsDevice() (UID, bool) {
	return a.device, a.kind == kindDevice
}

// AsManufacturerBroadcast reports the targeted manufacturer and whether the address
// is a ManufacturerBroadcast variant.
func (a Address) AsManufacturerBroadcast() (uint16, bool) {
	return a.manufacturer, a.kind == kindManufacturerBroadcast
}

// Equal reports whether two addresses describe the same destination.
func (a Address) Equal(other Address) bool {
	if a.kind != other.kind {
		return false
	}
	switch a.kind {
	case kindDevice:
		return a.device.Equal(other.device)
	case kindManufacturerBroadcast:
		return a.manufacturer == other.manufacturer
	default:
		return true
	}
}

// Bytes renders the address as the 6-byte destination-UID field.
func (a Address) Bytes() [6]byte {
	switch a.kind {
	case kindBroadcast:
		return [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	case kindManufacturerBroadcast:
		var b [6]byte
		b[0] = byte(a.manufacturer >> 8)
		b[1] = byte(a.manufacturer)
		b[2], b[3], b[4], b[5] = 0xFF, 0xFF, 0xFF, 0xFF
		return b
	default:
		return a.device.Bytes()
	}
}

// AddressFromBytes parses a 6-byte destination-UID field into its tagged
// Address variant per E1.20 §6.2.4.
func AddressFromBytes(b [6]byte) Address {
	manufacturer := uint16(b[0])<<8 | uint16(b[1])
	device := uint32(b[2])<<24 | uint32(b[3])<<16 | uint32(b[4])<<8 | uint32(b[5])

	if device != deviceBroadcast {
		return Device(UID{manufacturer: manufacturer, device: device})
	}
	if manufacturer == manufacturerBroadcast {
		return Broadcast()
	}
	return ManufacturerBroadcast(manufacturer)
}

// Uint64 packs the address into the same 48-bit space UIDs occupy, matching
// the sentinel values E1.20 reserves for the broadcast variants.
func (a Address) Uint64() uint64 {
	switch a.kind {
	case kindBroadcast:
		return 0xFFFF_FFFF_FFFF
	case kindManufacturerBroadcast:
		return uint64(a.manufacturer)<<32 | deviceBroadcast
	default:
		return a.device.Uint64()
	}
}

// String renders the address for logs and CLI output.
func (a Address) String() string {
	switch a.kind {
	case kindBroadcast:
		return "FFFF:FFFFFFFF(broadcast)"
	case kindManufacturerBroadcast:
		return UID{manufacturer: a.manufacturer, device: deviceBroadcast}.String() + "(mfr-broadcast)"
	default:
		return a.device.String()
	}
}
