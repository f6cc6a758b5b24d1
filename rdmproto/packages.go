package rdmproto

import (
	"errors"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
)

// ErrMalformedPackage is returned by the Deserialize methods below when a
// parameter data payload doesn't have the shape its PID requires.
var ErrMalformedPackage = errors.New("rdmproto: malformed parameter package")

const (
	deviceInfoSize    = 19
	statusMessageSize = 9
	maxStatusMessages = 25
	maxSupportedPIDs  = 128
	noDMXAddress      = 0xFFFF
)

// DmxStartAddress is a device's DMX_START_ADDRESS value: either a concrete
// 1-512 slot address, or NoAddress for a device with no DMX footprint.
type DmxStartAddress struct {
	hasAddress bool
	address    uint16
}

// NoDMXAddress is the DMX_START_ADDRESS value of a device with zero DMX
// footprint.
func NoDMXAddress() DmxStartAddress { return DmxStartAddress{} }

// NewDMXStartAddress builds a concrete start address, rejecting values
// outside the legal 1-512 slot range.
func NewDMXStartAddress(address uint16) (DmxStartAddress, error) {
	if address < 1 || address > MaxDMXSlots {
		return DmxStartAddress{}, ErrMalformedPackage
	}
	return DmxStartAddress{hasAddress: true, address: address}, nil
}

// Value reports the concrete address and whether one is set.
func (a DmxStartAddress) Value() (uint16, bool) { return a.address, a.hasAddress }

func (a DmxStartAddress) wireValue() uint16 {
	if !a.hasAddress {
		return noDMXAddress
	}
	return a.address
}

// Serialize renders the address as its 2-byte DataPack encoding.
func (a DmxStartAddress) Serialize() DataPack {
	v := a.wireValue()
	d, _ := DataPackFromSlice([]byte{byte(v >> 8), byte(v)})
	return d
}

// DeserializeDMXStartAddress parses a DMX_START_ADDRESS parameter payload.
func DeserializeDMXStartAddress(data []byte) (DmxStartAddress, error) {
	if len(data) != 2 {
		return DmxStartAddress{}, ErrMalformedPackage
	}
	v := uint16(data[0])<<8 | uint16(data[1])
	if v == noDMXAddress {
		return NoDMXAddress(), nil
	}
	return NewDMXStartAddress(v)
}

// DiscoveryMuteResponse is the payload of a DISC_MUTE/DISC_UN_MUTE ack.
type DiscoveryMuteResponse struct {
	ManagedProxy bool
	SubDevice    bool
	BootLoader   bool
	ProxyDevice  bool
	BindingUID   *uid.UID
}

// Serialize renders the response as its DataPack encoding: a 2-byte control
// field, followed by a 6-byte binding UID if one is set.
func (r DiscoveryMuteResponse) Serialize() DataPack {
	var control uint16
	if r.ManagedProxy {
		control |= 1 << 0
	}
	if r.SubDevice {
		control |= 1 << 1
	}
	if r.BootLoader {
		control |= 1 << 2
	}
	if r.ProxyDevice {
		control |= 1 << 3
	}

	d := NewDataPack()
	_ = d.Append([]byte{byte(control >> 8), byte(control)})
	if r.BindingUID != nil {
		b := r.BindingUID.Bytes()
		_ = d.Append(b[:])
	}
	return d
}

// DeserializeDiscoveryMuteResponse parses a DISC_MUTE/DISC_UN_MUTE ack.
func DeserializeDiscoveryMuteResponse(data []byte) (DiscoveryMuteResponse, error) {
	if len(data) != 2 && len(data) != 8 {
		return DiscoveryMuteResponse{}, ErrMalformedPackage
	}

	control := uint16(data[0])<<8 | uint16(data[1])
	resp := DiscoveryMuteResponse{
		ManagedProxy: control&(1<<0) != 0,
		SubDevice:    control&(1<<1) != 0,
		BootLoader:   control&(1<<2) != 0,
		ProxyDevice:  control&(1<<3) != 0,
	}

	if len(data) == 8 {
		var b [6]byte
		copy(b[:], data[2:8])
		u, err := uid.FromBytes(b)
		if err != nil {
			return DiscoveryMuteResponse{}, ErrMalformedPackage
		}
		resp.BindingUID = &u
	}

	return resp, nil
}

// StatusType filters STATUS_MESSAGES/QUEUED_MESSAGE requests and labels a
// StatusMessage's severity.
type StatusType uint8

const (
	StatusNone            StatusType = 0x00
	StatusGetLastMessage  StatusType = 0x01
	StatusAdvisory        StatusType = 0x02
	StatusWarning         StatusType = 0x03
	StatusError           StatusType = 0x04
	StatusAdvisoryCleared StatusType = 0x12
	StatusWarningCleared  StatusType = 0x13
	StatusErrorCleared    StatusType = 0x14
)

func (s StatusType) valid() bool {
	switch s {
	case StatusNone, StatusGetLastMessage, StatusAdvisory, StatusWarning, StatusError,
		StatusAdvisoryCleared, StatusWarningCleared, StatusErrorCleared:
		return true
	default:
		return false
	}
}

// DeserializeStatusType parses a 1-byte STATUS_MESSAGES/QUEUED_MESSAGE
// request payload.
func DeserializeStatusType(data []byte) (StatusType, error) {
	if len(data) != 1 {
		return 0, ErrMalformedPackage
	}
	s := StatusType(data[0])
	if !s.valid() {
		return 0, ErrMalformedPackage
	}
	return s, nil
}

// StatusMessage is one entry of a STATUS_MESSAGES response.
type StatusMessage struct {
	SubDeviceID     uint16
	StatusType      StatusType
	StatusMessageID uint16
	DataValue1      uint16
	DataValue2      uint16
}

func (m StatusMessage) serializeInto(dst []byte) {
	dst[0] = byte(m.SubDeviceID >> 8)
	dst[1] = byte(m.SubDeviceID)
	dst[2] = byte(m.StatusType)
	dst[3] = byte(m.StatusMessageID >> 8)
	dst[4] = byte(m.StatusMessageID)
	dst[5] = byte(m.DataValue1 >> 8)
	dst[6] = byte(m.DataValue1)
	dst[7] = byte(m.DataValue2 >> 8)
	dst[8] = byte(m.DataValue2)
}

func deserializeStatusMessage(src []byte) (StatusMessage, error) {
	return StatusMessage{
		SubDeviceID:     uint16(src[0])<<8 | uint16(src[1]),
		StatusType:      StatusType(src[2]),
		StatusMessageID: uint16(src[3])<<8 | uint16(src[4]),
		DataValue1:      uint16(src[5])<<8 | uint16(src[6]),
		DataValue2:      uint16(src[7])<<8 | uint16(src[8]),
	}, nil
}

// SerializeStatusMessages renders a batch of status messages, truncating to
// how many fit in a single PDL-limited DataPack. Callers that need to send
// more than fit use ACK_OVERFLOW and repeat the request.
func SerializeStatusMessages(messages []StatusMessage) DataPack {
	d := NewDataPack()
	for _, m := range messages {
		if d.Len()+statusMessageSize > MaxPDL {
			break
		}
		var buf [statusMessageSize]byte
		m.serializeInto(buf[:])
		_ = d.Append(buf[:])
	}
	return d
}

// DeserializeStatusMessages parses a STATUS_MESSAGES response payload.
func DeserializeStatusMessages(data []byte) ([]StatusMessage, error) {
	if len(data)%statusMessageSize != 0 {
		return nil, ErrMalformedPackage
	}
	n := len(data) / statusMessageSize
	if n > maxStatusMessages {
		return nil, ErrMalformedPackage
	}

	messages := make([]StatusMessage, 0, n)
	for i := 0; i < n; i++ {
		m, err := deserializeStatusMessage(data[i*statusMessageSize : (i+1)*statusMessageSize])
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// SerializeSupportedParameters renders a batch of PIDs, truncating to how
// many fit in a single DataPack.
func SerializeSupportedParameters(pids []uint16) DataPack {
	d := NewDataPack()
	for _, pid := range pids {
		if d.Len()+2 > MaxPDL {
			break
		}
		_ = d.Append([]byte{byte(pid >> 8), byte(pid)})
	}
	return d
}

// DeserializeSupportedParameters parses a SUPPORTED_PARAMETERS response
// payload.
func DeserializeSupportedParameters(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, ErrMalformedPackage
	}
	n := len(data) / 2
	if n > maxSupportedPIDs {
		return nil, ErrMalformedPackage
	}

	pids := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		pids = append(pids, uint16(data[2*i])<<8|uint16(data[2*i+1]))
	}
	return pids, nil
}

// DeviceInfo is the DEVICE_INFO response payload (ANSI E1.20 §10.5.1).
type DeviceInfo struct {
	DeviceModelID     uint16
	ProductCategory   uint16
	SoftwareVersion   uint32
	DMXFootprint      uint16
	DMXPersonality    uint16
	DMXStartAddress   DmxStartAddress
	SubDeviceCount    uint16
	SensorCount       uint8
}

// Serialize renders DeviceInfo as its 19-byte DataPack encoding.
func (d DeviceInfo) Serialize() DataPack {
	var buf [deviceInfoSize]byte
	buf[0], buf[1] = 0x01, 0x00 // protocol version 1.0
	buf[2] = byte(d.DeviceModelID >> 8)
	buf[3] = byte(d.DeviceModelID)
	buf[4] = byte(d.ProductCategory >> 8)
	buf[5] = byte(d.ProductCategory)
	buf[6] = byte(d.SoftwareVersion >> 24)
	buf[7] = byte(d.SoftwareVersion >> 16)
	buf[8] = byte(d.SoftwareVersion >> 8)
	buf[9] = byte(d.SoftwareVersion)
	buf[10] = byte(d.DMXFootprint >> 8)
	buf[11] = byte(d.DMXFootprint)
	buf[12] = byte(d.DMXPersonality >> 8)
	buf[13] = byte(d.DMXPersonality)
	addr := d.DMXStartAddress.wireValue()
	buf[14] = byte(addr >> 8)
	buf[15] = byte(addr)
	buf[16] = byte(d.SubDeviceCount >> 8)
	buf[17] = byte(d.SubDeviceCount)
	buf[18] = d.SensorCount

	dp, _ := DataPackFromSlice(buf[:])
	return dp
}

// DeserializeDeviceInfo parses a DEVICE_INFO response payload.
func DeserializeDeviceInfo(data []byte) (DeviceInfo, error) {
	if len(data) != deviceInfoSize {
		return DeviceInfo{}, ErrMalformedPackage
	}

	addr, err := DeserializeDMXStartAddress(data[14:16])
	if err != nil {
		return DeviceInfo{}, err
	}

	return DeviceInfo{
		DeviceModelID:   uint16(data[2])<<8 | uint16(data[3]),
		ProductCategory: uint16(data[4])<<8 | uint16(data[5]),
		SoftwareVersion: uint32(data[6])<<24 | uint32(data[7])<<16 | uint32(data[8])<<8 | uint32(data[9]),
		DMXFootprint:    uint16(data[10])<<8 | uint16(data[11]),
		DMXPersonality:  uint16(data[12])<<8 | uint16(data[13]),
		DMXStartAddress: addr,
		SubDeviceCount:  uint16(data[16])<<8 | uint16(data[17]),
		SensorCount:     data[18],
	}, nil
}

// DeserializeIdentify parses an IDENTIFY_DEVICE payload: any nonzero byte
// means identify mode is on, matching the original responder's permissive
// reading of the single status byte.
func DeserializeIdentify(data []byte) (bool, error) {
	if len(data) != 1 {
		return false, ErrMalformedPackage
	}
	return data[0] != 0, nil
}

// SerializeIdentify renders an IDENTIFY_DEVICE payload.
func SerializeIdentify(on bool) DataPack {
	var b byte
	if on {
		b = 1
	}
	d, _ := DataPackFromSlice([]byte{b})
	return d
}

// DeserializeSoftwareVersionLabel parses a SOFTWARE_VERSION_LABEL payload.
func DeserializeSoftwareVersionLabel(data []byte) (string, error) {
	if len(data) > 32 {
		return "", ErrMalformedPackage
	}
	return string(data), nil
}

// SerializeSoftwareVersionLabel renders a SOFTWARE_VERSION_LABEL payload,
// truncating to the 32-byte limit ANSI E1.20 places on the field.
func SerializeSoftwareVersionLabel(label string) DataPack {
	b := []byte(label)
	if len(b) > 32 {
		b = b[:32]
	}
	d, _ := DataPackFromSlice(b)
	return d
}
