// Package rdmproto implements the RDM (ANSI E1.20) wire codec: frame
// layout, checksum, discovery-response obfuscation, and the shared
// enumerations request and response packages are built from.
package rdmproto

const (
	// SCRDM is the RDM start code, shared with the DMX512 start-code byte
	// space but distinguishing an RDM frame from a DMX512 level packet.
	SCRDM = 0xCC
	// SCSubMessage is the RDM sub-start code, always the second byte of an
	// RDM frame.
	SCSubMessage = 0x01
	// SCDMXNull is the DMX512 Null Start Code used for level packets.
	SCDMXNull = 0x00

	// PreambleByte precedes a discovery response's separator byte, 0 to 7
	// times.
	PreambleByte = 0xFE
	// SeparatorByte marks the end of the discovery-response preamble.
	SeparatorByte = 0xAA

	// MaxPDL is the RDM PDL limit: 231 bytes of parameter data.
	MaxPDL = 231
	// HeaderSize is the number of bytes preceding parameter data in an RDM
	// frame: start code through PDL, inclusive.
	HeaderSize = 24
	// MinFrameSize is the smallest legal RDM frame: header + checksum, zero
	// parameter data.
	MinFrameSize = HeaderSize + 2
	// MaxFrameSize is the largest legal RDM frame: header + max PDL +
	// checksum.
	MaxFrameSize = HeaderSize + MaxPDL + 2

	// DiscoveryResponseBodySize is the deobfuscated discovery-response body:
	// 12 UID bytes + 4 checksum bytes.
	DiscoveryResponseBodySize = 16
	// MaxDiscoveryPreamble is the largest legal preamble before the
	// separator byte in a discovery response.
	MaxDiscoveryPreamble = 7

	// BroadcastUID is the all-devices broadcast sentinel packed as a 48-bit
	// value.
	BroadcastUID = 0xFFFF_FFFF_FFFF

	// MaxDMXSlots is the number of data slots in a DMX512 universe, not
	// counting the start code.
	MaxDMXSlots = 512
)
