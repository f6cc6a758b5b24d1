package rdmproto

// Required and commonly-handled RDM Parameter IDs (ANSI E1.20 §10).
const (
	PIDDiscUniqueBranch     uint16 = 0x0001
	PIDDiscMute             uint16 = 0x0002
	PIDDiscUnMute           uint16 = 0x0003
	PIDQueuedMessage        uint16 = 0x0020
	PIDStatusMessages       uint16 = 0x0030
	PIDSupportedParameters  uint16 = 0x0050
	PIDDeviceInfo           uint16 = 0x0060
	PIDSoftwareVersionLabel uint16 = 0x00C0
	PIDDMXStartAddress      uint16 = 0x00F0
	PIDIdentifyDevice       uint16 = 0x1000
)
