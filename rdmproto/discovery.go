package rdmproto

import "github.com/TKFRvisionOfficial/dmx-rdm-go/uid"

// DISC_UNIQUE_BRANCH responses aren't framed like other RDM packages: they
// carry no start code or checksum trailer of their own. Instead every data
// byte is transmitted twice, OR'd against 0xAA and 0x55 respectively, so
// that a bus collision between two responders still produces a byte pattern
// the controller can usually tell apart from a clean response (ANSI E1.20
// §6.2.5 Annex, mirrored by rdm_data.rs/dmx_driver.rs's send/receive
// discovery response pair).

// encodeDiscUnique writes len(src)*2 obfuscated bytes to dst.
func encodeDiscUnique(src []byte, dst []byte) {
	for i, b := range src {
		dst[2*i] = b | 0xAA
		dst[2*i+1] = b | 0x55
	}
}

// decodeDiscUnique recovers len(src)/2 original bytes from src into dst.
// Two responders colliding on different UIDs will, in general, fail to
// recombine into a value whose re-encoding matches src — callers detect this
// via the checksum, not here.
func decodeDiscUnique(src []byte, dst []byte) {
	for i := range dst {
		dst[i] = src[2*i] & src[2*i+1]
	}
}

// EncodeDiscoveryResponse renders uid as a DISC_UNIQUE_BRANCH response
// frame: preambleLen 0xFE bytes (clamped to [0, MaxDiscoveryPreamble]),
// a 0xAA separator, then the obfuscated UID and its obfuscated checksum.
func EncodeDiscoveryResponse(u uid.UID, preambleLen int) []byte {
	if preambleLen < 0 {
		preambleLen = 0
	}
	if preambleLen > MaxDiscoveryPreamble {
		preambleLen = MaxDiscoveryPreamble
	}

	buf := make([]byte, preambleLen+1+DiscoveryResponseBodySize)
	for i := 0; i < preambleLen; i++ {
		buf[i] = PreambleByte
	}
	buf[preambleLen] = SeparatorByte

	body := buf[preambleLen+1:]
	uidBytes := u.Bytes()
	encodeDiscUnique(uidBytes[:], body[:12])

	sum := checksum(body[:12])
	encodeDiscUnique([]byte{byte(sum >> 8), byte(sum)}, body[12:16])

	return buf
}

// DecodeDiscoveryResponse parses a DISC_UNIQUE_BRANCH response, scanning for
// the 0xAA separator byte the way a real receiver — which has no framing to
// rely on until it finds one — does. It returns ErrDiscoveryCollision if the
// recovered checksum does not match, which is the only signal available
// that more than one responder answered.
func DecodeDiscoveryResponse(buf []byte) (uid.UID, error) {
	sepIndex := -1
	for i, b := range buf {
		if b == SeparatorByte {
			sepIndex = i
			break
		}
	}
	if sepIndex < 0 {
		return uid.UID{}, ErrBadStartCode
	}

	body := buf[sepIndex+1:]
	if len(body) < DiscoveryResponseBodySize {
		return uid.UID{}, ErrShortFrame
	}
	body = body[:DiscoveryResponseBodySize]

	var uidBytes [6]byte
	decodeDiscUnique(body[:12], uidBytes[:])

	var checksumBytes [2]byte
	decodeDiscUnique(body[12:16], checksumBytes[:])
	received := uint16(checksumBytes[0])<<8 | uint16(checksumBytes[1])

	if checksum(body[:12]) != received {
		return uid.UID{}, ErrDiscoveryCollision
	}

	u, err := uid.FromBytes(uidBytes)
	if err != nil {
		return uid.UID{}, ErrDiscoveryCollision
	}
	return u, nil
}
