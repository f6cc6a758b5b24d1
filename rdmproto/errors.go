package rdmproto

import "errors"

// Codec error kinds, returned by Encode*/Decode* below. These are sentinel
// values rather than a custom error type: callers switch on them with
// errors.Is, and none carries payload beyond what's already in the input
// they were given.
var (
	// ErrBadStartCode is returned when the frame's start code / sub-start
	// code pair does not match SC_RDM/SC_SUB_MESSAGE.
	ErrBadStartCode = errors.New("rdmproto: bad start code")
	// ErrShortFrame is returned when a buffer is smaller than the minimum
	// legal RDM frame.
	ErrShortFrame = errors.New("rdmproto: frame shorter than minimum RDM size")
	// ErrLengthMismatch is returned when the frame's length field disagrees
	// with the buffer's actual size.
	ErrLengthMismatch = errors.New("rdmproto: length field does not match frame size")
	// ErrChecksumMismatch is returned when the computed checksum disagrees
	// with the trailing two bytes of the frame.
	ErrChecksumMismatch = errors.New("rdmproto: checksum mismatch")
	// ErrPdlOutOfRange is returned when the PDL field disagrees with the
	// frame's actual parameter-data length, or exceeds MaxPDL.
	ErrPdlOutOfRange = errors.New("rdmproto: PDL out of range")
	// ErrUnknownCommandClass is returned when the command-class byte is not
	// one of the recognised request/response classes.
	ErrUnknownCommandClass = errors.New("rdmproto: unknown command class")
	// ErrUnknownResponseType is returned when a response's response-type
	// byte is not one of the four defined values.
	ErrUnknownResponseType = errors.New("rdmproto: unknown response type")
	// ErrNotARequest/ErrNotAResponse are returned by DecodeRequest/
	// DecodeResponse when the frame's command-class byte identifies the
	// other package direction.
	ErrNotARequest  = errors.New("rdmproto: frame is a response, not a request")
	ErrNotAResponse = errors.New("rdmproto: frame is a request, not a response")
	// ErrDiscoveryCollision is returned by DecodeDiscoveryResponse when the
	// obfuscated frame cannot be unambiguously decoded — evidence that more
	// than one responder answered the same DISC_UNIQUE_BRANCH.
	ErrDiscoveryCollision = errors.New("rdmproto: discovery response collision")
	// ErrMalformedUID is returned when a decoded UID field carries a
	// broadcast sentinel value, which is never valid as a source address.
	ErrMalformedUID = errors.New("rdmproto: malformed UID field")
	// ErrIsBroadcastRequest is returned by RequestData.BuildResponse when the
	// request was addressed to a broadcast address — broadcast requests are
	// not acknowledged.
	ErrIsBroadcastRequest = errors.New("rdmproto: cannot respond to a broadcast request")
)
