package rdmproto

import "github.com/TKFRvisionOfficial/dmx-rdm-go/uid"

// wire field offsets, relative to the start of the frame (ANSI E1.20 §6.2.4).
const (
	offStartCode   = 0
	offSubCode     = 1
	offLength      = 2
	offDestUID     = 3
	offSrcUID      = 9
	offTN          = 15
	offPortOrRT    = 16
	offMC          = 17
	offSubDevice   = 18
	offCC          = 20
	offPID         = 21
	offPDL         = 23
	offParamData   = 24
)

// RequestData is a fully decoded RDM request package.
type RequestData struct {
	Destination       uid.Address
	Source             uid.UID
	TransactionNumber  uint8
	PortID             uint8
	MessageCount       uint8
	SubDevice          uint16
	CommandClass       RequestCommandClass
	ParameterID        uint16
	ParameterData      DataPack
}

// ResponseData is a fully decoded RDM response package.
type ResponseData struct {
	Destination       uid.Address
	Source             uid.UID
	TransactionNumber  uint8
	ResponseType       ResponseType
	MessageCount       uint8
	SubDevice          uint16
	CommandClass       ResponseCommandClass
	ParameterID        uint16
	ParameterData      DataPack
}

// BuildResponse derives the response header from a request header: swapped
// addresses, mirrored command class, the request's transaction number and
// parameter id, carrying the given response type/data/message count. It is
// an error to build a response to a broadcast request — there is nothing to
// address it to.
func (r RequestData) BuildResponse(responseType ResponseType, data DataPack, messageCount uint8) (ResponseData, error) {
	src, ok := r.Destination.AsDevice()
	if !ok {
		return ResponseData{}, ErrIsBroadcastRequest
	}
	return ResponseData{
		Destination:       uid.Device(r.Source),
		Source:             src,
		TransactionNumber:  r.TransactionNumber,
		ResponseType:       responseType,
		MessageCount:       messageCount,
		SubDevice:          r.SubDevice,
		CommandClass:       r.CommandClass.ResponseClass(),
		ParameterID:        r.ParameterID,
		ParameterData:      data,
	}, nil
}

func encodeHeader(buf []byte, dest, src [6]byte, tn, portOrRT, mc byte, subDevice uint16, cc byte, pid uint16, pdl byte) {
	buf[offStartCode] = SCRDM
	buf[offSubCode] = SCSubMessage
	buf[offLength] = byte(HeaderSize + int(pdl))
	copy(buf[offDestUID:offDestUID+6], dest[:])
	copy(buf[offSrcUID:offSrcUID+6], src[:])
	buf[offTN] = tn
	buf[offPortOrRT] = portOrRT
	buf[offMC] = mc
	buf[offSubDevice] = byte(subDevice >> 8)
	buf[offSubDevice+1] = byte(subDevice)
	buf[offCC] = cc
	buf[offPID] = byte(pid >> 8)
	buf[offPID+1] = byte(pid)
	buf[offPDL] = pdl
}

// EncodeRequest renders req as a complete RDM frame, checksum included.
func EncodeRequest(req RequestData) ([]byte, error) {
	pdl := req.ParameterData.Len()
	if pdl > MaxPDL {
		return nil, ErrPdlTooLarge
	}

	total := HeaderSize + pdl + 2
	buf := make([]byte, total)

	dest := req.Destination.Bytes()
	src := req.Source.Bytes()
	encodeHeader(buf, dest, src, req.TransactionNumber, req.PortID, req.MessageCount,
		req.SubDevice, byte(req.CommandClass), req.ParameterID, byte(pdl))
	copy(buf[offParamData:offParamData+pdl], req.ParameterData.Bytes())

	sum := checksum(buf[:total-2])
	buf[total-2] = byte(sum >> 8)
	buf[total-1] = byte(sum)

	return buf, nil
}

// EncodeResponse renders resp as a complete RDM frame, checksum included.
func EncodeResponse(resp ResponseData) ([]byte, error) {
	pdl := resp.ParameterData.Len()
	if pdl > MaxPDL {
		return nil, ErrPdlTooLarge
	}

	total := HeaderSize + pdl + 2
	buf := make([]byte, total)

	dest := resp.Destination.Bytes()
	src := resp.Source.Bytes()
	encodeHeader(buf, dest, src, resp.TransactionNumber, byte(resp.ResponseType), resp.MessageCount,
		resp.SubDevice, byte(resp.CommandClass), resp.ParameterID, byte(pdl))
	copy(buf[offParamData:offParamData+pdl], resp.ParameterData.Bytes())

	sum := checksum(buf[:total-2])
	buf[total-2] = byte(sum >> 8)
	buf[total-1] = byte(sum)

	return buf, nil
}

// verifyFrame performs the checks shared by DecodeRequest and
// DecodeResponse: minimum size, start code, length field, checksum, and PDL
// consistency. It returns the parameter-data length on success.
func verifyFrame(buf []byte) (pdl int, err error) {
	if len(buf) < MinFrameSize {
		return 0, ErrShortFrame
	}
	if len(buf) > MaxFrameSize {
		return 0, ErrLengthMismatch
	}
	if buf[offStartCode] != SCRDM || buf[offSubCode] != SCSubMessage {
		return 0, ErrBadStartCode
	}

	length := int(buf[offLength])
	if length != len(buf)-2 {
		return 0, ErrLengthMismatch
	}

	pdl = int(buf[offPDL])
	if pdl > MaxPDL || HeaderSize+pdl+2 != len(buf) {
		return 0, ErrPdlOutOfRange
	}

	want := checksum(buf[:len(buf)-2])
	got := uint16(buf[len(buf)-2])<<8 | uint16(buf[len(buf)-1])
	if want != got {
		return 0, ErrChecksumMismatch
	}

	return pdl, nil
}

func decodeSubDevice(buf []byte) uint16 {
	return uint16(buf[offSubDevice])<<8 | uint16(buf[offSubDevice+1])
}

func decodePID(buf []byte) uint16 {
	return uint16(buf[offPID])<<8 | uint16(buf[offPID+1])
}

func decodeUID6(buf []byte, off int) [6]byte {
	var b [6]byte
	copy(b[:], buf[off:off+6])
	return b
}

// DecodeRequest parses buf as an RDM request frame.
func DecodeRequest(buf []byte) (RequestData, error) {
	pdl, err := verifyFrame(buf)
	if err != nil {
		return RequestData{}, err
	}

	cc, ok := parseRequestCommandClass(buf[offCC])
	if !ok {
		if _, isResp := parseResponseCommandClass(buf[offCC]); isResp {
			return RequestData{}, ErrNotARequest
		}
		return RequestData{}, ErrUnknownCommandClass
	}

	src, err := uid.FromBytes(decodeUID6(buf, offSrcUID))
	if err != nil {
		return RequestData{}, ErrMalformedUID
	}

	var data DataPack
	if err := data.SetBytes(buf[offParamData : offParamData+pdl]); err != nil {
		return RequestData{}, err
	}

	return RequestData{
		Destination:       uid.AddressFromBytes(decodeUID6(buf, offDestUID)),
		Source:             src,
		TransactionNumber:  buf[offTN],
		PortID:             buf[offPortOrRT],
		MessageCount:       buf[offMC],
		SubDevice:          decodeSubDevice(buf),
		CommandClass:       cc,
		ParameterID:        decodePID(buf),
		ParameterData:      data,
	}, nil
}

// DecodeResponse parses buf as an RDM response frame.
func DecodeResponse(buf []byte) (ResponseData, error) {
	pdl, err := verifyFrame(buf)
	if err != nil {
		return ResponseData{}, err
	}

	cc, ok := parseResponseCommandClass(buf[offCC])
	if !ok {
		if _, isReq := parseRequestCommandClass(buf[offCC]); isReq {
			return ResponseData{}, ErrNotAResponse
		}
		return ResponseData{}, ErrUnknownCommandClass
	}

	rt, ok := parseResponseType(buf[offPortOrRT])
	if !ok {
		return ResponseData{}, ErrUnknownResponseType
	}

	src, err := uid.FromBytes(decodeUID6(buf, offSrcUID))
	if err != nil {
		return ResponseData{}, ErrMalformedUID
	}

	var data DataPack
	if err := data.SetBytes(buf[offParamData : offParamData+pdl]); err != nil {
		return ResponseData{}, err
	}

	return ResponseData{
		Destination:       uid.AddressFromBytes(decodeUID6(buf, offDestUID)),
		Source:             src,
		TransactionNumber:  buf[offTN],
		ResponseType:       rt,
		MessageCount:       buf[offMC],
		SubDevice:          decodeSubDevice(buf),
		CommandClass:       cc,
		ParameterID:        decodePID(buf),
		ParameterData:      data,
	}, nil
}
