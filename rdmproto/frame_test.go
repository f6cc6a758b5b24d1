package rdmproto

import (
	"errors"
	"testing"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
)

func mustUID(t *testing.T, manufacturer uint16, device uint32) uid.UID {
	t.Helper()
	u, err := uid.New(manufacturer, device)
	if err != nil {
		t.Fatalf("uid.New: %v", err)
	}
	return u
}

func TestRequestRoundTrip(t *testing.T) {
	src := mustUID(t, 0x4C49, 0x00000001)
	dest := mustUID(t, 0x4C49, 0x00000002)

	data, err := DataPackFromSlice([]byte{0x00, 0x01, 0x02, 0x03})
	if err != nil {
		t.Fatalf("DataPackFromSlice: %v", err)
	}

	req := RequestData{
		Destination:       uid.Device(dest),
		Source:             src,
		TransactionNumber:  7,
		PortID:             1,
		MessageCount:       0,
		SubDevice:          0,
		CommandClass:       GetCommand,
		ParameterID:        PIDDeviceInfo,
		ParameterData:      data,
	}

	encoded, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	decoded, err := DecodeRequest(encoded)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}

	if !decoded.Source.Equal(src) {
		t.Errorf("source = %v, want %v", decoded.Source, src)
	}
	if got, ok := decoded.Destination.AsDevice(); !ok || !got.Equal(dest) {
		t.Errorf("destination = %v, want device %v", decoded.Destination, dest)
	}
	if decoded.TransactionNumber != req.TransactionNumber {
		t.Errorf("tn = %d, want %d", decoded.TransactionNumber, req.TransactionNumber)
	}
	if decoded.CommandClass != req.CommandClass {
		t.Errorf("cc = %v, want %v", decoded.CommandClass, req.CommandClass)
	}
	if decoded.ParameterID != req.ParameterID {
		t.Errorf("pid = 0x%04X, want 0x%04X", decoded.ParameterID, req.ParameterID)
	}
	if !decoded.ParameterData.Equal(req.ParameterData) {
		t.Errorf("parameter data mismatch: got %v want %v", decoded.ParameterData.Bytes(), req.ParameterData.Bytes())
	}
}

func TestRequestRoundTripEmptyAndMaxData(t *testing.T) {
	src := mustUID(t, 1, 1)
	dest := mustUID(t, 1, 2)

	for _, n := range []int{0, 1, MaxPDL} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		dp, err := DataPackFromSlice(data)
		if err != nil {
			t.Fatalf("DataPackFromSlice(n=%d): %v", n, err)
		}

		req := RequestData{
			Destination:      uid.Device(dest),
			Source:            src,
			CommandClass:      SetCommand,
			ParameterID:       PIDDMXStartAddress,
			ParameterData:     dp,
		}

		encoded, err := EncodeRequest(req)
		if err != nil {
			t.Fatalf("EncodeRequest(n=%d): %v", n, err)
		}
		decoded, err := DecodeRequest(encoded)
		if err != nil {
			t.Fatalf("DecodeRequest(n=%d): %v", n, err)
		}
		if decoded.ParameterData.Len() != n {
			t.Errorf("n=%d: decoded length = %d", n, decoded.ParameterData.Len())
		}
	}
}

func TestResponseRoundTripBroadcastDestination(t *testing.T) {
	src := mustUID(t, 1, 1)

	resp := ResponseData{
		Destination:  uid.Broadcast(),
		Source:        src,
		ResponseType:  ResponseTypeAck,
		CommandClass:  GetCommandResponse,
		ParameterID:   PIDSupportedParameters,
	}

	encoded, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	decoded, err := DecodeResponse(encoded)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if !decoded.Destination.IsBroadcast() {
		t.Errorf("destination = %v, want broadcast", decoded.Destination)
	}
	if decoded.ResponseType != ResponseTypeAck {
		t.Errorf("response type = %v, want ACK", decoded.ResponseType)
	}
}

func TestBuildResponseRejectsBroadcastRequest(t *testing.T) {
	src := mustUID(t, 1, 1)
	req := RequestData{
		Destination:   uid.Broadcast(),
		Source:         src,
		CommandClass:   SetCommand,
		ParameterID:    PIDIdentifyDevice,
	}

	_, err := req.BuildResponse(ResponseTypeAck, NewDataPack(), 0)
	if !errors.Is(err, ErrIsBroadcastRequest) {
		t.Errorf("err = %v, want ErrIsBroadcastRequest", err)
	}
}

func TestBuildResponseMirrorsRequest(t *testing.T) {
	controller := mustUID(t, 1, 10)
	responder := mustUID(t, 1, 20)

	req := RequestData{
		Destination:       uid.Device(responder),
		Source:             controller,
		TransactionNumber:  42,
		CommandClass:       GetCommand,
		ParameterID:        PIDDeviceInfo,
	}

	resp, err := req.BuildResponse(ResponseTypeAck, NewDataPack(), 0)
	if err != nil {
		t.Fatalf("BuildResponse: %v", err)
	}
	if !resp.Source.Equal(responder) {
		t.Errorf("response source = %v, want %v", resp.Source, responder)
	}
	if got, ok := resp.Destination.AsDevice(); !ok || !got.Equal(controller) {
		t.Errorf("response destination = %v, want device %v", resp.Destination, controller)
	}
	if resp.CommandClass != GetCommandResponse {
		t.Errorf("response cc = %v, want GET_COMMAND_RESPONSE", resp.CommandClass)
	}
	if resp.TransactionNumber != req.TransactionNumber {
		t.Errorf("response tn = %d, want %d", resp.TransactionNumber, req.TransactionNumber)
	}
}

func TestDecodeRequestRejectsTruncatedFrame(t *testing.T) {
	src := mustUID(t, 1, 1)
	req := RequestData{
		Destination:  uid.Device(mustUID(t, 1, 2)),
		Source:        src,
		CommandClass:  GetCommand,
		ParameterID:   PIDDeviceInfo,
	}
	encoded, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	_, err = DecodeRequest(encoded[:len(encoded)-3])
	if !errors.Is(err, ErrShortFrame) {
		t.Errorf("err = %v, want ErrShortFrame", err)
	}
}

func TestDecodeRequestDetectsBitFlipChecksumMismatch(t *testing.T) {
	src := mustUID(t, 1, 1)
	req := RequestData{
		Destination:  uid.Device(mustUID(t, 1, 2)),
		Source:        src,
		CommandClass:  SetCommand,
		ParameterID:   PIDIdentifyDevice,
	}
	data, _ := DataPackFromSlice([]byte{0x01})
	req.ParameterData = data

	encoded, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	for i := range encoded {
		if i == offStartCode || i == offSubCode {
			continue
		}
		corrupted := append([]byte(nil), encoded...)
		corrupted[i] ^= 0x01

		_, err := DecodeRequest(corrupted)
		if err == nil {
			t.Errorf("byte %d: bit flip went undetected", i)
		}
	}
}

func TestDecodeRequestRejectsResponseFrame(t *testing.T) {
	src := mustUID(t, 1, 1)
	resp := ResponseData{
		Destination:   uid.Device(mustUID(t, 1, 2)),
		Source:         src,
		ResponseType:   ResponseTypeAck,
		CommandClass:   GetCommandResponse,
		ParameterID:    PIDDeviceInfo,
	}
	encoded, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}

	_, err = DecodeRequest(encoded)
	if !errors.Is(err, ErrNotARequest) {
		t.Errorf("err = %v, want ErrNotARequest", err)
	}
}

func TestEncodeRequestRejectsOversizedData(t *testing.T) {
	oversized := make([]byte, MaxPDL+1)
	_, err := DataPackFromSlice(oversized)
	if !errors.Is(err, ErrPdlTooLarge) {
		t.Fatalf("DataPackFromSlice: err = %v, want ErrPdlTooLarge", err)
	}
}
