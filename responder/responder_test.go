package responder_test

import (
	"errors"
	"testing"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/rdmproto"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/responder"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
	"github.com/stretchr/testify/require"
)

func newResponder(t *testing.T) (*responder.Responder, uid.UID) {
	t.Helper()
	u, err := uid.New(0x4C49, 1)
	require.NoError(t, err)
	return responder.New(responder.Config{UID: u, SupportedPIDs: []uint16{0x8000, 0x8001}}), u
}

func getRequest(dest uid.Address, src uid.UID, pid uint16) rdmproto.RequestData {
	return rdmproto.RequestData{
		Destination:       dest,
		Source:             src,
		TransactionNumber:  1,
		CommandClass:       rdmproto.GetCommand,
		ParameterID:        pid,
	}
}

func TestHandleRequestIgnoresTrafficForOtherDevices(t *testing.T) {
	r, _ := newResponder(t)
	otherUID, _ := uid.New(0x4C49, 99)
	controllerUID, _ := uid.New(0x4C49, 200)

	answer, err := r.HandleRequest(getRequest(uid.Device(otherUID), controllerUID, rdmproto.PIDDeviceInfo), nil)
	require.NoError(t, err)
	require.Equal(t, responder.AnswerNoResponse, answer.Kind)
}

func TestDiscUniqueBranchMatchesOwnRangeOnly(t *testing.T) {
	r, u := newResponder(t)
	controllerUID, _ := uid.New(0x4C49, 200)

	lower := u.Bytes()
	upper := u.Bytes()
	data, err := rdmproto.DataPackFromSlice(append(append([]byte{}, lower[:]...), upper[:]...))
	require.NoError(t, err)

	req := rdmproto.RequestData{
		Destination:   uid.Broadcast(),
		Source:         controllerUID,
		CommandClass:   rdmproto.DiscoveryCommand,
		ParameterID:    rdmproto.PIDDiscUniqueBranch,
		ParameterData:  data,
	}

	answer, err := r.HandleRequest(req, nil)
	require.NoError(t, err)
	require.Equal(t, responder.AnswerDiscoveryResponse, answer.Kind)
	require.True(t, answer.DiscoveryUID.Equal(u))
}

func TestDiscUniqueBranchSilentWhenMuted(t *testing.T) {
	r, u := newResponder(t)
	controllerUID, _ := uid.New(0x4C49, 200)

	muteReq := rdmproto.RequestData{
		Destination:   uid.Device(u),
		Source:         controllerUID,
		CommandClass:   rdmproto.DiscoveryCommand,
		ParameterID:    rdmproto.PIDDiscMute,
	}
	_, err := r.HandleRequest(muteReq, nil)
	require.NoError(t, err)
	require.True(t, r.DiscoveryMuted())

	lower := u.Bytes()
	upper := u.Bytes()
	data, _ := rdmproto.DataPackFromSlice(append(append([]byte{}, lower[:]...), upper[:]...))
	discReq := rdmproto.RequestData{
		Destination:   uid.Broadcast(),
		Source:         controllerUID,
		CommandClass:   rdmproto.DiscoveryCommand,
		ParameterID:    rdmproto.PIDDiscUniqueBranch,
		ParameterData:  data,
	}

	answer, err := r.HandleRequest(discReq, nil)
	require.NoError(t, err)
	require.Equal(t, responder.AnswerNoResponse, answer.Kind)
}

func TestSupportedParametersListsInternalAndConfiguredPIDs(t *testing.T) {
	r, u := newResponder(t)
	controllerUID, _ := uid.New(0x4C49, 200)

	answer, err := r.HandleRequest(getRequest(uid.Device(u), controllerUID, rdmproto.PIDSupportedParameters), nil)
	require.NoError(t, err)
	require.Equal(t, responder.AnswerResponse, answer.Kind)
	require.Equal(t, rdmproto.ResponseTypeAck, answer.Response.ResponseType)

	pids, err := rdmproto.DeserializeSupportedParameters(answer.Response.ParameterData.Bytes())
	require.NoError(t, err)
	require.Contains(t, pids, rdmproto.PIDQueuedMessage)
	require.Contains(t, pids, rdmproto.PIDStatusMessages)
	require.Contains(t, pids, uint16(0x8000))
	require.Contains(t, pids, uint16(0x8001))
}

func TestDMXStartAddressSetThenGet(t *testing.T) {
	r, u := newResponder(t)
	controllerUID, _ := uid.New(0x4C49, 200)

	addrBytes, _ := rdmproto.DataPackFromSlice([]byte{0x00, 0x05})
	setReq := rdmproto.RequestData{
		Destination:    uid.Device(u),
		Source:          controllerUID,
		CommandClass:    rdmproto.SetCommand,
		ParameterID:     rdmproto.PIDDMXStartAddress,
		ParameterData:   addrBytes,
	}
	answer, err := r.HandleRequest(setReq, nil)
	require.NoError(t, err)
	require.Equal(t, rdmproto.ResponseTypeAck, answer.Response.ResponseType)

	getAnswer, err := r.HandleRequest(getRequest(uid.Device(u), controllerUID, rdmproto.PIDDMXStartAddress), nil)
	require.NoError(t, err)

	addr, err := rdmproto.DeserializeDMXStartAddress(getAnswer.Response.ParameterData.Bytes())
	require.NoError(t, err)
	v, ok := addr.Value()
	require.True(t, ok)
	require.Equal(t, uint16(5), v)
}

func TestDMXStartAddressSetRejectsBadFormat(t *testing.T) {
	r, u := newResponder(t)
	controllerUID, _ := uid.New(0x4C49, 200)

	badData, _ := rdmproto.DataPackFromSlice([]byte{0x00})
	setReq := rdmproto.RequestData{
		Destination:   uid.Device(u),
		Source:         controllerUID,
		CommandClass:   rdmproto.SetCommand,
		ParameterID:    rdmproto.PIDDMXStartAddress,
		ParameterData:  badData,
	}

	answer, err := r.HandleRequest(setReq, nil)
	require.NoError(t, err)
	require.Equal(t, rdmproto.ResponseTypeNackReason, answer.Response.ResponseType)
}

func TestStatusMessagesFilterAndConsume(t *testing.T) {
	r, u := newResponder(t)
	controllerUID, _ := uid.New(0x4C49, 200)

	r.AddStatusMessage(rdmproto.StatusMessage{StatusType: rdmproto.StatusWarning, StatusMessageID: 1})
	r.AddStatusMessage(rdmproto.StatusMessage{StatusType: rdmproto.StatusAdvisory, StatusMessageID: 2})

	data, _ := rdmproto.DataPackFromSlice([]byte{byte(rdmproto.StatusWarning)})
	req := rdmproto.RequestData{
		Destination:   uid.Device(u),
		Source:         controllerUID,
		CommandClass:   rdmproto.GetCommand,
		ParameterID:    rdmproto.PIDStatusMessages,
		ParameterData:  data,
	}

	answer, err := r.HandleRequest(req, nil)
	require.NoError(t, err)
	messages, err := rdmproto.DeserializeStatusMessages(answer.Response.ParameterData.Bytes())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, uint16(1), messages[0].StatusMessageID)

	// Second request with the same filter finds nothing left to report.
	answer, err = r.HandleRequest(req, nil)
	require.NoError(t, err)
	messages, err = rdmproto.DeserializeStatusMessages(answer.Response.ParameterData.Bytes())
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestCustomPIDWithoutHandlerIsNacked(t *testing.T) {
	r, u := newResponder(t)
	controllerUID, _ := uid.New(0x4C49, 200)

	answer, err := r.HandleRequest(getRequest(uid.Device(u), controllerUID, 0x8000), nil)
	require.NoError(t, err)
	require.Equal(t, rdmproto.ResponseTypeNackReason, answer.Response.ResponseType)
}

type stubHandler struct {
	result responder.Result
	err    error
}

func (h stubHandler) HandleRDM(rdmproto.RequestData, *responder.Context) (responder.Result, error) {
	return h.result, h.err
}

func TestCustomPIDDelegatesToHandler(t *testing.T) {
	r, u := newResponder(t)
	controllerUID, _ := uid.New(0x4C49, 200)

	data, _ := rdmproto.DataPackFromSlice([]byte{0x2A})
	h := stubHandler{result: responder.Acknowledged(data)}

	answer, err := r.HandleRequest(getRequest(uid.Device(u), controllerUID, 0x8000), h)
	require.NoError(t, err)
	require.Equal(t, rdmproto.ResponseTypeAck, answer.Response.ResponseType)
	require.Equal(t, []byte{0x2A}, answer.Response.ParameterData.Bytes())
}

func TestCustomPIDHandlerErrorPropagates(t *testing.T) {
	r, u := newResponder(t)
	controllerUID, _ := uid.New(0x4C49, 200)
	wantErr := errors.New("handler exploded")

	_, err := r.HandleRequest(getRequest(uid.Device(u), controllerUID, 0x8000), stubHandler{err: wantErr})
	require.ErrorIs(t, err, wantErr)
}
