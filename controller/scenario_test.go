package controller_test

import (
	"errors"
	"testing"
	"time"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/controller"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/rdmproto"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/responder"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/transport/simbus"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
	"github.com/stretchr/testify/require"
)

// identifyHandler answers SET IDENTIFY_DEVICE itself, since Responder does
// not handle that PID internally — NACKing DataOutOfRange for anything but
// the 1-byte payload E1.20 defines.
type identifyHandler struct{}

func (identifyHandler) HandleRDM(request rdmproto.RequestData, ctx *responder.Context) (responder.Result, error) {
	if request.ParameterID != rdmproto.PIDIdentifyDevice || request.CommandClass != rdmproto.SetCommand {
		return responder.NotAcknowledged(rdmproto.NackUnsupportedCommandClass), nil
	}
	if request.ParameterData.Len() != 1 {
		return responder.NotAcknowledged(rdmproto.NackDataOutOfRange), nil
	}
	return responder.Acknowledged(rdmproto.NewDataPack()), nil
}

// serveScenarioResponder drives resp.Poll against port through handler
// until stop closes, for tests that need a responder alive across several
// request attempts rather than just one.
func serveScenarioResponder(t *testing.T, port *simbus.Port, resp *responder.Responder, handler responder.Handler, stop <-chan struct{}) {
	t.Helper()
	for {
		select {
		case <-stop:
			return
		default:
		}
		_, err := resp.Poll(port, handler, 20*time.Millisecond)
		require.NoError(t, err)
	}
}

// S5: SET IDENTIFY_DEVICE with a malformed 2-byte parameter data triggers a
// NACK(DataOutOfRange) rather than an ACK or a protocol-layer decode error.
func TestSetIdentifyWithMalformedPayloadIsNacked(t *testing.T) {
	bus := simbus.New()
	ctlPort := bus.Attach()
	respPort := bus.Attach()

	ctlUID, _ := uid.New(0x7FF0, 1)
	respUID, _ := uid.New(0x7FF0, 2)

	ctl := controller.New(ctlPort, controller.DefaultConfig(ctlUID), testReceiveTimeout)
	resp := responder.New(responder.Config{UID: respUID})

	stop := make(chan struct{})
	defer close(stop)
	go serveScenarioResponder(t, respPort, resp, identifyHandler{}, stop)

	badPayload, err := rdmproto.DataPackFromSlice([]byte{0x00, 0x01})
	require.NoError(t, err)

	_, err = ctl.Set(uid.Device(respUID), rdmproto.PIDIdentifyDevice, badPayload)
	require.Error(t, err)

	var nack *controller.NotAcknowledgedError
	require.True(t, errors.As(err, &nack), "expected a NotAcknowledgedError, got %v", err)
	require.Equal(t, rdmproto.NackDataOutOfRange, nack.Reason)
}

// S6: the driver drops two consecutive frames; the controller succeeds on
// its third attempt with max_retries=3.
func TestControllerSucceedsOnThirdAttemptAfterDroppedFrames(t *testing.T) {
	bus := simbus.New()
	ctlPort := bus.Attach()
	respPort := bus.Attach()

	ctlUID, _ := uid.New(0x7FF0, 1)
	respUID, _ := uid.New(0x7FF0, 2)

	ctl := controller.New(ctlPort, controller.Config{UID: ctlUID, MaxRetries: 3}, testReceiveTimeout)
	resp := responder.New(responder.Config{
		UID:                  respUID,
		SoftwareVersionLabel: "test-responder",
	})

	stop := make(chan struct{})
	defer close(stop)
	go serveScenarioResponder(t, respPort, resp, nil, stop)

	// The first two attempts' request frames never reach the responder, so
	// both time out; the third gets through.
	bus.DropNext(2)

	info, err := ctl.GetDeviceInfo(respUID)
	require.NoError(t, err)
	require.Equal(t, resp.DMXStartAddress(), info.DMXStartAddress)
}
