package responder_test

import (
	"testing"
	"time"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/rdmproto"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/responder"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/transport/simbus"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
	"github.com/stretchr/testify/require"
)

const pollTestTimeout = 20 * time.Millisecond

func TestPollAnswersAnRDMRequest(t *testing.T) {
	bus := simbus.New()
	ctlPort := bus.Attach()
	respPort := bus.Attach()

	respUID, _ := uid.New(0x4C49, 1)
	controllerUID, _ := uid.New(0x4C49, 200)
	r := responder.New(responder.Config{UID: respUID})

	req := getRequest(uid.Device(respUID), controllerUID, rdmproto.PIDSoftwareVersionLabel)
	frame, err := rdmproto.EncodeRequest(req)
	require.NoError(t, err)
	require.NoError(t, ctlPort.SendRDM(frame))

	answer, err := r.Poll(respPort, nil, pollTestTimeout)
	require.NoError(t, err)
	require.Equal(t, responder.AnswerResponse, answer.Kind)

	raw, err := ctlPort.ReceiveRDM(pollTestTimeout)
	require.NoError(t, err)

	resp, err := rdmproto.DecodeResponse(raw)
	require.NoError(t, err)
	require.Equal(t, rdmproto.ResponseTypeAck, resp.ResponseType)
}

func TestPollUpdatesDMXLevelsAndSendsNoResponse(t *testing.T) {
	bus := simbus.New()
	ctlPort := bus.Attach()
	respPort := bus.Attach()

	respUID, _ := uid.New(0x4C49, 1)
	r := responder.New(responder.Config{UID: respUID})

	levels := []byte{10, 20, 30}
	require.NoError(t, ctlPort.SendRDM(append([]byte{rdmproto.SCDMXNull}, levels...)))

	answer, err := r.Poll(respPort, nil, pollTestTimeout)
	require.NoError(t, err)
	require.Equal(t, responder.AnswerNoResponse, answer.Kind)
	require.Equal(t, levels, r.DMXLevels())
}

func TestPollTimesOutCleanlyWithNoTraffic(t *testing.T) {
	bus := simbus.New()
	respPort := bus.Attach()

	respUID, _ := uid.New(0x4C49, 1)
	r := responder.New(responder.Config{UID: respUID})

	answer, err := r.Poll(respPort, nil, pollTestTimeout)
	require.NoError(t, err)
	require.Equal(t, responder.AnswerNoResponse, answer.Kind)
}
