package controller_test

import (
	"testing"
	"time"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/controller"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/responder"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/transport/simbus"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
	"github.com/stretchr/testify/require"
)

// serveDiscoveryResponder drives resp.Poll against port until stop closes,
// simulating an always-on responder sharing the bus with a controller doing
// full discovery.
func serveDiscoveryResponder(t *testing.T, port *simbus.Port, resp *responder.Responder, stop <-chan struct{}) {
	t.Helper()
	for {
		select {
		case <-stop:
			return
		default:
		}
		_, err := resp.Poll(port, nil, 20*time.Millisecond)
		require.NoError(t, err)
	}
}

func TestRunFullDiscoveryFindsAllUnmutedResponders(t *testing.T) {
	bus := simbus.New()
	ctlPort := bus.Attach()

	ctlUID, _ := uid.New(0x7FF0, 1)
	ctl := controller.New(ctlPort, controller.DefaultConfig(ctlUID), 20*time.Millisecond)

	responderUIDs := []uid.UID{
		mustUID(t, 0x4C49, 10),
		mustUID(t, 0x4C49, 20),
		mustUID(t, 0x4C49, 30),
	}

	stop := make(chan struct{})
	defer close(stop)

	for _, u := range responderUIDs {
		port := bus.Attach()
		resp := responder.New(responder.Config{UID: u})
		go serveDiscoveryResponder(t, port, resp, stop)
	}

	buf := make([]uid.UID, 16)
	n, err := ctl.RunFullDiscovery(buf)
	require.NoError(t, err)
	found := buf[:n]
	require.Len(t, found, len(responderUIDs))

	for _, want := range responderUIDs {
		present := false
		for _, got := range found {
			if got.Equal(want) {
				present = true
				break
			}
		}
		require.True(t, present, "expected %v in discovered set", want)
	}
}

func mustUID(t *testing.T, manufacturer uint16, device uint32) uid.UID {
	t.Helper()
	u, err := uid.New(manufacturer, device)
	require.NoError(t, err)
	return u
}
