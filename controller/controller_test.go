package controller_test

import (
	"errors"
	"testing"
	"time"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/controller"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/driver"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/responder"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/transport/simbus"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
	"github.com/stretchr/testify/require"
)

const testReceiveTimeout = 50 * time.Millisecond

// runResponder services exactly one poll cycle on port through r. It is
// meant to be run in its own goroutine alongside a single controller call.
func runResponder(t *testing.T, port *simbus.Port, r *responder.Responder) {
	t.Helper()
	_, err := r.Poll(port, nil, testReceiveTimeout)
	require.NoError(t, err)
}

func newPair(t *testing.T) (*controller.Controller, *simbus.Port, *responder.Responder, uid.UID) {
	t.Helper()

	bus := simbus.New()
	ctlPort := bus.Attach()
	respPort := bus.Attach()

	ctlUID, err := uid.New(0x7FF0, 1)
	require.NoError(t, err)
	respUID, err := uid.New(0x7FF0, 2)
	require.NoError(t, err)

	ctl := controller.New(ctlPort, controller.DefaultConfig(ctlUID), testReceiveTimeout)
	resp := responder.New(responder.Config{
		UID:                  respUID,
		SoftwareVersionLabel: "test-responder",
	})

	return ctl, respPort, resp, respUID
}

func TestGetDeviceInfoRoundTrip(t *testing.T) {
	ctl, respPort, resp, respUID := newPair(t)
	resp.SetDMXFootprint(4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runResponder(t, respPort, resp)
	}()

	info, err := ctl.GetDeviceInfo(respUID)
	<-done

	require.NoError(t, err)
	require.Equal(t, uint16(4), info.DMXFootprint)
}

func TestSetAndGetDMXStartAddress(t *testing.T) {
	ctl, respPort, resp, respUID := newPair(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runResponder(t, respPort, resp)
	}()
	require.NoError(t, ctl.SetDMXStartAddress(uid.Device(respUID), 12))
	<-done

	done = make(chan struct{})
	go func() {
		defer close(done)
		runResponder(t, respPort, resp)
	}()
	addr, err := ctl.GetDMXStartAddress(respUID)
	<-done

	require.NoError(t, err)
	v, ok := addr.Value()
	require.True(t, ok)
	require.Equal(t, uint16(12), v)
}

func TestSetIdentifyThenGetReflectsState(t *testing.T) {
	ctl, respPort, resp, respUID := newPair(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runResponder(t, respPort, resp)
	}()
	require.NoError(t, ctl.SetIdentify(uid.Device(respUID), true))
	<-done

	done = make(chan struct{})
	go func() {
		defer close(done)
		runResponder(t, respPort, resp)
	}()
	on, err := ctl.GetIdentify(respUID)
	<-done

	require.NoError(t, err)
	require.True(t, on)
}

func TestGetTimesOutWhenNoResponderAnswers(t *testing.T) {
	bus := simbus.New()
	ctlPort := bus.Attach()
	bus.Attach() // unused second port, nobody answers

	ctlUID, _ := uid.New(0x7FF0, 1)
	respUID, _ := uid.New(0x7FF0, 99)

	ctl := controller.New(ctlPort, controller.Config{UID: ctlUID, MaxRetries: 0}, 20*time.Millisecond)

	_, err := ctl.GetDeviceInfo(respUID)
	require.True(t, errors.Is(err, driver.ErrTimeout))
}

func TestDiscUniqueBranchFindsSingleResponderInRange(t *testing.T) {
	ctl, respPort, resp, respUID := newPair(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runResponder(t, respPort, resp)
	}()

	found, err := ctl.DiscUniqueBranch(respUID, respUID)
	<-done

	require.NoError(t, err)
	require.True(t, found.Equal(respUID))
}
