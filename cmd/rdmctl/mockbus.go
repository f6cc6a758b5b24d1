package main

import (
	"sync"
	"time"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/config"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/responder"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/telemetry"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/transport/simbus"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
)

// attachMockResponders spawns count mock responders onto bus, each serviced
// by its own goroutine, and returns a func that stops them all. It backs
// -simulate's in-memory bus with real traffic to discover, get and set
// against instead of an otherwise-empty bus, for demos and CI smoke-checks.
// respCfg, when non-nil (loaded via -responder-config), supplies the build
// parameters every mock responder is constructed with; nil falls back to
// bare defaults.
func attachMockResponders(bus *simbus.Bus, count int, respCfg *config.ResponderConfig, logger *telemetry.Logger) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < count; i++ {
		respUID, err := uid.New(0x4C49, uint32(1000+i))
		if err != nil {
			logger.Error("failed to build mock responder uid", "index", i, "error", err)
			continue
		}

		resp := responder.New(mockResponderConfig(respUID, respCfg, logger))
		port := bus.Attach()

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveMockResponder(port, resp, stop)
		}()

		logger.Info("attached mock responder", "uid", respUID.String())
	}

	return func() {
		close(stop)
		wg.Wait()
	}
}

// mockResponderConfig builds a responder.Config for a simulated fixture.
// respCfg's build parameters (queue capacity, supported PIDs, device-info
// fields) thread straight through to responder.New the way a real
// responder daemon built on config.LoadResponder would use them.
func mockResponderConfig(respUID uid.UID, respCfg *config.ResponderConfig, logger *telemetry.Logger) responder.Config {
	cfg := responder.Config{
		UID:                  respUID,
		SoftwareVersionLabel: "rdmctl-simulated",
		SoftwareVersionID:    1,
		Logger:               logger,
	}
	if respCfg == nil {
		return cfg
	}
	cfg.SupportedPIDs = respCfg.SupportedPIDs
	cfg.DeviceModelID = respCfg.DeviceModelID
	cfg.ProductCategory = respCfg.ProductCategory
	cfg.SoftwareVersionID = respCfg.SoftwareVersionID
	if respCfg.SoftwareVersionLabel != "" {
		cfg.SoftwareVersionLabel = respCfg.SoftwareVersionLabel
	}
	cfg.QueueCapacity = respCfg.QueueCapacity
	return cfg
}

// serveMockResponder drives resp.Poll against port until stop closes. It
// has no device-specific Handler: requests for PIDs Responder doesn't
// handle itself are NACKed, matching a bare fixture with no optional
// parameters.
func serveMockResponder(port *simbus.Port, resp *responder.Responder, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		_, _ = resp.Poll(port, nil, 200*time.Millisecond)
	}
}
