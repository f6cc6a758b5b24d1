package main

import (
	"fmt"
	"strconv"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/controller"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
)

func runSubcommand(ctl *controller.Controller, name string, args []string) error {
	switch name {
	case "discover":
		return cmdDiscover(ctl)
	case "get-info":
		return cmdGetInfo(ctl, args)
	case "get-address":
		return cmdGetAddress(ctl, args)
	case "set-address":
		return cmdSetAddress(ctl, args)
	case "identify":
		return cmdIdentify(ctl, args)
	case "mute":
		return cmdMute(ctl, args)
	case "unmute":
		return cmdUnmute(ctl, args)
	default:
		return fmt.Errorf("unknown subcommand %q (discover, get-info, get-address, set-address, identify, mute, unmute)", name)
	}
}

func parseUID(s string) (uid.UID, error) {
	var manufacturer uint16
	var device uint32
	if _, err := fmt.Sscanf(s, "%04X:%08X", &manufacturer, &device); err != nil {
		return uid.UID{}, fmt.Errorf("malformed UID %q, expected MMMM:DDDDDDDD", s)
	}
	return uid.New(manufacturer, device)
}

// discoveryBufferSize is the fixed-capacity buffer one RunFullDiscovery call
// fills; a bus with more responders than this drains the buffer across
// repeated calls, the way original_source/src/lib.rs's caller loop does.
const discoveryBufferSize = 512

func cmdDiscover(ctl *controller.Controller) error {
	if _, err := ctl.DiscUnMute(uid.Broadcast()); err != nil {
		return fmt.Errorf("broadcasting un-mute: %w", err)
	}

	var found []uid.UID
	buf := make([]uid.UID, discoveryBufferSize)
	for {
		n, err := ctl.RunFullDiscovery(buf)
		if err != nil {
			return err
		}
		found = append(found, buf[:n]...)
		if n != len(buf) {
			break
		}
	}

	for _, u := range found {
		fmt.Println(u.String())
	}
	fmt.Printf("%d device(s) found\n", len(found))
	return nil
}

func cmdGetInfo(ctl *controller.Controller, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: get-info <uid>")
	}
	target, err := parseUID(args[0])
	if err != nil {
		return err
	}
	info, err := ctl.GetDeviceInfo(target)
	if err != nil {
		return err
	}
	startAddress := "none"
	if v, ok := info.DMXStartAddress.Value(); ok {
		startAddress = strconv.FormatUint(uint64(v), 10)
	}
	fmt.Printf("model=0x%04X category=0x%04X software=%d footprint=%d personality=%d start=%s subdevices=%d sensors=%d\n",
		info.DeviceModelID, info.ProductCategory, info.SoftwareVersion, info.DMXFootprint,
		info.DMXPersonality, startAddress, info.SubDeviceCount, info.SensorCount)
	return nil
}

func cmdGetAddress(ctl *controller.Controller, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: get-address <uid>")
	}
	target, err := parseUID(args[0])
	if err != nil {
		return err
	}
	addr, err := ctl.GetDMXStartAddress(target)
	if err != nil {
		return err
	}
	if v, ok := addr.Value(); ok {
		fmt.Println(v)
	} else {
		fmt.Println("none")
	}
	return nil
}

func cmdSetAddress(ctl *controller.Controller, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: set-address <uid> <1-512>")
	}
	target, err := parseUID(args[0])
	if err != nil {
		return err
	}
	addr, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return fmt.Errorf("malformed address %q: %w", args[1], err)
	}
	return ctl.SetDMXStartAddress(uid.Device(target), uint16(addr))
}

func cmdIdentify(ctl *controller.Controller, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: identify <uid> <on|off>")
	}
	target, err := parseUID(args[0])
	if err != nil {
		return err
	}
	on := args[1] == "on" || args[1] == "true" || args[1] == "1"
	return ctl.SetIdentify(uid.Device(target), on)
}

func cmdMute(ctl *controller.Controller, args []string) error {
	dest := uid.Broadcast()
	if len(args) >= 1 {
		target, err := parseUID(args[0])
		if err != nil {
			return err
		}
		dest = uid.Device(target)
	}
	_, err := ctl.DiscMute(dest)
	return err
}

func cmdUnmute(ctl *controller.Controller, args []string) error {
	dest := uid.Broadcast()
	if len(args) >= 1 {
		target, err := parseUID(args[0])
		if err != nil {
			return err
		}
		dest = uid.Device(target)
	}
	_, err := ctl.DiscUnMute(dest)
	return err
}
