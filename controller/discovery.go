package controller

import (
	"errors"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/driver"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/rdmproto"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
)

// RunFullDiscovery mutes every responder it finds as it goes and writes
// every UID discovered across the full 48-bit address space into out,
// starting at index 0, returning the count written. Callers must broadcast
// DISC_UN_MUTE first (Controller.DiscUnMute with uid.Broadcast()) so that a
// previous discovery's mutes don't hide devices from this one.
//
// out is a caller-supplied fixed-capacity buffer; RunFullDiscovery never
// allocates one itself. It repeats the traversal, writing newly found UIDs
// after the ones already found, until a pass turns up fewer new devices
// than the capacity it was given (or none at all) — this catches devices
// that un-mute between passes (hot-plug) without re-reporting devices a
// prior pass already muted. If out fills completely the loop stops there;
// callers wanting to keep going past a full buffer should drain it and
// call again, the way original_source/src/lib.rs's caller loop does.
//
// This is a blocking, recursive bisection (ANSI E1.20 §7) unsuitable for a
// responsive UI or an embedded event loop on its own — callers needing
// progress feedback or cancellation should call DiscUniqueBranch and
// DiscMute themselves over a smaller range at a time.
func (c *Controller) RunFullDiscovery(out []uid.UID) (int, error) {
	total := 0
	for total < len(out) {
		avail := out[total:]
		n, err := c.discoverRange(1, rdmproto.BroadcastUID-1, avail)
		total += n
		if err != nil {
			return total, err
		}
		c.logger.Debug("discovery pass complete", "found", n, "total", total)
		if n < len(avail) {
			break
		}
	}
	return total, nil
}

// discoverRange recursively bisects [lower, upper] on collision, writing
// found UIDs into out starting at index 0 and returning the count written.
// It mirrors original_source/src/utils.rs's discover_range: the upper half
// of a collision is explored first, then the lower half into whatever of
// out the upper half left unused.
func (c *Controller) discoverRange(lower, upper uint64, out []uid.UID) (int, error) {
	if len(out) == 0 {
		return 0, nil
	}

	// A value whose device part is 0xFFFFFFFF is a manufacturer-broadcast
	// address, never a device UID, so range endpoints step past it.
	if uint32(lower) == 0xFFFFFFFF {
		lower++
	}
	if uint32(upper) == 0xFFFFFFFF {
		upper--
	}
	if lower > upper {
		return 0, nil
	}

	lowerUID, err := uid.FromUint64(lower)
	if err != nil {
		return 0, err
	}
	upperUID, err := uid.FromUint64(upper)
	if err != nil {
		return 0, err
	}

	got, err := c.DiscUniqueBranch(lowerUID, upperUID)

	switch {
	case errors.Is(err, driver.ErrTimeout):
		return 0, nil
	case errors.Is(err, rdmproto.ErrDiscoveryCollision):
		if upper == lower {
			return 0, nil
		}
		c.logger.Debug("discovery collision, bisecting range", "lower", lower, "upper", upper)
		mid := lower + (upper-lower)/2
		upperCount, err := c.discoverRange(mid+1, upper, out)
		if err != nil {
			return upperCount, err
		}
		lowerCount, err := c.discoverRange(lower, mid, out[upperCount:])
		return upperCount + lowerCount, err
	case err != nil:
		return 0, err
	}

	if _, err := c.DiscMute(uid.Device(got)); err != nil {
		if errors.Is(err, driver.ErrTimeout) {
			return 0, nil
		}
		return 0, err
	}

	out[0] = got
	return 1, nil
}
