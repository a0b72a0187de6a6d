// Package clock supplies cycle.Clock implementations. The steward core
// never reads a wall clock directly (epoch progress is runtime-reported);
// this package is the thin ambient adapter
// the CLI and keeper use to supply that runtime-reported state, kept
// separate from the core so tests can substitute a fixed clock.
package clock

import "go.uber.org/atomic"

// Manual is a settable Clock, driven by the CLI's `steward tick` command
// or by a pool adapter's own slot/epoch bookkeeping. Fields are atomic
// so readers such as keeper's run loop can load them concurrently with
// a call to Advance.
type Manual struct {
	slot             atomic.Uint64
	epochProgressNum atomic.Uint64 // epoch progress * 1e6, integer to stay lock-free
	epochLengthSlots atomic.Uint64
}

// NewManual constructs a Manual clock at slot 0 with the given epoch
// length.
func NewManual(epochLengthSlots uint64) *Manual {
	c := &Manual{}
	c.epochLengthSlots.Store(epochLengthSlots)
	return c
}

func (c *Manual) CurrentSlot() uint64 { return c.slot.Load() }

func (c *Manual) EpochProgress() float64 {
	return float64(c.epochProgressNum.Load()) / 1_000_000
}

func (c *Manual) EpochLengthSlots() uint64 { return c.epochLengthSlots.Load() }

// Advance sets the current slot and derives epoch progress from it and
// epochStartSlot, clamping to [0, 1].
func (c *Manual) Advance(slot, epochStartSlot uint64) {
	c.slot.Store(slot)
	length := c.epochLengthSlots.Load()
	if length == 0 || slot <= epochStartSlot {
		c.epochProgressNum.Store(0)
		return
	}
	elapsed := slot - epochStartSlot
	progress := (elapsed * 1_000_000) / length
	if progress > 1_000_000 {
		progress = 1_000_000
	}
	c.epochProgressNum.Store(progress)
}
