// Package edges turns the sample batches delivered by pigpio into level
// changes of individual GPIOs.
package edges

import (
	"math/bits"

	"github.com/stapelberg/gopigpio/pigpio"
)

// Edge is a level change of one GPIO.
type Edge struct {
	GPIO  uint32
	Level pigpio.Level // level after the change
	Tick  uint32       // pigpio tick of the sample showing the change
}

// Rising reports whether the GPIO went from Off to On.
func (e Edge) Rising() bool { return e.Level == pigpio.On }

// Detector compares consecutive samples of the GPIOs selected by a
// bitmask. It is not safe for concurrent use; pigpio delivers batches
// from a single thread.
type Detector struct {
	bits     uint32
	reported uint32
	// Debounce is the minimum time in µs between two reported edges of
	// the same GPIO. A change which arrives sooner is reported with the
	// first sample after the window that still shows it.
	Debounce uint32
	lastTick [32]uint32
	seen     uint32 // GPIOs with at least one reported edge
}

// NewDetector returns a Detector for the GPIOs in mask, whose levels were
// initial (bit n is GPIO n) when sampling started.
func NewDetector(mask, initial uint32) *Detector {
	return &Detector{
		bits:     mask,
		reported: initial & mask,
	}
}

// Feed processes one batch and calls emit for every edge, in sample order
// and, within a sample, in GPIO order.
func (d *Detector) Feed(samples []pigpio.Sample, emit func(Edge)) {
	for _, s := range samples {
		changed := (s.Level ^ d.reported) & d.bits
		for changed != 0 {
			gpio := uint32(bits.TrailingZeros32(changed))
			bit := uint32(1) << gpio
			changed &^= bit
			if d.Debounce > 0 && d.seen&bit != 0 && s.Tick-d.lastTick[gpio] < d.Debounce {
				continue
			}
			d.seen |= bit
			d.lastTick[gpio] = s.Tick
			d.reported ^= bit
			emit(Edge{
				GPIO:  gpio,
				Level: pigpio.LevelOf(s, gpio),
				Tick:  s.Tick,
			})
		}
	}
}

// Levels returns the last reported levels, bit n being GPIO n.
func (d *Detector) Levels() uint32 { return d.reported }
