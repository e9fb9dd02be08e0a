package driver

import "unsafe"

// samplesView returns the n samples pigpio delivered at p, without
// copying. The result has length and capacity n, so callers cannot reach
// past the batch. ok is false for a batch that must be dropped: a negative
// n, or a nil p with n > 0. An empty batch yields (nil, true).
func samplesView(p unsafe.Pointer, n int) (samples []Sample, ok bool) {
	switch {
	case n < 0:
		return nil, false
	case n == 0:
		return nil, true
	case p == nil:
		return nil, false
	}
	// Sample and gpioSample_t share their layout: two uint32 fields.
	return unsafe.Slice((*Sample)(p), n), true
}
