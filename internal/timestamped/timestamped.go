// Package timestamped provides types which record when their value last
// changed, e.g. the level of a GPIO.
package timestamped

import (
	"sync"
	"time"
)

// Value wraps a comparable value. It is safe for concurrent use, as pigpio
// updates values from its own thread while they are read elsewhere.
type Value[T comparable] struct {
	mu         sync.Mutex
	lastChange time.Time
	value      T
	changes    uint64
}

// Set updates the value, if val differs from the current value, and
// reports whether it did. The first Set always counts as a change.
func (v *Value[T]) Set(val T, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.value == val && !v.lastChange.IsZero() {
		return false
	}
	v.lastChange = now
	v.value = val
	v.changes++
	return true
}

// Get returns the current value and when Set last changed it.
func (v *Value[T]) Get() (T, time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.lastChange
}

// Changes returns how often Set changed the value.
func (v *Value[T]) Changes() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.changes
}

// StableFor reports whether the value has not changed for at least d.
func (v *Value[T]) StableFor(d time.Duration, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.lastChange.IsZero() && now.Sub(v.lastChange) >= d
}
