//go:build linux && cgo && !nopigpio

package driver

/*
#include <pigpio.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

// samplesTrampoline is called by the pigpio alert thread. userdata carries
// the cgo.Handle of the registered SamplesFunc.
//
//export samplesTrampoline
func samplesTrampoline(samples *C.gpioSample_t, numSamples C.int, userdata unsafe.Pointer) {
	if userdata == nil {
		return
	}
	batch, ok := samplesView(unsafe.Pointer(samples), int(numSamples))
	if !ok {
		return
	}
	f, ok := cgo.Handle(uintptr(userdata)).Value().(SamplesFunc)
	if !ok {
		return
	}
	f(batch)
}
