//go:build linux && cgo && !nopigpio

package driver

/*
#cgo LDFLAGS: -lpigpio
#include <stdint.h>
#include <pigpio.h>

extern void samplesTrampoline(gpioSample_t *samples, int numSamples, void *userdata);

static int setSamplesFunc(uint32_t bits, uintptr_t handle) {
	return gpioSetGetSamplesFuncEx((gpioGetSamplesFuncEx_t)samplesTrampoline, bits, (void *)handle);
}

static int clearSamplesFunc(void) {
	return gpioSetGetSamplesFuncEx(NULL, 0, NULL);
}

// pigpio installs handlers for nearly every signal by default, which breaks
// the Go runtime's own signal handling.
static int disableSignalHandler(void) {
	return gpioCfgSetInternals(gpioCfgGetInternals() | PI_CFG_NOSIGHANDLER);
}
*/
import "C"

import (
	"runtime/cgo"
	"sync"
)

// Native is true when Default returns the libpigpio binding.
const Native = true

type native struct {
	mu sync.Mutex
	// handles of every registered SamplesFunc. They are only deleted after
	// gpioTerminate, when the pigpio alert thread can no longer call them.
	handles []cgo.Handle
}

// Default returns the driver bound to libpigpio.
func Default() Driver {
	return &native{}
}

func (n *native) Initialise() int {
	if rc := C.disableSignalHandler(); rc < 0 {
		return int(rc)
	}
	return int(C.gpioInitialise())
}

func (n *native) Terminate() {
	C.gpioTerminate()

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, h := range n.handles {
		h.Delete()
	}
	n.handles = nil
}

func (n *native) SetMode(gpio, mode uint32) int {
	return int(C.gpioSetMode(C.uint(gpio), C.uint(mode)))
}

func (n *native) GetMode(gpio uint32) int {
	return int(C.gpioGetMode(C.uint(gpio)))
}

func (n *native) SetPullUpDown(gpio, pud uint32) int {
	return int(C.gpioSetPullUpDown(C.uint(gpio), C.uint(pud)))
}

func (n *native) Read(gpio uint32) int {
	return int(C.gpioRead(C.uint(gpio)))
}

func (n *native) Write(gpio, level uint32) int {
	return int(C.gpioWrite(C.uint(gpio), C.uint(level)))
}

func (n *native) Delay(micros uint32) uint32 {
	return uint32(C.gpioDelay(C.uint32_t(micros)))
}

func (n *native) Tick() uint32 {
	return uint32(C.gpioTick())
}

func (n *native) HardwareRevision() uint32 {
	return uint32(C.gpioHardwareRevision())
}

func (n *native) PWM(userGPIO, dutycycle uint32) int {
	return int(C.gpioPWM(C.uint(userGPIO), C.uint(dutycycle)))
}

func (n *native) GetPWMDutycycle(userGPIO uint32) int {
	return int(C.gpioGetPWMdutycycle(C.uint(userGPIO)))
}

func (n *native) SetPWMRange(userGPIO, rng uint32) int {
	return int(C.gpioSetPWMrange(C.uint(userGPIO), C.uint(rng)))
}

func (n *native) GetPWMRange(userGPIO uint32) int {
	return int(C.gpioGetPWMrange(C.uint(userGPIO)))
}

func (n *native) SetPWMFrequency(userGPIO, frequency uint32) int {
	return int(C.gpioSetPWMfrequency(C.uint(userGPIO), C.uint(frequency)))
}

func (n *native) GetPWMFrequency(userGPIO uint32) int {
	return int(C.gpioGetPWMfrequency(C.uint(userGPIO)))
}

func (n *native) Trigger(userGPIO, pulseLen, level uint32) int {
	return int(C.gpioTrigger(C.uint(userGPIO), C.uint(pulseLen), C.uint(level)))
}

func (n *native) SetWatchdog(userGPIO, timeout uint32) int {
	return int(C.gpioSetWatchdog(C.uint(userGPIO), C.uint(timeout)))
}

func (n *native) SetSamplesFunc(f SamplesFunc, bits uint32) int {
	if f == nil {
		return int(C.clearSamplesFunc())
	}
	h := cgo.NewHandle(f)
	n.mu.Lock()
	n.handles = append(n.handles, h)
	n.mu.Unlock()
	return int(C.setSamplesFunc(C.uint32_t(bits), C.uintptr_t(h)))
}
