//go:build !linux || !cgo || nopigpio

package driver

// Native is true when Default returns the libpigpio binding.
const Native = false

// Default returns a driver whose Initialise always fails, for builds
// without libpigpio.
func Default() Driver {
	return unavailable{}
}

type unavailable struct{}

func (unavailable) Initialise() int                          { return InitFailed }
func (unavailable) Terminate()                               {}
func (unavailable) SetMode(gpio, mode uint32) int            { return InitFailed }
func (unavailable) GetMode(gpio uint32) int                  { return InitFailed }
func (unavailable) SetPullUpDown(gpio, pud uint32) int       { return InitFailed }
func (unavailable) Read(gpio uint32) int                     { return InitFailed }
func (unavailable) Write(gpio, level uint32) int             { return InitFailed }
func (unavailable) Delay(micros uint32) uint32               { return 0 }
func (unavailable) Tick() uint32                             { return 0 }
func (unavailable) HardwareRevision() uint32                 { return 0 }
func (unavailable) PWM(userGPIO, dutycycle uint32) int       { return InitFailed }
func (unavailable) GetPWMDutycycle(userGPIO uint32) int      { return InitFailed }
func (unavailable) SetPWMRange(userGPIO, rng uint32) int     { return InitFailed }
func (unavailable) GetPWMRange(userGPIO uint32) int          { return InitFailed }
func (unavailable) GetPWMFrequency(userGPIO uint32) int      { return InitFailed }
func (unavailable) SetWatchdog(userGPIO, timeout uint32) int { return InitFailed }

func (unavailable) SetPWMFrequency(userGPIO, frequency uint32) int {
	return InitFailed
}

func (unavailable) Trigger(userGPIO, pulseLen, level uint32) int {
	return InitFailed
}

func (unavailable) SetSamplesFunc(f SamplesFunc, bits uint32) int {
	return InitFailed
}
