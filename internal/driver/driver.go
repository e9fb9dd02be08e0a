// Package driver describes the call boundary into the pigpio C library.
//
// Every method mirrors one pigpio function and returns the raw status code
// that pigpio returns. Translating those codes is left to package pigpio,
// which is the only intended caller.
//
// On Linux with cgo, the binding links against libpigpio, so building
// requires pigpio.h and libpigpio. Build with -tags nopigpio (or with
// CGO_ENABLED=0) to leave the binding out; Default then returns a driver
// whose Initialise fails, and only drivers passed via pigpio.WithDriver,
// such as the simulator, can be used:
//
//	go test -tags nopigpio ./...
package driver

// Status codes returned by pigpio, see pigpio.h.
const (
	OK             = 0
	InitFailed     = -1
	BadUserGPIO    = -2
	BadGPIO        = -3
	BadMode        = -4
	BadLevel       = -5
	BadPUD         = -6
	BadDutyCycle   = -8
	BadWdogTimeout = -15
	BadDutyRange   = -21
	NotInitialised = -31
	NotPermitted   = -41
	BadPulseLen    = -46
	NotPWMGPIO     = -92
)

// Limits enforced by pigpio.
const (
	MaxGPIO          = 53
	MaxUserGPIO      = 31
	MaxPulseLen      = 100   // µs, gpioTrigger
	MaxWdogTimeout   = 60000 // ms, gpioSetWatchdog
	MinDutyRange     = 25
	MaxDutyRange     = 40000
	DefaultDutyRange = 255
)

// Sample matches the layout of pigpio's gpioSample_t.
type Sample struct {
	Tick  uint32 // µs since boot, wraps every ~72 minutes
	Level uint32 // bit n is the level of GPIO n
}

// SamplesFunc receives a batch of samples. The slice is only valid for the
// duration of the call.
type SamplesFunc func(samples []Sample)

// Driver is implemented by the native pigpio binding and by the simulator.
type Driver interface {
	Initialise() int
	Terminate()

	SetMode(gpio, mode uint32) int
	GetMode(gpio uint32) int
	SetPullUpDown(gpio, pud uint32) int
	Read(gpio uint32) int
	Write(gpio, level uint32) int

	Delay(micros uint32) uint32
	Tick() uint32
	HardwareRevision() uint32

	PWM(userGPIO, dutycycle uint32) int
	GetPWMDutycycle(userGPIO uint32) int
	SetPWMRange(userGPIO, rng uint32) int
	GetPWMRange(userGPIO uint32) int
	SetPWMFrequency(userGPIO, frequency uint32) int
	GetPWMFrequency(userGPIO uint32) int

	Trigger(userGPIO, pulseLen, level uint32) int
	SetWatchdog(userGPIO, timeout uint32) int

	// SetSamplesFunc registers f for the GPIOs in bits. A nil f cancels the
	// registration.
	SetSamplesFunc(f SamplesFunc, bits uint32) int
}
