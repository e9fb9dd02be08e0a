package pigpio

import (
	"errors"
	"fmt"

	"github.com/stapelberg/gopigpio/internal/driver"
)

var (
	// ErrInitFailed is returned by New when gpioInitialise fails.
	ErrInitFailed = errors.New("initialisation failed")

	// ErrAlreadyInitialized is returned by New while another Pi is open.
	// pigpio supports only one initialisation per process.
	ErrAlreadyInitialized = errors.New("pigpio already initialised in this process")

	// ErrClosed is returned by operations on a Pi after Close.
	ErrClosed = errors.New("pigpio handle closed")

	ErrBadGPIO            = errors.New("bad gpio")
	ErrBadUserGPIO        = errors.New("bad user gpio")
	ErrBadMode            = errors.New("bad mode")
	ErrBadLevel           = errors.New("bad level")
	ErrBadPUD             = errors.New("bad pud")
	ErrBadDutyCycle       = errors.New("bad dutycycle")
	ErrBadDutyRange       = errors.New("bad dutyrange")
	ErrBadPulseLen        = errors.New("bad pulse length")
	ErrBadWatchdogTimeout = errors.New("bad watchdog timeout")
	ErrNotPermitted       = errors.New("not permitted")
	ErrNotPWMGPIO         = errors.New("gpio is not in use for PWM")

	// ErrUnknown covers every status code the operation does not document.
	ErrUnknown = errors.New("unknown error")
)

var codeErrors = map[int]error{
	driver.BadUserGPIO:    ErrBadUserGPIO,
	driver.BadGPIO:        ErrBadGPIO,
	driver.BadMode:        ErrBadMode,
	driver.BadLevel:       ErrBadLevel,
	driver.BadPUD:         ErrBadPUD,
	driver.BadDutyCycle:   ErrBadDutyCycle,
	driver.BadWdogTimeout: ErrBadWatchdogTimeout,
	driver.BadDutyRange:   ErrBadDutyRange,
	driver.NotPermitted:   ErrNotPermitted,
	driver.BadPulseLen:    ErrBadPulseLen,
	driver.NotPWMGPIO:     ErrNotPWMGPIO,
}

// errorLabels name each error in the operation_errors_total metric.
var errorLabels = map[error]string{
	ErrBadUserGPIO:        "bad_user_gpio",
	ErrBadGPIO:            "bad_gpio",
	ErrBadMode:            "bad_mode",
	ErrBadLevel:           "bad_level",
	ErrBadPUD:             "bad_pud",
	ErrBadDutyCycle:       "bad_dutycycle",
	ErrBadWatchdogTimeout: "bad_wdog_timeout",
	ErrBadDutyRange:       "bad_dutyrange",
	ErrNotPermitted:       "not_permitted",
	ErrBadPulseLen:        "bad_pulselen",
	ErrNotPWMGPIO:         "not_pwm_gpio",
	ErrUnknown:            "unknown",
}

// Error describes a failed pigpio call.
type Error struct {
	Op   string // pigpio function, e.g. gpioSetMode
	GPIO int    // -1 if the call does not refer to a single GPIO
	Code int    // status code returned by pigpio
	Err  error  // one of the Err* sentinels
}

func (e *Error) Error() string {
	if e.GPIO < 0 {
		return fmt.Sprintf("pigpio: %s: %v (code %d)", e.Op, e.Err, e.Code)
	}
	return fmt.Sprintf("pigpio: %s(gpio %d): %v (code %d)", e.Op, e.GPIO, e.Err, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// classify maps code to the sentinel of one of the documented codes, or to
// ErrUnknown.
func classify(code int, documented []int) error {
	for _, d := range documented {
		if d == code {
			return codeErrors[code]
		}
	}
	return ErrUnknown
}
