package pigpio

import "github.com/stapelberg/gopigpio/internal/driver"

// PWM starts PWM on userGPIO (0-31) with the given dutycycle, which must
// not exceed the GPIO's range (255 unless changed by SetPWMRange). A
// dutycycle of 0 stops PWM.
func (p *Pi) PWM(userGPIO, dutycycle uint32) error {
	const op = "gpioPWM"
	if err := p.live(); err != nil {
		return err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	return p.check(op, userGPIO, p.drv.PWM(userGPIO, dutycycle), driver.BadUserGPIO, driver.BadDutyCycle)
}

// payload returns rc as value if pigpio reported success, and the error
// for rc otherwise.
func (p *Pi) payload(op string, gpio uint32, rc int, documented ...int) (uint32, error) {
	if rc >= 0 {
		return uint32(rc), nil
	}
	return 0, p.fail(op, int(gpio), rc, documented...)
}

// PWMDutyCycle returns the dutycycle of userGPIO, which must be in use for
// PWM.
func (p *Pi) PWMDutyCycle(userGPIO uint32) (uint32, error) {
	const op = "gpioGetPWMdutycycle"
	if err := p.live(); err != nil {
		return 0, err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	return p.payload(op, userGPIO, p.drv.GetPWMDutycycle(userGPIO), driver.BadUserGPIO, driver.NotPWMGPIO)
}

// SetPWMRange sets the dutycycle range of userGPIO (25-40000) and returns
// the real range the hardware provides at the current frequency. An
// active dutycycle is scaled to the new range.
func (p *Pi) SetPWMRange(userGPIO, rng uint32) (uint32, error) {
	const op = "gpioSetPWMrange"
	if err := p.live(); err != nil {
		return 0, err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	return p.payload(op, userGPIO, p.drv.SetPWMRange(userGPIO, rng), driver.BadUserGPIO, driver.BadDutyRange)
}

// PWMRange returns the dutycycle range of userGPIO.
func (p *Pi) PWMRange(userGPIO uint32) (uint32, error) {
	const op = "gpioGetPWMrange"
	if err := p.live(); err != nil {
		return 0, err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	return p.payload(op, userGPIO, p.drv.GetPWMRange(userGPIO), driver.BadUserGPIO)
}

// SetPWMFrequency sets the PWM frequency of userGPIO to the closest
// frequency pigpio supports and returns that frequency in Hz.
func (p *Pi) SetPWMFrequency(userGPIO, hz uint32) (uint32, error) {
	const op = "gpioSetPWMfrequency"
	if err := p.live(); err != nil {
		return 0, err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	return p.payload(op, userGPIO, p.drv.SetPWMFrequency(userGPIO, hz), driver.BadUserGPIO)
}

// PWMFrequency returns the PWM frequency of userGPIO in Hz.
func (p *Pi) PWMFrequency(userGPIO uint32) (uint32, error) {
	const op = "gpioGetPWMfrequency"
	if err := p.live(); err != nil {
		return 0, err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	return p.payload(op, userGPIO, p.drv.GetPWMFrequency(userGPIO), driver.BadUserGPIO)
}

// Trigger sends a pulse of pulseLen µs (1-100) at level on userGPIO; the
// GPIO is left at the opposite level.
func (p *Pi) Trigger(userGPIO, pulseLen uint32, level Level) error {
	const op = "gpioTrigger"
	if err := p.live(); err != nil {
		return err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	rc := p.drv.Trigger(userGPIO, pulseLen, uint32(level))
	return p.check(op, userGPIO, rc, driver.BadUserGPIO, driver.BadLevel, driver.BadPulseLen, driver.NotPermitted)
}

// SetWatchdog sets a watchdog of timeout milliseconds (0-60000) on
// userGPIO; 0 disables it. pigpio reports a timeout to alert functions when
// the GPIO does not change level within timeout.
func (p *Pi) SetWatchdog(userGPIO, timeout uint32) error {
	const op = "gpioSetWatchdog"
	if err := p.live(); err != nil {
		return err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	return p.check(op, userGPIO, p.drv.SetWatchdog(userGPIO, timeout), driver.BadUserGPIO, driver.BadWdogTimeout)
}
