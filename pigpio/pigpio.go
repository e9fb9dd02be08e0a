// Package pigpio controls the GPIOs of a Raspberry Pi through the pigpio C
// library.
//
// pigpio keeps process-wide state, so there can be only one open Pi at a
// time. Every operation goes through the *Pi returned by New, and Close
// releases the DMA channels, memory and threads pigpio allocated:
//
//	pi, err := pigpio.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pi.Close()
//	if err := pi.SetMode(21, pigpio.Output); err != nil {
//		log.Fatal(err)
//	}
//	if err := pi.Write(21, pigpio.On); err != nil {
//		log.Fatal(err)
//	}
package pigpio

import (
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stapelberg/gopigpio/internal/driver"
)

// initialized is set while a Pi is open.
var initialized atomic.Bool

type options struct {
	drv    driver.Driver
	logger *log.Logger
	reg    prometheus.Registerer
}

// Option configures New.
type Option func(*options)

// WithDriver makes New use d instead of libpigpio. It is used by the
// simulator (see package internal/driver/sim) and by tests. Programs which
// only ever use WithDriver can be built without libpigpio using the
// nopigpio build tag.
func WithDriver(d driver.Driver) Option {
	return func(o *options) { o.drv = d }
}

// WithLogger makes the Pi log initialisation and termination to l.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics registers the Pi's metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// Pi is an initialised pigpio library.
type Pi struct {
	drv     driver.Driver
	version int
	logger  *log.Logger
	metrics *metrics

	closed    atomic.Bool
	closeOnce sync.Once

	mu       sync.Mutex
	sampling bool // a sampling callback is registered
}

// New initialises pigpio. It fails with ErrAlreadyInitialized while another
// Pi is open, and with an error wrapping ErrInitFailed when pigpio cannot
// be initialised.
func New(opts ...Option) (*Pi, error) {
	o := options{
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(&o)
	}
	useNative := o.drv == nil
	if useNative {
		o.drv = driver.Default()
	}

	if !initialized.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInitialized
	}

	m, err := newMetrics(o.reg)
	if err != nil {
		initialized.Store(false)
		return nil, err
	}

	version := o.drv.Initialise()
	if version < 0 {
		initialized.Store(false)
		err := fmt.Errorf("pigpio: gpioInitialise returned %d: %w", version, ErrInitFailed)
		if useNative && driver.Native {
			if hint := diagnose(); hint != nil {
				err = fmt.Errorf("%w (%v)", err, hint)
			}
		}
		return nil, err
	}
	m.initialized.Set(1)
	o.logger.Printf("pigpio version %d initialised", version)

	return &Pi{
		drv:     o.drv,
		version: version,
		logger:  o.logger,
		metrics: m,
	}, nil
}

// Version returns the pigpio version reported by gpioInitialise.
func (p *Pi) Version() int { return p.version }

// Close terminates pigpio: DMA channels are reset, memory is released and
// pigpio's threads are stopped, so no sampling callback runs after Close
// returns. Close always returns nil; calls after the first do nothing.
func (p *Pi) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.drv.Terminate()
		p.mu.Lock()
		p.sampling = false
		p.mu.Unlock()
		p.metrics.initialized.Set(0)
		initialized.Store(false)
		p.logger.Printf("pigpio terminated")
	})
	return nil
}

func (p *Pi) live() error {
	if p.closed.Load() {
		return ErrClosed
	}
	return nil
}

// fail builds the error for status code rc of op. documented lists the
// codes op is known to return; all others are reported as ErrUnknown.
func (p *Pi) fail(op string, gpio int, rc int, documented ...int) error {
	err := &Error{
		Op:   op,
		GPIO: gpio,
		Code: rc,
		Err:  classify(rc, documented),
	}
	p.metrics.errors.WithLabelValues(op, errorLabels[err.Err]).Inc()
	return err
}

// check returns nil for driver.OK and fail's error otherwise.
func (p *Pi) check(op string, gpio uint32, rc int, documented ...int) error {
	if rc == driver.OK {
		return nil
	}
	return p.fail(op, int(gpio), rc, documented...)
}

// SetMode sets the mode of gpio.
func (p *Pi) SetMode(gpio uint32, mode Mode) error {
	const op = "gpioSetMode"
	if err := p.live(); err != nil {
		return err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	return p.check(op, gpio, p.drv.SetMode(gpio, uint32(mode)), driver.BadGPIO, driver.BadMode)
}

// GetMode returns the mode of gpio.
func (p *Pi) GetMode(gpio uint32) (Mode, error) {
	const op = "gpioGetMode"
	if err := p.live(); err != nil {
		return 0, err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	rc := p.drv.GetMode(gpio)
	if _, ok := modeNames[Mode(rc)]; ok && rc >= 0 {
		return Mode(rc), nil
	}
	return 0, p.fail(op, int(gpio), rc, driver.BadGPIO)
}

// SetPullUpDown sets or clears the pull resistor of gpio.
func (p *Pi) SetPullUpDown(gpio uint32, pud Pull) error {
	const op = "gpioSetPullUpDown"
	if err := p.live(); err != nil {
		return err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	return p.check(op, gpio, p.drv.SetPullUpDown(gpio, uint32(pud)), driver.BadGPIO, driver.BadPUD)
}

// Read returns the level of gpio.
func (p *Pi) Read(gpio uint32) (Level, error) {
	const op = "gpioRead"
	if err := p.live(); err != nil {
		return Off, err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	switch rc := p.drv.Read(gpio); rc {
	case 0:
		return Off, nil
	case 1:
		return On, nil
	default:
		return Off, p.fail(op, int(gpio), rc, driver.BadGPIO)
	}
}

// Write sets the level of gpio. pigpio switches gpio to output and stops
// any PWM or servo pulses on it.
func (p *Pi) Write(gpio uint32, level Level) error {
	const op = "gpioWrite"
	if err := p.live(); err != nil {
		return err
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	return p.check(op, gpio, p.drv.Write(gpio, uint32(level)), driver.BadGPIO, driver.BadLevel)
}

// Delay blocks for at least d (with microsecond resolution) and returns
// the time that actually passed according to pigpio. It cannot be
// interrupted. On a closed Pi it returns 0 right away.
func (p *Pi) Delay(d time.Duration) time.Duration {
	if p.live() != nil {
		return 0
	}
	p.metrics.ops.WithLabelValues("gpioDelay").Inc()
	micros := d / time.Microsecond
	if micros < 0 {
		micros = 0
	}
	if micros > math.MaxUint32 {
		micros = math.MaxUint32
	}
	return time.Duration(p.drv.Delay(uint32(micros))) * time.Microsecond
}

// Tick returns pigpio's current tick: microseconds since boot, wrapping
// around every 2³² µs. Sample ticks use the same clock.
func (p *Pi) Tick() uint32 {
	if p.live() != nil {
		return 0
	}
	return p.drv.Tick()
}

// HardwareRevision returns the board revision code from /proc/cpuinfo.
func (p *Pi) HardwareRevision() uint32 {
	if p.live() != nil {
		return 0
	}
	return p.drv.HardwareRevision()
}
