// Package periphpin exposes GPIOs of a *pigpio.Pi as periph.io pins, so
// that periph.io device drivers can run on top of pigpio.
package periphpin

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"

	"github.com/stapelberg/gopigpio/pigpio"
)

// pollInterval is how often WaitForEdge reads the level.
const pollInterval = time.Millisecond

// Pin is a GPIO of a *pigpio.Pi. It implements gpio.PinIO.
type Pin struct {
	pi   *pigpio.Pi
	gpio uint32
	name string

	mu   sync.Mutex
	pull gpio.Pull
	edge gpio.Edge
}

var _ gpio.PinIO = (*Pin)(nil)

// New returns the periph.io pin for gpio (BCM numbering).
func New(pi *pigpio.Pi, n uint32) *Pin {
	return &Pin{
		pi:   pi,
		gpio: n,
		name: fmt.Sprintf("GPIO%d", n),
		pull: defaultPull(n),
	}
}

// Register makes the pins for gpios available through gpioreg.ByName under
// their names (GPIO<n>). Callers must not also initialise periph.io's own
// Raspberry Pi host drivers, which register the same names.
func Register(pi *pigpio.Pi, gpios ...uint32) ([]*Pin, error) {
	pins := make([]*Pin, 0, len(gpios))
	for _, n := range gpios {
		p := New(pi, n)
		if err := gpioreg.Register(p); err != nil {
			return pins, fmt.Errorf("registering %s: %v", p.name, err)
		}
		pins = append(pins, p)
	}
	return pins, nil
}

func defaultPull(n uint32) gpio.Pull {
	if n <= 8 {
		return gpio.PullUp
	}
	return gpio.PullDown
}

// String implements conn.Resource.
func (p *Pin) String() string { return p.name }

// Name implements pin.Pin.
func (p *Pin) Name() string { return p.name }

// Number implements pin.Pin.
func (p *Pin) Number() int { return int(p.gpio) }

// Function implements pin.Pin.
func (p *Pin) Function() string {
	mode, err := p.pi.GetMode(p.gpio)
	if err != nil {
		return ""
	}
	switch mode {
	case pigpio.Input, pigpio.Output:
		dir := "In"
		if mode == pigpio.Output {
			dir = "Out"
		}
		return dir + "/" + p.Read().String()
	default:
		return mode.String()
	}
}

// Halt implements conn.Resource. It stops PWM on the pin.
func (p *Pin) Halt() error {
	if _, err := p.pi.PWMDutyCycle(p.gpio); err != nil {
		return nil // not generating PWM
	}
	return p.pi.PWM(p.gpio, 0)
}

// In implements gpio.PinIn.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if err := p.pi.SetMode(p.gpio, pigpio.Input); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if pull != gpio.PullNoChange {
		pud := pigpio.PullOff
		switch pull {
		case gpio.PullDown:
			pud = pigpio.PullDown
		case gpio.PullUp:
			pud = pigpio.PullUp
		}
		if err := p.pi.SetPullUpDown(p.gpio, pud); err != nil {
			return err
		}
		p.pull = pull
	}
	p.edge = edge
	return nil
}

// Read implements gpio.PinIn. Errors read as gpio.Low.
func (p *Pin) Read() gpio.Level {
	level, err := p.pi.Read(p.gpio)
	if err != nil {
		return gpio.Low
	}
	return level == pigpio.On
}

// WaitForEdge implements gpio.PinIn by polling the level. A negative
// timeout waits forever.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	p.mu.Lock()
	edge := p.edge
	p.mu.Unlock()
	if edge == gpio.NoEdge {
		return false
	}
	start := time.Now()
	prev := p.Read()
	for timeout < 0 || time.Since(start) < timeout {
		p.pi.Delay(pollInterval)
		cur := p.Read()
		if cur == prev {
			continue
		}
		prev = cur
		if edge == gpio.BothEdges ||
			(edge == gpio.RisingEdge && cur == gpio.High) ||
			(edge == gpio.FallingEdge && cur == gpio.Low) {
			return true
		}
	}
	return false
}

// Pull implements gpio.PinIn. pigpio cannot read back the pull resistor,
// so this is the last pull set through In, or the power-on default.
func (p *Pin) Pull() gpio.Pull {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pull
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull { return defaultPull(p.gpio) }

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	level := pigpio.Off
	if l == gpio.High {
		level = pigpio.On
	}
	return p.pi.Write(p.gpio, level)
}

// PWM implements gpio.PinOut using pigpio's software PWM. f is rounded to
// the closest frequency pigpio supports; 0 keeps the current frequency.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	if f != 0 {
		if _, err := p.pi.SetPWMFrequency(p.gpio, uint32(f/physic.Hertz)); err != nil {
			return err
		}
	}
	rng, err := p.pi.PWMRange(p.gpio)
	if err != nil {
		return err
	}
	if duty < 0 {
		duty = 0
	}
	if duty > gpio.DutyMax {
		duty = gpio.DutyMax
	}
	return p.pi.PWM(p.gpio, uint32(uint64(duty)*uint64(rng)/uint64(gpio.DutyMax)))
}
