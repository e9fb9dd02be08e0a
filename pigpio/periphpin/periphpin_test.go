package periphpin

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"

	"github.com/stapelberg/gopigpio/internal/driver/sim"
	"github.com/stapelberg/gopigpio/pigpio"
)

func newPi(t *testing.T) (*pigpio.Pi, *sim.Board) {
	t.Helper()
	board := sim.New()
	pi, err := pigpio.New(pigpio.WithDriver(board))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pi.Close() })
	return pi, board
}

func TestRegister(t *testing.T) {
	pi, _ := newPi(t)
	if _, err := Register(pi, 21); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { gpioreg.Unregister("GPIO21") })

	p := gpioreg.ByName("GPIO21")
	if p == nil {
		t.Fatal("GPIO21 not registered")
	}
	if got, want := p.Number(), 21; got != want {
		t.Errorf("Number() = %d, want %d", got, want)
	}
	if err := p.Out(gpio.High); err != nil {
		t.Fatal(err)
	}
	if got, want := p.Read(), gpio.High; got != want {
		t.Errorf("Read() = %v, want %v", got, want)
	}
	if got, want := p.Function(), "Out/High"; got != want {
		t.Errorf("Function() = %q, want %q", got, want)
	}
}

func TestIn(t *testing.T) {
	pi, _ := newPi(t)
	p := New(pi, 17)
	if got, want := p.Pull(), gpio.PullDown; got != want {
		t.Errorf("Pull() = %v, want %v", got, want)
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		t.Fatal(err)
	}
	if got, want := p.Read(), gpio.High; got != want {
		t.Errorf("Read() = %v, want %v", got, want)
	}
	if got, want := p.Pull(), gpio.PullUp; got != want {
		t.Errorf("Pull() = %v, want %v", got, want)
	}
	if got, want := p.Function(), "In/High"; got != want {
		t.Errorf("Function() = %q, want %q", got, want)
	}
}

func TestWaitForEdge(t *testing.T) {
	pi, board := newPi(t)
	p := New(pi, 17)
	if got := p.WaitForEdge(0); got {
		t.Errorf("WaitForEdge() without edge detection = true")
	}
	if err := p.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		t.Fatal(err)
	}
	if got := p.WaitForEdge(10 * time.Millisecond); got {
		t.Errorf("WaitForEdge() without a level change = true")
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		board.Drive(17, 1)
	}()
	if got := p.WaitForEdge(5 * time.Second); !got {
		t.Errorf("WaitForEdge() = false, want true")
	}
}

func TestPWM(t *testing.T) {
	pi, _ := newPi(t)
	p := New(pi, 18)
	if err := p.PWM(gpio.DutyMax/2, 990*physic.Hertz); err != nil {
		t.Fatal(err)
	}
	duty, err := pi.PWMDutyCycle(18)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := duty, uint32(127); got != want {
		t.Errorf("dutycycle = %d, want %d", got, want)
	}
	freq, err := pi.PWMFrequency(18)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := freq, uint32(1000); got != want {
		t.Errorf("frequency = %d, want %d", got, want)
	}

	if err := p.Halt(); err != nil {
		t.Fatal(err)
	}
	if duty, _ := pi.PWMDutyCycle(18); duty != 0 {
		t.Errorf("dutycycle after Halt() = %d, want 0", duty)
	}
}
