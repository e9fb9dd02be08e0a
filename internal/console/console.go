// Package console implements a small command language for GPIO access,
// shared by the SSH console and the MQTT command topic of gpiod.
//
//	mode 21            print the mode of GPIO 21
//	mode 21 out        set GPIO 21 to output
//	read 21
//	write 21 on
//	pud 17 up
//	pwm 18 128         start PWM with dutycycle 128
//	pwm 18             print the dutycycle
//	trigger 23 10 on   send a 10µs pulse
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/stapelberg/gopigpio/pigpio"
)

// Pi is the part of *pigpio.Pi the console uses.
type Pi interface {
	SetMode(gpio uint32, mode pigpio.Mode) error
	GetMode(gpio uint32) (pigpio.Mode, error)
	SetPullUpDown(gpio uint32, pud pigpio.Pull) error
	Read(gpio uint32) (pigpio.Level, error)
	Write(gpio uint32, level pigpio.Level) error
	PWM(userGPIO, dutycycle uint32) error
	PWMDutyCycle(userGPIO uint32) (uint32, error)
	Trigger(userGPIO, pulseLen uint32, level pigpio.Level) error
}

// ErrNotAllowed is returned for commands which would change a GPIO that is
// not in Console.Writable.
var ErrNotAllowed = errors.New("gpio is not writable")

// Console executes command lines.
type Console struct {
	Pi Pi

	// Writable restricts the GPIOs whose mode, pull, level or PWM may be
	// changed. A nil map allows all GPIOs.
	Writable map[uint32]bool
}

const usage = `commands:
  mode <gpio> [in|out|alt0..alt5]
  read <gpio>
  write <gpio> <on|off>
  pud <gpio> <off|up|down>
  pwm <gpio> [dutycycle]
  trigger <gpio> <µs> <on|off>
  help`

type command struct {
	minArgs, maxArgs int
	writes           bool // changes the GPIO when called with more than one argument
	run              func(c *Console, gpio uint32, args []string) (string, error)
}

var commands = map[string]command{
	"mode":    {1, 2, true, (*Console).mode},
	"read":    {1, 1, false, (*Console).read},
	"write":   {2, 2, true, (*Console).write},
	"pud":     {2, 2, true, (*Console).pud},
	"pwm":     {1, 2, true, (*Console).pwm},
	"trigger": {3, 3, true, (*Console).trigger},
}

// Execute runs one command line and returns its output.
func (c *Console) Execute(line string) (string, error) {
	fields, err := shlex.Split(line)
	if err != nil {
		return "", err
	}
	if len(fields) == 0 {
		return "", nil
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]
	if verb == "help" {
		return usage, nil
	}
	cmd, ok := commands[verb]
	if !ok {
		return "", fmt.Errorf("unknown command %q, try help", verb)
	}
	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		return "", fmt.Errorf("%s: wrong number of arguments, try help", verb)
	}
	gpio, err := ParseGPIO(args[0])
	if err != nil {
		return "", fmt.Errorf("%s: %v", verb, err)
	}
	if cmd.writes && len(args) > 1 && c.Writable != nil && !c.Writable[gpio] {
		return "", fmt.Errorf("%s: gpio %d: %w", verb, gpio, ErrNotAllowed)
	}
	return cmd.run(c, gpio, args[1:])
}

// ParseGPIO parses a GPIO number. The BCM prefixes GPIO and BCM are
// accepted, e.g. GPIO21.
func ParseGPIO(s string) (uint32, error) {
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"GPIO", "BCM"} {
		upper = strings.TrimPrefix(upper, prefix)
	}
	n, err := strconv.ParseUint(upper, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid gpio %q", s)
	}
	return uint32(n), nil
}

func (c *Console) mode(gpio uint32, args []string) (string, error) {
	if len(args) == 0 {
		mode, err := c.Pi.GetMode(gpio)
		if err != nil {
			return "", err
		}
		return mode.String(), nil
	}
	mode, err := pigpio.ParseMode(args[0])
	if err != nil {
		return "", err
	}
	return "", c.Pi.SetMode(gpio, mode)
}

func (c *Console) read(gpio uint32, _ []string) (string, error) {
	level, err := c.Pi.Read(gpio)
	if err != nil {
		return "", err
	}
	return level.String(), nil
}

func (c *Console) write(gpio uint32, args []string) (string, error) {
	level, err := pigpio.ParseLevel(args[0])
	if err != nil {
		return "", err
	}
	return "", c.Pi.Write(gpio, level)
}

func (c *Console) pud(gpio uint32, args []string) (string, error) {
	pud, err := pigpio.ParsePull(args[0])
	if err != nil {
		return "", err
	}
	return "", c.Pi.SetPullUpDown(gpio, pud)
}

func (c *Console) pwm(gpio uint32, args []string) (string, error) {
	if len(args) == 0 {
		duty, err := c.Pi.PWMDutyCycle(gpio)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(uint64(duty), 10), nil
	}
	duty, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return "", fmt.Errorf("invalid dutycycle %q", args[0])
	}
	return "", c.Pi.PWM(gpio, uint32(duty))
}

func (c *Console) trigger(gpio uint32, args []string) (string, error) {
	pulseLen, err := strconv.ParseUint(strings.TrimSuffix(args[0], "us"), 10, 32)
	if err != nil {
		return "", fmt.Errorf("invalid pulse length %q", args[0])
	}
	level, err := pigpio.ParseLevel(args[1])
	if err != nil {
		return "", err
	}
	return "", c.Pi.Trigger(gpio, uint32(pulseLen), level)
}
