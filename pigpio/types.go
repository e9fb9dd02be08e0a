package pigpio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stapelberg/gopigpio/internal/driver"
)

// Mode is the function of a GPIO.
type Mode uint32

// Values as defined by pigpio (PI_INPUT, PI_OUTPUT, PI_ALT0, …).
const (
	Input  Mode = 0
	Output Mode = 1
	Alt0   Mode = 4
	Alt1   Mode = 5
	Alt2   Mode = 6
	Alt3   Mode = 7
	Alt4   Mode = 3
	Alt5   Mode = 2
)

var modeNames = map[Mode]string{
	Input:  "INPUT",
	Output: "OUTPUT",
	Alt0:   "ALT0",
	Alt1:   "ALT1",
	Alt2:   "ALT2",
	Alt3:   "ALT3",
	Alt4:   "ALT4",
	Alt5:   "ALT5",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "Mode(" + strconv.FormatUint(uint64(m), 10) + ")"
}

// ParseMode accepts the names returned by Mode.String (in any case) as well
// as the abbreviations in and out.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(s) {
	case "IN":
		return Input, nil
	case "OUT":
		return Output, nil
	}
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Level is the digital level of a GPIO.
type Level uint32

const (
	Off Level = 0
	On  Level = 1
)

func (l Level) String() string {
	switch l {
	case Off:
		return "OFF"
	case On:
		return "ON"
	}
	return "Level(" + strconv.FormatUint(uint64(l), 10) + ")"
}

// ParseLevel accepts 0/1, off/on and low/high.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "0", "off", "low":
		return Off, nil
	case "1", "on", "high":
		return On, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// Pull configures the internal pull resistor of a GPIO.
type Pull uint32

const (
	PullOff  Pull = 0
	PullDown Pull = 1
	PullUp   Pull = 2
)

func (p Pull) String() string {
	switch p {
	case PullOff:
		return "OFF"
	case PullDown:
		return "DOWN"
	case PullUp:
		return "UP"
	}
	return "Pull(" + strconv.FormatUint(uint64(p), 10) + ")"
}

// ParsePull accepts off/none, down and up.
func ParsePull(s string) (Pull, error) {
	switch strings.ToLower(s) {
	case "off", "none", "float":
		return PullOff, nil
	case "down":
		return PullDown, nil
	case "up":
		return PullUp, nil
	}
	return 0, fmt.Errorf("unknown pull %q", s)
}

// Sample is a snapshot of the levels of GPIOs 0-31, taken by pigpio at
// Tick (µs since boot). Bit n of Level is the level of GPIO n.
type Sample = driver.Sample

// LevelOf returns the level of gpio in s.
func LevelOf(s Sample, gpio uint32) Level {
	if gpio > driver.MaxUserGPIO {
		return Off
	}
	return Level((s.Level >> gpio) & 1)
}

// Bits returns the bitmask selecting gpios, for SetSamplingCallback.
// GPIOs above 31 cannot be monitored and are ignored.
func Bits(gpios ...uint32) uint32 {
	var bits uint32
	for _, g := range gpios {
		if g <= driver.MaxUserGPIO {
			bits |= 1 << g
		}
	}
	return bits
}
