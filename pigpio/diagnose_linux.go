package pigpio

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// diagnose explains the most common reasons for gpioInitialise to fail.
func diagnose() error {
	if _, err := os.Stat("/sys/bus/platform/drivers/raspberrypi-firmware"); err != nil {
		return errors.New("not running on a Raspberry Pi")
	}
	if _, err := os.Stat("/var/run/pigpio.pid"); err == nil {
		return errors.New("pigpiod seems to be running (/var/run/pigpio.pid exists)")
	}
	if unix.Geteuid() != 0 {
		return errors.New("not running as root")
	}
	if err := unix.Access("/dev/mem", unix.R_OK|unix.W_OK); err != nil {
		return fmt.Errorf("/dev/mem: %v", err)
	}
	return nil
}
