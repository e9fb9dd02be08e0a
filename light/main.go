// light toggles an LED connected to a GPIO.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/stapelberg/gopigpio/internal/driver/sim"
	"github.com/stapelberg/gopigpio/pigpio"
)

var (
	gpio = flag.Uint("gpio",
		21,
		"GPIO (BCM numbering) the LED is connected to")

	interval = flag.Duration("interval",
		1*time.Second,
		"time between toggling the LED")

	count = flag.Int("count",
		10,
		"number of toggles (0 toggles forever)")

	simulate = flag.Bool("simulate",
		false,
		"use a simulated board instead of libpigpio")
)

func logic() error {
	var opts []pigpio.Option
	if *simulate {
		opts = append(opts, pigpio.WithDriver(sim.New()))
	}
	pi, err := pigpio.New(opts...)
	if err != nil {
		return err
	}
	defer pi.Close()
	log.Printf("pigpio version %d, hardware revision %#x", pi.Version(), pi.HardwareRevision())

	pin := uint32(*gpio)
	if err := pi.SetMode(pin, pigpio.Output); err != nil {
		return err
	}
	level := pigpio.On
	for i := 0; *count == 0 || i < *count; i++ {
		if err := pi.Write(pin, level); err != nil {
			return err
		}
		log.Printf("GPIO %d is %v", pin, level)
		level ^= 1
		pi.Delay(*interval)
	}
	return pi.Write(pin, pigpio.Off)
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := logic(); err != nil {
		log.Fatal(err)
	}
}
