// pigpioctl reads and changes the GPIOs of a Raspberry Pi through pigpio.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stapelberg/gopigpio/internal/pigpioctl"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := pigpioctl.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
