// Package pigpioctl implements the pigpioctl command line tool.
package pigpioctl

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/stapelberg/gopigpio/internal/driver"
	"github.com/stapelberg/gopigpio/internal/driver/sim"
	"github.com/stapelberg/gopigpio/pigpio"
)

var rootCmd = &cobra.Command{
	Use:   "pigpioctl",
	Short: "Control the GPIOs of a Raspberry Pi",
	Long: `pigpioctl reads and changes GPIOs through the pigpio library.

pigpio requires root privileges and must not run concurrently with the
pigpiod daemon. With --simulate, commands run against a simulated board
instead, which starts from its power-on state on every invocation.`,
}

// simulator returns the driver used with --simulate.
var simulator = func() driver.Driver { return sim.New() }

func init() {
	rootCmd.PersistentFlags().Bool("simulate", false, "use a simulated board instead of libpigpio")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log pigpio initialisation and termination")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(pudCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(pwmCmd)
	rootCmd.AddCommand(blinkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(shellCmd)
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// withPi initialises pigpio, calls fn and terminates pigpio again.
func withPi(cmd *cobra.Command, fn func(pi *pigpio.Pi) error) error {
	simulate, err := cmd.Flags().GetBool("simulate")
	if err != nil {
		return err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}

	var opts []pigpio.Option
	if simulate {
		opts = append(opts, pigpio.WithDriver(simulator()))
	}
	logw := io.Discard
	if verbose {
		logw = cmd.ErrOrStderr()
	}
	opts = append(opts, pigpio.WithLogger(log.New(logw, "", log.LstdFlags|log.Lshortfile)))

	pi, err := pigpio.New(opts...)
	if err != nil {
		return err
	}
	defer pi.Close()
	return fn(pi)
}

// wait blocks until ctx is done or, if d is positive, d has passed.
func wait(ctx context.Context, d time.Duration) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	<-ctx.Done()
}
