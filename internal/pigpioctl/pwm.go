package pigpioctl

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/stapelberg/gopigpio/internal/console"
	"github.com/stapelberg/gopigpio/pigpio"
)

var pwmCmd = &cobra.Command{
	Use:   "pwm <gpio> [dutycycle]",
	Short: "Start PWM on a GPIO",
	Long: `Start software PWM on a GPIO, or print its dutycycle.

pigpio stops generating PWM when it terminates, so pwm keeps running until
it is interrupted or --hold has passed.`,
	Args:         cobra.RangeArgs(1, 2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		gpio, err := console.ParseGPIO(args[0])
		if err != nil {
			return err
		}
		frequency, err := cmd.Flags().GetUint32("frequency")
		if err != nil {
			return err
		}
		rng, err := cmd.Flags().GetUint32("range")
		if err != nil {
			return err
		}
		hold, err := cmd.Flags().GetDuration("hold")
		if err != nil {
			return err
		}

		return withPi(cmd, func(pi *pigpio.Pi) error {
			if frequency > 0 {
				actual, err := pi.SetPWMFrequency(gpio, frequency)
				if err != nil {
					return err
				}
				if actual != frequency {
					log.Printf("GPIO %d: using closest supported frequency %d Hz", gpio, actual)
				}
			}
			if rng > 0 {
				if _, err := pi.SetPWMRange(gpio, rng); err != nil {
					return err
				}
			}
			if err := runConsole(cmd, pi, "pwm", args...); err != nil {
				return err
			}
			if len(args) < 2 {
				return nil
			}
			wait(cmd.Context(), hold)
			return nil
		})
	},
}

func init() {
	pwmCmd.Flags().Uint32("frequency", 0, "PWM frequency in Hz (0 keeps the default of 800 Hz)")
	pwmCmd.Flags().Uint32("range", 0, "dutycycle range, 25-40000 (0 keeps the default of 255)")
	pwmCmd.Flags().Duration("hold", 0, "stop after this duration (0 runs until interrupted)")
}

var blinkCmd = &cobra.Command{
	Use:          "blink <gpio>",
	Short:        "Toggle a GPIO periodically",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		gpio, err := console.ParseGPIO(args[0])
		if err != nil {
			return err
		}
		interval, err := cmd.Flags().GetDuration("interval")
		if err != nil {
			return err
		}
		count, err := cmd.Flags().GetInt("count")
		if err != nil {
			return err
		}
		if interval <= 0 {
			return fmt.Errorf("--interval must be positive")
		}

		return withPi(cmd, func(pi *pigpio.Pi) error {
			if err := pi.SetMode(gpio, pigpio.Output); err != nil {
				return err
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			level := pigpio.On
			for i := 0; count == 0 || i < count; i++ {
				if err := pi.Write(gpio, level); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "GPIO %d %v\n", gpio, level)
				level ^= 1
				select {
				case <-cmd.Context().Done():
					return pi.Write(gpio, pigpio.Off)
				case <-ticker.C:
				}
			}
			return pi.Write(gpio, pigpio.Off)
		})
	},
}

func init() {
	blinkCmd.Flags().Duration("interval", 500*time.Millisecond, "time between level changes")
	blinkCmd.Flags().Int("count", 0, "number of level changes (0 blinks until interrupted)")
}
