package pigpioctl

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/stapelberg/gopigpio/internal/console"
	"github.com/stapelberg/gopigpio/internal/edges"
	"github.com/stapelberg/gopigpio/pigpio"
)

var watchCmd = &cobra.Command{
	Use:   "watch <gpio>...",
	Short: "Print level changes of GPIOs 0-31",
	Long: `Print every level change of the given GPIOs as reported by pigpio's
sampling, which reads all GPIOs every 5µs. Each line holds the pigpio tick
in µs, the GPIO and its new level.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		gpios := make([]uint32, 0, len(args))
		for _, arg := range args {
			gpio, err := console.ParseGPIO(arg)
			if err != nil {
				return err
			}
			if gpio > 31 {
				return fmt.Errorf("GPIO %d cannot be sampled, only 0-31 can", gpio)
			}
			gpios = append(gpios, gpio)
		}
		debounce, err := cmd.Flags().GetDuration("debounce")
		if err != nil {
			return err
		}
		duration, err := cmd.Flags().GetDuration("duration")
		if err != nil {
			return err
		}

		return withPi(cmd, func(pi *pigpio.Pi) error {
			var initial uint32
			for _, gpio := range gpios {
				level, err := pi.Read(gpio)
				if err != nil {
					return err
				}
				initial |= uint32(level) << gpio
			}
			det := edges.NewDetector(pigpio.Bits(gpios...), initial)
			det.Debounce = uint32(debounce.Microseconds())

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			err := pi.SetSamplingCallback(func(samples []pigpio.Sample) {
				mu.Lock()
				defer mu.Unlock()
				det.Feed(samples, func(e edges.Edge) {
					fmt.Fprintf(out, "%d GPIO %d %v\n", e.Tick, e.GPIO, e.Level)
				})
			}, pigpio.Bits(gpios...))
			if err != nil {
				return err
			}
			wait(cmd.Context(), duration)
			return pi.ClearSamplingCallback()
		})
	},
}

func init() {
	watchCmd.Flags().Duration("debounce", 0, "ignore level changes of a GPIO within this duration of its last change")
	watchCmd.Flags().Duration("duration", 0, "stop after this duration (0 watches until interrupted)")
}
