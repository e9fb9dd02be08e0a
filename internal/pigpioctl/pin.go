package pigpioctl

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stapelberg/gopigpio/internal/console"
	"github.com/stapelberg/gopigpio/pigpio"
)

var infoCmd = &cobra.Command{
	Use:          "info",
	Short:        "Print the pigpio version and hardware revision",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPi(cmd, func(pi *pigpio.Pi) error {
			fmt.Fprintf(cmd.OutOrStdout(), "pigpio version %d\n", pi.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "hardware revision %#x\n", pi.HardwareRevision())
			return nil
		})
	},
}

var (
	modeCmd = consoleCmd(
		"mode <gpio> [in|out|alt0..alt5]",
		"Print or set the mode of a GPIO",
		cobra.RangeArgs(1, 2))

	pudCmd = consoleCmd(
		"pud <gpio> <off|up|down>",
		"Set the pull-up/down resistor of a GPIO",
		cobra.ExactArgs(2))

	readCmd = consoleCmd(
		"read <gpio>",
		"Print the level of a GPIO",
		cobra.ExactArgs(1))

	writeCmd = consoleCmd(
		"write <gpio> <on|off>",
		"Set a GPIO to output and write a level",
		cobra.ExactArgs(2))

	triggerCmd = consoleCmd(
		"trigger <gpio> <µs> <on|off>",
		"Send a trigger pulse of 1-100µs",
		cobra.ExactArgs(3))
)

// consoleCmd returns a command which runs the console command of the same
// name, so that pigpioctl and the gpiod consoles accept the same syntax.
func consoleCmd(use, short string, args cobra.PositionalArgs) *cobra.Command {
	verb := strings.Fields(use)[0]
	return &cobra.Command{
		Use:          use,
		Short:        short,
		Args:         args,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPi(cmd, func(pi *pigpio.Pi) error {
				return runConsole(cmd, pi, verb, args...)
			})
		},
	}
}

func runConsole(cmd *cobra.Command, pi *pigpio.Pi, verb string, args ...string) error {
	c := &console.Console{Pi: pi}
	out, err := c.Execute(verb + " " + strings.Join(args, " "))
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	return nil
}
