package pigpioctl

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stapelberg/gopigpio/internal/console"
	"github.com/stapelberg/gopigpio/pigpio"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Read console commands from stdin",
	Long: `Read console commands, one per line, from stdin and keep pigpio
initialised in between. Type help for the list of commands.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		writable, err := cmd.Flags().GetStringSlice("writable")
		if err != nil {
			return err
		}
		c := &console.Console{}
		if len(writable) > 0 {
			c.Writable = make(map[uint32]bool)
			for _, w := range writable {
				gpio, err := console.ParseGPIO(w)
				if err != nil {
					return err
				}
				c.Writable[gpio] = true
			}
		}

		return withPi(cmd, func(pi *pigpio.Pi) error {
			c.Pi = pi
			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				result, err := c.Execute(scanner.Text())
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					continue
				}
				if result != "" {
					fmt.Fprintln(out, result)
				}
			}
			return scanner.Err()
		})
	},
}

func init() {
	shellCmd.Flags().StringSlice("writable", nil, "GPIOs which may be changed (default: all)")
}
