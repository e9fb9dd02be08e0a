package pigpioctl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stapelberg/gopigpio/internal/driver"
	"github.com/stapelberg/gopigpio/internal/driver/sim"
	"github.com/stapelberg/gopigpio/pigpio"
)

// resetFlags restores the defaults of cmd's flags and those of its
// subcommands, which cobra keeps between executions.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		var err error
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			err = sv.Replace(nil)
		} else {
			err = f.Value.Set(f.DefValue)
		}
		if err != nil {
			t.Fatalf("resetting --%s: %v", f.Name, err)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(t, c)
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(t, rootCmd)
	var out bytes.Buffer
	rootCmd.SetArgs(append([]string{"--simulate"}, args...))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := Execute(ctx)
	return out.String(), err
}

func TestInfo(t *testing.T) {
	got, err := run(t, "", "info")
	if err != nil {
		t.Fatal(err)
	}
	want := "pigpio version 79\nhardware revision 0xa02082\n"
	if got != want {
		t.Errorf("info = %q, want %q", got, want)
	}
}

func TestPinCommands(t *testing.T) {
	for _, tt := range []struct {
		args []string
		want string
	}{
		{[]string{"read", "4"}, "ON\n"},
		{[]string{"read", "GPIO17"}, "OFF\n"},
		{[]string{"mode", "21"}, "INPUT\n"},
		{[]string{"mode", "21", "out"}, ""},
		{[]string{"write", "21", "on"}, ""},
		{[]string{"pud", "17", "up"}, ""},
		{[]string{"trigger", "23", "10", "on"}, ""},
	} {
		got, err := run(t, "", tt.args...)
		if err != nil {
			t.Errorf("%v: %v", tt.args, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%v = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestPinCommandErrors(t *testing.T) {
	if _, err := run(t, "", "read", "54"); !errors.Is(err, pigpio.ErrBadGPIO) {
		t.Errorf("read 54 = %v, want ErrBadGPIO", err)
	}
	if _, err := run(t, "", "trigger", "23", "101", "on"); !errors.Is(err, pigpio.ErrBadPulseLen) {
		t.Errorf("trigger 23 101 on = %v, want ErrBadPulseLen", err)
	}
	if _, err := run(t, "", "write", "21"); err == nil {
		t.Errorf("write without level succeeded unexpectedly")
	}
}

func TestPWM(t *testing.T) {
	if _, err := run(t, "", "pwm", "18", "64", "--frequency", "1000", "--hold", "1ms"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "", "pwm", "18", "300", "--hold", "1ms"); !errors.Is(err, pigpio.ErrBadDutyCycle) {
		t.Errorf("pwm 18 300 = %v, want ErrBadDutyCycle", err)
	}
}

func TestFlagsDoNotCarryOver(t *testing.T) {
	if _, err := run(t, "", "pwm", "18", "64", "--frequency", "1000", "--hold", "1ms"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "", "shell", "--writable", "21"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "", "info"); err != nil {
		t.Fatal(err)
	}
	frequency, err := pwmCmd.Flags().GetUint32("frequency")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := frequency, uint32(0); got != want {
		t.Errorf("--frequency = %d after a run without it, want %d", got, want)
	}
	writable, err := shellCmd.Flags().GetStringSlice("writable")
	if err != nil {
		t.Fatal(err)
	}
	if len(writable) != 0 {
		t.Errorf("--writable = %q after a run without it, want none", writable)
	}
}

func TestBlink(t *testing.T) {
	got, err := run(t, "", "blink", "21", "--count", "3", "--interval", "1ms")
	if err != nil {
		t.Fatal(err)
	}
	want := "GPIO 21 ON\nGPIO 21 OFF\nGPIO 21 ON\n"
	if got != want {
		t.Errorf("blink = %q, want %q", got, want)
	}
}

func TestShell(t *testing.T) {
	stdin := strings.Join([]string{
		"mode 21 out",
		"write 21 on",
		"read 21",
		"write 20 on",
		"frobnicate",
	}, "\n")
	got, err := run(t, stdin, "shell", "--writable", "21")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 {
		t.Fatalf("shell output = %q, want 3 lines", got)
	}
	if got, want := lines[0], "ON"; got != want {
		t.Errorf("read 21 = %q, want %q", got, want)
	}
	if !strings.Contains(lines[1], "not writable") {
		t.Errorf("write 20 = %q, want a not writable error", lines[1])
	}
	if !strings.Contains(lines[2], "unknown command") {
		t.Errorf("frobnicate = %q, want an unknown command error", lines[2])
	}
}

func TestWatch(t *testing.T) {
	board := sim.New()
	old := simulator
	simulator = func() driver.Driver { return board }
	t.Cleanup(func() { simulator = old })

	go func() {
		time.Sleep(50 * time.Millisecond)
		board.Drive(17, 1)
		time.Sleep(10 * time.Millisecond)
		board.Drive(17, 0)
	}()
	got, err := run(t, "", "watch", "17", "--duration", "500ms")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 2 {
		t.Fatalf("watch output = %q, want 2 lines", got)
	}
	for i, want := range []string{"GPIO 17 ON", "GPIO 17 OFF"} {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("line %d = %q, want suffix %q", i, lines[i], want)
		}
	}
}
