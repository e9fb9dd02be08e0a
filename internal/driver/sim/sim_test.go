package sim

import (
	"testing"

	"github.com/stapelberg/gopigpio/internal/driver"
)

func initialised(t *testing.T) *Board {
	t.Helper()
	b := New()
	if got, want := b.Initialise(), Version; got != want {
		t.Fatalf("Initialise() = %d, want %d", got, want)
	}
	t.Cleanup(b.Terminate)
	return b
}

func TestNotInitialised(t *testing.T) {
	b := New()
	if got, want := b.Read(4), driver.NotInitialised; got != want {
		t.Errorf("Read() = %d, want %d", got, want)
	}
	b.Terminate() // no-op
	if got, want := b.Terminations(), 0; got != want {
		t.Errorf("Terminations() = %d, want %d", got, want)
	}
}

func TestFailNextInitialise(t *testing.T) {
	b := New()
	b.FailNextInitialise()
	if got, want := b.Initialise(), driver.InitFailed; got != want {
		t.Errorf("Initialise() = %d, want %d", got, want)
	}
	if got, want := b.Initialise(), Version; got != want {
		t.Errorf("second Initialise() = %d, want %d", got, want)
	}
	b.Terminate()
	b.Terminate()
	if got, want := b.Terminations(), 1; got != want {
		t.Errorf("Terminations() = %d, want %d", got, want)
	}
}

func TestPulls(t *testing.T) {
	b := initialised(t)
	// GPIOs 0-8 default to pull-up, the others to pull-down.
	if got, want := b.Read(4), 1; got != want {
		t.Errorf("Read(4) = %d, want %d", got, want)
	}
	if got, want := b.Read(17), 0; got != want {
		t.Errorf("Read(17) = %d, want %d", got, want)
	}
	b.SetPullUpDown(17, pudUp)
	if got, want := b.Read(17), 1; got != want {
		t.Errorf("Read(17) after pull-up = %d, want %d", got, want)
	}
	// Without a pull the input floats at its previous level.
	b.SetPullUpDown(17, pudOff)
	if got, want := b.Read(17), 1; got != want {
		t.Errorf("Read(17) floating = %d, want %d", got, want)
	}
}

func TestDrive(t *testing.T) {
	b := initialised(t)
	b.Drive(17, 1)
	if got, want := b.Read(17), 1; got != want {
		t.Errorf("Read(17) while driven = %d, want %d", got, want)
	}
	b.Release(17)
	if got, want := b.Read(17), 0; got != want {
		t.Errorf("Read(17) after Release = %d, want %d", got, want)
	}

	// Outputs ignore external drivers until switched back to input.
	b.Write(18, 0)
	b.Drive(18, 1)
	if got, want := b.Read(18), 0; got != want {
		t.Errorf("Read(18) output = %d, want %d", got, want)
	}
	b.SetMode(18, modeInput)
	if got, want := b.Read(18), 1; got != want {
		t.Errorf("Read(18) input = %d, want %d", got, want)
	}
}

func TestWriteSwitchesToOutput(t *testing.T) {
	b := initialised(t)
	b.Write(20, 1)
	if got, want := b.GetMode(20), modeOutput; got != want {
		t.Errorf("GetMode(20) = %d, want %d", got, want)
	}
}

func TestTriggerSamples(t *testing.T) {
	b := initialised(t)
	var got []driver.Sample
	b.SetSamplesFunc(func(samples []driver.Sample) {
		got = append(got, samples...)
	}, 1<<23)
	if rc := b.Trigger(23, 10, 1); rc != driver.OK {
		t.Fatalf("Trigger() = %d", rc)
	}
	// Flush is serialised with the background flusher: once it returns,
	// every recorded sample has been delivered.
	b.Flush()

	if len(got) != 2 {
		t.Fatalf("samples = %+v, want 2", got)
	}
	if got, want := got[0].Level&(1<<23), uint32(1<<23); got != want {
		t.Errorf("first sample level = %#x, want %#x", got, want)
	}
	if got, want := got[1].Level&(1<<23), uint32(0); got != want {
		t.Errorf("second sample level = %#x, want %#x", got, want)
	}
	if got, want := got[1].Tick-got[0].Tick, uint32(10); got != want {
		t.Errorf("pulse length = %d µs, want %d µs", got, want)
	}
}

func TestClosestFrequency(t *testing.T) {
	for _, tt := range []struct {
		in, want uint32
	}{
		{0, 10},
		{10, 10},
		{900, 800}, // halfway between 1000 and 800
		{3000, 2000},
		{950, 1000},
		{100000, 8000},
	} {
		if got := closestFrequency(tt.in); got != tt.want {
			t.Errorf("closestFrequency(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWatchdog(t *testing.T) {
	b := initialised(t)
	if got, want := b.SetWatchdog(5, 60001), driver.BadWdogTimeout; got != want {
		t.Errorf("SetWatchdog(5, 60001) = %d, want %d", got, want)
	}
	if got, want := b.SetWatchdog(5, 500), driver.OK; got != want {
		t.Errorf("SetWatchdog(5, 500) = %d, want %d", got, want)
	}
	if got, want := b.Watchdog(5), uint32(500); got != want {
		t.Errorf("Watchdog(5) = %d, want %d", got, want)
	}
}
