// Package sim provides a simulated Raspberry Pi which behaves like pigpio
// running on real hardware, minus the electrical side: levels only change
// when written by the program or driven through Drive.
package sim

import (
	"sync"
	"time"

	"github.com/stapelberg/gopigpio/internal/driver"
)

// Version is what Initialise reports, matching pigpio release 79.
const Version = 79

// Revision is a Raspberry Pi 3 Model B.
const Revision = 0xa02082

const (
	modeInput  = 0
	modeOutput = 1
	maxMode    = 7

	pudOff  = 0
	pudDown = 1
	pudUp   = 2
)

// pwmFrequencies are the frequencies pigpio offers at the default 5µs
// sample rate.
var pwmFrequencies = []uint32{
	8000, 4000, 2000, 1600, 1000, 800, 500, 400, 320,
	250, 200, 160, 100, 80, 50, 40, 20, 10,
}

const defaultPWMFrequency = 800

// flushInterval is how often batched samples are handed to the registered
// SamplesFunc. pigpio's alert thread uses the same period.
const flushInterval = time.Millisecond

type pin struct {
	mode   uint32
	pud    uint32
	level  uint32
	driven bool // level is imposed from outside, see Drive
	drive  uint32

	pwm      bool
	duty     uint32
	pwmRange uint32
	pwmFreq  uint32

	watchdog uint32
}

// Board implements driver.Driver.
type Board struct {
	mu          sync.Mutex
	initialised bool
	failInit    bool
	start       time.Time
	pins        [driver.MaxGPIO + 1]pin

	samplesFunc driver.SamplesFunc
	bits        uint32
	pending     []driver.Sample

	// flushMu keeps batches in order when Flush races with the flusher.
	flushMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	inits, terminates int
}

var _ driver.Driver = (*Board)(nil)

// New returns an uninitialised board.
func New() *Board {
	return &Board{}
}

// FailNextInitialise makes the next Initialise call report PI_INIT_FAILED,
// as pigpio does when /dev/mem is inaccessible or the daemon already runs.
func (b *Board) FailNextInitialise() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failInit = true
}

// Terminations returns how often Terminate released an initialised board.
func (b *Board) Terminations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.terminates
}

// Initialisations returns how often Initialise succeeded.
func (b *Board) Initialisations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inits
}

func defaultPull(gpio uint32) uint32 {
	if gpio <= 8 {
		return pudUp
	}
	return pudDown
}

func (b *Board) Initialise() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failInit {
		b.failInit = false
		return driver.InitFailed
	}
	if b.initialised {
		return Version
	}
	b.initialised = true
	b.inits++
	b.start = time.Now()
	for i := range b.pins {
		pud := defaultPull(uint32(i))
		b.pins[i] = pin{
			mode:     modeInput,
			pud:      pud,
			level:    pullLevel(pud, 0),
			pwmRange: driver.DefaultDutyRange,
			pwmFreq:  defaultPWMFrequency,
		}
	}
	b.done = make(chan struct{})
	b.wg.Add(1)
	go b.flusher(b.done)
	return Version
}

func (b *Board) Terminate() {
	b.mu.Lock()
	if !b.initialised {
		b.mu.Unlock()
		return
	}
	b.initialised = false
	b.terminates++
	close(b.done)
	b.mu.Unlock()

	// Wait outside the lock: the flusher may be inside a SamplesFunc which
	// calls back into the board.
	b.wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.samplesFunc = nil
	b.bits = 0
	b.pending = nil
}

func (b *Board) flusher(done <-chan struct{}) {
	defer b.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}

// Flush hands all pending samples to the registered SamplesFunc right away
// instead of waiting for the next flush interval.
func (b *Board) Flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	f := b.samplesFunc
	b.mu.Unlock()
	if f == nil || len(batch) == 0 {
		return
	}
	f(batch)
}

func (b *Board) tickLocked() uint32 {
	return uint32(time.Since(b.start).Microseconds())
}

func (b *Board) levelsLocked() uint32 {
	var bits uint32
	for i := 0; i <= driver.MaxUserGPIO; i++ {
		if b.pins[i].level != 0 {
			bits |= 1 << i
		}
	}
	return bits
}

// setLevelLocked changes the level of gpio and records a sample when the
// GPIO is monitored.
func (b *Board) setLevelLocked(gpio, level uint32, tick uint32) {
	p := &b.pins[gpio]
	if p.level == level {
		return
	}
	p.level = level
	if b.samplesFunc == nil || gpio > driver.MaxUserGPIO || b.bits&(1<<gpio) == 0 {
		return
	}
	b.pending = append(b.pending, driver.Sample{
		Tick:  tick,
		Level: b.levelsLocked(),
	})
}

// pullLevel is the level an undriven input settles at.
func pullLevel(pud, current uint32) uint32 {
	switch pud {
	case pudUp:
		return 1
	case pudDown:
		return 0
	default:
		return current // floating
	}
}

func (b *Board) settleLocked(gpio uint32) {
	p := &b.pins[gpio]
	if p.mode != modeInput {
		return
	}
	level := pullLevel(p.pud, p.level)
	if p.driven {
		level = p.drive
	}
	b.setLevelLocked(gpio, level, b.tickLocked())
}

// Drive imposes level on gpio from outside, like a button or another chip
// would. It has no effect on GPIOs configured as output.
func (b *Board) Drive(gpio, level uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gpio > driver.MaxGPIO || level > 1 {
		return
	}
	b.pins[gpio].driven = true
	b.pins[gpio].drive = level
	b.settleLocked(gpio)
}

// Release stops driving gpio from outside; it settles according to its pull.
func (b *Board) Release(gpio uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gpio > driver.MaxGPIO {
		return
	}
	b.pins[gpio].driven = false
	b.settleLocked(gpio)
}

func (b *Board) SetMode(gpio, mode uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialised {
		return driver.NotInitialised
	}
	if gpio > driver.MaxGPIO {
		return driver.BadGPIO
	}
	if mode > maxMode {
		return driver.BadMode
	}
	p := &b.pins[gpio]
	if mode != modeOutput {
		p.pwm = false
	}
	p.mode = mode
	b.settleLocked(gpio)
	return driver.OK
}

func (b *Board) GetMode(gpio uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialised {
		return driver.NotInitialised
	}
	if gpio > driver.MaxGPIO {
		return driver.BadGPIO
	}
	return int(b.pins[gpio].mode)
}

func (b *Board) SetPullUpDown(gpio, pud uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialised {
		return driver.NotInitialised
	}
	if gpio > driver.MaxGPIO {
		return driver.BadGPIO
	}
	if pud > pudUp {
		return driver.BadPUD
	}
	b.pins[gpio].pud = pud
	b.settleLocked(gpio)
	return driver.OK
}

func (b *Board) Read(gpio uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialised {
		return driver.NotInitialised
	}
	if gpio > driver.MaxGPIO {
		return driver.BadGPIO
	}
	return int(b.pins[gpio].level)
}

func (b *Board) Write(gpio, level uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialised {
		return driver.NotInitialised
	}
	if gpio > driver.MaxGPIO {
		return driver.BadGPIO
	}
	if level > 1 {
		return driver.BadLevel
	}
	p := &b.pins[gpio]
	p.pwm = false
	p.mode = modeOutput
	b.setLevelLocked(gpio, level, b.tickLocked())
	return driver.OK
}

func (b *Board) Delay(micros uint32) uint32 {
	start := time.Now()
	time.Sleep(time.Duration(micros) * time.Microsecond)
	return uint32(time.Since(start).Microseconds())
}

func (b *Board) Tick() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tickLocked()
}

func (b *Board) HardwareRevision() uint32 {
	return Revision
}

func (b *Board) userPinLocked(userGPIO uint32) (*pin, int) {
	if !b.initialised {
		return nil, driver.NotInitialised
	}
	if userGPIO > driver.MaxUserGPIO {
		return nil, driver.BadUserGPIO
	}
	return &b.pins[userGPIO], driver.OK
}

func (b *Board) PWM(userGPIO, dutycycle uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, rc := b.userPinLocked(userGPIO)
	if rc != driver.OK {
		return rc
	}
	if dutycycle > p.pwmRange {
		return driver.BadDutyCycle
	}
	p.mode = modeOutput
	p.pwm = true
	p.duty = dutycycle
	// Read samples the waveform; report high while any pulse is generated.
	var level uint32
	if dutycycle > 0 {
		level = 1
	}
	b.setLevelLocked(userGPIO, level, b.tickLocked())
	return driver.OK
}

func (b *Board) GetPWMDutycycle(userGPIO uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, rc := b.userPinLocked(userGPIO)
	if rc != driver.OK {
		return rc
	}
	if !p.pwm {
		return driver.NotPWMGPIO
	}
	return int(p.duty)
}

// realRange is the number of distinct dutycycle steps the hardware offers
// at frequency with a 5µs sample rate.
func realRange(frequency uint32) int {
	return int(200000 / frequency)
}

func (b *Board) SetPWMRange(userGPIO, rng uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, rc := b.userPinLocked(userGPIO)
	if rc != driver.OK {
		return rc
	}
	if rng < driver.MinDutyRange || rng > driver.MaxDutyRange {
		return driver.BadDutyRange
	}
	if p.pwm {
		p.duty = uint32(uint64(p.duty) * uint64(rng) / uint64(p.pwmRange))
	}
	p.pwmRange = rng
	return realRange(p.pwmFreq)
}

func (b *Board) GetPWMRange(userGPIO uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, rc := b.userPinLocked(userGPIO)
	if rc != driver.OK {
		return rc
	}
	return int(p.pwmRange)
}

// closestFrequency rounds frequency to an entry of pwmFrequencies. Ties go
// to the lower frequency.
func closestFrequency(frequency uint32) uint32 {
	best := pwmFrequencies[0]
	for _, f := range pwmFrequencies[1:] {
		if absDiff(f, frequency) <= absDiff(best, frequency) {
			best = f
		}
	}
	return best
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func (b *Board) SetPWMFrequency(userGPIO, frequency uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, rc := b.userPinLocked(userGPIO)
	if rc != driver.OK {
		return rc
	}
	p.pwmFreq = closestFrequency(frequency)
	return int(p.pwmFreq)
}

func (b *Board) GetPWMFrequency(userGPIO uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, rc := b.userPinLocked(userGPIO)
	if rc != driver.OK {
		return rc
	}
	return int(p.pwmFreq)
}

func (b *Board) Trigger(userGPIO, pulseLen, level uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, rc := b.userPinLocked(userGPIO)
	if rc != driver.OK {
		return rc
	}
	if level > 1 {
		return driver.BadLevel
	}
	if pulseLen == 0 || pulseLen > driver.MaxPulseLen {
		return driver.BadPulseLen
	}
	p.pwm = false
	p.mode = modeOutput
	tick := b.tickLocked()
	b.setLevelLocked(userGPIO, level, tick)
	b.setLevelLocked(userGPIO, 1-level, tick+pulseLen)
	return driver.OK
}

func (b *Board) SetWatchdog(userGPIO, timeout uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, rc := b.userPinLocked(userGPIO)
	if rc != driver.OK {
		return rc
	}
	if timeout > driver.MaxWdogTimeout {
		return driver.BadWdogTimeout
	}
	p.watchdog = timeout
	return driver.OK
}

// Watchdog returns the watchdog timeout of userGPIO in milliseconds.
func (b *Board) Watchdog(userGPIO uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if userGPIO > driver.MaxUserGPIO {
		return 0
	}
	return b.pins[userGPIO].watchdog
}

func (b *Board) SetSamplesFunc(f driver.SamplesFunc, bits uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialised {
		return driver.NotInitialised
	}
	b.samplesFunc = f
	b.bits = bits
	if f == nil {
		b.bits = 0
	}
	b.pending = nil
	return driver.OK
}
