package main

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stapelberg/gopigpio/internal/console"
	"github.com/stapelberg/gopigpio/internal/edges"
	"github.com/stapelberg/gopigpio/internal/timestamped"
	"github.com/stapelberg/gopigpio/pigpio"
)

type daemon struct {
	pi      *pigpio.Pi
	console *console.Console
	outputs map[uint32]bool
	gpios   []uint32 // inputs and outputs, sorted

	// levels is not modified after newDaemon returns.
	levels map[uint32]*timestamped.Value[pigpio.Level]

	mu       sync.Mutex
	detector *edges.Detector

	edgesTotal *prometheus.CounterVec
	level      *prometheus.GaugeVec

	// publish is called for every level change, from the pigpio thread.
	publish func(gpio uint32, level pigpio.Level, since time.Time)
}

// newDaemon configures inputs and outputs and reads their current levels.
// pull is applied to the inputs unless it is nil.
func newDaemon(pi *pigpio.Pi, reg prometheus.Registerer, inputs, outputs []uint32, pull *pigpio.Pull) (*daemon, error) {
	// Reject unmonitorable GPIOs before changing any pin.
	for _, gpio := range append(append([]uint32(nil), inputs...), outputs...) {
		if err := checkMonitorable(gpio); err != nil {
			return nil, err
		}
	}
	d := &daemon{
		pi:      pi,
		outputs: make(map[uint32]bool),
		levels:  make(map[uint32]*timestamped.Value[pigpio.Level]),
		edgesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpiod_edges_total",
			Help: "Level changes per GPIO and direction (rising, falling)",
		}, []string{"gpio", "direction"}),
		level: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gpiod_gpio_level",
			Help: "Current level (0 or 1) per GPIO",
		}, []string{"gpio"}),
	}
	for _, c := range []prometheus.Collector{d.edgesTotal, d.level} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	for _, gpio := range inputs {
		if err := pi.SetMode(gpio, pigpio.Input); err != nil {
			return nil, err
		}
		if pull != nil {
			if err := pi.SetPullUpDown(gpio, *pull); err != nil {
				return nil, err
			}
		}
	}
	for _, gpio := range outputs {
		if d.outputs[gpio] {
			continue
		}
		if err := pi.SetMode(gpio, pigpio.Output); err != nil {
			return nil, err
		}
		d.outputs[gpio] = true
	}
	d.console = &console.Console{
		Pi:       pi,
		Writable: d.outputs,
	}

	var initial uint32
	now := time.Now()
	for _, gpio := range append(append([]uint32(nil), inputs...), outputs...) {
		if _, ok := d.levels[gpio]; ok {
			continue
		}
		level, err := pi.Read(gpio)
		if err != nil {
			return nil, err
		}
		v := &timestamped.Value[pigpio.Level]{}
		v.Set(level, now)
		d.levels[gpio] = v
		d.gpios = append(d.gpios, gpio)
		d.level.WithLabelValues(strconv.Itoa(int(gpio))).Set(float64(level))
		initial |= uint32(level) << gpio
	}
	sort.Slice(d.gpios, func(i, j int) bool { return d.gpios[i] < d.gpios[j] })
	d.detector = edges.NewDetector(pigpio.Bits(d.gpios...), initial)
	return d, nil
}

// checkMonitorable returns an error unless pigpio's sampling covers gpio.
func checkMonitorable(gpio uint32) error {
	if gpio > 31 {
		return fmt.Errorf("GPIO %d cannot be monitored, only 0-31 can", gpio)
	}
	return nil
}

// start begins monitoring all configured GPIOs. Level changes within
// debounce of the previous change of the same GPIO are ignored.
func (d *daemon) start(debounce time.Duration) error {
	d.mu.Lock()
	d.detector.Debounce = uint32(debounce.Microseconds())
	d.mu.Unlock()
	return d.pi.SetSamplingCallback(d.onSamples, pigpio.Bits(d.gpios...))
}

func (d *daemon) onSamples(samples []pigpio.Sample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Feed(samples, d.record)
}

func (d *daemon) record(e edges.Edge) {
	now := time.Now()
	if !d.levels[e.GPIO].Set(e.Level, now) {
		return
	}
	direction := "falling"
	if e.Rising() {
		direction = "rising"
	}
	label := strconv.Itoa(int(e.GPIO))
	d.edgesTotal.WithLabelValues(label, direction).Inc()
	d.level.WithLabelValues(label).Set(float64(e.Level))
	if d.publish != nil {
		d.publish(e.GPIO, e.Level, now)
	}
}

type gpioState struct {
	GPIO    uint32    `json:"gpio"`
	Output  bool      `json:"output"`
	Level   uint32    `json:"level"`
	Since   time.Time `json:"since"`
	Changes uint64    `json:"changes"`
}

// state returns the last observed level of every monitored GPIO.
func (d *daemon) state() []gpioState {
	result := make([]gpioState, 0, len(d.gpios))
	for _, gpio := range d.gpios {
		v := d.levels[gpio]
		level, since := v.Get()
		result = append(result, gpioState{
			GPIO:    gpio,
			Output:  d.outputs[gpio],
			Level:   uint32(level),
			Since:   since,
			Changes: v.Changes() - 1, // not counting the initial level
		})
	}
	return result
}
