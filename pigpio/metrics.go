package pigpio

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	initialized prometheus.Gauge
	ops         *prometheus.CounterVec
	errors      *prometheus.CounterVec
	batches     prometheus.Counter
	samples     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		initialized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pigpio",
			Name:      "initialized",
			Help:      "1 while pigpio is initialised",
		}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pigpio",
			Name:      "operations_total",
			Help:      "pigpio calls, by pigpio function",
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pigpio",
			Name:      "operation_errors_total",
			Help:      "Failed pigpio calls, by pigpio function and error",
		}, []string{"op", "error"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pigpio",
			Name:      "sample_batches_total",
			Help:      "Sample batches delivered to the sampling callback",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pigpio",
			Name:      "samples_total",
			Help:      "Samples delivered to the sampling callback",
		}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.initialized, err = register(reg, m.initialized); err != nil {
		return nil, err
	}
	if m.ops, err = register(reg, m.ops); err != nil {
		return nil, err
	}
	if m.errors, err = register(reg, m.errors); err != nil {
		return nil, err
	}
	if m.batches, err = register(reg, m.batches); err != nil {
		return nil, err
	}
	if m.samples, err = register(reg, m.samples); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c with reg, or returns the collector registered by an
// earlier Pi using the same registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}
