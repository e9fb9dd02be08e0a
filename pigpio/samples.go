package pigpio

import "github.com/stapelberg/gopigpio/internal/driver"

// SetSamplingCallback registers fn to receive the samples pigpio takes of
// the GPIOs selected by bits (see Bits). pigpio calls fn from its own
// thread, once per batch, concurrently with the rest of the program: fn
// must synchronise access to shared state itself. The slice passed to fn
// is owned by pigpio and must not be retained after fn returns.
//
// A later call replaces fn. The registration ends with
// ClearSamplingCallback or Close.
func (p *Pi) SetSamplingCallback(fn func(samples []Sample), bits uint32) error {
	const op = "gpioSetGetSamplesFuncEx"
	if err := p.live(); err != nil {
		return err
	}
	if fn == nil {
		return p.ClearSamplingCallback()
	}
	p.metrics.ops.WithLabelValues(op).Inc()

	batches, samples := p.metrics.batches, p.metrics.samples
	f := func(batch []driver.Sample) {
		batches.Inc()
		samples.Add(float64(len(batch)))
		fn(batch)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if rc := p.drv.SetSamplesFunc(f, bits); rc != driver.OK {
		return p.fail(op, -1, rc)
	}
	p.sampling = true
	return nil
}

// ClearSamplingCallback cancels the callback registered by
// SetSamplingCallback. A batch which pigpio is delivering at the time of
// the call may still reach the old callback.
func (p *Pi) ClearSamplingCallback() error {
	const op = "gpioSetGetSamplesFuncEx"
	if err := p.live(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.sampling {
		return nil
	}
	p.metrics.ops.WithLabelValues(op).Inc()
	if rc := p.drv.SetSamplesFunc(nil, 0); rc != driver.OK {
		return p.fail(op, -1, rc)
	}
	p.sampling = false
	return nil
}
