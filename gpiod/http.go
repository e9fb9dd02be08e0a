package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/stapelberg/gopigpio/internal/console"
	"github.com/stapelberg/gopigpio/pigpio"
	"golang.org/x/net/netutil"
)

func internalServerError(h func(w http.ResponseWriter, r *http.Request) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			log.Printf("%s %s: %v", r.Method, r.URL, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func (d *daemon) handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/state", internalServerError(d.serveState))
	mux.Handle("/read", internalServerError(d.serveRead))
	mux.Handle("/write", internalServerError(d.serveWrite))
	mux.Handle("/pwm", internalServerError(d.servePWM))
	return mux
}

func (d *daemon) serveState(w http.ResponseWriter, r *http.Request) error {
	b, err := json.MarshalIndent(struct {
		Version  int         `json:"pigpio_version"`
		Revision string      `json:"hardware_revision"`
		GPIOs    []gpioState `json:"gpios"`
	}{
		Version:  d.pi.Version(),
		Revision: fmt.Sprintf("%#x", d.pi.HardwareRevision()),
		GPIOs:    d.state(),
	}, "", "  ")
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(b)
	return err
}

func formGPIO(r *http.Request) (uint32, error) {
	gpiostr := r.FormValue("gpio")
	if gpiostr == "" {
		return 0, fmt.Errorf(`no "gpio" parameter specified`)
	}
	return console.ParseGPIO(gpiostr)
}

func (d *daemon) serveRead(w http.ResponseWriter, r *http.Request) error {
	gpio, err := formGPIO(r)
	if err != nil {
		return err
	}
	level, err := d.pi.Read(gpio)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d\n", level)
	return nil
}

// writable returns an error unless r may change gpio.
func (d *daemon) writable(r *http.Request, gpio uint32) error {
	if r.Method != http.MethodPost {
		return fmt.Errorf("%s requires POST", r.URL.Path)
	}
	if !d.outputs[gpio] {
		return fmt.Errorf("gpio %d: %w", gpio, console.ErrNotAllowed)
	}
	return nil
}

func (d *daemon) serveWrite(w http.ResponseWriter, r *http.Request) error {
	gpio, err := formGPIO(r)
	if err != nil {
		return err
	}
	if err := d.writable(r, gpio); err != nil {
		return err
	}
	level, err := pigpio.ParseLevel(r.FormValue("level"))
	if err != nil {
		return err
	}
	if err := d.pi.Write(gpio, level); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d\n", level)
	return nil
}

func (d *daemon) servePWM(w http.ResponseWriter, r *http.Request) error {
	gpio, err := formGPIO(r)
	if err != nil {
		return err
	}
	if err := d.writable(r, gpio); err != nil {
		return err
	}
	var dutycycle uint32
	if _, err := fmt.Sscan(r.FormValue("dutycycle"), &dutycycle); err != nil {
		return fmt.Errorf("invalid dutycycle %q", r.FormValue("dutycycle"))
	}
	if err := d.pi.PWM(gpio, dutycycle); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d\n", dutycycle)
	return nil
}

// serve serves srv on ln, accepting at most maxConns connections at a
// time, until ctx is done.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, maxConns int) error {
	errC := make(chan error, 1)
	go func() {
		errC <- srv.Serve(netutil.LimitListener(ln, maxConns))
	}()
	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
		timeout, canc := context.WithTimeout(context.Background(), 250*time.Millisecond)
		defer canc()
		_ = srv.Shutdown(timeout)
		return ctx.Err()
	}
}
