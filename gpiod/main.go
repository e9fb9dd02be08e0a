// gpiod exports the GPIOs of a Raspberry Pi via HTTP, MQTT and SSH.
//
// Inputs are monitored with pigpio's sampling (every 5µs), so that short
// pulses are not missed. Every level change is counted in the
// gpiod_edges_total metric and published to MQTT (retained). Outputs can be
// changed via HTTP POST, the MQTT command topic and the SSH console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gliderlabs/ssh"
	"github.com/gokrazy/gokrazy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stapelberg/gopigpio/internal/console"
	"github.com/stapelberg/gopigpio/internal/driver/sim"
	"github.com/stapelberg/gopigpio/internal/teelogger"
	"github.com/stapelberg/gopigpio/pigpio"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

var (
	listen = flag.String("listen",
		":8017",
		"[host]:port HTTP listen address (state, control and prometheus metrics)")

	maxConns = flag.Int("max_conns",
		16,
		"maximum number of concurrent HTTP and SSH connections, each")

	inputs = flag.String("inputs",
		"",
		"comma-separated list of input GPIOs (0-31) to monitor, e.g. 17,27")

	outputs = flag.String("outputs",
		"",
		"comma-separated list of output GPIOs (0-31) which may be changed, e.g. 21")

	pull = flag.String("pull",
		"",
		"pull-up/down resistor for the inputs (off, up, down). empty leaves it unchanged")

	debounce = flag.Duration("debounce",
		0,
		"ignore level changes of a GPIO within this duration of its last change")

	mqttBroker = flag.String("mqtt_broker",
		"",
		"MQTT broker address for github.com/eclipse/paho.mqtt.golang, e.g. tcp://dr.lan:1883. empty disables MQTT")

	mqttPrefix = flag.String("mqtt_prefix",
		"gpiod",
		"MQTT topic prefix")

	sshListen = flag.String("ssh_listen",
		"",
		"[host]:port SSH console listen address. empty disables SSH")

	authorizedKeys = flag.String("authorized_keys",
		"/perm/gpiod/authorized_keys",
		"path to an OpenSSH authorized_keys file with the keys allowed to use the SSH console")

	hostKey = flag.String("host_key",
		"/perm/gpiod/host_key",
		"path to the SSH host key. empty generates a key on every start")

	remoteSyslog = flag.String("remote_syslog",
		"",
		"host:port (UDP) to send logs to in addition to stderr. empty disables remote syslog")

	simulate = flag.Bool("simulate",
		false,
		"use a simulated board instead of libpigpio")
)

func parseGPIOs(list string) ([]uint32, error) {
	if list == "" {
		return nil, nil
	}
	var gpios []uint32
	for _, s := range strings.Split(list, ",") {
		gpio, err := console.ParseGPIO(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		if err := checkMonitorable(gpio); err != nil {
			return nil, err
		}
		gpios = append(gpios, gpio)
	}
	return gpios, nil
}

func logic(ctx context.Context) error {
	in, err := parseGPIOs(*inputs)
	if err != nil {
		return fmt.Errorf("-inputs: %v", err)
	}
	out, err := parseGPIOs(*outputs)
	if err != nil {
		return fmt.Errorf("-outputs: %v", err)
	}
	if len(in)+len(out) == 0 {
		return fmt.Errorf("no GPIOs configured, specify -inputs and/or -outputs")
	}
	var pud *pigpio.Pull
	if *pull != "" {
		p, err := pigpio.ParsePull(*pull)
		if err != nil {
			return fmt.Errorf("-pull: %v", err)
		}
		pud = &p
	}

	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)
	if *remoteSyslog != "" {
		logger = teelogger.NewRemoteSyslog(*remoteSyslog, "gpiod")
		log.SetOutput(logger.Writer())
	}

	opts := []pigpio.Option{
		pigpio.WithLogger(logger),
		pigpio.WithMetrics(prometheus.DefaultRegisterer),
	}
	if *simulate {
		opts = append(opts, pigpio.WithDriver(sim.New()))
	}
	pi, err := pigpio.New(opts...)
	if err != nil {
		return err
	}
	defer pi.Close()

	d, err := newDaemon(pi, prometheus.DefaultRegisterer, in, out, pud)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)

	if *mqttBroker != "" {
		mqttClient := d.newMQTT(*mqttBroker, *mqttPrefix)
		eg.Go(func() error { return runMQTT(ctx, mqttClient) })
	}

	if err := d.start(*debounce); err != nil {
		return err
	}

	if *sshListen != "" {
		authorized, err := loadAuthorizedKeys(*authorizedKeys)
		if err != nil {
			return err
		}
		srv, err := d.sshServer(*sshListen, *hostKey, authorized)
		if err != nil {
			return err
		}
		ln, err := net.Listen("tcp", *sshListen)
		if err != nil {
			return err
		}
		log.Printf("SSH console listening on %s", ln.Addr())
		eg.Go(func() error {
			errC := make(chan error, 1)
			go func() {
				errC <- srv.Serve(netutil.LimitListener(ln, *maxConns))
			}()
			select {
			case err := <-errC:
				return err
			case <-ctx.Done():
				srv.Close()
				if err := <-errC; err != nil && !errors.Is(err, ssh.ErrServerClosed) {
					return err
				}
				return ctx.Err()
			}
		})
	}

	mux := d.handler()
	mux.Handle("/metrics", promhttp.Handler())
	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return err
	}
	log.Printf("HTTP listening on %s", ln.Addr())
	eg.Go(func() error {
		return serve(ctx, &http.Server{Handler: mux}, ln, *maxConns)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return pi.ClearSamplingCallback()
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if !*simulate {
		// WaitForClock makes the logged timestamps and the since values
		// published via MQTT meaningful on devices without an RTC.
		gokrazy.WaitForClock()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := logic(ctx); err != nil {
		log.Fatal(err)
	}
}
