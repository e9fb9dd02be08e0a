package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stapelberg/gopigpio/internal/driver/sim"
	"github.com/stapelberg/gopigpio/pigpio"
	gossh "golang.org/x/crypto/ssh"
)

type published struct {
	gpio  uint32
	level pigpio.Level
}

func newTestDaemon(t *testing.T) (*daemon, *sim.Board, *[]published) {
	t.Helper()
	board := sim.New()
	pi, err := pigpio.New(pigpio.WithDriver(board))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pi.Close() })
	d, err := newDaemon(pi, prometheus.NewPedanticRegistry(), []uint32{17}, []uint32{21}, nil)
	if err != nil {
		t.Fatal(err)
	}
	var pub []published
	d.publish = func(gpio uint32, level pigpio.Level, _ time.Time) {
		pub = append(pub, published{gpio, level})
	}
	if err := d.start(0); err != nil {
		t.Fatal(err)
	}
	return d, board, &pub
}

func TestParseGPIOs(t *testing.T) {
	got, err := parseGPIOs("17, GPIO27,4")
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{17, 27, 4}
	if len(got) != len(want) {
		t.Fatalf("parseGPIOs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parseGPIOs()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	for _, list := range []string{"17,x", "17,40"} {
		if _, err := parseGPIOs(list); err == nil {
			t.Errorf("parseGPIOs(%q) succeeded unexpectedly", list)
		}
	}
}

func TestNewDaemonRejectsHighGPIOs(t *testing.T) {
	pi, err := pigpio.New(pigpio.WithDriver(sim.New()))
	if err != nil {
		t.Fatal(err)
	}
	defer pi.Close()
	// 17 is valid, but must stay untouched because 40 is rejected.
	if _, err := newDaemon(pi, prometheus.NewPedanticRegistry(), []uint32{40}, []uint32{17, 40}, nil); err == nil {
		t.Fatalf("newDaemon(outputs=17,40) succeeded unexpectedly")
	}
	for _, gpio := range []uint32{17, 40} {
		mode, err := pi.GetMode(gpio)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := mode, pigpio.Input; got != want {
			t.Errorf("GetMode(%d) after rejected config = %v, want %v", gpio, got, want)
		}
	}
}

func TestEdges(t *testing.T) {
	d, board, pub := newTestDaemon(t)

	board.Drive(17, 1)
	board.Flush()
	board.Drive(17, 0)
	board.Flush()

	if got, want := testutil.ToFloat64(d.edgesTotal.WithLabelValues("17", "rising")), 1.0; got != want {
		t.Errorf("rising edges = %v, want %v", got, want)
	}
	if got, want := testutil.ToFloat64(d.edgesTotal.WithLabelValues("17", "falling")), 1.0; got != want {
		t.Errorf("falling edges = %v, want %v", got, want)
	}
	want := []published{{17, pigpio.On}, {17, pigpio.Off}}
	if len(*pub) != len(want) {
		t.Fatalf("published = %v, want %v", *pub, want)
	}
	for i := range want {
		if (*pub)[i] != want[i] {
			t.Errorf("published[%d] = %v, want %v", i, (*pub)[i], want[i])
		}
	}

	st := d.state()
	if got, want := st[0].Changes, uint64(2); got != want {
		t.Errorf("GPIO 17 changes = %d, want %d", got, want)
	}
}

func TestOutputLevel(t *testing.T) {
	d, board, _ := newTestDaemon(t)
	if got := d.command("write 21 on"); got != "" {
		t.Fatalf("write 21 on = %q", got)
	}
	board.Flush()
	st := d.state()
	if got, want := st[1].GPIO, uint32(21); got != want {
		t.Fatalf("state()[1].GPIO = %d, want %d", got, want)
	}
	if !st[1].Output {
		t.Errorf("GPIO 21 is not reported as output")
	}
	if got, want := st[1].Level, uint32(1); got != want {
		t.Errorf("GPIO 21 level = %d, want %d", got, want)
	}
	if got, want := testutil.ToFloat64(d.level.WithLabelValues("21")), 1.0; got != want {
		t.Errorf("gpiod_gpio_level{gpio=21} = %v, want %v", got, want)
	}
}

func TestCommand(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	for _, tt := range []struct {
		line string
		want string
	}{
		{"read 17", "OFF"},
		{"write 17 on", "error: write: gpio 17: gpio is not writable"},
		{"write 21 on", ""},
		{"read 21", "ON"},
	} {
		if got := d.command(tt.line); got != tt.want {
			t.Errorf("command(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestHTTP(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	mux := d.handler()

	for _, tt := range []struct {
		method, url string
		wantCode    int
		wantBody    string
	}{
		{"GET", "/read?gpio=17", http.StatusOK, "0\n"},
		{"GET", "/read", http.StatusInternalServerError, `no "gpio" parameter specified` + "\n"},
		{"GET", "/write?gpio=21&level=on", http.StatusInternalServerError, "/write requires POST\n"},
		{"POST", "/write?gpio=17&level=on", http.StatusInternalServerError, "gpio 17: gpio is not writable\n"},
		{"POST", "/write?gpio=21&level=on", http.StatusOK, "1\n"},
		{"GET", "/read?gpio=GPIO21", http.StatusOK, "1\n"},
		{"POST", "/pwm?gpio=21&dutycycle=64", http.StatusOK, "64\n"},
		{"POST", "/pwm?gpio=21&dutycycle=x", http.StatusInternalServerError, "invalid dutycycle \"x\"\n"},
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.url, nil))
		if got := rec.Code; got != tt.wantCode {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.url, got, tt.wantCode)
		}
		if got := rec.Body.String(); got != tt.wantBody {
			t.Errorf("%s %s: body = %q, want %q", tt.method, tt.url, got, tt.wantBody)
		}
	}
}

func TestHTTPState(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	rec := httptest.NewRecorder()
	d.handler().ServeHTTP(rec, httptest.NewRequest("GET", "/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var state struct {
		Version  int         `json:"pigpio_version"`
		Revision string      `json:"hardware_revision"`
		GPIOs    []gpioState `json:"gpios"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if got, want := state.Version, sim.Version; got != want {
		t.Errorf("pigpio_version = %d, want %d", got, want)
	}
	if got, want := state.Revision, "0xa02082"; got != want {
		t.Errorf("hardware_revision = %q, want %q", got, want)
	}
	if got, want := len(state.GPIOs), 2; got != want {
		t.Fatalf("len(gpios) = %d, want %d", got, want)
	}
	if got, want := state.GPIOs[0].GPIO, uint32(17); got != want {
		t.Errorf("gpios[0].gpio = %d, want %d", got, want)
	}
}

func TestServeConsole(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	var out bytes.Buffer
	rw := struct {
		io.Reader
		io.Writer
	}{strings.NewReader("write 21 on\nread 21\nread 99\n"), &out}
	if err := serveConsole(rw, d.console); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "ON\nerror: ") {
		t.Errorf("output = %q, want ON followed by an error", got)
	}
}

func TestLoadAuthorizedKeys(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	key, err := gossh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "authorized_keys")
	content := "# gpiod console\n\n" + string(gossh.MarshalAuthorizedKey(key))
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	authorized, err := loadAuthorizedKeys(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(authorized), 1; got != want {
		t.Errorf("len(authorized) = %d, want %d", got, want)
	}
	if !authorized[string(key.Marshal())] {
		t.Errorf("generated key is not authorized")
	}

	if err := os.WriteFile(path, []byte("not a key\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadAuthorizedKeys(path); err == nil {
		t.Errorf("loadAuthorizedKeys(invalid) succeeded unexpectedly")
	}
}
