package remote

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joyshim/joyshim/pkg/producer"
	"github.com/joyshim/joyshim/pkg/udev"
	"github.com/joyshim/joyshim/pkg/wire"
)

func startTestServer(t *testing.T, pads []PadSink, registry *udev.Registry) *httptest.Server {
	t.Helper()
	srv := NewServer(pads, registry, []string{"*"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := startTestServer(t, nil, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
}

func TestDevicesListsRegistry(t *testing.T) {
	registry, err := udev.Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer registry.Close()

	if err := registry.Register(udev.Device{Path: "/dev/input/js0", Subsystem: "input", Name: "js0"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ts := startTestServer(t, nil, registry)
	resp, err := http.Get(ts.URL + "/devices")
	if err != nil {
		t.Fatalf("get devices: %v", err)
	}
	defer resp.Body.Close()

	var devices []udev.Device
	if err := json.NewDecoder(resp.Body).Decode(&devices); err != nil {
		t.Fatalf("decode devices: %v", err)
	}
	if len(devices) != 1 || devices[0].Path != "/dev/input/js0" {
		t.Fatalf("devices response %+v", devices)
	}
}

func TestPadWebsocketFeedsPad(t *testing.T) {
	pad := producer.NewPad(filepath.Join(t.TempDir(), "pad.sock"), producer.StreamJoystick, producer.XboxPad())
	if err := pad.Start(); err != nil {
		t.Fatalf("start pad: %v", err)
	}
	defer pad.Stop()

	ts := startTestServer(t, []PadSink{pad}, nil)

	// A socket client consuming the pad's stream.
	conn := dialPadSocket(t, pad)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/pads/0/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(Message{Type: "button", Number: 0, Value: 1}); err != nil {
		t.Fatalf("write button message: %v", err)
	}

	buf := make([]byte, wire.JSEventSize)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read pad event: %v", err)
	}
	ev := wire.DecodeJSEvent(buf)
	if ev.Type != wire.JSEventButton || ev.Number != 0 || ev.Value != 1 {
		t.Fatalf("pad emitted %+v", ev)
	}
}

func TestPadWebsocketUnknownIndex(t *testing.T) {
	ts := startTestServer(t, nil, nil)
	resp, err := http.Get(ts.URL + "/pads/5/ws")
	if err != nil {
		t.Fatalf("get unknown pad: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown pad status %d, want 404", resp.StatusCode)
	}
}

// dialPadSocket performs the client half of the pad handshake and
// drains the initial state replay.
func dialPadSocket(t *testing.T, pad *producer.Pad) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", pad.SocketPath())
	if err != nil {
		t.Fatalf("dial pad socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	raw := make([]byte, wire.ConfigSize)
	if _, err := io.ReadFull(conn, raw); err != nil {
		t.Fatalf("read config: %v", err)
	}
	var cfg wire.DeviceConfig
	if err := wire.DecodeConfig(raw, &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if _, err := conn.Write([]byte{wire.ArchByte()}); err != nil {
		t.Fatalf("send arch byte: %v", err)
	}

	init := make([]byte, wire.JSEventSize*int(cfg.NumButtons+cfg.NumAxes))
	if _, err := io.ReadFull(conn, init); err != nil {
		t.Fatalf("read init replay: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for pad.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("pad never registered the socket client")
		}
		time.Sleep(time.Millisecond)
	}
	return conn
}
