package producer

import (
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/joyshim/joyshim/pkg/wire"
)

func TestMapButtonPlain(t *testing.T) {
	m := NewMapper(XboxPad())

	ev, ok := m.MapButton(0, 1)
	if !ok || ev.axis || ev.number != 0 || ev.value != 1 {
		t.Fatalf("button 0 mapped to %+v", ev)
	}

	// Select (8) remaps past the trigger/dpad gap.
	ev, ok = m.MapButton(8, 1)
	if !ok || ev.axis || ev.number != 6 {
		t.Fatalf("select mapped to %+v", ev)
	}

	// Guide button lands on BTN_MODE's slot.
	ev, ok = m.MapButton(16, 1)
	if !ok || ev.axis || ev.number != 8 {
		t.Fatalf("guide mapped to %+v", ev)
	}

	if _, ok := m.MapButton(40, 1); ok {
		t.Fatal("out-of-range button must not map")
	}
}

func TestMapButtonTriggers(t *testing.T) {
	m := NewMapper(XboxPad())

	ev, ok := m.MapButton(6, 1)
	if !ok || !ev.axis || ev.number != 2 || ev.value != axisMax {
		t.Fatalf("L2 full pull mapped to %+v", ev)
	}
	ev, _ = m.MapButton(6, 0)
	if ev.value != axisMin {
		t.Fatalf("L2 at rest mapped to value %d, want %d", ev.value, axisMin)
	}
	ev, _ = m.MapButton(7, 0.5)
	if !ev.axis || ev.number != 5 || ev.value != 0 {
		t.Fatalf("R2 half pull mapped to %+v", ev)
	}
}

func TestMapButtonDpad(t *testing.T) {
	m := NewMapper(XboxPad())

	tests := []struct {
		btn   int
		axis  int
		value int16
	}{
		{15, 6, axisMax}, // right
		{14, 6, axisMin}, // left
		{13, 7, axisMax}, // down
		{12, 7, axisMin}, // up
	}
	for _, tt := range tests {
		ev, ok := m.MapButton(tt.btn, 1)
		if !ok || !ev.axis || ev.number != tt.axis || ev.value != tt.value {
			t.Fatalf("dpad button %d mapped to %+v, want axis %d value %d", tt.btn, ev, tt.axis, tt.value)
		}
		// Releasing centers the hat.
		if ev, _ := m.MapButton(tt.btn, 0); ev.value != 0 {
			t.Fatalf("dpad button %d release mapped to value %d", tt.btn, ev.value)
		}
	}
}

func TestMapAxis(t *testing.T) {
	m := NewMapper(XboxPad())

	ev, ok := m.MapAxis(0, -1)
	if !ok || !ev.axis || ev.number != 0 || ev.value != axisMin {
		t.Fatalf("left stick X mapped to %+v", ev)
	}
	// Right stick remaps past the triggers.
	ev, _ = m.MapAxis(2, 1)
	if ev.number != 3 || ev.value != axisMax {
		t.Fatalf("right stick X mapped to %+v", ev)
	}
	ev, _ = m.MapAxis(1, 0)
	if ev.value != 0 {
		t.Fatalf("centered stick mapped to value %d", ev.value)
	}
	if _, ok := m.MapAxis(64, 0); ok {
		t.Fatal("out-of-range axis must not map")
	}
}

func startPad(t *testing.T, kind StreamKind) *Pad {
	t.Helper()
	p := NewPad(filepath.Join(t.TempDir(), "pad.sock"), kind, XboxPad())
	if err := p.Start(); err != nil {
		t.Fatalf("start pad: %v", err)
	}
	t.Cleanup(p.Stop)
	return p
}

// dialPad connects and runs the client half of the handshake,
// returning the connection with init replay already consumed.
func dialPad(t *testing.T, p *Pad, recordSize, initRecords int) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", p.SocketPath())
	if err != nil {
		t.Fatalf("dial pad: %v", err)
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
	if cfg.NameString() != XboxPad().Name || cfg.NumButtons != 11 || cfg.NumAxes != 8 {
		t.Fatalf("announced config %q %d/%d", cfg.NameString(), cfg.NumButtons, cfg.NumAxes)
	}

	if _, err := conn.Write([]byte{wire.ArchByte()}); err != nil {
		t.Fatalf("send arch byte: %v", err)
	}

	init := make([]byte, recordSize*initRecords)
	if _, err := io.ReadFull(conn, init); err != nil {
		t.Fatalf("read init replay: %v", err)
	}
	waitForClient(t, p)
	return conn
}

func waitForClient(t *testing.T, p *Pad) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never joined the broadcast set")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPadJoystickStream(t *testing.T) {
	p := startPad(t, StreamJoystick)
	conn := dialPad(t, p, wire.JSEventSize, 11+8)

	p.SendButton(0, 1)
	buf := make([]byte, wire.JSEventSize)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read event: %v", err)
	}
	ev := wire.DecodeJSEvent(buf)
	if ev.Type != wire.JSEventButton || ev.Number != 0 || ev.Value != 1 {
		t.Fatalf("button press decoded as %+v", ev)
	}

	p.SendButton(6, 1) // L2 becomes a trigger axis
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read trigger event: %v", err)
	}
	ev = wire.DecodeJSEvent(buf)
	if ev.Type != wire.JSEventAxis || ev.Number != 2 || ev.Value != axisMax {
		t.Fatalf("trigger pull decoded as %+v", ev)
	}
}

func TestPadInitReplayCarriesInitFlag(t *testing.T) {
	p := startPad(t, StreamJoystick)

	conn, err := net.Dial("unix", p.SocketPath())
	if err != nil {
		t.Fatalf("dial pad: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	raw := make([]byte, wire.ConfigSize)
	if _, err := io.ReadFull(conn, raw); err != nil {
		t.Fatalf("read config: %v", err)
	}
	if _, err := conn.Write([]byte{wire.ArchByte()}); err != nil {
		t.Fatalf("send arch byte: %v", err)
	}

	buf := make([]byte, wire.JSEventSize)
	for i := 0; i < 11+8; i++ {
		if _, err := io.ReadFull(conn, buf); err != nil {
			t.Fatalf("read init event %d: %v", i, err)
		}
		ev := wire.DecodeJSEvent(buf)
		if ev.Type&wire.JSEventInit == 0 {
			t.Fatalf("init event %d missing init flag: %+v", i, ev)
		}
		if ev.Value != 0 {
			t.Fatalf("init event %d carries nonzero value: %+v", i, ev)
		}
	}
}

func TestPadEventStream(t *testing.T) {
	p := startPad(t, StreamEvent)
	// Event-stream records come in change+sync pairs.
	conn := dialPad(t, p, 2*wire.NativeInputEventSize, 11+8)

	p.SendButton(0, 1)
	buf := make([]byte, 2*wire.NativeInputEventSize)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read event pair: %v", err)
	}
	key := wire.DecodeInputEvent(buf[:wire.NativeInputEventSize], wire.WordSize)
	if key.Type != evKeyType || key.Code != btnA || key.Value != 1 {
		t.Fatalf("key event decoded as %+v", key)
	}
	syn := wire.DecodeInputEvent(buf[wire.NativeInputEventSize:], wire.WordSize)
	if syn.Type != evSynType {
		t.Fatalf("sync event decoded as %+v", syn)
	}

	p.SendAxis(0, 1)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read axis pair: %v", err)
	}
	abs := wire.DecodeInputEvent(buf[:wire.NativeInputEventSize], wire.WordSize)
	if abs.Type != evAbsType || abs.Code != absX || abs.Value != axisMax {
		t.Fatalf("abs event decoded as %+v", abs)
	}
}

func TestPadRejectsBadArchByte(t *testing.T) {
	p := startPad(t, StreamJoystick)

	conn, err := net.Dial("unix", p.SocketPath())
	if err != nil {
		t.Fatalf("dial pad: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	raw := make([]byte, wire.ConfigSize)
	if _, err := io.ReadFull(conn, raw); err != nil {
		t.Fatalf("read config: %v", err)
	}
	if _, err := conn.Write([]byte{7}); err != nil {
		t.Fatalf("send bogus arch byte: %v", err)
	}

	// The pad drops us instead of streaming.
	if _, err := io.ReadAll(conn); err != nil {
		t.Fatalf("connection should close cleanly, got %v", err)
	}
	if n := p.ClientCount(); n != 0 {
		t.Fatalf("pad kept %d clients after a bad handshake", n)
	}
}

func TestPadStopRemovesSocket(t *testing.T) {
	p := startPad(t, StreamJoystick)
	path := p.SocketPath()
	p.Stop()
	if _, err := net.Dial("unix", path); err == nil {
		t.Fatal("socket still accepting after stop")
	}
}
