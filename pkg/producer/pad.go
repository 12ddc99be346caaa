package producer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/joyshim/joyshim/pkg/wire"
)

// StreamKind selects the record layout a pad's socket speaks.
type StreamKind int

const (
	// StreamJoystick serves 8-byte legacy js_event records.
	StreamJoystick StreamKind = iota
	// StreamEvent serves architecture-sized input_event records.
	StreamEvent
)

// handshakeTimeout bounds how long a freshly accepted client may take
// to return its architecture byte.
var handshakeTimeout = 5 * time.Second

// Pad serves one emulated controller on a unix socket: config
// handshake on accept, zeroed state replay, then the live event
// stream. Multiple clients may share one pad.
type Pad struct {
	socketPath string
	kind       StreamKind
	cfg        *PadConfig
	mapper     *Mapper
	wireCfg    wire.DeviceConfig

	ln net.Listener

	mu      sync.Mutex
	clients map[net.Conn]int // conn to negotiated word size
	closed  bool

	mirror *Mirror
}

func NewPad(socketPath string, kind StreamKind, cfg *PadConfig) *Pad {
	return &Pad{
		socketPath: socketPath,
		kind:       kind,
		cfg:        cfg,
		mapper:     NewMapper(cfg),
		wireCfg:    cfg.WireConfig(),
		clients:    make(map[net.Conn]int),
	}
}

// AttachMirror adds a local uinput sink that replays this pad's mapped
// events into the kernel, so native applications see them too.
func (p *Pad) AttachMirror(m *Mirror) {
	p.mirror = m
}

func (p *Pad) SocketPath() string { return p.socketPath }

// ClientCount reports how many clients completed the handshake and
// receive the live stream.
func (p *Pad) ClientCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Start binds the socket, replacing any stale one, and begins
// accepting clients.
func (p *Pad) Start() error {
	if err := os.Remove(p.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", p.socketPath, err)
	}
	ln, err := net.Listen("unix", p.socketPath)
	if err != nil {
		return fmt.Errorf("listen %s: %w", p.socketPath, err)
	}
	p.ln = ln
	log.Printf("[pad] %s listening (%d buttons, %d axes)",
		p.socketPath, len(p.cfg.ButtonMap), len(p.cfg.AxisMap))
	go p.acceptLoop()
	return nil
}

// Stop closes the listener, drops all clients and removes the socket.
func (p *Pad) Stop() {
	p.mu.Lock()
	p.closed = true
	for conn := range p.clients {
		conn.Close()
	}
	p.clients = make(map[net.Conn]int)
	p.mu.Unlock()

	if p.ln != nil {
		p.ln.Close()
	}
	os.Remove(p.socketPath)
}

func (p *Pad) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		go p.setupClient(conn)
	}
}

// setupClient runs the handshake: config record out, architecture byte
// in, then initial zeroed state, then the client joins the broadcast
// set.
func (p *Pad) setupClient(conn net.Conn) {
	conn.SetDeadline(time.Now().Add(handshakeTimeout))

	if _, err := conn.Write(wire.EncodeConfig(&p.wireCfg)); err != nil {
		log.Printf("[pad] %s: config send failed: %v", p.socketPath, err)
		conn.Close()
		return
	}

	arch := make([]byte, 1)
	if _, err := io.ReadFull(conn, arch); err != nil {
		log.Printf("[pad] %s: no architecture byte: %v", p.socketPath, err)
		conn.Close()
		return
	}
	wordSize := int(arch[0])
	if wordSize != 4 && wordSize != 8 {
		log.Printf("[pad] %s: client declared %d-byte words, dropping", p.socketPath, wordSize)
		conn.Close()
		return
	}
	conn.SetDeadline(time.Time{})

	if err := p.sendInitialState(conn, wordSize); err != nil {
		log.Printf("[pad] %s: state replay failed: %v", p.socketPath, err)
		conn.Close()
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		conn.Close()
		return
	}
	p.clients[conn] = wordSize
	n := len(p.clients)
	p.mu.Unlock()
	log.Printf("[pad] %s: client joined (%d-byte words, %d total)", p.socketPath, wordSize, n)
}

// sendInitialState replays a zero value for every button and axis so
// the client starts from known state. On the legacy stream these carry
// the kernel's init flag.
func (p *Pad) sendInitialState(conn net.Conn, wordSize int) error {
	for i := range p.cfg.ButtonMap {
		ev := padEvent{number: i}
		if _, err := conn.Write(p.encode(ev, wordSize, true)); err != nil {
			return err
		}
	}
	for i := range p.cfg.AxisMap {
		ev := padEvent{axis: true, number: i}
		if _, err := conn.Write(p.encode(ev, wordSize, true)); err != nil {
			return err
		}
	}
	return nil
}

// SendButton feeds one source button change (value 0..1) through the
// mapping and out to every client.
func (p *Pad) SendButton(num int, val float64) {
	if ev, ok := p.mapper.MapButton(num, val); ok {
		p.broadcast(ev)
	}
}

// SendAxis feeds one source axis change (value -1..1) through the
// mapping and out to every client.
func (p *Pad) SendAxis(num int, val float64) {
	if ev, ok := p.mapper.MapAxis(num, val); ok {
		p.broadcast(ev)
	}
}

func (p *Pad) broadcast(ev padEvent) {
	if p.mirror != nil {
		p.mirror.Apply(p.cfg, ev)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for conn, wordSize := range p.clients {
		if _, err := conn.Write(p.encode(ev, wordSize, false)); err != nil {
			log.Printf("[pad] %s: client dropped: %v", p.socketPath, err)
			conn.Close()
			delete(p.clients, conn)
		}
	}
}

const (
	evKeyType = 0x01
	evAbsType = 0x03
	evSynType = 0x00
)

// encode renders a pad event as one record for the pad's stream kind.
// Event-stream records carry the real input code from the maps and are
// followed by a sync report.
func (p *Pad) encode(ev padEvent, wordSize int, init bool) []byte {
	if p.kind == StreamJoystick {
		js := wire.JSEvent{Time: eventMillis(), Value: ev.value, Number: uint8(ev.number)}
		if ev.axis {
			js.Type = wire.JSEventAxis
		} else {
			js.Type = wire.JSEventButton
		}
		if init {
			js.Type |= wire.JSEventInit
		}
		return wire.EncodeJSEvent(js)
	}

	now := time.Now()
	ie := wire.InputEvent{
		Sec:   now.Unix(),
		Usec:  int64(now.Nanosecond() / 1000),
		Value: int32(ev.value),
	}
	if ev.axis {
		ie.Type = evAbsType
		ie.Code = uint16(p.cfg.AxisMap[ev.number])
	} else {
		ie.Type = evKeyType
		ie.Code = p.cfg.ButtonMap[ev.number]
	}
	syn := wire.InputEvent{Sec: ie.Sec, Usec: ie.Usec, Type: evSynType}
	return append(wire.EncodeInputEvent(ie, wordSize), wire.EncodeInputEvent(syn, wordSize)...)
}
