package producer

import (
	"fmt"
	"sync"

	"github.com/bendahl/uinput"
)

const uinputDev = "/dev/uinput"

// Mirror replays a pad's mapped events into a kernel uinput gamepad,
// so applications reading real devices see the same input the socket
// clients do. It needs write access to /dev/uinput.
type Mirror struct {
	device uinput.Gamepad

	mu     sync.Mutex
	sticks [4]float32 // left x/y, right x/y
}

// NewMirror creates the uinput gamepad device. The device must be
// closed when the daemon stops.
func NewMirror(name string, vendor, product uint16) (*Mirror, error) {
	gpd, err := uinput.CreateGamepad(uinputDev, []byte(name), vendor, product)
	if err != nil {
		return nil, fmt.Errorf("failed to create gamepad device: %w", err)
	}
	return &Mirror{device: gpd}, nil
}

func (m *Mirror) Close() error {
	if err := m.device.Close(); err != nil {
		return fmt.Errorf("failed to close gamepad device: %w", err)
	}
	return nil
}

// Apply pushes one mapped event into the kernel device. Button numbers
// resolve through the pad's map to real key codes; the four stick axes
// move the virtual sticks, other axes (triggers, hats) have no uinput
// stick analogue and are skipped.
func (m *Mirror) Apply(cfg *PadConfig, ev padEvent) {
	if !ev.axis {
		if ev.number >= len(cfg.ButtonMap) {
			return
		}
		code := int(cfg.ButtonMap[ev.number])
		if ev.value != 0 {
			m.device.ButtonDown(code)
		} else {
			m.device.ButtonUp(code)
		}
		return
	}

	pos := float32(ev.value) / axisMax
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.number {
	case 0:
		m.sticks[0] = pos
		m.device.LeftStickMove(m.sticks[0], m.sticks[1])
	case 1:
		m.sticks[1] = pos
		m.device.LeftStickMove(m.sticks[0], m.sticks[1])
	case 3:
		m.sticks[2] = pos
		m.device.RightStickMove(m.sticks[2], m.sticks[3])
	case 4:
		m.sticks[3] = pos
		m.device.RightStickMove(m.sticks[2], m.sticks[3])
	}
}
