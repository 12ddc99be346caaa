package producer

import (
	"math"
	"time"

	"github.com/joyshim/joyshim/pkg/identity"
	"github.com/joyshim/joyshim/pkg/wire"
)

// Button and axis codes from linux/input-event-codes.h, as reported by
// the kernel xpad driver for an Xbox 360 pad.
const (
	btnA      = 0x130
	btnB      = 0x131
	btnX      = 0x133
	btnY      = 0x134
	btnTL     = 0x136
	btnTR     = 0x137
	btnSelect = 0x13a
	btnStart  = 0x13b
	btnMode   = 0x13c
	btnThumbL = 0x13d
	btnThumbR = 0x13e

	absX     = 0x00
	absY     = 0x01
	absZ     = 0x02
	absRX    = 0x03
	absRY    = 0x04
	absRZ    = 0x05
	absHat0X = 0x10
	absHat0Y = 0x11
)

const (
	axisMin = -32767
	axisMax = 32767
)

// PadConfig describes one emulated pad: the identity and code maps sent
// over the wire, plus the remapping from the browser-style controller
// layout (17 buttons, 4 axes) to the xpad layout (11 buttons, 8 axes).
type PadConfig struct {
	Name    string
	Vendor  uint16
	Product uint16
	Version uint16

	ButtonMap []uint16
	AxisMap   []uint8

	// AxesToButtons maps a target axis to the source buttons that
	// drive it: one entry for a trigger, positive-then-negative for a
	// hat direction pair.
	AxesToButtons map[int][]int
	AxisRemap     map[int]int
	ButtonRemap   map[int]int
	TriggerAxes   []int
}

// XboxPad is the standard mapping: browsers expose a 17-button
// 4-axis controller, the Linux xpad driver an 11-button 8-axis one.
func XboxPad() *PadConfig {
	return &PadConfig{
		Name:    identity.DeviceName,
		Vendor:  identity.VendorID,
		Product: identity.ProductID,
		Version: identity.VersionID,
		ButtonMap: []uint16{
			btnA, btnB, btnX, btnY, btnTL, btnTR,
			btnSelect, btnStart, btnMode, btnThumbL, btnThumbR,
		},
		AxisMap: []uint8{
			absX, absY, absZ, absRX, absRY, absRZ, absHat0X, absHat0Y,
		},
		AxesToButtons: map[int][]int{
			2: {6},      // L2 drives ABS_Z
			5: {7},      // R2 drives ABS_RZ
			6: {15, 14}, // DPad Right / DPad Left drive ABS_HAT0X
			7: {13, 12}, // DPad Down / DPad Up drive ABS_HAT0Y
		},
		AxisRemap: map[int]int{
			2: 3, // right stick X to ABS_RX
			3: 4, // right stick Y to ABS_RY
		},
		ButtonRemap: map[int]int{
			8:  6,  // Select
			9:  7,  // Start
			10: 9,  // L3
			11: 10, // R3
			16: 8,  // guide button
		},
		TriggerAxes: []int{2, 5},
	}
}

// WireConfig builds the handshake record announced to each client.
func (c *PadConfig) WireConfig() wire.DeviceConfig {
	var cfg wire.DeviceConfig
	cfg.SetName(c.Name)
	cfg.Vendor = c.Vendor
	cfg.Product = c.Product
	cfg.Version = c.Version
	cfg.NumButtons = uint16(len(c.ButtonMap))
	cfg.NumAxes = uint16(len(c.AxisMap))
	copy(cfg.ButtonMap[:], c.ButtonMap)
	copy(cfg.AxisMap[:], c.AxisMap)
	return cfg
}

// padEvent is one mapped controller change in the pad's own layout,
// before encoding for a particular client's stream kind.
type padEvent struct {
	axis   bool
	number int
	value  int16
}

// Mapper translates source controller input into pad events.
type Mapper struct {
	cfg *PadConfig
}

func NewMapper(cfg *PadConfig) *Mapper {
	return &Mapper{cfg: cfg}
}

// MapButton translates a source button press with value in [0,1].
// Buttons backing a trigger or hat direction become axis events.
func (m *Mapper) MapButton(num int, val float64) (padEvent, bool) {
	for axis, sources := range m.cfg.AxesToButtons {
		for i, src := range sources {
			if src != num {
				continue
			}
			if isTrigger(m.cfg.TriggerAxes, axis) {
				return padEvent{axis: true, number: axis, value: normalizeTrigger(val)}, true
			}
			sign := 1.0
			if len(sources) > 1 && i == 1 {
				sign = -1
			}
			return padEvent{axis: true, number: axis, value: normalizeAxis(val * sign)}, true
		}
	}

	mapped, ok := m.cfg.ButtonRemap[num]
	if !ok {
		mapped = num
	}
	if mapped >= len(m.cfg.ButtonMap) {
		return padEvent{}, false
	}
	var v int16
	if val > 0 {
		v = 1
	}
	return padEvent{number: mapped, value: v}, true
}

// MapAxis translates a source stick axis with value in [-1,1].
func (m *Mapper) MapAxis(num int, val float64) (padEvent, bool) {
	mapped, ok := m.cfg.AxisRemap[num]
	if !ok {
		mapped = num
	}
	if mapped >= len(m.cfg.AxisMap) {
		return padEvent{}, false
	}
	return padEvent{axis: true, number: mapped, value: normalizeAxis(val)}, true
}

// normalizeAxis scales [-1,1] onto the full signed axis range.
func normalizeAxis(val float64) int16 {
	v := math.Round(float64(axisMin) + ((val + 1) * (axisMax - axisMin) / 2))
	return clampAxis(v)
}

// normalizeTrigger scales [0,1] onto the full signed axis range, the
// convention the legacy joystick ABI uses for trigger travel.
func normalizeTrigger(val float64) int16 {
	v := math.Round(val*(axisMax-axisMin)) + axisMin
	return clampAxis(v)
}

func clampAxis(v float64) int16 {
	if v < axisMin {
		return axisMin
	}
	if v > axisMax {
		return axisMax
	}
	return int16(v)
}

func isTrigger(triggers []int, axis int) bool {
	for _, t := range triggers {
		if t == axis {
			return true
		}
	}
	return false
}

// eventMillis is the js_event timestamp: milliseconds, wrapped the way
// the kernel's 32-bit field wraps.
func eventMillis() uint32 {
	return uint32(time.Now().UnixMilli() % 1000000000)
}
