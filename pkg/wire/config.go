package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Capacity limits for the config record. A record claiming more than
// this is malformed, never a bigger controller.
const (
	MaxNameLen = 255
	MaxButtons = 512
	MaxAxes    = 64
)

// ConfigSize is the exact encoded size of a DeviceConfig record. Both
// ends of a socket must agree on it byte for byte; the producer writes
// exactly this many bytes immediately after accepting a connection.
//
// Layout (host-native byte order):
//
//	name        [255]byte
//	_           1 byte alignment pad
//	vendor      uint16
//	product     uint16
//	version     uint16
//	numButtons  uint16
//	numAxes     uint16
//	buttonMap   [512]uint16
//	axisMap     [64]uint8
//	_           6 byte tail pad
const ConfigSize = 256 + 10 + MaxButtons*2 + MaxAxes + 6

// DeviceConfig describes one controller: its identity and how logical
// button/axis indices map to kernel input codes. It is received once
// per connection, before any events flow.
type DeviceConfig struct {
	Name       [MaxNameLen]byte
	Vendor     uint16
	Product    uint16
	Version    uint16
	NumButtons uint16
	NumAxes    uint16
	ButtonMap  [MaxButtons]uint16
	AxisMap    [MaxAxes]uint8
}

// NameString returns the controller name up to the first NUL.
func (c *DeviceConfig) NameString() string {
	for i, b := range c.Name {
		if b == 0 {
			return string(c.Name[:i])
		}
	}
	return string(c.Name[:])
}

// SetName stores name truncated to the record's capacity, always
// leaving a terminating NUL.
func (c *DeviceConfig) SetName(name string) {
	n := copy(c.Name[:MaxNameLen-1], name)
	for i := n; i < MaxNameLen; i++ {
		c.Name[i] = 0
	}
}

// Validate rejects counts that exceed the fixed map capacities. Such a
// record is a protocol violation, not a recoverable condition.
func (c *DeviceConfig) Validate() error {
	if int(c.NumButtons) > MaxButtons {
		return fmt.Errorf("config claims %d buttons, capacity is %d", c.NumButtons, MaxButtons)
	}
	if int(c.NumAxes) > MaxAxes {
		return fmt.Errorf("config claims %d axes, capacity is %d", c.NumAxes, MaxAxes)
	}
	return nil
}

// EncodeConfig serializes cfg into its fixed wire layout.
func EncodeConfig(cfg *DeviceConfig) []byte {
	buf := make([]byte, ConfigSize)
	copy(buf[0:MaxNameLen], cfg.Name[:])
	off := 256
	binary.NativeEndian.PutUint16(buf[off:], cfg.Vendor)
	binary.NativeEndian.PutUint16(buf[off+2:], cfg.Product)
	binary.NativeEndian.PutUint16(buf[off+4:], cfg.Version)
	binary.NativeEndian.PutUint16(buf[off+6:], cfg.NumButtons)
	binary.NativeEndian.PutUint16(buf[off+8:], cfg.NumAxes)
	off += 10
	for i := 0; i < MaxButtons; i++ {
		binary.NativeEndian.PutUint16(buf[off+i*2:], cfg.ButtonMap[i])
	}
	off += MaxButtons * 2
	copy(buf[off:off+MaxAxes], cfg.AxisMap[:])
	return buf
}

// DecodeConfig parses a full wire record. The name field is forced to
// NUL-terminate within bounds in case the producer failed to.
func DecodeConfig(buf []byte, cfg *DeviceConfig) error {
	if len(buf) < ConfigSize {
		return io.ErrUnexpectedEOF
	}
	copy(cfg.Name[:], buf[0:MaxNameLen])
	cfg.Name[MaxNameLen-1] = 0
	off := 256
	cfg.Vendor = binary.NativeEndian.Uint16(buf[off:])
	cfg.Product = binary.NativeEndian.Uint16(buf[off+2:])
	cfg.Version = binary.NativeEndian.Uint16(buf[off+4:])
	cfg.NumButtons = binary.NativeEndian.Uint16(buf[off+6:])
	cfg.NumAxes = binary.NativeEndian.Uint16(buf[off+8:])
	off += 10
	for i := 0; i < MaxButtons; i++ {
		cfg.ButtonMap[i] = binary.NativeEndian.Uint16(buf[off+i*2:])
	}
	off += MaxButtons * 2
	copy(cfg.AxisMap[:], buf[off:off+MaxAxes])
	return nil
}
