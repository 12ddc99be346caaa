package interposer

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/joyshim/joyshim/pkg/identity"
	"github.com/joyshim/joyshim/pkg/ioctlreq"
)

// evIoctl answers the modern input-event ioctl family from session
// state. Legacy joystick requests arriving on an event descriptor are
// delegated to the joystick emulator; some applications probe both ABIs
// through whichever node they opened. Caller holds s.mu.
func (s *slot) evIoctl(r ioctlreq.Request, arg []byte) (int, error) {
	switch r.Family() {
	case familyEvdev:
	case familyJoystick:
		return s.jsCompatIoctl(r, arg)
	default:
		debugf("ioctl %s: foreign family %#x (req %#x)", s.devicePath, r.Family(), uint32(r))
		return -1, unix.ENOTTY
	}

	nr := r.Nr()
	size := int(r.Size())

	// Contiguous ranges first; exact numbers would shadow them.
	if nr >= evNrAbsBase && nr <= evNrAbsBase+absMax {
		return s.absInfo(int(nr-evNrAbsBase), arg)
	}
	if nr >= evNrBitBase && nr <= evNrBitBase+evMax {
		return s.capabilityBits(int(nr-evNrBitBase), arg, size)
	}

	switch nr {
	case evNrVersion:
		if len(arg) < 4 {
			return -1, unix.EINVAL
		}
		binary.NativeEndian.PutUint32(arg, evdevDriverVersion)
		return 0, nil

	case evNrID:
		if len(arg) < inputIDSize {
			return -1, unix.EINVAL
		}
		binary.NativeEndian.PutUint16(arg[0:], identity.BusUSB)
		binary.NativeEndian.PutUint16(arg[2:], identity.VendorID)
		binary.NativeEndian.PutUint16(arg[4:], identity.ProductID)
		binary.NativeEndian.PutUint16(arg[6:], identity.VersionID)
		return 0, nil

	case evNrName:
		return copyCString(arg, identity.DeviceName, size), nil

	case evNrPhys:
		return copyCString(arg, fmt.Sprintf("usb-joyshim/input%d", s.evIndex()), size), nil

	case evNrUniq:
		return copyCString(arg, fmt.Sprintf("joyshim-%02d", s.evIndex()), size), nil

	case evNrProp, evNrKeyState, evNrLEDState, evNrSwState:
		// No properties, no keys held, nothing lit.
		return zeroFill(arg, size), nil

	case evNrSendFF:
		return s.uploadEffect(arg)

	case evNrRemoveFF:
		return 0, nil

	case evNrEffects:
		if len(arg) < 4 {
			return -1, unix.EINVAL
		}
		binary.NativeEndian.PutUint32(arg, maxFFEffects)
		return 0, nil

	case evNrGrab:
		// No exclusivity to enforce on a private socket.
		return 0, nil
	}

	debugf("ioctl %s: unsupported evdev request %#x", s.devicePath, uint32(r))
	return -1, unix.ENOTTY
}

// jsCompatIoctl serves a legacy joystick request issued on an event
// descriptor.
func (s *slot) jsCompatIoctl(r ioctlreq.Request, arg []byte) (int, error) {
	debugf("ioctl %s: joystick request %#x on event device", s.devicePath, uint32(r))
	return s.jsIoctl(r, arg)
}

// absInfo fills a struct input_absinfo for one absolute axis. Ranges
// come from the axis category: sticks are signed 16-bit, triggers run
// 0..255, hat axes are three-state.
func (s *slot) absInfo(axis int, arg []byte) (int, error) {
	if len(arg) < absInfoSize {
		return -1, unix.EINVAL
	}

	var min, max, fuzz, flat int32
	switch {
	case axis == absZ || axis == absRZ:
		min, max = absTriggerMin, absTriggerMax
	case axis >= absHat0X && axis <= absHat3Y:
		min, max = absHatMin, absHatMax
	default:
		min, max = absAxisMin, absAxisMax
		fuzz, flat = 16, 128
	}

	binary.NativeEndian.PutUint32(arg[0:], 0) // value
	binary.NativeEndian.PutUint32(arg[4:], uint32(min))
	binary.NativeEndian.PutUint32(arg[8:], uint32(max))
	binary.NativeEndian.PutUint32(arg[12:], uint32(fuzz))
	binary.NativeEndian.PutUint32(arg[16:], uint32(flat))
	binary.NativeEndian.PutUint32(arg[20:], 0) // resolution
	return 0, nil
}

// capabilityBits fills the capability bitmap for one event type. The
// success value is the buffer length, matching the kernel.
func (s *slot) capabilityBits(evType int, arg []byte, size int) (int, error) {
	n := zeroFill(arg, size)
	buf := arg[:n]

	switch evType {
	case 0:
		// The event types themselves.
		setBit(buf, evSyn)
		setBit(buf, evKey)
		setBit(buf, evAbs)
		setBit(buf, evFF)
	case evKey:
		for i := 0; i < int(s.config.NumButtons) && i < len(s.config.ButtonMap); i++ {
			setBit(buf, int(s.config.ButtonMap[i]))
		}
	case evAbs:
		for i := 0; i < int(s.config.NumAxes) && i < len(s.config.AxisMap); i++ {
			setBit(buf, int(s.config.AxisMap[i]))
		}
	case evFF:
		setBit(buf, ffRumble)
		setBit(buf, ffPeriodic)
		setBit(buf, ffSine)
	}
	return n, nil
}

// uploadEffect acknowledges a force-feedback upload. Effects are never
// played; the contract is only that the caller gets a usable id back.
// The id field is the int16 at offset 2 of struct ff_effect.
func (s *slot) uploadEffect(arg []byte) (int, error) {
	if len(arg) < 4 {
		return -1, unix.EINVAL
	}
	id := int16(binary.NativeEndian.Uint16(arg[2:]))
	if id == -1 {
		id = int16(s.nextEffectID % maxFFEffects)
		s.nextEffectID++
		binary.NativeEndian.PutUint16(arg[2:], uint16(id))
		debugf("ioctl %s: assigned force-feedback effect id %d", s.devicePath, id)
	}
	return 0, nil
}
