package interposer

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/joyshim/joyshim/pkg/identity"
	"github.com/joyshim/joyshim/pkg/ioctlreq"
	"github.com/joyshim/joyshim/pkg/wire"
)

// jsIoctl answers the legacy joystick ioctl family from session state.
// Caller holds s.mu.
func (s *slot) jsIoctl(r ioctlreq.Request, arg []byte) (int, error) {
	if r.Family() != familyJoystick {
		debugf("ioctl %s: foreign family %#x (req %#x)", s.devicePath, r.Family(), uint32(r))
		return -1, unix.ENOTTY
	}

	size := int(r.Size())
	switch r.Nr() {
	case jsNrVersion:
		if len(arg) < 4 {
			return -1, unix.EINVAL
		}
		binary.NativeEndian.PutUint32(arg, jsDriverVersion)
		return 0, nil

	case jsNrAxes:
		if len(arg) < 1 {
			return -1, unix.EINVAL
		}
		arg[0] = byte(s.config.NumAxes)
		return 0, nil

	case jsNrButtons:
		if len(arg) < 1 {
			return -1, unix.EINVAL
		}
		arg[0] = byte(s.config.NumButtons)
		return 0, nil

	case jsNrName:
		return copyCString(arg, s.deviceName(), size), nil

	case jsNrSetCorr:
		if size < corrSize || len(arg) < corrSize {
			return -1, unix.EINVAL
		}
		copy(s.corr[:], arg[:corrSize])
		return 0, nil

	case jsNrGetCorr:
		if size < corrSize || len(arg) < corrSize {
			return -1, unix.EINVAL
		}
		copy(arg[:corrSize], s.corr[:])
		return 0, nil

	case jsNrSetAxisMap, jsNrSetBtnMap:
		// The map is authoritative from the wire configuration.
		debugf("ioctl %s: rejecting map write (req %#x)", s.devicePath, uint32(r))
		return -1, unix.EPERM

	case jsNrGetAxisMap:
		n := int(s.config.NumAxes)
		if n > wire.MaxAxes {
			return -1, unix.EINVAL
		}
		if size < n || len(arg) < n {
			return -1, unix.EINVAL
		}
		copy(arg[:n], s.config.AxisMap[:n])
		return 0, nil

	case jsNrGetBtnMap:
		n := int(s.config.NumButtons)
		if n > wire.MaxButtons {
			return -1, unix.EINVAL
		}
		if size < 2*n || len(arg) < 2*n {
			return -1, unix.EINVAL
		}
		for i := 0; i < n; i++ {
			binary.NativeEndian.PutUint16(arg[2*i:], s.config.ButtonMap[i])
		}
		return 0, nil
	}

	debugf("ioctl %s: unsupported joystick request %#x", s.devicePath, uint32(r))
	return -1, unix.ENOTTY
}

// deviceName is the identifier reported to applications: the name from
// the wire configuration, or the canonical identity when the producer
// sent none.
func (s *slot) deviceName() string {
	if name := s.config.NameString(); name != "" {
		return name
	}
	return identity.DeviceName
}
