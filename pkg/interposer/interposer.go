// Package interposer redirects device calls for a fixed set of
// /dev/input joystick paths to Unix domain sockets fed by an external
// producer, emulating the legacy joystick and modern evdev character
// device ABIs over the stream. Calls touching anything else fall
// through to the real syscalls unchanged.
package interposer

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/joyshim/joyshim/pkg/wire"
)

// Kind tells which kernel ABI a slot emulates.
type Kind uint8

const (
	// KindJoystick serves the legacy /dev/input/jsN ABI.
	KindJoystick Kind = iota
	// KindEvent serves the modern /dev/input/eventN ABI.
	KindEvent
)

// The fixed pool: four legacy pads and four event pads. High event
// numbers avoid colliding with real kernel devices.
const (
	numJoystickSlots = 4
	numEventSlots    = 4
	numSlots         = numJoystickSlots + numEventSlots
)

// socketDir is where the producer creates its listening sockets.
var socketDir = "/tmp"

// slot is one entry in the pool: an interposed device path, its backing
// socket path and the live session state, if any. devicePath, socketPath
// and kind never change after init; mu guards the rest.
type slot struct {
	mu         sync.Mutex
	kind       Kind
	index      int
	devicePath string
	socketPath string

	fd           int // connected socket, or -1
	openFlags    int
	corr         [corrSize]byte
	config       wire.DeviceConfig
	nextEffectID int32
}

var slots = newSlots()

func newSlots() [numSlots]*slot {
	var pool [numSlots]*slot
	for i := 0; i < numJoystickSlots; i++ {
		pool[i] = &slot{
			kind:       KindJoystick,
			index:      i,
			devicePath: fmt.Sprintf("/dev/input/js%d", i),
			socketPath: fmt.Sprintf("%s/joyshim_js%d.sock", socketDir, i),
			fd:         -1,
		}
	}
	for i := 0; i < numEventSlots; i++ {
		pool[numJoystickSlots+i] = &slot{
			kind:       KindEvent,
			index:      numJoystickSlots + i,
			devicePath: fmt.Sprintf("/dev/input/event%d", 1000+i),
			socketPath: fmt.Sprintf("%s/joyshim_event%d.sock", socketDir, 1000+i),
			fd:         -1,
		}
	}
	return pool
}

// DevicePaths returns the interposed device paths, legacy slots first.
func DevicePaths() []string {
	paths := make([]string, 0, numSlots)
	for _, s := range slots {
		paths = append(paths, s.devicePath)
	}
	return paths
}

// SocketPathFor returns the backing socket path for an interposed
// device path, or "" if the path is not interposed.
func SocketPathFor(devicePath string) string {
	if s := lookupPath(devicePath); s != nil {
		return s.socketPath
	}
	return ""
}

// evIndex is the slot's ordinal among the event slots, used to
// synthesize phys/uniq strings.
func (s *slot) evIndex() int {
	return s.index - numJoystickSlots
}

func lookupPath(path string) *slot {
	for _, s := range slots {
		if s.devicePath == path {
			return s
		}
	}
	return nil
}

// lookupFd returns the slot whose live session owns fd, with its mutex
// held; the caller must unlock it. Slots without a session never match.
func lookupFd(fd int) *slot {
	if fd < 0 {
		return nil
	}
	for _, s := range slots {
		s.mu.Lock()
		if s.fd == fd {
			return s
		}
		s.mu.Unlock()
	}
	return nil
}

// Open interposes open(2). A matching path yields the slot's socket
// descriptor, connecting and handshaking first if the slot is idle; a
// second open before close returns the same descriptor. Everything
// else forwards to the real open.
func Open(path string, flags int, mode uint32) (int, error) {
	s := lookupPath(path)
	if s == nil {
		if sys.Open == nil {
			alertf("real open unavailable, failing open(%q)", path)
			return -1, unix.EFAULT
		}
		return sys.Open(path, flags, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fd != -1 {
		debugf("open %s: reusing live session fd %d", path, s.fd)
		return s.fd, nil
	}

	s.openFlags = flags
	if err := s.connect(); err != nil {
		debugf("open %s: session setup failed: %v", path, err)
		s.openFlags = 0
		return -1, unix.EIO
	}

	if flags&unix.O_NONBLOCK != 0 {
		if err := setNonblocking(s.fd); err != nil {
			debugf("open %s: could not honor O_NONBLOCK on fd %d: %v", path, s.fd, err)
		}
	}
	debugf("open %s: interposed as socket fd %d (flags %#x)", path, s.fd, flags)
	return s.fd, nil
}

// Open64 interposes open64(2); it is the same operation here.
func Open64(path string, flags int, mode uint32) (int, error) {
	return Open(path, flags, mode)
}

// Close interposes close(2). Closing an interposed descriptor tears
// down the session; the slot is reusable afterwards even if the
// underlying close failed, so a wedged descriptor cannot pin the slot.
func Close(fd int) error {
	if sys.Close == nil {
		alertf("real close unavailable, failing close(%d)", fd)
		return unix.EFAULT
	}
	s := lookupFd(fd)
	if s == nil {
		return sys.Close(fd)
	}
	defer s.mu.Unlock()

	err := sys.Close(fd)
	if err != nil {
		debugf("close %s: real close of fd %d failed: %v (slot reset anyway)", s.devicePath, fd, err)
	}
	s.reset()
	debugf("close %s: session closed, slot available", s.devicePath)
	return err
}

// reset clears session state. Caller holds s.mu.
func (s *slot) reset() {
	s.fd = -1
	s.openFlags = 0
	s.corr = [corrSize]byte{}
	s.config = wire.DeviceConfig{}
	s.nextEffectID = 0
}

// Access interposes access(2): interposed paths always appear
// accessible so probing applications proceed to open them.
func Access(path string, mode uint32) error {
	if lookupPath(path) != nil {
		debugf("access %s: forcing success", path)
		return nil
	}
	if sys.Access == nil {
		alertf("real access unavailable, failing access(%q)", path)
		return unix.EFAULT
	}
	return sys.Access(path, mode)
}

// EpollCtl interposes epoll_ctl(2). Registering or re-arming an
// interposed descriptor forces the socket non-blocking first: event
// loops assume registered fds never block, and a blocking recv inside
// read() would starve them.
func EpollCtl(epfd, op, fd int, event *unix.EpollEvent) error {
	if sys.EpollCtl == nil {
		alertf("real epoll_ctl unavailable, failing epoll_ctl(%d)", epfd)
		return unix.EFAULT
	}
	if op == unix.EPOLL_CTL_ADD || op == unix.EPOLL_CTL_MOD {
		if s := lookupFd(fd); s != nil {
			if err := setNonblocking(fd); err != nil {
				debugf("epoll_ctl %s: could not force O_NONBLOCK on fd %d: %v", s.devicePath, fd, err)
			}
			s.mu.Unlock()
		}
	}
	return sys.EpollCtl(epfd, op, fd, event)
}
