package interposer

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/joyshim/joyshim/pkg/wire"
)

// Connect-retry tuning: the producer may still be creating its socket
// when the application opens the device.
var (
	connectTimeout       = 250 * time.Millisecond
	connectRetryInterval = 10 * time.Millisecond
)

// configRetryInterval paces retries when the config read hits a
// spurious would-block despite the forced blocking mode.
var configRetryInterval = 100 * time.Millisecond

// fcntlInt is swappable for tests.
var fcntlInt = unix.FcntlInt

// connect establishes the slot's session: socket, connect with retry,
// config handshake, architecture byte. On any failure the socket is
// torn down and the slot left idle. Caller holds s.mu.
func (s *slot) connect() error {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}

	addr := &unix.SockaddrUnix{Name: s.socketPath}
	deadline := time.Now().Add(connectTimeout)
	for {
		err = unix.Connect(fd, addr)
		if err == nil {
			break
		}
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ECONNREFUSED) {
			if time.Now().After(deadline) {
				unix.Close(fd)
				return fmt.Errorf("connect %s: timed out after %v", s.socketPath, connectTimeout)
			}
			time.Sleep(connectRetryInterval)
			continue
		}
		unix.Close(fd)
		return fmt.Errorf("connect %s: %w", s.socketPath, err)
	}
	debugf("connected %s (fd %d)", s.socketPath, fd)

	if err := readConfig(fd, &s.config); err != nil {
		unix.Close(fd)
		s.config = wire.DeviceConfig{}
		return fmt.Errorf("config handshake on %s: %w", s.socketPath, err)
	}
	if err := s.config.Validate(); err != nil {
		unix.Close(fd)
		s.config = wire.DeviceConfig{}
		return fmt.Errorf("config handshake on %s: %w", s.socketPath, err)
	}

	if _, err := unix.Write(fd, []byte{wire.ArchByte()}); err != nil {
		unix.Close(fd)
		s.config = wire.DeviceConfig{}
		return fmt.Errorf("arch byte on %s: %w", s.socketPath, err)
	}

	debugf("session up on %s: name=%q btns=%d axes=%d",
		s.socketPath, s.config.NameString(), s.config.NumButtons, s.config.NumAxes)
	s.fd = fd
	return nil
}

// readConfig reads exactly one DeviceConfig record. The socket is
// forced blocking for the duration and its prior mode restored on
// every exit path.
func readConfig(fd int, cfg *wire.DeviceConfig) error {
	guard, err := forceBlocking(fd)
	if err != nil {
		return fmt.Errorf("force blocking mode: %w", err)
	}
	defer guard.restore()

	buf := make([]byte, wire.ConfigSize)
	total := 0
	for total < len(buf) {
		n, err := unix.Read(fd, buf[total:])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				time.Sleep(configRetryInterval)
				continue
			}
			return fmt.Errorf("read config: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("read config: peer closed after %d of %d bytes", total, len(buf))
		}
		total += n
	}
	return wire.DecodeConfig(buf, cfg)
}

// modeGuard restores a descriptor's file status flags when the scope
// that changed them exits.
type modeGuard struct {
	fd      int
	flags   int
	changed bool
}

// forceBlocking clears O_NONBLOCK on fd if set. The returned guard
// restores the original flags.
func forceBlocking(fd int) (*modeGuard, error) {
	flags, err := fcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return nil, err
	}
	g := &modeGuard{fd: fd, flags: flags}
	if flags&unix.O_NONBLOCK != 0 {
		if _, err := fcntlInt(uintptr(fd), unix.F_SETFL, flags&^unix.O_NONBLOCK); err != nil {
			return nil, err
		}
		g.changed = true
	}
	return g, nil
}

func (g *modeGuard) restore() {
	if g.changed {
		if _, err := unix.FcntlInt(uintptr(g.fd), unix.F_SETFL, g.flags); err != nil {
			debugf("could not restore file flags %#x on fd %d: %v", g.flags, g.fd, err)
		}
	}
}

// setNonblocking adds O_NONBLOCK to fd; a no-op if already set.
func setNonblocking(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return err
	}
	if flags&unix.O_NONBLOCK != 0 {
		return nil
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK)
	return err
}

func isNonblocking(fd int) bool {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	return err == nil && flags&unix.O_NONBLOCK != 0
}
