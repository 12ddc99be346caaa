package interposer

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"

	"github.com/joyshim/joyshim/pkg/wire"
)

// Blocking-read bound: a read on a session with a silent producer
// returns ETIMEDOUT after readTimeout instead of hanging the host
// thread forever. The poll interval paces deadline checks.
var (
	readTimeout      = 2 * time.Second
	readPollInterval = 25 * time.Millisecond
)

// Read interposes read(2). On an interposed descriptor each call
// delivers exactly one whole event record or fails; records are never
// split or merged across calls. Other descriptors forward to the real
// read.
func Read(fd int, buf []byte) (int, error) {
	s := lookupFd(fd)
	if s == nil {
		if sys.Read == nil {
			alertf("real read unavailable, failing read(%d)", fd)
			return -1, unix.EFAULT
		}
		return sys.Read(fd, buf)
	}
	kind := s.kind
	path := s.devicePath
	s.mu.Unlock()

	recordSize := wire.JSEventSize
	if kind == KindEvent {
		recordSize = wire.NativeInputEventSize
	}

	if len(buf) < recordSize {
		debugf("read %s: buffer %d smaller than one %d-byte record", path, len(buf), recordSize)
		return -1, unix.EINVAL
	}

	if isNonblocking(fd) {
		return readRecordNonblock(fd, buf, recordSize, path)
	}
	return readRecordBlocking(fd, buf, recordSize, path)
}

// readRecordNonblock peeks for a complete queued record and consumes
// it, or reports would-block without consuming anything.
func readRecordNonblock(fd int, buf []byte, recordSize int, path string) (int, error) {
	n, err := peekRecord(fd, recordSize)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return -1, unix.EAGAIN
		}
		debugf("read %s: socket error: %v", path, err)
		return -1, err
	}
	switch {
	case n == 0:
		debugf("read %s: EOF, producer closed", path)
		return 0, nil
	case n < recordSize:
		if peerHungUp(fd) {
			debugf("read %s: EOF with %d of %d record bytes queued", path, n, recordSize)
			return -1, unix.EIO
		}
		return -1, unix.EAGAIN
	default:
		return consumeRecord(fd, buf, recordSize)
	}
}

// readRecordBlocking waits for a complete record under a bounded
// poll-and-retry loop measured against the monotonic clock.
func readRecordBlocking(fd int, buf []byte, recordSize int, path string) (int, error) {
	deadline := time.Now().Add(readTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			debugf("read %s: no full record within %v", path, readTimeout)
			return -1, unix.ETIMEDOUT
		}
		wait := readPollInterval
		if remaining < wait {
			wait = remaining
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		nready, err := unix.Poll(fds, int(wait.Milliseconds())+1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			debugf("read %s: poll: %v", path, err)
			return -1, err
		}
		if nready == 0 {
			continue
		}

		n, err := peekRecord(fd, recordSize)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			debugf("read %s: socket error: %v", path, err)
			return -1, err
		}
		switch {
		case n == 0:
			debugf("read %s: EOF, producer closed", path)
			return 0, nil
		case n < recordSize:
			if fds[0].Revents&unix.POLLHUP != 0 {
				debugf("read %s: EOF with %d of %d record bytes queued", path, n, recordSize)
				return -1, unix.EIO
			}
			continue
		default:
			return consumeRecord(fd, buf, recordSize)
		}
	}
}

// peekRecord returns how many of the next recordSize bytes are queued
// without consuming them.
func peekRecord(fd, recordSize int) (int, error) {
	tmp := make([]byte, recordSize)
	n, _, err := unix.Recvfrom(fd, tmp, unix.MSG_PEEK)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func consumeRecord(fd int, buf []byte, recordSize int) (int, error) {
	n, _, err := unix.Recvfrom(fd, buf[:recordSize], 0)
	if err != nil {
		return -1, err
	}
	return n, nil
}

// peerHungUp reports whether the peer closed while data may still be
// queued, distinguishing a truncated record from one still in flight.
func peerHungUp(fd int) bool {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	return err == nil && n > 0 && fds[0].Revents&unix.POLLHUP != 0
}
