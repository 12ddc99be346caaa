package interposer

import (
	"golang.org/x/sys/unix"

	"github.com/joyshim/joyshim/pkg/ioctlreq"
)

// Ioctl interposes ioctl(2). Interposed descriptors are answered by the
// ABI emulator matching the slot's kind; everything else forwards to
// the real ioctl.
//
// Return convention mirrors the kernel's: the caller distinguishes
// success and failure purely by return sign. A handler that fails
// without naming an error gets ENOTTY; a handler that succeeds has any
// stale error discarded.
func Ioctl(fd int, req uint32, arg []byte) (int, error) {
	s := lookupFd(fd)
	if s == nil {
		if sys.Ioctl == nil {
			alertf("real ioctl unavailable, failing ioctl(%d, %#x)", fd, req)
			return -1, unix.EFAULT
		}
		return sys.Ioctl(fd, req, arg)
	}
	defer s.mu.Unlock()

	r := ioctlreq.Request(req)
	var (
		ret int
		err error
	)
	switch s.kind {
	case KindJoystick:
		ret, err = s.jsIoctl(r, arg)
	case KindEvent:
		ret, err = s.evIoctl(r, arg)
	}
	return normalize(ret, err)
}

func normalize(ret int, err error) (int, error) {
	if ret < 0 {
		if err == nil {
			err = unix.ENOTTY
		}
		return -1, err
	}
	return ret, nil
}

// copyCString copies src into dst as a null-terminated C string bounded
// by size, and returns the number of string bytes copied (excluding the
// terminator). A zero-size buffer copies nothing.
func copyCString(dst []byte, src string, size int) int {
	if size > len(dst) {
		size = len(dst)
	}
	if size <= 0 {
		return 0
	}
	n := len(src)
	if n > size-1 {
		n = size - 1
	}
	copy(dst[:n], src[:n])
	dst[n] = 0
	return n
}

// setBit sets bit i in a little-endian byte bitmap, ignoring bits past
// the end of the buffer. Mapped codes come off the wire and cannot be
// trusted to fit.
func setBit(buf []byte, i int) {
	if i < 0 || i/8 >= len(buf) {
		return
	}
	buf[i/8] |= 1 << (i % 8)
}

// zeroFill clears the first size bytes of buf (bounded) and returns how
// many were cleared.
func zeroFill(buf []byte, size int) int {
	if size > len(buf) {
		size = len(buf)
	}
	for i := 0; i < size; i++ {
		buf[i] = 0
	}
	return size
}
