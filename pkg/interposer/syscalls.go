package interposer

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Syscalls is the table of real kernel entry points that calls on
// non-interposed paths and descriptors fall through to. It is resolved
// once at load; a nil entry makes the affected call fail fast with
// EFAULT instead of silently doing nothing.
type Syscalls struct {
	Open     func(path string, flags int, mode uint32) (int, error)
	Close    func(fd int) error
	Read     func(fd int, p []byte) (int, error)
	Ioctl    func(fd int, req uint32, arg []byte) (int, error)
	EpollCtl func(epfd, op, fd int, event *unix.EpollEvent) error
	Access   func(path string, mode uint32) error
}

var sys = realSyscalls()

func realSyscalls() *Syscalls {
	return &Syscalls{
		Open:     unix.Open,
		Close:    unix.Close,
		Read:     unix.Read,
		Ioctl:    realIoctl,
		EpollCtl: unix.EpollCtl,
		Access:   unix.Access,
	}
}

func realIoctl(fd int, req uint32, arg []byte) (int, error) {
	var p unsafe.Pointer
	if len(arg) > 0 {
		p = unsafe.Pointer(&arg[0])
	}
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(p))
	if errno != 0 {
		return -1, errno
	}
	return int(r), nil
}
