// Package ioctlreq decodes and builds Linux ioctl request codes.
//
// A request packs four fields: direction (2 bits), payload size (14
// bits), family type tag (8 bits) and command number (8 bits).
// Decoding them once up front keeps the emulator dispatch tables free
// of bit arithmetic.
package ioctlreq

const (
	nrBits   = 8
	typeBits = 8
	sizeBits = 14

	nrShift   = 0
	typeShift = nrShift + nrBits
	sizeShift = typeShift + typeBits
	dirShift  = sizeShift + sizeBits
)

// Direction values of a request.
const (
	DirNone  = 0x0
	DirWrite = 0x1 // application writes, driver reads
	DirRead  = 0x2 // driver writes, application reads
)

// Request is a raw ioctl request code.
type Request uint32

// Dir returns the transfer direction bits.
func (r Request) Dir() uint32 { return uint32(r>>dirShift) & 0x3 }

// Family returns the type tag, conventionally an ASCII character
// identifying the driver family ('j' legacy joystick, 'E' evdev).
func (r Request) Family() byte { return byte(r >> typeShift) }

// Nr returns the command number within the family.
func (r Request) Nr() uint8 { return uint8(r >> nrShift) }

// Size returns the payload size embedded in the request.
func (r Request) Size() int { return int(uint32(r>>sizeShift) & (1<<sizeBits - 1)) }

func code(dir uint32, family byte, nr uint8, size int) Request {
	return Request(dir<<dirShift | uint32(size)<<sizeShift |
		uint32(family)<<typeShift | uint32(nr)<<nrShift)
}

// IO builds a request with no payload.
func IO(family byte, nr uint8) Request { return code(DirNone, family, nr, 0) }

// IOR builds a read request for a size-byte payload.
func IOR(family byte, nr uint8, size int) Request { return code(DirRead, family, nr, size) }

// IOW builds a write request for a size-byte payload.
func IOW(family byte, nr uint8, size int) Request { return code(DirWrite, family, nr, size) }

// IOWR builds a read-write request for a size-byte payload.
func IOWR(family byte, nr uint8, size int) Request {
	return code(DirRead|DirWrite, family, nr, size)
}
