package wire

import (
	"encoding/binary"
	"unsafe"
)

// Legacy joystick event type bits, from linux/joystick.h.
const (
	JSEventButton = 0x01
	JSEventAxis   = 0x02
	JSEventInit   = 0x80
)

// JSEventSize is the fixed size of a legacy /dev/input/jsN record.
const JSEventSize = 8

// JSEvent is the legacy joystick ABI event record.
type JSEvent struct {
	Time   uint32 // event timestamp in milliseconds
	Value  int16
	Type   uint8
	Number uint8
}

// EncodeJSEvent serializes e into its 8-byte wire layout.
func EncodeJSEvent(e JSEvent) []byte {
	buf := make([]byte, JSEventSize)
	binary.NativeEndian.PutUint32(buf[0:], e.Time)
	binary.NativeEndian.PutUint16(buf[4:], uint16(e.Value))
	buf[6] = e.Type
	buf[7] = e.Number
	return buf
}

// DecodeJSEvent parses an 8-byte legacy event record.
func DecodeJSEvent(buf []byte) JSEvent {
	return JSEvent{
		Time:   binary.NativeEndian.Uint32(buf[0:]),
		Value:  int16(binary.NativeEndian.Uint16(buf[4:])),
		Type:   buf[6],
		Number: buf[7],
	}
}

// InputEvent is the modern evdev ABI event record. The timestamp words
// are the native word size, so the encoded size depends on the
// architecture byte exchanged during the handshake.
type InputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// WordSize is the native pointer/word width in bytes. It is sent to the
// producer as the single-byte architecture specifier so both ends agree
// on the input_event timestamp width.
const WordSize = int(unsafe.Sizeof(uintptr(0)))

// ArchByte returns the architecture specifier sent after the config read.
func ArchByte() byte {
	return byte(WordSize)
}

// InputEventSize returns the encoded size of an evdev record for the
// given word size: two timestamp words plus type, code and value.
func InputEventSize(wordSize int) int {
	return 2*wordSize + 2 + 2 + 4
}

// NativeInputEventSize is the evdev record size on this architecture.
var NativeInputEventSize = InputEventSize(WordSize)

// EncodeInputEvent serializes e using wordSize-wide timestamp fields.
func EncodeInputEvent(e InputEvent, wordSize int) []byte {
	buf := make([]byte, InputEventSize(wordSize))
	off := 0
	if wordSize == 8 {
		binary.NativeEndian.PutUint64(buf[0:], uint64(e.Sec))
		binary.NativeEndian.PutUint64(buf[8:], uint64(e.Usec))
		off = 16
	} else {
		binary.NativeEndian.PutUint32(buf[0:], uint32(e.Sec))
		binary.NativeEndian.PutUint32(buf[4:], uint32(e.Usec))
		off = 8
	}
	binary.NativeEndian.PutUint16(buf[off:], e.Type)
	binary.NativeEndian.PutUint16(buf[off+2:], e.Code)
	binary.NativeEndian.PutUint32(buf[off+4:], uint32(e.Value))
	return buf
}

// DecodeInputEvent parses an evdev record encoded with wordSize-wide
// timestamps.
func DecodeInputEvent(buf []byte, wordSize int) InputEvent {
	var e InputEvent
	off := 0
	if wordSize == 8 {
		e.Sec = int64(binary.NativeEndian.Uint64(buf[0:]))
		e.Usec = int64(binary.NativeEndian.Uint64(buf[8:]))
		off = 16
	} else {
		e.Sec = int64(int32(binary.NativeEndian.Uint32(buf[0:])))
		e.Usec = int64(int32(binary.NativeEndian.Uint32(buf[4:])))
		off = 8
	}
	e.Type = binary.NativeEndian.Uint16(buf[off:])
	e.Code = binary.NativeEndian.Uint16(buf[off+2:])
	e.Value = int32(binary.NativeEndian.Uint32(buf[off+4:]))
	return e
}
