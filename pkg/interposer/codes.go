package interposer

// Kernel input constants needed by the two ABI emulators, from
// linux/joystick.h, linux/input.h and linux/input-event-codes.h.

// ioctl family tags.
const (
	familyJoystick = 'j'
	familyEvdev    = 'E'
)

// Legacy joystick ABI command numbers within family 'j'.
const (
	jsNrVersion    = 0x01
	jsNrAxes       = 0x11
	jsNrButtons    = 0x12
	jsNrName       = 0x13
	jsNrSetCorr    = 0x21
	jsNrGetCorr    = 0x22
	jsNrSetAxisMap = 0x31
	jsNrGetAxisMap = 0x32
	jsNrSetBtnMap  = 0x33
	jsNrGetBtnMap  = 0x34
)

// Evdev ABI command numbers within family 'E'. Bitmap and absinfo
// queries occupy contiguous ranges starting at their base number.
const (
	evNrVersion    = 0x01
	evNrID         = 0x02
	evNrName       = 0x06
	evNrPhys       = 0x07
	evNrUniq       = 0x08
	evNrProp       = 0x09
	evNrKeyState   = 0x18
	evNrLEDState   = 0x19
	evNrSwState    = 0x1b
	evNrBitBase    = 0x20
	evNrAbsBase    = 0x40
	evNrSendFF     = 0x80
	evNrRemoveFF   = 0x81
	evNrEffects    = 0x84
	evNrGrab       = 0x90
)

// Driver version constants reported by the emulators.
const (
	jsDriverVersion    = 0x020100
	evdevDriverVersion = 0x010001
)

// Fixed payload sizes.
const (
	corrSize    = 36 // struct js_corr
	absInfoSize = 24 // struct input_absinfo
	inputIDSize = 8  // struct input_id
)

// Event types.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03
	evFF  = 0x15
	evMax = 0x1f
)

// Code limits.
const (
	keyMax = 0x2ff
	absMax = 0x3f
	absCnt = absMax + 1
)

// Absolute axis codes with non-generic default ranges.
const (
	absX     = 0x00
	absY     = 0x01
	absZ     = 0x02
	absRX    = 0x03
	absRY    = 0x04
	absRZ    = 0x05
	absHat0X = 0x10
	absHat3Y = 0x17
)

// Force-feedback effect kinds advertised as supported.
const (
	ffRumble   = 0x50
	ffPeriodic = 0x51
	ffSine     = 0x5a
)

// maxFFEffects is the fixed answer to the max-simultaneous-effects
// query. Nothing is actually played; uploads are acknowledged only.
const maxFFEffects = 16

// Default absinfo ranges per axis category.
const (
	absAxisMin    = -32767
	absAxisMax    = 32767
	absTriggerMin = 0
	absTriggerMax = 255
	absHatMin     = -1
	absHatMax     = 1
)
