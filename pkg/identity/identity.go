// Package identity holds the canonical identity reported for the
// virtual controllers. Applications cross-check ioctl answers against
// the enumeration layer, so every subsystem must present exactly these
// values for the same logical device.
package identity

// The virtual pads present as a wired Xbox 360 controller, the most
// widely recognized identity across game engines and input libraries.
const (
	DeviceName = "Microsoft X-Box 360 pad"
	VendorID   = 0x045e
	ProductID  = 0x028e
	VersionID  = 0x0114
	BusUSB     = 0x03
)
