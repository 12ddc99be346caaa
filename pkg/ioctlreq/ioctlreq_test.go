package ioctlreq

import "testing"

func TestDecodeKnownCodes(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		dir    uint32
		family byte
		nr     uint8
		size   int
	}{
		// JSIOCGVERSION = _IOR('j', 0x01, __u32)
		{"JSIOCGVERSION", 0x80046a01, DirRead, 'j', 0x01, 4},
		// JSIOCGAXES = _IOR('j', 0x11, __u8)
		{"JSIOCGAXES", 0x80016a11, DirRead, 'j', 0x11, 1},
		// JSIOCGNAME(128) = _IOC(_IOC_READ, 'j', 0x13, 128)
		{"JSIOCGNAME(128)", 0x80806a13, DirRead, 'j', 0x13, 128},
		// EVIOCGID = _IOR('E', 0x02, struct input_id)
		{"EVIOCGID", 0x80084502, DirRead, 'E', 0x02, 8},
		// EVIOCGABS(ABS_Z) = _IOR('E', 0x40+2, struct input_absinfo)
		{"EVIOCGABS(2)", 0x80184542, DirRead, 'E', 0x42, 24},
		// EVIOCGRAB = _IOW('E', 0x90, int)
		{"EVIOCGRAB", 0x40044590, DirWrite, 'E', 0x90, 4},
	}
	for _, tc := range tests {
		if got := tc.req.Dir(); got != tc.dir {
			t.Errorf("%s: dir = %#x, want %#x", tc.name, got, tc.dir)
		}
		if got := tc.req.Family(); got != tc.family {
			t.Errorf("%s: family = %c, want %c", tc.name, got, tc.family)
		}
		if got := tc.req.Nr(); got != tc.nr {
			t.Errorf("%s: nr = %#x, want %#x", tc.name, got, tc.nr)
		}
		if got := tc.req.Size(); got != tc.size {
			t.Errorf("%s: size = %d, want %d", tc.name, got, tc.size)
		}
	}
}

func TestBuildMatchesDecode(t *testing.T) {
	req := IOR('j', 0x32, 64) // JSIOCGAXMAP
	if uint32(req) != 0x80406a32 {
		t.Fatalf("IOR('j',0x32,64) = %#x, want 0x80406a32", uint32(req))
	}
	req = IOW('E', 0x81, 4) // EVIOCRMFF
	if uint32(req) != 0x40044581 {
		t.Fatalf("IOW('E',0x81,4) = %#x, want 0x40044581", uint32(req))
	}
	if IO('U', 1) != 0x5501 {
		t.Fatalf("IO('U',1) = %#x, want 0x5501", uint32(IO('U', 1)))
	}
}
