package udev

import (
	"path/filepath"
	"testing"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegisterAndLookup(t *testing.T) {
	r := openTestRegistry(t)

	d := Device{
		Path:      "/dev/input/js0",
		Subsystem: "input",
		Name:      "js0",
		Properties: map[string]string{
			"ID_INPUT_JOYSTICK": "1",
		},
		Sysattrs: map[string]string{"name": "Microsoft X-Box 360 pad"},
	}
	if err := r.Register(d); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := r.ByPath("/dev/input/js0")
	if err != nil {
		t.Fatalf("by path: %v", err)
	}
	if got.Name != "js0" || got.Properties["ID_INPUT_JOYSTICK"] != "1" {
		t.Fatalf("lookup returned %+v", got)
	}

	got, err = r.BySubsystemName("input", "js0")
	if err != nil {
		t.Fatalf("by subsystem+name: %v", err)
	}
	if got.Path != d.Path {
		t.Fatalf("subsystem lookup path %s, want %s", got.Path, d.Path)
	}
}

func TestRegisterRejectsIncomplete(t *testing.T) {
	r := openTestRegistry(t)
	if err := r.Register(Device{Path: "/dev/input/js0"}); err == nil {
		t.Fatal("register without subsystem/name must fail")
	}
}

func TestLookupMissing(t *testing.T) {
	r := openTestRegistry(t)
	if _, err := r.ByPath("/dev/input/js9"); err == nil {
		t.Fatal("lookup of unregistered path must fail")
	}
	if _, err := r.BySubsystemName("input", "event9"); err == nil {
		t.Fatal("lookup of unregistered sysname must fail")
	}
}

func TestRegisterReplacesAndListSorts(t *testing.T) {
	r := openTestRegistry(t)

	for _, d := range []Device{
		{Path: "/dev/input/event1000", Subsystem: "input", Name: "event1000"},
		{Path: "/dev/input/js1", Subsystem: "input", Name: "js1"},
		{Path: "/dev/input/js0", Subsystem: "input", Name: "js0"},
		{Path: "/dev/ttyS0", Subsystem: "tty", Name: "ttyS0"},
	} {
		if err := r.Register(d); err != nil {
			t.Fatalf("register %s: %v", d.Path, err)
		}
	}

	// Re-registering the same path replaces in place.
	if err := r.Register(Device{Path: "/dev/input/js0", Subsystem: "input", Name: "js0", Properties: map[string]string{"k": "v"}}); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	all, err := r.List("input")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("listed %d input devices, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Path >= all[i].Path {
			t.Fatalf("list not sorted: %s before %s", all[i-1].Path, all[i].Path)
		}
	}
	if all[len(all)-1].Path != "/dev/input/js1" {
		t.Fatalf("unexpected ordering: %+v", all)
	}

	everything, err := r.List("")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(everything) != 4 {
		t.Fatalf("listed %d devices, want 4", len(everything))
	}
}
