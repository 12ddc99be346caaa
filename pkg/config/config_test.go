package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUserConfig(t *testing.T) {
	iniPath := filepath.Join(t.TempDir(), "joyshim.ini")
	contents := `
[Daemon]
SocketDir = /run/joyshim
Pads = 2
LogFile = /var/log/joyshim.log

[remote]
enable = true
listen = :9000
allowed_origins = https://a.example, https://b.example

[mirror]
enable = true
`
	if err := os.WriteFile(iniPath, []byte(contents), 0644); err != nil {
		t.Fatalf("write ini: %v", err)
	}
	t.Setenv(UserConfigEnv, iniPath)

	cfg, err := LoadUserConfig("joyshim", Default())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.IniPath != iniPath {
		t.Fatalf("ini path %s, want %s", cfg.IniPath, iniPath)
	}
	if cfg.Daemon.SocketDir != "/run/joyshim" || cfg.Daemon.Pads != 2 {
		t.Fatalf("daemon section loaded as %+v", cfg.Daemon)
	}
	if !cfg.Remote.Enable || cfg.Remote.Listen != ":9000" {
		t.Fatalf("remote section loaded as %+v", cfg.Remote)
	}
	if len(cfg.Remote.AllowedOrigins) != 2 || cfg.Remote.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("allowed origins %v", cfg.Remote.AllowedOrigins)
	}
	if !cfg.Mirror.Enable {
		t.Fatal("mirror enable not loaded")
	}
}

func TestLoadUserConfigMissingFileKeepsDefaults(t *testing.T) {
	t.Setenv(UserConfigEnv, filepath.Join(t.TempDir(), "missing.ini"))

	cfg, err := LoadUserConfig("joyshim", Default())
	if err == nil {
		t.Fatal("expected an error for a missing ini file")
	}
	if cfg.Daemon.SocketDir != "/tmp" || cfg.Daemon.Pads != maxPads {
		t.Fatalf("defaults not preserved: %+v", cfg.Daemon)
	}
	if cfg.Remote.Listen != ":8089" {
		t.Fatalf("default listen address lost: %+v", cfg.Remote)
	}
}

func TestLoadUserConfigClampsPads(t *testing.T) {
	iniPath := filepath.Join(t.TempDir(), "joyshim.ini")
	if err := os.WriteFile(iniPath, []byte("[daemon]\npads = 99\n"), 0644); err != nil {
		t.Fatalf("write ini: %v", err)
	}
	t.Setenv(UserConfigEnv, iniPath)

	cfg, err := LoadUserConfig("joyshim", Default())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Daemon.Pads != maxPads {
		t.Fatalf("pads %d, want clamped to %d", cfg.Daemon.Pads, maxPads)
	}
}
