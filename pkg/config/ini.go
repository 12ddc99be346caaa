package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// UserConfigEnv overrides where the ini file is looked up; by default
// it sits next to the executable.
const UserConfigEnv = "JOYSHIM_INI"

// LoadUserConfig loads <name>.ini into a UserConfig, applying defaults.
func LoadUserConfig(name string, defaultConfig *UserConfig) (*UserConfig, error) {
	iniPath := os.Getenv(UserConfigEnv)

	exePath, err := os.Executable()
	if err != nil {
		return defaultConfig, err
	}
	if iniPath == "" {
		iniPath = filepath.Join(filepath.Dir(exePath), name+".ini")
	}

	// Defaults
	defaultConfig.AppPath = exePath
	defaultConfig.IniPath = iniPath
	if defaultConfig.Daemon.SocketDir == "" {
		defaultConfig.Daemon.SocketDir = "/tmp"
	}
	if defaultConfig.Daemon.RegistryDb == "" {
		defaultConfig.Daemon.RegistryDb = "/tmp/joyshim-udev.db"
	}
	if defaultConfig.Daemon.Pads == 0 {
		defaultConfig.Daemon.Pads = maxPads
	}
	if defaultConfig.Remote.Listen == "" {
		defaultConfig.Remote.Listen = ":8089"
	}
	if defaultConfig.Remote.AllowedOrigins == nil {
		defaultConfig.Remote.AllowedOrigins = []string{"*"}
	}

	// Parse INI
	cfg, err := ini.ShadowLoad(iniPath)
	if err != nil {
		return defaultConfig, err
	}

	// Normalize case-insensitive keys
	for _, section := range cfg.Sections() {
		origName := section.Name()
		lowerName := strings.ToLower(origName)
		if lowerName != origName {
			dest := cfg.Section(lowerName)
			for _, key := range section.Keys() {
				dest.NewKey(strings.ToLower(key.Name()), key.Value())
			}
		}
		for _, key := range section.Keys() {
			lowerKey := strings.ToLower(key.Name())
			if lowerKey != key.Name() {
				section.NewKey(lowerKey, key.Value())
			}
		}
	}

	if err := cfg.MapTo(defaultConfig); err != nil {
		return defaultConfig, err
	}

	// Normalize comma-joined lists
	normalizeList := func(raw []string) []string {
		var result []string
		for _, v := range raw {
			for _, p := range strings.Split(v, ",") {
				if trimmed := strings.TrimSpace(p); trimmed != "" {
					result = append(result, trimmed)
				}
			}
		}
		return result
	}
	defaultConfig.Remote.AllowedOrigins = normalizeList(defaultConfig.Remote.AllowedOrigins)

	if defaultConfig.Daemon.Pads < 1 {
		defaultConfig.Daemon.Pads = 1
	}
	if defaultConfig.Daemon.Pads > maxPads {
		defaultConfig.Daemon.Pads = maxPads
	}

	return defaultConfig, nil
}
