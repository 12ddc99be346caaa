package config

// --- Config Structs ---

// DaemonConfig controls the core daemon: where pad sockets live, where
// the device registry database goes, and optional log rotation.
type DaemonConfig struct {
	SocketDir  string `ini:"socketdir,omitempty"`
	RegistryDb string `ini:"registrydb,omitempty"`
	LogFile    string `ini:"logfile,omitempty"`
	Pads       int    `ini:"pads,omitempty"`
}

// RemoteConfig controls the HTTP/websocket ingest endpoint.
type RemoteConfig struct {
	Enable         bool     `ini:"enable,omitempty"`
	Listen         string   `ini:"listen,omitempty"`
	AllowedOrigins []string `ini:"allowed_origins,omitempty" delim:","`
}

// MirrorConfig controls the optional kernel uinput mirror.
type MirrorConfig struct {
	Enable bool `ini:"enable,omitempty"`
}

type UserConfig struct {
	AppPath string `ini:"-"`
	IniPath string `ini:"-"`

	Daemon DaemonConfig `ini:"daemon,omitempty"`
	Remote RemoteConfig `ini:"remote,omitempty"`
	Mirror MirrorConfig `ini:"mirror,omitempty"`
}

// maxPads is the size of the fixed device pool; the config cannot ask
// for more.
const maxPads = 4

func Default() *UserConfig {
	return &UserConfig{
		Daemon: DaemonConfig{
			SocketDir:  "/tmp",
			RegistryDb: "/tmp/joyshim-udev.db",
			Pads:       maxPads,
		},
		Remote: RemoteConfig{
			Listen:         ":8089",
			AllowedOrigins: []string{"*"},
		},
	}
}
