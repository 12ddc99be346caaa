// joyshimd serves emulated gamepads over the unix sockets the
// interposer connects to, registers the synthetic devices in the udev
// registry, and optionally accepts controller state from remote
// clients over websockets.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/joyshim/joyshim/pkg/assets"
	"github.com/joyshim/joyshim/pkg/config"
	"github.com/joyshim/joyshim/pkg/identity"
	"github.com/joyshim/joyshim/pkg/producer"
	"github.com/joyshim/joyshim/pkg/remote"
	"github.com/joyshim/joyshim/pkg/udev"
)

const iniName = "joyshim"

// ensureIni writes the embedded default config next to the executable
// if none exists yet.
func ensureIni() string {
	exePath, _ := os.Executable()
	iniPath := os.Getenv(config.UserConfigEnv)
	if iniPath == "" {
		iniPath = filepath.Join(filepath.Dir(exePath), iniName+".ini")
	}

	if _, err := os.Stat(iniPath); os.IsNotExist(err) {
		if err := os.WriteFile(iniPath, assets.DefaultIni, 0644); err != nil {
			fmt.Fprintln(os.Stderr, "[MAIN] Failed to create default INI:", err)
			os.Exit(1)
		}
		log.Println("[MAIN] Generated default INI at", iniPath)
	}
	return iniPath
}

func setupLogging(cfg *config.UserConfig) {
	if cfg.Daemon.LogFile == "" {
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   cfg.Daemon.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}))
}

// buildPads creates a js+event pad pair per controller slot, socket
// names matching what the interposer dials.
func buildPads(cfg *config.UserConfig) []*producer.Set {
	sets := make([]*producer.Set, 0, cfg.Daemon.Pads)
	for i := 0; i < cfg.Daemon.Pads; i++ {
		js := producer.NewPad(
			filepath.Join(cfg.Daemon.SocketDir, fmt.Sprintf("joyshim_js%d.sock", i)),
			producer.StreamJoystick, producer.XboxPad())
		ev := producer.NewPad(
			filepath.Join(cfg.Daemon.SocketDir, fmt.Sprintf("joyshim_event%d.sock", 1000+i)),
			producer.StreamEvent, producer.XboxPad())
		sets = append(sets, &producer.Set{Pads: []*producer.Pad{js, ev}})
	}
	return sets
}

// registerDevices records the emulated device nodes in the registry so
// enumeration through it matches what the interposer serves.
func registerDevices(registry *udev.Registry, pads int) error {
	for i := 0; i < pads; i++ {
		js := udev.Device{
			Path:      fmt.Sprintf("/dev/input/js%d", i),
			Subsystem: "input",
			Name:      fmt.Sprintf("js%d", i),
			Properties: map[string]string{
				"ID_INPUT":          "1",
				"ID_INPUT_JOYSTICK": "1",
			},
			Sysattrs: map[string]string{"name": identity.DeviceName},
		}
		ev := udev.Device{
			Path:      fmt.Sprintf("/dev/input/event%d", 1000+i),
			Subsystem: "input",
			Name:      fmt.Sprintf("event%d", 1000+i),
			Properties: map[string]string{
				"ID_INPUT":          "1",
				"ID_INPUT_JOYSTICK": "1",
			},
			Sysattrs: map[string]string{
				"name":       identity.DeviceName,
				"id/bustype": fmt.Sprintf("%04x", identity.BusUSB),
				"id/vendor":  fmt.Sprintf("%04x", identity.VendorID),
				"id/product": fmt.Sprintf("%04x", identity.ProductID),
				"id/version": fmt.Sprintf("%04x", identity.VersionID),
			},
		}
		for _, d := range []udev.Device{js, ev} {
			if err := registry.Register(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// watchConfig reloads the ini when it changes on disk. Structural
// settings (pad count, socket dir) need a restart; the reload only
// refreshes what can change live.
func watchConfig(ctx context.Context, iniPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(iniPath)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != iniPath || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, err := config.LoadUserConfig(iniName, config.Default()); err != nil {
				log.Println("[MAIN] Config reload failed:", err)
				continue
			}
			log.Println("[MAIN] Config reloaded; pad/socket changes take effect on restart")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Println("[MAIN] Config watch error:", err)
		}
	}
}

func main() {
	godotenv.Load()
	iniPath := ensureIni()

	cfg, err := config.LoadUserConfig(iniName, config.Default())
	if err != nil {
		log.Println("[MAIN] Config load error, using defaults:", err)
	}
	setupLogging(cfg)
	log.Println("[MAIN] Loaded config from:", iniPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := udev.Open(cfg.Daemon.RegistryDb)
	if err != nil {
		log.Fatalln("[MAIN] Cannot open device registry:", err)
	}
	defer registry.Close()
	if err := registerDevices(registry, cfg.Daemon.Pads); err != nil {
		log.Fatalln("[MAIN] Device registration failed:", err)
	}

	sets := buildPads(cfg)
	if cfg.Mirror.Enable {
		mirror, err := producer.NewMirror(identity.DeviceName, identity.VendorID, identity.ProductID)
		if err != nil {
			log.Println("[MAIN] Mirror disabled:", err)
		} else {
			defer mirror.Close()
			sets[0].Pads[0].AttachMirror(mirror)
		}
	}
	for i, set := range sets {
		if err := set.Start(); err != nil {
			log.Fatalf("[MAIN] Pad %d failed to start: %v", i, err)
		}
		defer set.Stop()
	}
	log.Printf("[MAIN] Serving %d controller(s) from %s", len(sets), cfg.Daemon.SocketDir)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Remote.Enable {
		sinks := make([]remote.PadSink, len(sets))
		for i, set := range sets {
			sinks[i] = set
		}
		srv := &http.Server{
			Addr:    cfg.Remote.Listen,
			Handler: remote.NewServer(sinks, registry, cfg.Remote.AllowedOrigins).Handler(),
		}
		g.Go(func() error {
			log.Println("[MAIN] Remote ingest listening on", cfg.Remote.Listen)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error { return watchConfig(ctx, iniPath) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalln("[MAIN] Daemon exited with error:", err)
	}
	log.Println("[MAIN] Shutdown complete")
}
