// Package main implements the entry point for the FaceBridge gateway.
// FaceBridge bridges native face, eye, and pose tracking streams onto a
// consumer's OSC avatar parameter surface.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/facebridge/config"
	"github.com/c360/facebridge/gateway"
	"github.com/c360/facebridge/gogo"
	"github.com/c360/facebridge/input"
	"github.com/c360/facebridge/metric"
	"github.com/c360/facebridge/storage"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "facebridge"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting FaceBridge (tracking-to-OSC gateway)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	applyOverrides(cliCfg, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	metricsRegistry := metric.NewMetricsRegistry()

	backends, err := createBackends(cfg, logger, metricsRegistry)
	if err != nil {
		return fmt.Errorf("create backends: %w", err)
	}

	store, loco, err := createStateStores(logger)
	if err != nil {
		return err
	}

	gw := gateway.New(cfg, backends, store, loco, logger, metricsRegistry.Metrics)

	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if cfg.MetricsAddr != "" {
		serveMetrics(signalCtx, cfg.MetricsAddr, metricsRegistry)
	}

	if err := gw.Run(signalCtx); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}

	slog.Info("FaceBridge shutdown complete")
	return nil
}

// loadConfig reads the configuration, deriving the default path under
// the user config dir when none was given. Validation happens after
// flag overrides are applied.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		path = filepath.Join(dir, appName, "config.json")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// createBackends builds the configured tracking receivers in config
// order, which is also their per-tick drain order.
func createBackends(cfg *config.Config, logger *slog.Logger, metrics *metric.MetricsRegistry) ([]input.Receiver, error) {
	backends := make([]input.Receiver, 0, len(cfg.Backends))
	for _, name := range cfg.Backends {
		var (
			b   input.Receiver
			err error
		)
		switch name {
		case config.BackendALVR:
			b, err = input.NewALVR(logger, metrics)
		case config.BackendBabble:
			b, err = input.NewBabble(cfg.BabblePort, logger, metrics)
		case config.BackendWiVRn:
			b, err = input.NewWiVRn(logger, metrics)
		default:
			b = input.NewDummy()
		}
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", name, err)
		}
		backends = append(backends, b)
	}
	return backends, nil
}

// createStateStores opens the persisted float memory and the idle pose
// store at their default locations.
func createStateStores(logger *slog.Logger) (*storage.Store, *gogo.Gogo, error) {
	storePath, err := storage.DefaultPath()
	if err != nil {
		return nil, nil, fmt.Errorf("locate storage path: %w", err)
	}
	gogoPath, err := gogo.DefaultPath()
	if err != nil {
		return nil, nil, fmt.Errorf("locate gogo path: %w", err)
	}

	return storage.NewStore(storePath, logger), gogo.New(gogoPath, logger), nil
}

// serveMetrics exposes the Prometheus registry at /metrics until ctx ends.
func serveMetrics(ctx context.Context, addr string, registry *metric.MetricsRegistry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("Metrics server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
