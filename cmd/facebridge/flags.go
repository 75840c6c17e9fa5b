package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/c360/facebridge/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	Debug       bool
	ShowVersion bool
	ShowHelp    bool
	Validate    bool

	// Config file overrides, applied only when the flag was given.
	Backends     []string
	ListenPort   int
	ConsumerPort int
	MetricsAddr  string
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVarP(&cfg.ConfigPath, "config", "c",
		getEnv("FACEBRIDGE_CONFIG", ""),
		"Path to configuration file, default <config-dir>/facebridge/config.json (env: FACEBRIDGE_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("FACEBRIDGE_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: FACEBRIDGE_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("FACEBRIDGE_LOG_FORMAT", "text"),
		"Log format: json, text (env: FACEBRIDGE_LOG_FORMAT)")

	flag.StringSliceVar(&cfg.Backends, "backends", nil,
		"Tracking backends to run concurrently: alvr, babble, wivrn, dummy (overrides config file)")
	flag.IntVar(&cfg.ListenPort, "listen-port", 0,
		"Inbound OSC UDP port (overrides config file)")
	flag.IntVar(&cfg.ConsumerPort, "consumer-port", 0,
		"Consumer OSC UDP port (overrides config file)")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", "",
		"Prometheus listen address, e.g. :9090 (overrides config file)")

	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug mode")
	flag.BoolVarP(&cfg.ShowVersion, "version", "v", false, "Show version information")
	flag.BoolVarP(&cfg.ShowHelp, "help", "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

// applyOverrides writes the given flags over the loaded configuration.
func applyOverrides(cliCfg *CLIConfig, cfg *config.Config) {
	if flag.CommandLine.Changed("backends") {
		cfg.Backends = cliCfg.Backends
	}
	if flag.CommandLine.Changed("listen-port") {
		cfg.ListenPort = cliCfg.ListenPort
	}
	if flag.CommandLine.Changed("consumer-port") {
		cfg.ConsumerPort = cliCfg.ConsumerPort
	}
	if flag.CommandLine.Changed("metrics-addr") {
		cfg.MetricsAddr = cliCfg.MetricsAddr
	}
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Tracking-to-OSC Gateway

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with custom config
  %s --config=/path/to/config.json

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Run with environment variables
  export FACEBRIDGE_CONFIG=/etc/facebridge/config.json
  export FACEBRIDGE_LOG_LEVEL=debug
  %s

  # Validate configuration only
  %s --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
