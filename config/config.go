// Package config holds the gateway's JSON configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/c360/facebridge/errors"
)

// Backend names accepted in the config.
const (
	BackendALVR   = "alvr"
	BackendBabble = "babble"
	BackendWiVRn  = "wivrn"
	BackendDummy  = "dummy"
)

// Config is the complete gateway configuration.
type Config struct {
	// ListenPort is the local UDP port inbound OSC arrives on.
	ListenPort int `json:"listen_port"`

	// ConsumerHost and ConsumerPort address the OSC consumer.
	ConsumerHost string `json:"consumer_host"`
	ConsumerPort int    `json:"consumer_port"`

	// Backends lists the tracking sources to run concurrently. Each
	// tick drains them in this order, so later entries win overlapping
	// channels.
	Backends []string `json:"backends"`

	// BabblePort is the babble backend's OSC listen port.
	BabblePort int `json:"babble_port"`

	// MetricsAddr serves Prometheus metrics when non-empty.
	MetricsAddr string `json:"metrics_addr,omitempty"`

	// HeartbeatParam is the avatar parameter whose arrival drives the
	// loop externally. Avatars without it fall back to self-driving.
	HeartbeatParam string `json:"heartbeat_param"`

	// ServicePrefix filters discovered OSCQuery service instances.
	ServicePrefix string `json:"service_prefix"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		ListenPort:     9002,
		ConsumerHost:   "127.0.0.1",
		ConsumerPort:   9000,
		Backends:       []string{BackendDummy},
		BabblePort:     9400,
		HeartbeatParam: "VSync",
		ServicePrefix:  "VRChat-Client-",
	}
}

// Load reads the config at path, filling unset fields with defaults.
// A missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "config", "Load", "config read")
	}

	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "config decode")
	}

	return cfg, nil
}

// Validate checks field ranges and the backend name.
func (c *Config) Validate() error {
	if err := validPort(c.ListenPort, "listen_port"); err != nil {
		return err
	}
	if err := validPort(c.ConsumerPort, "consumer_port"); err != nil {
		return err
	}
	if err := validPort(c.BabblePort, "babble_port"); err != nil {
		return err
	}
	if c.ConsumerHost == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "empty consumer_host")
	}
	if c.HeartbeatParam == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "empty heartbeat_param")
	}

	if len(c.Backends) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "no backends configured")
	}
	seen := map[string]bool{}
	for _, name := range c.Backends {
		switch name {
		case BackendALVR, BackendBabble, BackendWiVRn, BackendDummy:
		default:
			return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
				fmt.Sprintf("unknown backend %q", name))
		}
		if seen[name] {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
				fmt.Sprintf("backend %q listed twice", name))
		}
		seen[name] = true
	}

	return nil
}

// ConsumerAddr returns the consumer's host:port.
func (c *Config) ConsumerAddr() string {
	return fmt.Sprintf("%s:%d", c.ConsumerHost, c.ConsumerPort)
}

func validPort(port int, field string) error {
	if port < 1 || port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("%s %d out of range", field, port))
	}
	return nil
}
