// Package config loads syscache configuration. Sources are applied in
// order, later ones winning: built-in defaults, an optional YAML file, then
// SYSCACHE_ environment variables. Command-line flags are applied by the
// caller on top of the result.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "SYSCACHE_"

type Config struct {
	Log  LogConfig  `koanf:"log"`
	Peer PeerConfig `koanf:"peer"`
	Sync SyncConfig `koanf:"sync"`
}

type LogConfig struct {
	// Path is the log file. Empty means syscache.log next to the executable.
	Path string `koanf:"path"`
}

// PeerConfig configures the sync peer daemon.
type PeerConfig struct {
	Listen  string `koanf:"listen"`
	Path    string `koanf:"path"`
	DB      string `koanf:"db"`
	Bucket  string `koanf:"bucket"`
	Metrics string `koanf:"metrics"`
}

// SyncConfig configures outbound synchronization.
type SyncConfig struct {
	// Address is a ws:// or wss:// peer URL synced with at startup when set.
	Address string        `koanf:"address"`
	Timeout time.Duration `koanf:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Peer: PeerConfig{
			Listen:  "127.0.0.1:7480",
			Path:    "/sync",
			DB:      "syscache-peer.bbolt",
			Bucket:  "cache",
			Metrics: "/metrics",
		},
		Sync: SyncConfig{
			Timeout: 10 * time.Second,
		},
	}
}

type Option func(*loader)

type loader struct {
	envPrefix string
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *loader) { l.envPrefix = prefix }
}

// Load reads the YAML file at path (skipped when empty) and the environment
// over Default. Environment variables map by lowercasing and turning
// underscores into dots: SYSCACHE_PEER_LISTEN sets peer.listen.
func Load(path string, opts ...Option) (Config, error) {
	l := &loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	prefix := l.envPrefix
	transform := func(s string) string {
		s = strings.TrimPrefix(s, prefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(prefix, ".", transform), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
