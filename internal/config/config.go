// Package config loads and republishes the process-wide Settings snapshot
// (§3, §9 "Global settings"). Grounded on the teacher's YAML-based config
// loading (types.TeamsConfig / server.loadNotificationConfig use
// gopkg.in/yaml.v3 against a file path). Unlike the teacher, which treats
// loaded config as a long-lived mutable struct read directly by handlers,
// this package publishes an immutable *types.Settings snapshot behind an
// atomic pointer: writers replace the whole snapshot, readers keep
// whichever one they grabbed for the duration of an operation. This
// avoids torn reads and removes the need for a settings lock on hot paths.
package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sessionforge/sessionforge/internal/types"
)

// fileFormat mirrors the on-disk YAML shape; only fields the core reads
// (§3) are represented.
type fileFormat struct {
	DefaultCLI            string `yaml:"default_cli"`
	ReviewCLI             string `yaml:"review_cli"`
	ReviewEnabled         bool   `yaml:"review_enabled"`
	TerminalPreference    string `yaml:"terminal_preference"`
	MaxConcurrent         int    `yaml:"max_concurrent"`
	WatchdogIntervalSec   int    `yaml:"watchdog_interval_seconds"`
	HeartbeatTimeoutSec   int    `yaml:"heartbeat_timeout_seconds"`
	ContextRestartPercent int    `yaml:"context_restart_percent"`
	MinimumRunSeconds     int    `yaml:"minimum_run_seconds"`
}

// Defaults matches the defaults named throughout spec.md §4.4/§4.5/§4.6.
func Defaults() types.Settings {
	return types.Settings{
		DefaultCLI:            types.CLIClaudeCode,
		ReviewCLI:              types.CLIClaudeCode,
		ReviewEnabled:          false,
		TerminalPreference:     "",
		MaxConcurrent:          3,
		WatchdogInterval:       30 * time.Second,
		HeartbeatTimeout:       300 * time.Second,
		ContextRestartPercent:  15,
		MinimumRunDuration:     60 * time.Second,
	}
}

func fromFile(f fileFormat) types.Settings {
	s := Defaults()
	if f.DefaultCLI != "" {
		s.DefaultCLI = types.CLIKind(f.DefaultCLI)
	}
	if f.ReviewCLI != "" {
		s.ReviewCLI = types.CLIKind(f.ReviewCLI)
	}
	s.ReviewEnabled = f.ReviewEnabled
	s.TerminalPreference = types.TerminalKind(f.TerminalPreference)
	if f.MaxConcurrent > 0 {
		s.MaxConcurrent = f.MaxConcurrent
	}
	if f.WatchdogIntervalSec > 0 {
		s.WatchdogInterval = time.Duration(f.WatchdogIntervalSec) * time.Second
	}
	if f.HeartbeatTimeoutSec > 0 {
		s.HeartbeatTimeout = time.Duration(f.HeartbeatTimeoutSec) * time.Second
	}
	if f.ContextRestartPercent > 0 {
		s.ContextRestartPercent = f.ContextRestartPercent
	}
	if f.MinimumRunSeconds > 0 {
		s.MinimumRunDuration = time.Duration(f.MinimumRunSeconds) * time.Second
	}
	return s
}

// Load reads a YAML settings file, falling back to Defaults for any unset
// field.
func Load(path string) (types.Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return types.Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fromFile(f), nil
}

// Snapshot publishes an atomically-replaceable *types.Settings.
type Snapshot struct {
	ptr atomic.Pointer[types.Settings]
}

// NewSnapshot constructs a Snapshot seeded with initial.
func NewSnapshot(initial types.Settings) *Snapshot {
	s := &Snapshot{}
	s.ptr.Store(&initial)
	return s
}

// Get returns the current settings snapshot. The returned value is
// immutable; callers may hold onto it for the duration of an operation
// without fear of a torn read.
func (s *Snapshot) Get() types.Settings {
	return *s.ptr.Load()
}

// Replace atomically publishes a new settings snapshot.
func (s *Snapshot) Replace(next types.Settings) {
	s.ptr.Store(&next)
}
