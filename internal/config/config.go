/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration: a YAML file layered over
// built-in defaults, with SNAP_* environment variables as read-only
// overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"snapguides/internal/domain"
	"snapguides/internal/engine"
	applog "snapguides/internal/log"
	"snapguides/internal/snap"
	"snapguides/internal/telemetry"
)

// CurrentVersion is written to new files. Bump it when a key changes meaning.
const CurrentVersion = 1

// ErrInvalid is wrapped by Validate failures.
var ErrInvalid = errors.New("invalid config")

type MagneticConfig struct {
	Enabled bool   `yaml:"enabled"`
	Curve   string `yaml:"curve"`
	// Threshold of 0 means the alignment threshold.
	Threshold float64 `yaml:"threshold"`
}

type EngineConfig struct {
	CacheSize        int     `yaml:"cache_size"`
	ViewportPadding  float64 `yaml:"viewport_padding"`
	SpacingTolerance float64 `yaml:"spacing_tolerance"`
	NodeCapacity     int     `yaml:"node_capacity"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// AppConfig is the whole user configuration.
type AppConfig struct {
	ConfigVersion int                    `yaml:"config_version"`
	Alignment     domain.AlignmentConfig `yaml:"alignment"`
	Magnetic      MagneticConfig         `yaml:"magnetic"`
	Engine        EngineConfig           `yaml:"engine"`
	Logging       LoggingConfig          `yaml:"logging"`
	Telemetry     TelemetryConfig        `yaml:"telemetry"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: CurrentVersion,
		Alignment:     domain.DefaultAlignmentConfig(),
		Magnetic:      MagneticConfig{Enabled: true, Curve: string(snap.Linear)},
		Engine:        EngineConfig{CacheSize: engine.DefaultCacheSize, ViewportPadding: engine.DefaultViewportPadding},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Telemetry:     TelemetryConfig{TimeoutMs: 1500},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath       = "SNAP_CONFIG"
	EnvEnabled          = "SNAP_ALIGN_ENABLED"
	EnvThreshold        = "SNAP_ALIGN_THRESHOLD"
	EnvSnapToGrid       = "SNAP_GRID"
	EnvGridSize         = "SNAP_GRID_SIZE"
	EnvSnapToElements   = "SNAP_ELEMENTS"
	EnvMagnetic         = "SNAP_MAGNETIC"
	EnvMagneticCurve    = "SNAP_MAGNETIC_CURVE"
	EnvCacheSize        = "SNAP_CACHE_SIZE"
	EnvViewportPadding  = "SNAP_VIEWPORT_PADDING"
	EnvSpacingTolerance = "SNAP_SPACING_TOLERANCE"
	EnvLogLevel         = "SNAP_LOG_LEVEL"
	EnvLogFormat        = "SNAP_LOG_FORMAT"
	EnvLogSource        = "SNAP_LOG_SOURCE"
	EnvLogFile          = "SNAP_LOG_FILE"
	EnvTelemetryOptIn   = "SNAP_TELEMETRY_OPT_IN"
	EnvTelemetryURL     = "SNAP_TELEMETRY_URL"
	EnvCrashURL         = "SNAP_CRASH_UPLOAD_URL"
)

// override binds a dotted config key to its env var. apply reports false when
// the value cannot be parsed; the file value is kept then.
type override struct {
	key   string
	env   string
	apply func(c *AppConfig, v string) bool
}

func boolField(f func(*AppConfig) *bool) func(*AppConfig, string) bool {
	return func(c *AppConfig, v string) bool { *f(c) = telemetry.ParseBool(v); return true }
}

func floatField(f func(*AppConfig) *float64) func(*AppConfig, string) bool {
	return func(c *AppConfig, v string) bool {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return false
		}
		*f(c) = n
		return true
	}
}

func intField(f func(*AppConfig) *int) func(*AppConfig, string) bool {
	return func(c *AppConfig, v string) bool {
		n, err := strconv.Atoi(v)
		if err != nil {
			return false
		}
		*f(c) = n
		return true
	}
}

func stringField(f func(*AppConfig) *string, lower bool) func(*AppConfig, string) bool {
	return func(c *AppConfig, v string) bool {
		if lower {
			v = strings.ToLower(v)
		}
		*f(c) = v
		return true
	}
}

var overrides = []override{
	{"alignment.enabled", EnvEnabled, boolField(func(c *AppConfig) *bool { return &c.Alignment.Enabled })},
	{"alignment.threshold", EnvThreshold, floatField(func(c *AppConfig) *float64 { return &c.Alignment.Threshold })},
	{"alignment.snap_to_grid", EnvSnapToGrid, boolField(func(c *AppConfig) *bool { return &c.Alignment.SnapToGrid })},
	{"alignment.grid_size", EnvGridSize, floatField(func(c *AppConfig) *float64 { return &c.Alignment.GridSize })},
	{"alignment.snap_to_elements", EnvSnapToElements, boolField(func(c *AppConfig) *bool { return &c.Alignment.SnapToElements })},
	{"magnetic.enabled", EnvMagnetic, boolField(func(c *AppConfig) *bool { return &c.Magnetic.Enabled })},
	{"magnetic.curve", EnvMagneticCurve, stringField(func(c *AppConfig) *string { return &c.Magnetic.Curve }, true)},
	{"engine.cache_size", EnvCacheSize, intField(func(c *AppConfig) *int { return &c.Engine.CacheSize })},
	{"engine.viewport_padding", EnvViewportPadding, floatField(func(c *AppConfig) *float64 { return &c.Engine.ViewportPadding })},
	{"engine.spacing_tolerance", EnvSpacingTolerance, floatField(func(c *AppConfig) *float64 { return &c.Engine.SpacingTolerance })},
	{"logging.level", EnvLogLevel, stringField(func(c *AppConfig) *string { return &c.Logging.Level }, true)},
	{"logging.format", EnvLogFormat, stringField(func(c *AppConfig) *string { return &c.Logging.Format }, true)},
	{"logging.source", EnvLogSource, boolField(func(c *AppConfig) *bool { return &c.Logging.Source })},
	{"logging.file", EnvLogFile, stringField(func(c *AppConfig) *string { return &c.Logging.File }, false)},
	{"telemetry.opt_in", EnvTelemetryOptIn, boolField(func(c *AppConfig) *bool { return &c.Telemetry.OptIn })},
	{"telemetry.events_url", EnvTelemetryURL, stringField(func(c *AppConfig) *string { return &c.Telemetry.EventsURL }, false)},
	{"telemetry.crash_url", EnvCrashURL, stringField(func(c *AppConfig) *string { return &c.Telemetry.CrashURL }, false)},
}

// ConfigPath returns the per-user config file path. SNAP_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", fmt.Errorf("cannot resolve config directory: %w", err)
	}
	return filepath.Join(base, "snapguides", "config.yaml"), nil
}

// Load reads the user config file if present. A missing file is not an
// error; a malformed one is.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		// Keys absent from the file keep their default.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	normalize(&cfg)
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg AppConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if cfg.ConfigVersion == 0 {
		cfg.ConfigVersion = CurrentVersion
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func normalize(c *AppConfig) {
	c.Magnetic.Curve = strings.ToLower(strings.TrimSpace(c.Magnetic.Curve))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.File = strings.TrimSpace(c.Logging.File)
}

func applyEnvOverrides(c *AppConfig) {
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			o.apply(c, v)
		}
	}
}

// EnvOverrideFor returns the env var name if key is overridden by the
// environment.
func EnvOverrideFor(key string) (string, bool) {
	for _, o := range overrides {
		if o.key == key && strings.TrimSpace(os.Getenv(o.env)) != "" {
			return o.env, true
		}
	}
	return "", false
}

// Validate rejects values the engine would silently misinterpret.
func (c AppConfig) Validate() error {
	a := c.Alignment
	switch {
	case !(a.Threshold >= 0):
		return fmt.Errorf("%w: alignment.threshold must be >= 0, got %v", ErrInvalid, a.Threshold)
	case a.SnapToGrid && !(a.GridSize > 0):
		return fmt.Errorf("%w: alignment.grid_size must be > 0 when snap_to_grid is on", ErrInvalid)
	case c.Magnetic.Curve != "" && snap.ParseCurve(c.Magnetic.Curve) != snap.Curve(c.Magnetic.Curve):
		return fmt.Errorf("%w: unknown magnetic.curve %q", ErrInvalid, c.Magnetic.Curve)
	case c.Magnetic.Threshold < 0:
		return fmt.Errorf("%w: magnetic.threshold must be >= 0", ErrInvalid)
	}
	return nil
}

// EngineOptions converts the config into engine options.
func (c AppConfig) EngineOptions() engine.Options {
	return engine.Options{
		Config: c.Alignment,
		Magnetic: snap.MagneticOptions{
			Enabled:   c.Magnetic.Enabled,
			Threshold: c.Magnetic.Threshold,
			Curve:     snap.ParseCurve(c.Magnetic.Curve),
		},
		ViewportPadding:  c.Engine.ViewportPadding,
		SpacingTolerance: c.Engine.SpacingTolerance,
		CacheSize:        c.Engine.CacheSize,
		NodeCapacity:     c.Engine.NodeCapacity,
	}
}

// LogOptions converts the logging section.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}

// TelemetryOptions converts the telemetry section.
func (c AppConfig) TelemetryOptions() telemetry.Config {
	ms := c.Telemetry.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Telemetry.TimeoutMs
	}
	return telemetry.Config{
		OptIn:     c.Telemetry.OptIn,
		EventsURL: c.Telemetry.EventsURL,
		CrashURL:  c.Telemetry.CrashURL,
		Timeout:   time.Duration(ms) * time.Millisecond,
	}
}
