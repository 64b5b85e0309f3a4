// Package config holds the settings of an import: time resolutions, the pitch
// pipeline knobs, the MIDI export options and the log level.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/voxport/voxport/pitch"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Resolution              int
	ExternalTicksPerQuarter int64
	SamplingInterval        int64
	Epsilon                 float64
	Overlay                 pitch.OverlayMode
	BendRange               int
	BendStep                int
	Workers                 int
	LogLevel                string
}

//go:embed default.yml
var defaultConfigYaml []byte

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	if err := decode(bytes.NewReader(defaultConfigYaml), &c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

func decode(r io.Reader, c *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Read overlays the settings of a yml document on the defaults and validates
// the result. Settings missing from the document keep their default value.
func Read(r io.Reader) (Config, error) {
	c := Default()
	if err := decode(r, &c); err != nil {
		return Config{}, fmt.Errorf("could not parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads the config file at path, see Read.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not open config: %w", err)
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return Config{}, fmt.Errorf("%v: %w", path, err)
	}
	return c, nil
}

// LoadUser loads voxport/config.yml from the user config directory. When the
// file does not exist, the defaults are returned with exists == false.
func LoadUser() (c Config, exists bool, err error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Default(), false, nil
	}
	path := filepath.Join(configDir, "voxport", "config.yml")
	if _, err := os.Stat(path); err != nil {
		return Default(), false, nil
	}
	c, err = Load(path)
	return c, true, err
}

func (c Config) Validate() error {
	switch {
	case c.Resolution <= 0:
		return fmt.Errorf("%w: resolution must be positive, got %v", ErrInvalid, c.Resolution)
	case c.ExternalTicksPerQuarter <= 0:
		return fmt.Errorf("%w: external ticks per quarter must be positive, got %v", ErrInvalid, c.ExternalTicksPerQuarter)
	case c.SamplingInterval <= 0:
		return fmt.Errorf("%w: sampling interval must be positive, got %v", ErrInvalid, c.SamplingInterval)
	case !(c.Epsilon > 0):
		return fmt.Errorf("%w: epsilon must be positive, got %v", ErrInvalid, c.Epsilon)
	case c.BendRange < 1 || c.BendRange > 24:
		return fmt.Errorf("%w: bend range must be 1..24 semitones, got %v", ErrInvalid, c.BendRange)
	case c.BendStep <= 0:
		return fmt.Errorf("%w: bend step must be positive, got %v", ErrInvalid, c.BendStep)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %v", ErrInvalid, c.Workers)
	}
	switch c.Overlay {
	case pitch.OverlayAuto, pitch.OverlayAlways, pitch.OverlayNever:
	default:
		return fmt.Errorf("%w: overlay must be auto, always or never, got %q", ErrInvalid, c.Overlay)
	}
	if _, err := ResolveLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// SamplingIntervalFor converts the sampling interval to a source with the
// given resolution. The result is at least one tick.
func (c Config) SamplingIntervalFor(ticksPerQuarter int64) int64 {
	if ticksPerQuarter == c.ExternalTicksPerQuarter {
		return c.SamplingInterval
	}
	return max(1, c.SamplingInterval*ticksPerQuarter/c.ExternalTicksPerQuarter)
}

func ResolveLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// NewLogger returns a text logger writing to w at the configured level.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ResolveLogLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
