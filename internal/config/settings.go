package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joeycumines/script-garden/internal/console"
)

// Settings are the resolved global options, with environment overrides and
// defaults applied.
type Settings struct {
	SampleRate     float64
	BlockSize      int
	Channels       int
	Clip           bool
	InputNoise     bool
	MeterWindow    time.Duration
	WorkspacesDir  string
	StorageBackend string
	Example        string
	LogLevel       slog.Level
	LogMaxEntries  int

	LogFile           string
	LogFileMaxSizeMB  int
	LogFileMaxBackups int
}

// Resolve resolves every global option of the default schema. Invalid
// values are reported together.
func (c *Config) Resolve() (Settings, error) {
	s := DefaultSchema()
	var errs []error
	str := func(key string) string {
		return s.Resolve(c, key)
	}
	num := func(key string) int {
		v, err := strconv.Atoi(str(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: expected int, got %q", key, str(key)))
		}
		return v
	}
	flag := func(key string) bool {
		v, err := parseBool(str(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return v
	}

	var out Settings
	var err error
	if out.SampleRate, err = strconv.ParseFloat(str("sample-rate"), 64); err != nil || out.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample-rate: expected a positive number, got %q", str("sample-rate")))
	}
	out.BlockSize = num("block-size")
	out.Channels = num("channels")
	if out.BlockSize <= 0 || out.Channels <= 0 {
		errs = append(errs, fmt.Errorf("block-size and channels must be positive"))
	}
	out.Clip = flag("clip")
	out.InputNoise = flag("input-noise")
	if out.MeterWindow, err = time.ParseDuration(str("meter-window")); err != nil {
		errs = append(errs, fmt.Errorf("meter-window: %w", err))
	}
	out.StorageBackend = str("storage-backend")
	out.Example = str("example")
	if out.LogLevel, err = console.ParseLevel(str("log-level")); err != nil {
		errs = append(errs, fmt.Errorf("log-level: %w", err))
	}
	out.LogMaxEntries = num("log-max-entries")
	out.LogFile = str("log-file")
	out.LogFileMaxSizeMB = num("log-file-max-size-mb")
	out.LogFileMaxBackups = num("log-file-max-backups")

	out.WorkspacesDir = str("workspaces-dir")
	if out.WorkspacesDir == "" {
		dir, err := DefaultWorkspacesDir()
		if err != nil {
			errs = append(errs, err)
		}
		out.WorkspacesDir = dir
	}
	return out, errors.Join(errs...)
}

// CommandOption returns the value of a section option, falling back to the
// global value and then to the schema default.
func (c *Config) CommandOption(section, key string) string {
	if v, ok := c.GetCommandOption(section, key); ok {
		return v
	}
	if opt := DefaultSchema().Lookup(section, key); opt != nil {
		return opt.Default
	}
	return ""
}

// DefaultWorkspacesDir is the workspaces directory next to the config file.
func DefaultWorkspacesDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, configDirName, "workspaces"), nil
}

// CommandBool is CommandOption parsed as a boolean.
func (c *Config) CommandBool(section, key string) (bool, error) {
	v, err := parseBool(c.CommandOption(section, key))
	if err != nil {
		return false, fmt.Errorf("%s.%s: %w", section, key, err)
	}
	return v, nil
}
