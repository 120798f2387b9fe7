// Package config loads treadmill CLI configuration from JSONC files and flag
// overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/treadmill/pkg/treadmill"
)

// Error variables for config loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config")
)

// FileName is the project config file name.
const FileName = ".treadmill.json"

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	InitialSize   int     `json:"initial_size"`
	ExpandSize    int     `json:"expand_size"`
	ScanStepSize  int     `json:"scan_step_size"`
	ScanThreshold float64 `json:"scan_threshold"`
	LogLevel      string  `json:"log_level"`
	HistoryFile   string  `json:"history_file,omitempty"`

	// Resolved (computed, not serialized)
	EffectiveCwd string  `json:"-"`
	Sources      Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		InitialSize:   treadmill.DefaultInitialSize,
		ExpandSize:    treadmill.DefaultExpandSize,
		ScanStepSize:  treadmill.DefaultScanStepSize,
		ScanThreshold: treadmill.DefaultScanThreshold,
		LogLevel:      "warn",
	}
}

// HeapOptions converts the heap settings to [treadmill.Options].
func (c Config) HeapOptions(log *slog.Logger) treadmill.Options {
	return treadmill.Options{
		InitialSize:   c.InitialSize,
		ExpandSize:    c.ExpandSize,
		ScanStepSize:  c.ScanStepSize,
		ScanThreshold: c.ScanThreshold,
		Logger:        log,
	}
}

// Level parses LogLevel. Validated configs always parse.
func (c Config) Level() slog.Level {
	var level slog.Level

	_ = level.UnmarshalText([]byte(c.LogLevel))

	return level
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.Level()}))
}

// Format returns the config as indented JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("formatting config: %w", err)
	}

	return string(data), nil
}

// globalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/treadmill/config.json if set, otherwise
// ~/.config/treadmill/config.json. Returns empty string if neither is known.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "treadmill", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "treadmill", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	Overrides       Overrides         // flag values; nil fields mean no override
	Env             map[string]string // environment variables
}

// Overrides are flag-level settings. Nil means the flag was not given.
type Overrides struct {
	InitialSize   *int
	ExpandSize    *int
	ScanStepSize  *int
	ScanThreshold *float64
	LogLevel      *string
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/treadmill/config.json or $XDG_CONFIG_HOME/treadmill/config.json)
// 3. Project config file at default location (.treadmill.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty)
// 5. Flag overrides.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		overlay, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, overlay)
			cfg.Sources.Global = path
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false

	if input.ConfigPath != "" {
		projectPath, mustExist = input.ConfigPath, true
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}

		// Check existence first to provide a clear "not found" error
		if _, statErr := os.Stat(projectPath); statErr != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, input.ConfigPath)
		}
	}

	overlay, loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = merge(cfg, overlay)
		cfg.Sources.Project = projectPath
	}

	cfg = applyOverrides(cfg, input.Overrides)

	err = validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	return cfg, nil
}

// loadFile loads a config file. If mustExist is false, a missing file
// returns loaded == false. Absent keys stay zero and are skipped by merge.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	dec := json.NewDecoder(strings.NewReader(string(standardized)))
	dec.DisallowUnknownFields()

	err = dec.Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.InitialSize != 0 {
		base.InitialSize = overlay.InitialSize
	}

	if overlay.ExpandSize != 0 {
		base.ExpandSize = overlay.ExpandSize
	}

	if overlay.ScanStepSize != 0 {
		base.ScanStepSize = overlay.ScanStepSize
	}

	if overlay.ScanThreshold != 0 {
		base.ScanThreshold = overlay.ScanThreshold
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.HistoryFile != "" {
		base.HistoryFile = overlay.HistoryFile
	}

	return base
}

func applyOverrides(cfg Config, o Overrides) Config {
	if o.InitialSize != nil {
		cfg.InitialSize = *o.InitialSize
	}

	if o.ExpandSize != nil {
		cfg.ExpandSize = *o.ExpandSize
	}

	if o.ScanStepSize != nil {
		cfg.ScanStepSize = *o.ScanStepSize
	}

	if o.ScanThreshold != nil {
		cfg.ScanThreshold = *o.ScanThreshold
	}

	if o.LogLevel != nil {
		cfg.LogLevel = *o.LogLevel
	}

	return cfg
}

func validate(cfg Config) error {
	if cfg.InitialSize < 1 {
		return fmt.Errorf("%w: initial_size must be at least 1, got %d", ErrConfigInvalid, cfg.InitialSize)
	}

	if cfg.ExpandSize < 1 {
		return fmt.Errorf("%w: expand_size must be at least 1, got %d", ErrConfigInvalid, cfg.ExpandSize)
	}

	if cfg.ScanStepSize < 1 {
		return fmt.Errorf("%w: scan_step_size must be at least 1, got %d", ErrConfigInvalid, cfg.ScanStepSize)
	}

	if !(cfg.ScanThreshold > 0 && cfg.ScanThreshold <= 1) {
		return fmt.Errorf("%w: scan_threshold must be in (0, 1], got %v", ErrConfigInvalid, cfg.ScanThreshold)
	}

	var level slog.Level

	err := level.UnmarshalText([]byte(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("%w: log_level %q: %w", ErrConfigInvalid, cfg.LogLevel, err)
	}

	return nil
}
