// Package config loads glyphatlas settings from YAML with environment
// overrides, and turns them into manager options and a logger.
//
// Environment variables take precedence over the file:
//   - GLYPHATLAS_ATLAS_WIDTH, GLYPHATLAS_ATLAS_HEIGHT
//   - GLYPHATLAS_MODE=bitmap|config-sdf|arc-sdf
//   - GLYPHATLAS_FONT_SIZE
//   - GLYPHATLAS_WORKERS
//   - GLYPHATLAS_STORE_PATH, GLYPHATLAS_MEMO_SIZE
//   - GLYPHATLAS_LOG_LEVEL=debug|info|warn|error
//   - GLYPHATLAS_LOG_FORMAT=text|json
//   - GLYPHATLAS_LOG_FILE=<path> (rotating file output)
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/glyphatlas"
)

// Environment variable names.
const (
	EnvAtlasWidth  = "GLYPHATLAS_ATLAS_WIDTH"
	EnvAtlasHeight = "GLYPHATLAS_ATLAS_HEIGHT"
	EnvMode        = "GLYPHATLAS_MODE"
	EnvFontSize    = "GLYPHATLAS_FONT_SIZE"
	EnvWorkers     = "GLYPHATLAS_WORKERS"
	EnvStorePath   = "GLYPHATLAS_STORE_PATH"
	EnvMemoSize    = "GLYPHATLAS_MEMO_SIZE"
	EnvLogLevel    = "GLYPHATLAS_LOG_LEVEL"
	EnvLogFormat   = "GLYPHATLAS_LOG_FORMAT"
	EnvLogFile     = "GLYPHATLAS_LOG_FILE"
	EnvLogSource   = "GLYPHATLAS_LOG_SOURCE"
)

// Config is the file layout.
type Config struct {
	Atlas   Atlas    `yaml:"atlas"`
	Fonts   []string `yaml:"fonts"`
	Workers int      `yaml:"workers"`
	Store   Store    `yaml:"store"`
	Logging Logging  `yaml:"logging"`
}

// Atlas describes the texture and the initial mode.
type Atlas struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	Mode     string  `yaml:"mode"`
	FontSize float32 `yaml:"font_size"`
}

// Store selects where computed arc data is kept. An empty Path keeps it
// in memory.
type Store struct {
	Path     string `yaml:"path"`
	MemoSize int    `yaml:"memo_size"`
}

// Logging controls the slog handler built by NewLogger.
type Logging struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Source     bool   `yaml:"source"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	o := glyphatlas.DefaultOptions()
	return Config{
		Atlas: Atlas{
			Width:    o.AtlasWidth,
			Height:   o.AtlasHeight,
			Mode:     o.Mode.String(),
			FontSize: 16,
		},
		Store: Store{MemoSize: o.MemoSize},
		Logging: Logging{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path (skipped when empty) over Defaults and applies the
// environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML over Defaults without consulting the environment.
func Parse(data []byte) (Config, error) {
	cfg := Defaults()
	if err := decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

// decode keeps fields absent from data at their current value and
// rejects unknown keys.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	ints := []struct {
		key string
		dst *int
	}{
		{EnvAtlasWidth, &cfg.Atlas.Width},
		{EnvAtlasHeight, &cfg.Atlas.Height},
		{EnvWorkers, &cfg.Workers},
		{EnvMemoSize, &cfg.Store.MemoSize},
	}
	for _, e := range ints {
		v, ok := lookup(e.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &glyphatlas.ConfigError{Field: e.key, Reason: "not an integer: " + v}
		}
		*e.dst = n
	}
	if v, ok := lookup(EnvFontSize); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
		if err != nil {
			return &glyphatlas.ConfigError{Field: EnvFontSize, Reason: "not a number: " + v}
		}
		cfg.Atlas.FontSize = float32(f)
	}
	strs := []struct {
		key string
		dst *string
	}{
		{EnvMode, &cfg.Atlas.Mode},
		{EnvStorePath, &cfg.Store.Path},
		{EnvLogLevel, &cfg.Logging.Level},
		{EnvLogFormat, &cfg.Logging.Format},
		{EnvLogFile, &cfg.Logging.File},
	}
	for _, e := range strs {
		if v, ok := lookup(e.key); ok && v != "" {
			*e.dst = v
		}
	}
	if v, ok := lookup(EnvLogSource); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "on", "yes":
			cfg.Logging.Source = true
		case "0", "false", "off", "no":
			cfg.Logging.Source = false
		}
	}
	return nil
}

// Validate checks everything that Options.Validate cannot, plus the
// fields that only exist here.
func (c Config) Validate() error {
	if _, err := glyphatlas.ParseMode(c.Atlas.Mode); err != nil {
		return &glyphatlas.ConfigError{Field: "atlas.mode", Reason: err.Error()}
	}
	if c.Atlas.FontSize <= 0 {
		return &glyphatlas.ConfigError{Field: "atlas.font_size", Reason: "must be positive"}
	}
	if _, ok := parseLevel(c.Logging.Level); !ok {
		return &glyphatlas.ConfigError{Field: "logging.level", Reason: "unknown level " + c.Logging.Level}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "console", "json":
	default:
		return &glyphatlas.ConfigError{Field: "logging.format", Reason: "unknown format " + c.Logging.Format}
	}
	return nil
}

// Mode returns the parsed atlas mode.
func (c Config) Mode() glyphatlas.Mode {
	m, _ := glyphatlas.ParseMode(c.Atlas.Mode)
	return m
}

// Options translates the file into manager options. Brush, loader and
// store are left to the caller.
func (c Config) Options() []glyphatlas.Option {
	return []glyphatlas.Option{
		glyphatlas.WithAtlasSize(c.Atlas.Width, c.Atlas.Height),
		glyphatlas.WithMode(c.Mode()),
		glyphatlas.WithWorkers(c.Workers),
		glyphatlas.WithMemoSize(c.Store.MemoSize),
	}
}

// NewLogger builds a logger writing to w, or to a rotating file when
// Logging.File is set. The returned closer releases the file.
func (l Logging) NewLogger(w io.Writer) (*slog.Logger, io.Closer) {
	var closer io.Closer = nopCloser{}
	if l.File != "" {
		rot := &lj.Logger{
			Filename:   l.File,
			MaxSize:    l.MaxSizeMB,
			MaxBackups: l.MaxBackups,
			MaxAge:     l.MaxAgeDays,
			Compress:   true,
		}
		w, closer = rot, rot
	}
	level, _ := parseLevel(l.Level)
	hopts := &slog.HandlerOptions{Level: level, AddSource: l.Source}
	var h slog.Handler
	if strings.EqualFold(l.Format, "json") {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h).With("component", "glyphatlas"), closer
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
