package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type config struct {
	CacheDir string
	DB       string
	LogLevel string
	Legacy   bool
}

type fileConfig struct {
	CacheDir string `yaml:"cache_dir"`
	DB       string `yaml:"db"`
	LogLevel string `yaml:"log_level"`
	Legacy   *bool  `yaml:"legacy"`
}

// stringOpt and boolOpt remember whether the flag was given, so that only
// explicit flags override the config file.
type stringOpt struct {
	v   string
	set bool
}

func (o *stringOpt) String() string { return o.v }
func (o *stringOpt) Set(v string) error {
	o.v = v
	o.set = true
	return nil
}

type boolOpt struct {
	v   bool
	set bool
}

func (o *boolOpt) String() string  { return strconv.FormatBool(o.v) }
func (o *boolOpt) IsBoolFlag() bool { return true }
func (o *boolOpt) Set(v string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	o.v = b
	o.set = true
	return nil
}

type globalFlags struct {
	config  stringOpt
	cache   stringOpt
	db      stringOpt
	legacy  boolOpt
	verbose bool
}

func defaultConfig() config {
	cache := "cache"
	if dir, err := os.UserCacheDir(); err == nil {
		cache = filepath.Join(dir, "ppbind")
	}
	return config{CacheDir: cache, LogLevel: "warn"}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ppbind", "config.yaml")
}

// loadConfig applies defaults, then the config file, then explicit flags.
// A missing file is only an error when it was named on the command line.
func loadConfig(g *globalFlags) (config, error) {
	cfg := defaultConfig()

	path := strings.TrimSpace(g.config.v)
	if path == "" {
		path = defaultConfigPath()
	}
	if path != "" {
		fc, err := loadFileConfig(path)
		switch {
		case errors.Is(err, os.ErrNotExist) && !g.config.set:
		case err != nil:
			return config{}, err
		default:
			cfg.apply(fc)
		}
	}

	if g.cache.set {
		cfg.CacheDir = g.cache.v
	}
	if g.db.set {
		cfg.DB = g.db.v
	}
	if g.legacy.set {
		cfg.Legacy = g.legacy.v
	}
	if g.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func (c *config) apply(fc fileConfig) {
	if s := strings.TrimSpace(fc.CacheDir); s != "" {
		c.CacheDir = s
	}
	if s := strings.TrimSpace(fc.DB); s != "" {
		c.DB = s
	}
	if s := strings.TrimSpace(fc.LogLevel); s != "" {
		c.LogLevel = s
	}
	if fc.Legacy != nil {
		c.Legacy = *fc.Legacy
	}
}

func loadFileConfig(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, err
	}
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return fileConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return fc, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = lvl > zapcore.DebugLevel
	return zc.Build()
}
