// Package config loads textart settings from a TOML file.
//
// The default file is $XDG_CONFIG_HOME/textart/config.toml. Every setting
// is optional; missing values fall back to [Default]. Command-line flags
// override the file.
//
//	[convert]
//	max_width = 100
//	max_ratio = 4.0
//	palette = "dense"
//
//	[cache]
//	dir = "~/.cache/textart"
//	source_ttl = "24h"
//	art_ttl = "168h"
//
//	[fetch]
//	timeout = "10s"
//	max_bytes = 33554432
//	retries = 3
//
//	[server]
//	addr = ":8080"
//	max_pixels = 50000000
//	redis_addr = "localhost:6379"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

const appName = "textart"

// DefaultServerMaxPixels caps the raster the API decodes, about 200 MB
// as RGBA.
const DefaultServerMaxPixels = 50_000_000

// Config is the full configuration file.
type Config struct {
	Convert ConvertConfig `toml:"convert"`
	Cache   CacheConfig   `toml:"cache"`
	Fetch   FetchConfig   `toml:"fetch"`
	Server  ServerConfig  `toml:"server"`
}

// ConvertConfig holds default conversion options.
type ConvertConfig struct {
	MaxWidth    int     `toml:"max_width"`
	MaxHeight   int     `toml:"max_height"`
	MaxRatio    float64 `toml:"max_ratio"`
	Palette     string  `toml:"palette"`
	Glyphs      string  `toml:"glyphs"`
	Invert      bool    `toml:"invert"`
	LegacyRatio bool    `toml:"legacy_ratio"`
	MaxPixels   int64   `toml:"max_pixels"`
}

// CacheConfig holds cache location and lifetimes.
type CacheConfig struct {
	Dir       string   `toml:"dir"`
	Disabled  bool     `toml:"disabled"`
	SourceTTL Duration `toml:"source_ttl"`
	ArtTTL    Duration `toml:"art_ttl"`
}

// FetchConfig holds source fetch limits.
type FetchConfig struct {
	Timeout    Duration `toml:"timeout"`
	MaxBytes   int64    `toml:"max_bytes"`
	Retries    int      `toml:"retries"`
	RetryDelay Duration `toml:"retry_delay"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr          string   `toml:"addr"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	KeyPrefix     string   `toml:"key_prefix"`
	ReadTimeout   Duration `toml:"read_timeout"`
	WriteTimeout  Duration `toml:"write_timeout"`
	MaxUpload     int64    `toml:"max_upload"`
	MaxPixels     int64    `toml:"max_pixels"`
}

// Duration is a time.Duration written as a string ("24h", "10s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("negative duration %q", text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Convert: ConvertConfig{
			Palette: "default",
		},
		Cache: CacheConfig{
			Dir:       filepath.Join(xdg.CacheHome, appName),
			SourceTTL: Duration{24 * time.Hour},
			ArtTTL:    Duration{7 * 24 * time.Hour},
		},
		Fetch: FetchConfig{
			Timeout:    Duration{10 * time.Second},
			MaxBytes:   32 << 20,
			Retries:    3,
			RetryDelay: Duration{time.Second},
		},
		Server: ServerConfig{
			Addr:         ":8080",
			KeyPrefix:    "textart:",
			ReadTimeout:  Duration{30 * time.Second},
			WriteTimeout: Duration{60 * time.Second},
			MaxUpload:    32 << 20,
			MaxPixels:    DefaultServerMaxPixels,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/textart/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// Load reads the file at path over the defaults. An empty path loads
// DefaultPath, where a missing file is not an error; an explicit path
// must exist. Unknown keys are rejected so typos do not go unnoticed.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	md, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no command can work with.
func (c *Config) Validate() error {
	switch {
	case c.Convert.MaxWidth < 0:
		return fmt.Errorf("convert.max_width cannot be negative")
	case c.Convert.MaxHeight < 0:
		return fmt.Errorf("convert.max_height cannot be negative")
	case c.Convert.MaxRatio < 0:
		return fmt.Errorf("convert.max_ratio cannot be negative")
	case c.Fetch.MaxBytes < 0:
		return fmt.Errorf("fetch.max_bytes cannot be negative")
	case c.Fetch.Retries < 0:
		return fmt.Errorf("fetch.retries cannot be negative")
	case c.Convert.MaxPixels < 0:
		return fmt.Errorf("convert.max_pixels cannot be negative")
	case c.Server.MaxUpload < 0:
		return fmt.Errorf("server.max_upload cannot be negative")
	case c.Server.MaxPixels < 0:
		return fmt.Errorf("server.max_pixels cannot be negative")
	}
	return nil
}

func (c *Config) normalize() {
	c.Cache.Dir = expandPath(c.Cache.Dir)
	if c.Cache.Dir == "" {
		c.Cache.Dir = filepath.Join(xdg.CacheHome, appName)
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
