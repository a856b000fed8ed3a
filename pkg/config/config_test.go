package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Convert.Palette != "default" {
		t.Errorf("Convert.Palette = %q, want default", cfg.Convert.Palette)
	}
	if cfg.Cache.SourceTTL.Duration != 24*time.Hour {
		t.Errorf("Cache.SourceTTL = %v, want 24h", cfg.Cache.SourceTTL)
	}
	if cfg.Cache.ArtTTL.Duration != 7*24*time.Hour {
		t.Errorf("Cache.ArtTTL = %v, want 168h", cfg.Cache.ArtTTL)
	}
	if cfg.Fetch.Retries != 3 || cfg.Fetch.MaxBytes != 32<<20 {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Convert.MaxPixels != 0 || cfg.Server.MaxPixels != DefaultServerMaxPixels {
		t.Errorf("MaxPixels convert = %d server = %d", cfg.Convert.MaxPixels, cfg.Server.MaxPixels)
	}
	if !strings.HasSuffix(cfg.Cache.Dir, appName) {
		t.Errorf("Cache.Dir = %q, want suffix %q", cfg.Cache.Dir, appName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[convert]
max_width = 100
max_ratio = 4.5
palette = "dense"
invert = true
max_pixels = 1000000

[cache]
source_ttl = "1h"

[fetch]
timeout = "3s"
retries = 5

[server]
addr = ":9090"
redis_addr = "localhost:6379"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Convert.MaxWidth != 100 || cfg.Convert.MaxRatio != 4.5 {
		t.Errorf("Convert = %+v", cfg.Convert)
	}
	if cfg.Convert.MaxPixels != 1000000 {
		t.Errorf("Convert.MaxPixels = %d, want 1000000", cfg.Convert.MaxPixels)
	}
	if cfg.Convert.Palette != "dense" || !cfg.Convert.Invert {
		t.Errorf("Convert palette = %q invert = %v", cfg.Convert.Palette, cfg.Convert.Invert)
	}
	if cfg.Cache.SourceTTL.Duration != time.Hour {
		t.Errorf("Cache.SourceTTL = %v, want 1h", cfg.Cache.SourceTTL)
	}
	// Unset values keep their defaults.
	if cfg.Cache.ArtTTL.Duration != 7*24*time.Hour {
		t.Errorf("Cache.ArtTTL = %v, want default", cfg.Cache.ArtTTL)
	}
	if cfg.Fetch.Timeout.Duration != 3*time.Second || cfg.Fetch.Retries != 5 {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.RedisAddr != "localhost:6379" {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[convert\nmax_width = 1", "load config"},
		{"unknown key", "[convert]\nmax_widht = 1", "unknown keys: convert.max_widht"},
		{"bad duration", "[cache]\nart_ttl = \"soon\"", "load config"},
		{"negative duration", "[cache]\nart_ttl = \"-1h\"", "load config"},
		{"negative width", "[convert]\nmax_width = -5", "convert.max_width"},
		{"negative retries", "[fetch]\nretries = -1", "fetch.retries"},
		{"negative max pixels", "[server]\nmax_pixels = -1", "server.max_pixels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load() of a missing explicit path should fail")
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("90m")); err != nil {
		t.Fatal(err)
	}
	if d.Duration != 90*time.Minute {
		t.Errorf("Duration = %v, want 1h30m", d.Duration)
	}
	text, _ := d.MarshalText()
	if string(text) != "1h30m0s" {
		t.Errorf("MarshalText() = %q, want 1h30m0s", text)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/cache", filepath.Join(home, "cache")},
		{"~", home},
		{"/var/cache/textart", "/var/cache/textart"},
		{"relative/dir", "relative/dir"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := expandPath(tt.input); got != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadExpandsCacheDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}
	cfg, err := Load(writeConfig(t, "[cache]\ndir = \"~/tmp/textart\""))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "tmp", "textart"); cfg.Cache.Dir != want {
		t.Errorf("Cache.Dir = %q, want %q", cfg.Cache.Dir, want)
	}
}
