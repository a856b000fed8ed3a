package cli

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/textart/pkg/observability"
)

// testEnv is an isolated CLI with its own config file and cache directory.
type testEnv struct {
	cli      *CLI
	dir      string
	cacheDir string
	config   string
}

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:      dir,
		cacheDir: filepath.Join(dir, "cache"),
		config:   filepath.Join(dir, "config.toml"),
	}
	cfg := fmt.Sprintf("[cache]\ndir = %q\n%s", env.cacheDir, extraConfig)
	if err := os.WriteFile(env.config, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	// Debug level keeps the spinner off.
	env.cli = New(io.Discard, LogDebug)

	old := statusOut
	statusOut = io.Discard
	t.Cleanup(func() {
		statusOut = old
		observability.Reset()
	})
	return env
}

// run executes the root command and returns what it wrote to stdout.
func (e *testEnv) run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	root := e.cli.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(append(args, "--config", e.config))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writePNG writes a w x h horizontal gradient and returns its path.
func (e *testEnv) writePNG(t *testing.T, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, gradientPNG(t, w, h), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 255 / max(w-1, 1))})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	want := []string{"cache", "completion", "convert", "palettes", "serve"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("root command should register %q", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("root command should have a --config flag")
	}
}

func TestSetupLoadsConfig(t *testing.T) {
	env := newTestEnv(t, "[convert]\nmax_width = 12\n")
	if _, err := env.run(t, nil, "cache", "path"); err != nil {
		t.Fatalf("cache path error: %v", err)
	}
	if env.cli.Config == nil {
		t.Fatal("Config should be loaded before the command runs")
	}
	if env.cli.Config.Convert.MaxWidth != 12 {
		t.Errorf("Convert.MaxWidth = %d, want 12", env.cli.Config.Convert.MaxWidth)
	}
}

func TestSetupRegistersHooks(t *testing.T) {
	env := newTestEnv(t, "")
	if _, err := env.run(t, nil, "cache", "path"); err != nil {
		t.Fatalf("cache path error: %v", err)
	}
	if _, ok := observability.HTTP().(logHooks); !ok {
		t.Errorf("HTTP hooks = %T, want logHooks", observability.HTTP())
	}
	if _, ok := observability.Convert().(logHooks); !ok {
		t.Errorf("convert hooks = %T, want logHooks", observability.Convert())
	}
}

func TestSetupRejectsBadConfig(t *testing.T) {
	env := newTestEnv(t, "[convert]\nmax_widht = 12\n")
	_, err := env.run(t, nil, "cache", "path")
	if err == nil || !strings.Contains(err.Error(), "unknown keys") {
		t.Errorf("error = %v, want unknown keys error", err)
	}
}

func TestCachePath(t *testing.T) {
	env := newTestEnv(t, "")
	out, err := env.run(t, nil, "cache", "path")
	if err != nil {
		t.Fatalf("cache path error: %v", err)
	}
	if strings.TrimSpace(out) != env.cacheDir {
		t.Errorf("cache path = %q, want %q", strings.TrimSpace(out), env.cacheDir)
	}
}

func TestCacheClear(t *testing.T) {
	env := newTestEnv(t, "")
	src := env.writePNG(t, "a.png", 40, 20)

	if _, err := env.run(t, nil, "cache", "clear"); err != nil {
		t.Fatalf("cache clear on missing dir error: %v", err)
	}

	if _, err := env.run(t, nil, "convert", "-w", "10", src); err != nil {
		t.Fatalf("convert error: %v", err)
	}
	if countFiles(t, env.cacheDir) == 0 {
		t.Fatal("convert should populate the cache")
	}

	if _, err := env.run(t, nil, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	if n := countFiles(t, env.cacheDir); n != 0 {
		t.Errorf("cache should be empty after clear, has %d files", n)
	}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	_ = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestNoCacheLeavesDirEmpty(t *testing.T) {
	env := newTestEnv(t, "")
	src := env.writePNG(t, "a.png", 40, 20)

	if _, err := env.run(t, nil, "convert", "--no-cache", src); err != nil {
		t.Fatalf("convert error: %v", err)
	}
	if n := countFiles(t, env.cacheDir); n != 0 {
		t.Errorf("--no-cache wrote %d cache files", n)
	}
}

func TestCompletion(t *testing.T) {
	env := newTestEnv(t, "")
	for _, shell := range completionShells {
		out, err := env.run(t, nil, "completion", shell)
		if err != nil {
			t.Errorf("completion %s error: %v", shell, err)
			continue
		}
		if !strings.Contains(out, appName) {
			t.Errorf("completion %s output should mention %s", shell, appName)
		}
	}

	if _, err := env.run(t, nil, "completion", "tcsh"); err == nil {
		t.Error("completion should reject unknown shells")
	}
}
