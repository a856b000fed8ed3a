package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/textart/pkg/buildinfo"
	"github.com/matzehuels/textart/pkg/cache"
	"github.com/matzehuels/textart/pkg/config"
	"github.com/matzehuels/textart/pkg/fetch"
	"github.com/matzehuels/textart/pkg/observability"
	"github.com/matzehuels/textart/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "textart"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded by the root command before any subcommand runs.
	Config *config.Config

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Textart renders images as text",
		Long:         `Textart converts images from URLs, files or stdin into text art, one glyph per grayscale bucket.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	root.AddCommand(c.convertCommand())
	root.AddCommand(c.palettesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the config file and attaches the logger to the command context.
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))

	observability.SetConvertHooks(logHooks{logger: c.Logger})
	observability.SetCacheHooks(logHooks{logger: c.Logger})
	observability.SetHTTPHooks(logHooks{logger: c.Logger})
	return nil
}

// config returns the loaded config, or the defaults when setup has not run.
func (c *CLI) config() *config.Config {
	if c.Config == nil {
		c.Config = config.Default()
	}
	return c.Config
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. Local files are readable
// and both fetched sources and rendered art share one cache.
func (c *CLI) newRunner(noCache bool) *pipeline.Runner {
	return c.runnerWith(c.newCache(noCache), cache.NewDefaultKeyer(), true)
}

// runnerWith builds a runner around an already opened cache.
func (c *CLI) runnerWith(store cache.Cache, keyer cache.Keyer, localFiles bool) *pipeline.Runner {
	cfg := c.config()
	fetcher := fetch.New(c.fetchOptions(store, keyer, localFiles)...)
	runner := pipeline.NewRunner(fetcher, store, keyer, c.Logger)
	runner.ArtTTL = cfg.Cache.ArtTTL.Duration
	return runner
}

func (c *CLI) fetchOptions(store cache.Cache, keyer cache.Keyer, localFiles bool) []fetch.Option {
	cfg := c.config()
	return []fetch.Option{
		fetch.WithLogger(c.Logger),
		fetch.WithCache(store, keyer),
		fetch.WithTTL(cfg.Cache.SourceTTL.Duration),
		fetch.WithTimeout(cfg.Fetch.Timeout.Duration),
		fetch.WithMaxBytes(cfg.Fetch.MaxBytes),
		fetch.WithRetry(cfg.Fetch.Retries, cfg.Fetch.RetryDelay.Duration),
		fetch.WithLocalFiles(localFiles),
	}
}

// newCache opens the file cache, falling back to no caching when the
// directory cannot be created.
func (c *CLI) newCache(noCache bool) cache.Cache {
	cfg := c.config()
	if noCache || cfg.Cache.Disabled {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "dir", cfg.Cache.Dir, "error", err)
		return cache.NewNullCache()
	}
	return fc
}

// cacheDir returns the configured cache directory.
func (c *CLI) cacheDir() string {
	return c.config().Cache.Dir
}
