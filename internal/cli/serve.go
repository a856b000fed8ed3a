package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/textart/internal/server"
	"github.com/matzehuels/textart/pkg/cache"
	"github.com/matzehuels/textart/pkg/config"
)

// serveFlags holds flag values for the serve command.
type serveFlags struct {
	addr          string
	redisAddr     string
	maxUpload     int64
	maxPixels     int64
	maxConcurrent int
	noCache       bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion API",
		Long: `Run the HTTP conversion API.

Conversions are cached in Redis when --redis-addr (or server.redis_addr) is
set, and in the local cache directory otherwise. The server never reads
local files on behalf of clients.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, &flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.addr, "addr", "", "listen address (default from config, \":8080\")")
	f.StringVar(&flags.redisAddr, "redis-addr", "", "Redis address for the shared cache")
	f.Int64Var(&flags.maxUpload, "max-upload", 0, "maximum upload size in bytes")
	f.Int64Var(&flags.maxPixels, "max-pixels", 0, "maximum image width*height accepted before decoding")
	f.IntVar(&flags.maxConcurrent, "max-concurrent", 0, "conversions processed at once")
	f.BoolVar(&flags.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, flags *serveFlags) error {
	ctx := cmd.Context()
	sc := c.config().Server

	if flags.addr != "" {
		sc.Addr = flags.addr
	}
	if flags.redisAddr != "" {
		sc.RedisAddr = flags.redisAddr
	}
	if flags.maxUpload > 0 {
		sc.MaxUpload = flags.maxUpload
	}
	if flags.maxPixels > 0 {
		sc.MaxPixels = flags.maxPixels
	}

	store, err := c.serverCache(ctx, sc, flags.noCache)
	if err != nil {
		return err
	}
	defer store.Close()

	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), sc.KeyPrefix)
	runner := c.runnerWith(store, keyer, false)

	srv := server.New(runner, c.Logger, server.Config{
		Addr:          sc.Addr,
		ReadTimeout:   sc.ReadTimeout.Duration,
		WriteTimeout:  sc.WriteTimeout.Duration,
		MaxUpload:     sc.MaxUpload,
		MaxPixels:     sc.MaxPixels,
		MaxConcurrent: flags.maxConcurrent,
	})
	return srv.ListenAndServe(ctx)
}

// serverCache opens Redis when an address is configured and the file
// cache otherwise.
func (c *CLI) serverCache(ctx context.Context, sc config.ServerConfig, noCache bool) (cache.Cache, error) {
	if noCache || sc.RedisAddr == "" {
		return c.newCache(noCache), nil
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     sc.RedisAddr,
		Password: sc.RedisPassword,
		DB:       sc.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	c.Logger.Info("using redis cache", "addr", sc.RedisAddr)
	return rc, nil
}
