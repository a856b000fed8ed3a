package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/textart/pkg/cache"
	"github.com/matzehuels/textart/pkg/converter"
	"github.com/matzehuels/textart/pkg/fetch"
	"github.com/matzehuels/textart/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its collaborators - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Fetcher   *fetch.Fetcher
	Converter *converter.Converter
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger

	// ArtTTL is the lifetime of cached art. Zero selects cache.TTLArt.
	ArtTTL time.Duration
}

// NewRunner creates a runner around fetcher and an art cache.
// If fetcher is nil, a default fetcher without a source cache is used.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(fetcher *fetch.Fetcher, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if fetcher == nil {
		fetcher = fetch.New(fetch.WithLogger(logger))
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Runner{
		Fetcher:   fetcher,
		Converter: converter.New(fetcher, converter.WithLogger(logger)),
		Cache:     c,
		Keyer:     keyer,
		Logger:    logger,
		ArtTTL:    cache.TTLArt,
	}
}

// Execute runs the complete fetch → convert pipeline with caching.
// Conversion errors are returned unchanged (*converter.ImageFetchError,
// *converter.BadImageSizeError) and are never cached.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger

	result := &Result{}

	// Stage 1: Fetch
	fetchStart := time.Now()
	data, sourceHit, err := r.load(ctx, opts)
	if err != nil {
		return nil, &converter.ImageFetchError{Source: opts.Source, Cause: err}
	}
	result.Stats.FetchTime = time.Since(fetchStart)
	result.Stats.Bytes = len(data)
	result.CacheInfo.SourceHit = sourceHit
	result.Digest = cache.Hash(data)

	logger.Debug("loaded source",
		"source", opts.Source,
		"bytes", len(data),
		"cached", sourceHit,
		"duration", result.Stats.FetchTime)

	// Stage 2: Convert
	convertStart := time.Now()
	art, artHit, err := r.ConvertWithCacheInfo(ctx, result.Digest, data, opts)
	if err != nil {
		return nil, err
	}
	result.Art = art
	result.Stats.ConvertTime = time.Since(convertStart)
	result.CacheInfo.ArtHit = artHit

	logger.Debug("converted",
		"source", opts.Source,
		"grid", fmt.Sprintf("%dx%d", art.Width, art.Height),
		"cached", artHit,
		"duration", result.Stats.ConvertTime)

	return result, nil
}

// ConvertWithCacheInfo renders data with caching and returns cache hit info.
// A snapshot request always converts so the snapshot gets written.
func (r *Runner) ConvertWithCacheInfo(ctx context.Context, digest string, data []byte, opts Options) (*converter.Art, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	key := r.Keyer.ArtKey(digest, opts.ArtKeyOpts())
	hooks := observability.Cache()

	// Try cache first (unless refresh requested)
	if !opts.Refresh && opts.Snapshot == "" {
		if cached, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var art converter.Art
			if err := json.Unmarshal(cached, &art); err == nil {
				hooks.OnCacheHit(ctx, "art")
				return &art, true, nil
			}
		} else if err != nil {
			opts.Logger.Warn("art cache read failed", "error", err)
		}
		hooks.OnCacheMiss(ctx, "art")
	}

	art, err := r.Converter.ConvertData(ctx, opts.Source, data, opts.ConverterOptions())
	if err != nil {
		return nil, false, err
	}

	if encoded, err := json.Marshal(art); err == nil {
		if err := r.Cache.Set(ctx, key, encoded, r.artTTL()); err != nil {
			opts.Logger.Warn("art cache write failed", "error", err)
		} else {
			hooks.OnCacheSet(ctx, "art", len(encoded))
		}
	}
	return art, false, nil
}

// Convert is a convenience wrapper around Execute returning only the text.
func (r *Runner) Convert(ctx context.Context, opts Options) (string, error) {
	res, err := r.Execute(ctx, opts)
	if err != nil {
		return "", err
	}
	return res.Art.Text, nil
}

func (r *Runner) load(ctx context.Context, opts Options) ([]byte, bool, error) {
	if opts.Data != nil {
		return opts.Data, false, nil
	}
	res, err := r.Fetcher.Get(ctx, opts.Source, opts.Refresh)
	if err != nil {
		return nil, false, err
	}
	return res.Data, res.Cached, nil
}

func (r *Runner) artTTL() time.Duration {
	if r.ArtTTL > 0 {
		return r.ArtTTL
	}
	return cache.TTLArt
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
