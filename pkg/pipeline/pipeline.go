// Package pipeline runs the fetch → convert pipeline shared by the CLI and
// the HTTP API.
//
// The pipeline has two stages:
//
//  1. Fetch: load the source bytes (remote bodies are cached by the fetcher)
//  2. Convert: render text art, cached by image digest and options
//
// # Usage
//
//	runner := pipeline.NewRunner(fetcher, cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:   "https://example.com/cat.png",
//	    MaxWidth: 80,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(result.Art.Text)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/textart/pkg/cache"
	"github.com/matzehuels/textart/pkg/converter"
	"github.com/matzehuels/textart/pkg/errors"
	"github.com/matzehuels/textart/pkg/palette"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// DefaultPalette is the palette used when neither a name nor glyphs are given.
const DefaultPalette = palette.NameDefault

// bytesLabel names in-memory sources in logs and errors.
const bytesLabel = "bytes"

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one conversion.
// This struct supports JSON serialization for API requests.
type Options struct {
	Source      string  `json:"source"`
	MaxWidth    int     `json:"max_width,omitempty"`
	MaxHeight   int     `json:"max_height,omitempty"`
	MaxRatio    float64 `json:"max_ratio,omitempty"`
	Palette     string  `json:"palette,omitempty"` // built-in palette name
	Glyphs      string  `json:"glyphs,omitempty"`  // custom glyphs, overrides Palette
	Invert      bool    `json:"invert,omitempty"`
	LegacyRatio bool    `json:"legacy_ratio,omitempty"`
	Refresh     bool    `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Data      []byte      `json:"-"` // pre-loaded image bytes; Source is then only a label
	Snapshot  string      `json:"-"` // grayscale debug snapshot path
	MaxPixels int64       `json:"-"` // header pixel limit set by the caller, not the client
	Logger    *log.Logger `json:"-"`

	schema    *palette.Palette
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Art is the rendered text and its dimensions.
	Art *converter.Art

	// Digest is the SHA-256 of the source bytes.
	Digest string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Bytes       int
	FetchTime   time.Duration
	ConvertTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SourceHit bool // Whether the source bytes came from cache
	ArtHit    bool // Whether the rendered art came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the source and limits and resolves the palette.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.Data == nil {
		if err := errors.ValidateSource(o.Source); err != nil {
			return err
		}
	} else if o.Source == "" {
		o.Source = bytesLabel
	}
	if err := errors.ValidateLimits(o.MaxWidth, o.MaxHeight, o.MaxRatio); err != nil {
		return err
	}
	if err := errors.ValidatePixelLimit(o.MaxPixels); err != nil {
		return err
	}

	p, err := o.resolvePalette()
	if err != nil {
		return err
	}
	o.schema = p

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

func (o *Options) resolvePalette() (*palette.Palette, error) {
	var (
		p   *palette.Palette
		err error
	)
	switch {
	case o.Glyphs != "":
		p, err = palette.New(o.Glyphs)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPalette, err, "invalid glyphs %q", o.Glyphs)
		}
	default:
		if o.Palette == "" {
			o.Palette = DefaultPalette
		}
		if p, err = palette.Lookup(o.Palette); err != nil {
			return nil, err
		}
	}
	if o.Invert {
		p = p.Reverse()
	}
	return p, nil
}

// Schema returns the resolved palette. It is nil before ValidateAndSetDefaults.
func (o *Options) Schema() *palette.Palette {
	return o.schema
}

// RatioMode returns the ratio arithmetic selected by LegacyRatio.
func (o *Options) RatioMode() converter.RatioMode {
	if o.LegacyRatio {
		return converter.RatioTruncate
	}
	return converter.RatioExact
}

// ConverterOptions returns the converter configuration for these options.
func (o *Options) ConverterOptions() converter.Options {
	co := converter.Options{
		MaxWidth:     o.MaxWidth,
		MaxHeight:    o.MaxHeight,
		MaxRatio:     o.MaxRatio,
		RatioMode:    o.RatioMode(),
		MaxPixels:    o.MaxPixels,
		SnapshotPath: o.Snapshot,
	}
	if o.schema != nil {
		co.Schema = o.schema
	}
	return co
}

// ArtKeyOpts returns every option that changes the rendered text.
// The resolved glyphs are used, so "dense" and its literal glyphs share
// cache entries.
func (o *Options) ArtKeyOpts() cache.ArtKeyOpts {
	opts := cache.ArtKeyOpts{
		MaxWidth:    o.MaxWidth,
		MaxHeight:   o.MaxHeight,
		MaxRatio:    o.MaxRatio,
		LegacyRatio: o.LegacyRatio,
	}
	if o.schema != nil {
		opts.Glyphs = o.schema.Glyphs()
	}
	return opts
}
