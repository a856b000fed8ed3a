// Package converter turns raster images into monochrome text art.
//
// A conversion reads the image dimensions, enforces the optional maximum
// width/height ratio, shrinks the image uniformly to fit the optional
// width and height limits, desaturates it and maps every pixel through a
// [palette.Schema]. Each glyph is written twice so that the text block
// keeps the image's aspect ratio in a typical monospace font.
//
// # Configuration
//
// A [Converter] holds mutable limits set through SetMaxWidth,
// SetMaxHeight, SetMaxRatio and SetColorSchema. Every conversion works on
// an [Options] snapshot taken at entry, so setters may be called while
// other conversions are running.
//
// # Errors
//
// Failures to retrieve or decode the source are reported as
// *[ImageFetchError]; a ratio violation as *[BadImageSizeError]. Nothing
// is retried and no partial output is returned.
package converter

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/textart/pkg/codec"
	terrors "github.com/matzehuels/textart/pkg/errors"
	"github.com/matzehuels/textart/pkg/observability"
	"github.com/matzehuels/textart/pkg/palette"
)

// Fetcher loads the raw bytes behind a source locator.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// Options is an immutable conversion configuration. Zero limits mean
// unconstrained; a nil Schema means the default palette.
type Options struct {
	MaxWidth  int
	MaxHeight int
	MaxRatio  float64
	Schema    palette.Schema
	RatioMode RatioMode

	// MaxPixels bounds width*height as declared by the image header. It
	// is checked before decoding so a small file cannot claim a huge
	// raster. 0 means unconstrained.
	MaxPixels int64

	// SnapshotPath, when set, receives the grayscale grid as an image.
	// Write failures are logged and do not fail the conversion.
	SnapshotPath string
}

// Validate rejects negative or non-finite limits.
func (o Options) Validate() error {
	if err := terrors.ValidateLimits(o.MaxWidth, o.MaxHeight, o.MaxRatio); err != nil {
		return err
	}
	return terrors.ValidatePixelLimit(o.MaxPixels)
}

// Converter renders images as text. It is safe for concurrent use.
type Converter struct {
	fetcher Fetcher
	codec   codec.Codec
	logger  *log.Logger

	mu   sync.Mutex
	opts Options

	defaultOnce   sync.Once
	defaultSchema palette.Schema
}

// Option configures a Converter.
type Option func(*Converter)

// WithCodec replaces the image codec.
func WithCodec(c codec.Codec) Option {
	return func(cv *Converter) {
		if c != nil {
			cv.codec = c
		}
	}
}

// WithLogger sets the logger used for conversion diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(cv *Converter) {
		if l != nil {
			cv.logger = l
		}
	}
}

// WithOptions sets the initial configuration.
func WithOptions(o Options) Option {
	return func(cv *Converter) { cv.opts = o }
}

// New creates a Converter that reads sources through fetcher. A nil
// fetcher is allowed when only ConvertBytes and ConvertImage are used.
func New(fetcher Fetcher, opts ...Option) *Converter {
	c := &Converter{
		fetcher: fetcher,
		codec:   codec.New(),
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetMaxWidth limits the output width in grid columns. 0 removes the limit.
func (c *Converter) SetMaxWidth(w int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.MaxWidth = w
}

// SetMaxHeight limits the output height in rows. 0 removes the limit.
func (c *Converter) SetMaxHeight(h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.MaxHeight = h
}

// SetMaxRatio limits the source width/height ratio. 0 removes the limit.
func (c *Converter) SetMaxRatio(r float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.MaxRatio = r
}

// SetColorSchema sets the intensity to glyph strategy. nil restores the
// default palette.
func (c *Converter) SetColorSchema(s palette.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Schema = s
}

// SetMaxPixels limits the decoded raster size. 0 removes the limit.
func (c *Converter) SetMaxPixels(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.MaxPixels = n
}

// SetRatioMode selects exact or truncating ratio arithmetic.
func (c *Converter) SetRatioMode(m RatioMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.RatioMode = m
}

// SetSnapshotPath enables the grayscale debug snapshot. "" disables it.
func (c *Converter) SetSnapshotPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.SnapshotPath = path
}

// Options returns a snapshot of the current configuration with the
// schema resolved.
func (c *Converter) Options() Options {
	c.mu.Lock()
	o := c.opts
	c.mu.Unlock()
	o.Schema = c.schema(o.Schema)
	return o
}

// schema returns s, or the shared default palette created on first use.
func (c *Converter) schema(s palette.Schema) palette.Schema {
	if s != nil {
		return s
	}
	c.defaultOnce.Do(func() { c.defaultSchema = palette.Default() })
	return c.defaultSchema
}

// Convert fetches source and returns its text art.
func (c *Converter) Convert(ctx context.Context, source string) (string, error) {
	art, err := c.ConvertSource(ctx, source)
	if err != nil {
		return "", err
	}
	return art.Text, nil
}

// ConvertSource fetches source and renders it with the current options.
func (c *Converter) ConvertSource(ctx context.Context, source string) (*Art, error) {
	opts := c.Options()
	if c.fetcher == nil {
		return nil, &ImageFetchError{Source: source, Cause: terrors.New(terrors.ErrCodeUnsupported, "converter has no fetcher")}
	}
	data, err := c.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, &ImageFetchError{Source: source, Cause: err}
	}
	return c.ConvertData(ctx, source, data, opts)
}

// ConvertBytes renders encoded image bytes with the current options.
func (c *Converter) ConvertBytes(ctx context.Context, data []byte) (*Art, error) {
	return c.ConvertData(ctx, "bytes", data, c.Options())
}

// ConvertData renders encoded image bytes with opts. source only labels
// logs, hooks and errors.
//
// The ratio and pixel checks run on the header dimensions, before the
// image is decoded.
func (c *Converter) ConvertData(ctx context.Context, source string, data []byte, opts Options) (art *Art, err error) {
	start := time.Now()
	hooks := observability.Convert()
	hooks.OnConvertStart(ctx, source)
	defer func() {
		var w, h int
		if art != nil {
			w, h = art.Width, art.Height
		}
		hooks.OnConvertComplete(ctx, source, w, h, time.Since(start), err)
	}()

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Schema = c.schema(opts.Schema)

	cfg, err := c.codec.DecodeConfig(data)
	if err != nil {
		return nil, &ImageFetchError{Source: source, Cause: err}
	}
	if err := CheckRatio(cfg.Width, cfg.Height, opts.MaxRatio, opts.RatioMode); err != nil {
		c.logger.Debug("rejected image ratio", "source", source, "width", cfg.Width, "height", cfg.Height, "max_ratio", opts.MaxRatio)
		return nil, err
	}
	if err := checkPixels(cfg.Width, cfg.Height, opts.MaxPixels); err != nil {
		c.logger.Debug("rejected image size", "source", source, "width", cfg.Width, "height", cfg.Height, "max_pixels", opts.MaxPixels)
		return nil, &ImageFetchError{Source: source, Cause: err}
	}

	img, err := c.codec.Decode(data)
	if err != nil {
		return nil, &ImageFetchError{Source: source, Cause: err}
	}

	art, err = c.ConvertImage(img, opts)
	if err != nil {
		return nil, err
	}
	art.Format = cfg.Format

	c.logger.Debug("converted image",
		"source", source,
		"format", cfg.Format,
		"size", fmt.Sprintf("%dx%d", art.SourceWidth, art.SourceHeight),
		"grid", fmt.Sprintf("%dx%d", art.Width, art.Height),
		"duration", time.Since(start))
	return art, nil
}

// ConvertImage renders an already decoded image with opts.
func (c *Converter) ConvertImage(img image.Image, opts Options) (*Art, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	schema := c.schema(opts.Schema)

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return nil, &ImageFetchError{Source: "image", Cause: fmt.Errorf("empty image %dx%d", width, height)}
	}
	if err := CheckRatio(width, height, opts.MaxRatio, opts.RatioMode); err != nil {
		return nil, err
	}

	newWidth, newHeight := TargetSize(width, height, opts.MaxWidth, opts.MaxHeight)
	resized := c.codec.Resize(img, newWidth, newHeight)
	grid := c.codec.Grayscale(resized)

	if opts.SnapshotPath != "" {
		if err := codec.SaveGrid(opts.SnapshotPath, grid); err != nil {
			c.logger.Warn("snapshot not written", "path", opts.SnapshotPath, "error", err)
		}
	}

	return &Art{
		Text:         render(grid, schema),
		SourceWidth:  width,
		SourceHeight: height,
		Width:        grid.Width,
		Height:       grid.Height,
		Factor:       ShrinkFactor(width, height, opts.MaxWidth, opts.MaxHeight),
	}, nil
}
