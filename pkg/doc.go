// Package pkg provides the core libraries for Textart image-to-text conversion.
//
// # Overview
//
// Textart loads an image, shrinks it to fit optional width and height
// limits, converts it to grayscale and maps every pixel to a glyph. Each
// glyph is written twice so the output keeps roughly the image's aspect
// ratio in a terminal. The pkg directory is organized into three areas:
//
//  1. Domain logic: [palette], [converter], [codec]
//  2. Infrastructure: [fetch], [cache], [config], [observability], [errors]
//  3. Orchestration: [pipeline]
//
// # Architecture
//
// The typical data flow through Textart:
//
//	URL / file / upload
//	         ↓
//	    [fetch] package (download or read, with source cache)
//	         ↓
//	    [converter] package (ratio check, shrink, grayscale)
//	         ↓
//	    [palette] package (intensity → glyph)
//	         ↓
//	    text art (+ optional grayscale snapshot via [codec])
//
// [pipeline] ties the stages together with an art cache and is shared by
// the CLI and the HTTP API.
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, nil, nil)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Source:   "https://example.com/cat.png",
//	    MaxWidth: 80,
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Print(res.Art.Text)
//
// Or use the converter directly:
//
//	c := converter.New(fetch.New())
//	c.SetMaxWidth(80)
//	text, err := c.Convert(ctx, "cat.png")
//
// # Main Packages
//
// [palette] - Glyph palettes. A Palette splits 0-255 into equal buckets,
// one per glyph, darkest first. Built-in palettes are default, simple and dense.
//
// [converter] - The conversion engine with its mutable limits, ratio rules
// and typed errors (ImageFetchError, BadImageSizeError).
//
// [codec] - Image decoding (PNG, JPEG, GIF, BMP, TIFF, WebP) and the
// grayscale resize used by the converter.
//
// [fetch] - Source loading over HTTP(S) or from disk, with size limits,
// retries and a source cache.
//
// [cache] - Cache backends: FileCache (CLI), RedisCache (API) and NullCache.
//
// [config] - TOML configuration file under the XDG config directory.
//
// # Testing
//
//	go test ./...                # All tests
//	go test ./pkg/converter/...  # Specific package
//	go test -run Example ./...   # Examples only
//
// Redis tests run when TEXTART_REDIS_ADDR is set.
//
// [palette]: https://pkg.go.dev/github.com/matzehuels/textart/pkg/palette
// [converter]: https://pkg.go.dev/github.com/matzehuels/textart/pkg/converter
// [codec]: https://pkg.go.dev/github.com/matzehuels/textart/pkg/codec
// [fetch]: https://pkg.go.dev/github.com/matzehuels/textart/pkg/fetch
// [cache]: https://pkg.go.dev/github.com/matzehuels/textart/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/textart/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/textart/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/textart/pkg/errors
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/textart/pkg/pipeline
package pkg
