package converter

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/matzehuels/textart/pkg/codec"
	terrors "github.com/matzehuels/textart/pkg/errors"
	"github.com/matzehuels/textart/pkg/palette"
)

// stubFetcher serves fixed bytes per source.
type stubFetcher struct {
	data map[string][]byte
	err  error
}

func (f *stubFetcher) Fetch(_ context.Context, source string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.data[source]
	if !ok {
		return nil, terrors.New(terrors.ErrCodeNotFound, "no such source %s", source)
	}
	return data, nil
}

// countingCodec wraps the default codec and counts calls per stage.
type countingCodec struct {
	codec.Codec
	mu                               sync.Mutex
	configs, decodes, resizes, grays int
}

func newCountingCodec() *countingCodec {
	return &countingCodec{Codec: codec.New()}
}

func (c *countingCodec) DecodeConfig(data []byte) (codec.Config, error) {
	c.mu.Lock()
	c.configs++
	c.mu.Unlock()
	return c.Codec.DecodeConfig(data)
}

func (c *countingCodec) Decode(data []byte) (image.Image, error) {
	c.mu.Lock()
	c.decodes++
	c.mu.Unlock()
	return c.Codec.Decode(data)
}

func (c *countingCodec) Resize(img image.Image, w, h int) image.Image {
	c.mu.Lock()
	c.resizes++
	c.mu.Unlock()
	return c.Codec.Resize(img, w, h)
}

func (c *countingCodec) Grayscale(img image.Image) *codec.Grid {
	c.mu.Lock()
	c.grays++
	c.mu.Unlock()
	return c.Codec.Grayscale(img)
}

// gradientPNG encodes a w x h horizontal black-to-white gradient.
func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / max(w-1, 1))
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// forgedPNG encodes a 1x1 PNG whose IHDR claims w x h.
func forgedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := gradientPNG(t, 1, 1)
	// Signature (8), chunk length (4) and "IHDR" (4) precede width and height.
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	// The chunk CRC covers the type and the 13 data bytes.
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestConvertDimensions(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxW, maxH   int
		wantW, wantH int
	}{
		{"no limits", 30, 12, 0, 0, 30, 12},
		{"max width 50 of 200x100", 200, 100, 50, 0, 50, 25},
		{"max height", 200, 100, 0, 10, 20, 10},
		{"smaller than limits", 16, 8, 100, 100, 16, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "img.png"
			c := New(&stubFetcher{data: map[string][]byte{src: gradientPNG(t, tt.w, tt.h)}})
			c.SetMaxWidth(tt.maxW)
			c.SetMaxHeight(tt.maxH)

			text, err := c.Convert(context.Background(), src)
			if err != nil {
				t.Fatalf("Convert() error: %v", err)
			}
			if !strings.HasSuffix(text, "\n") {
				t.Error("output should end with a newline")
			}

			lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
			if len(lines) != tt.wantH {
				t.Errorf("line count = %d, want %d", len(lines), tt.wantH)
			}
			for i, line := range lines {
				if n := utf8.RuneCountInString(line); n != 2*tt.wantW {
					t.Fatalf("line %d has %d glyphs, want %d", i, n, 2*tt.wantW)
				}
			}
		})
	}
}

func TestConvertDoublesGlyphs(t *testing.T) {
	c := New(nil)
	art, err := c.ConvertBytes(context.Background(), gradientPNG(t, 9, 3))
	if err != nil {
		t.Fatalf("ConvertBytes() error: %v", err)
	}
	for _, line := range art.Lines() {
		runes := []rune(line)
		for i := 0; i < len(runes); i += 2 {
			if runes[i] != runes[i+1] {
				t.Fatalf("glyph pair %d in %q differs", i/2, line)
			}
		}
	}
	first := art.Lines()[0]
	if !strings.HasPrefix(first, "##") || !strings.HasSuffix(first, "--") {
		t.Errorf("gradient row = %q, want dark '#' to light '-'", first)
	}
}

func TestConvertRatioRejectedBeforeDecode(t *testing.T) {
	src := "wide.png"
	cc := newCountingCodec()
	c := New(&stubFetcher{data: map[string][]byte{src: gradientPNG(t, 300, 100)}}, WithCodec(cc))
	c.SetMaxRatio(1.0)

	_, err := c.Convert(context.Background(), src)

	var bad *BadImageSizeError
	if !errors.As(err, &bad) {
		t.Fatalf("Convert() error = %v, want *BadImageSizeError", err)
	}
	if bad.Ratio != 3.0 || bad.MaxRatio != 1.0 {
		t.Errorf("BadImageSizeError = (%v, %v), want (3, 1)", bad.Ratio, bad.MaxRatio)
	}
	if !terrors.Is(err, terrors.ErrCodeBadImageSize) {
		t.Errorf("GetCode() = %q, want BAD_IMAGE_SIZE", terrors.GetCode(err))
	}
	if cc.configs != 1 || cc.decodes != 0 || cc.resizes != 0 || cc.grays != 0 {
		t.Errorf("codec calls config=%d decode=%d resize=%d gray=%d, want 1/0/0/0",
			cc.configs, cc.decodes, cc.resizes, cc.grays)
	}
}

func TestConvertPixelLimitRejectedBeforeDecode(t *testing.T) {
	data := forgedPNG(t, 100000, 100000)
	if len(data) > 200 {
		t.Fatalf("forged PNG is %d bytes, want a tiny file", len(data))
	}

	cc := newCountingCodec()
	c := New(nil, WithCodec(cc))
	c.SetMaxWidth(80)
	c.SetMaxPixels(1 << 20)

	_, err := c.ConvertBytes(context.Background(), data)

	var fe *ImageFetchError
	if !errors.As(err, &fe) {
		t.Fatalf("ConvertBytes() error = %v, want *ImageFetchError", err)
	}
	if code := terrors.GetCode(fe.Cause); code != terrors.ErrCodeTooLarge {
		t.Errorf("cause code = %q, want TOO_LARGE", code)
	}
	if cc.configs != 1 || cc.decodes != 0 {
		t.Errorf("codec calls config=%d decode=%d, want 1/0", cc.configs, cc.decodes)
	}
}

func TestConvertPixelLimitBoundary(t *testing.T) {
	data := gradientPNG(t, 20, 10)

	tests := []struct {
		name      string
		maxPixels int64
		wantErr   bool
	}{
		{"unlimited", 0, false},
		{"exact fit", 200, false},
		{"one short", 199, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(nil)
			c.SetMaxPixels(tt.maxPixels)
			_, err := c.ConvertBytes(context.Background(), data)
			if (err != nil) != tt.wantErr {
				t.Errorf("ConvertBytes() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConvertLegacyRatio(t *testing.T) {
	src := "img.png"
	c := New(&stubFetcher{data: map[string][]byte{src: gradientPNG(t, 150, 100)}})
	c.SetMaxRatio(1.0)

	if _, err := c.Convert(context.Background(), src); err == nil {
		t.Fatal("exact ratio 1.5 should exceed 1.0")
	}

	c.SetRatioMode(RatioTruncate)
	if _, err := c.Convert(context.Background(), src); err != nil {
		t.Errorf("truncated ratio 1 should pass: %v", err)
	}
}

func TestConvertFetchErrors(t *testing.T) {
	cause := terrors.New(terrors.ErrCodeNetwork, "connection refused")

	tests := []struct {
		name    string
		fetcher Fetcher
		source  string
	}{
		{"fetch failure", &stubFetcher{err: cause}, "https://example.com/a.png"},
		{"missing source", &stubFetcher{}, "nope.png"},
		{"garbage bytes", &stubFetcher{data: map[string][]byte{"x": []byte("not an image")}}, "x"},
		{"no fetcher", nil, "a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New(tt.fetcher).Convert(context.Background(), tt.source)
			var fe *ImageFetchError
			if !errors.As(err, &fe) {
				t.Fatalf("Convert() error = %v, want *ImageFetchError", err)
			}
			if fe.Source != tt.source {
				t.Errorf("Source = %q, want %q", fe.Source, tt.source)
			}
			if out != "" {
				t.Error("failed conversion should return no text")
			}
			if !terrors.Is(err, terrors.ErrCodeImageFetch) {
				t.Errorf("GetCode() = %q, want IMAGE_FETCH", terrors.GetCode(err))
			}
		})
	}

	_, err := New(&stubFetcher{err: cause}).Convert(context.Background(), "a")
	if !errors.Is(err, cause) {
		t.Error("ImageFetchError should unwrap to the fetch cause")
	}
}

func TestConvertInvalidLimits(t *testing.T) {
	c := New(nil)
	c.SetMaxWidth(-1)
	_, err := c.ConvertBytes(context.Background(), gradientPNG(t, 4, 4))
	if !terrors.Is(err, terrors.ErrCodeInvalidLimits) {
		t.Errorf("ConvertBytes() error = %v, want INVALID_LIMITS", err)
	}
}

func TestConvertIdempotent(t *testing.T) {
	src := "img.png"
	c := New(&stubFetcher{data: map[string][]byte{src: gradientPNG(t, 64, 32)}})
	c.SetMaxWidth(20)

	first, err := c.Convert(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Convert(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("converting the same source twice should give identical output")
	}
}

func TestSetColorSchema(t *testing.T) {
	c := New(nil)
	data := gradientPNG(t, 8, 2)

	c.SetColorSchema(palette.MustNew("ab"))
	art, err := c.ConvertBytes(context.Background(), data)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Trim(art.Text, "ab\n") != "" {
		t.Errorf("output %q should only use the custom glyphs", art.Text)
	}

	c.SetColorSchema(nil)
	if got := c.Options().Schema; got == nil {
		t.Fatal("Options().Schema should resolve to the default palette")
	}
	if c.Options().Schema != c.Options().Schema {
		t.Error("default schema should be created once and shared")
	}
}

func TestOptionsSnapshot(t *testing.T) {
	c := New(nil, WithOptions(Options{MaxWidth: 10}))
	snap := c.Options()
	c.SetMaxWidth(99)

	if snap.MaxWidth != 10 {
		t.Errorf("snapshot MaxWidth = %d, want 10", snap.MaxWidth)
	}
	if c.Options().MaxWidth != 99 {
		t.Errorf("Options().MaxWidth = %d, want 99", c.Options().MaxWidth)
	}
}

func TestConcurrentSettersAndConversions(t *testing.T) {
	src := "img.png"
	c := New(&stubFetcher{data: map[string][]byte{src: gradientPNG(t, 40, 20)}})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.SetMaxWidth(5 + i)
		}()
		go func() {
			defer wg.Done()
			if _, err := c.Convert(context.Background(), src); err != nil {
				t.Errorf("Convert() error: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()
	c := New(nil)

	path := filepath.Join(dir, "out.png")
	c.SetSnapshotPath(path)
	if _, err := c.ConvertBytes(context.Background(), gradientPNG(t, 6, 3)); err != nil {
		t.Fatalf("ConvertBytes() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}

	c.SetSnapshotPath(filepath.Join(dir, "missing", "dir", "out.png"))
	if _, err := c.ConvertBytes(context.Background(), gradientPNG(t, 6, 3)); err != nil {
		t.Errorf("snapshot failure should not fail conversion: %v", err)
	}
}

func TestArtMetadata(t *testing.T) {
	art, err := New(nil).ConvertData(context.Background(), "upload", gradientPNG(t, 200, 100), Options{MaxWidth: 50})
	if err != nil {
		t.Fatal(err)
	}
	if art.SourceWidth != 200 || art.SourceHeight != 100 {
		t.Errorf("source size = %dx%d, want 200x100", art.SourceWidth, art.SourceHeight)
	}
	if art.Width != 50 || art.Height != 25 || art.Factor != 4 {
		t.Errorf("grid = %dx%d factor %v, want 50x25 factor 4", art.Width, art.Height, art.Factor)
	}
	if art.Format != "png" {
		t.Errorf("Format = %q, want png", art.Format)
	}
	if len(art.Lines()) != 25 {
		t.Errorf("Lines() = %d, want 25", len(art.Lines()))
	}
}

func TestArtLinesEmpty(t *testing.T) {
	if lines := (&Art{}).Lines(); lines != nil {
		t.Errorf("Lines() on empty art = %v, want nil", lines)
	}
}
