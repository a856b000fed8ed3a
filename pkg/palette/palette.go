// Package palette maps grayscale intensities to glyphs.
//
// A palette is an ordered, immutable set of N distinct glyphs. The range of
// 8-bit intensities [0, 256) is split into N contiguous buckets of equal
// width (up to integer rounding) and each bucket is rendered with the glyph
// at the same index:
//
//	bucket(i) = floor(i * N / 256)
//
// Intensity 0 always lands in bucket 0 and intensity 255 always lands in
// bucket N-1, for every N >= 1.
//
// # Usage
//
//	p := palette.Default()
//	p.Convert(0)   // '#'
//	p.Convert(255) // '-'
//
//	custom, err := palette.New(" .:-=+*#%@")
package palette

import (
	"unicode"
	"unicode/utf8"

	"github.com/matzehuels/textart/pkg/errors"
)

// MinIntensity and MaxIntensity bound the 8-bit intensity range.
const (
	MinIntensity = 0
	MaxIntensity = 255
)

// DefaultGlyphs is the built-in 7-glyph palette, from the glyph used for
// intensity 0 to the glyph used for intensity 255.
const DefaultGlyphs = "#$@%*+-"

// Schema maps an intensity to a display glyph.
//
// Implementations must be deterministic and total: every int yields a glyph.
// The converter depends only on this interface, so any palette strategy can
// be substituted without touching the conversion pipeline.
type Schema interface {
	Convert(intensity int) rune
}

// Palette is the standard Schema: uniform buckets over an ordered glyph set.
// A Palette is immutable and safe for concurrent use.
type Palette struct {
	glyphs []rune
}

// New creates a Palette from glyphs, ordered from the glyph for intensity 0
// to the glyph for intensity 255.
//
// It returns an INVALID_PALETTE error if glyphs is empty, contains a
// non-printable rune, or repeats a glyph.
func New(glyphs string) (*Palette, error) {
	if glyphs == "" {
		return nil, errors.New(errors.ErrCodeInvalidPalette, "palette needs at least one glyph")
	}
	if !utf8.ValidString(glyphs) {
		return nil, errors.New(errors.ErrCodeInvalidPalette, "palette is not valid UTF-8")
	}

	runes := []rune(glyphs)
	seen := make(map[rune]bool, len(runes))
	for _, r := range runes {
		if !unicode.IsPrint(r) {
			return nil, errors.New(errors.ErrCodeInvalidPalette, "palette glyph %q is not printable", r)
		}
		if seen[r] {
			return nil, errors.New(errors.ErrCodeInvalidPalette, "palette glyph %q appears more than once", r)
		}
		seen[r] = true
	}
	return &Palette{glyphs: runes}, nil
}

// MustNew is like New but panics on an invalid palette.
// It is meant for package-level palettes built from constants.
func MustNew(glyphs string) *Palette {
	p, err := New(glyphs)
	if err != nil {
		panic(err)
	}
	return p
}

// Default returns the built-in 7-glyph palette "#$@%*+-".
func Default() *Palette {
	return MustNew(DefaultGlyphs)
}

// Convert returns the glyph for intensity.
//
// Intensities outside [0, 255] are clamped: negative values render as the
// glyph for 0 and values above 255 render as the glyph for 255.
func (p *Palette) Convert(intensity int) rune {
	return p.glyphs[p.Bucket(intensity)]
}

// Bucket returns the bucket index intensity falls into.
func (p *Palette) Bucket(intensity int) int {
	return Bucket(intensity, len(p.glyphs))
}

// Len returns the number of glyphs.
func (p *Palette) Len() int { return len(p.glyphs) }

// Glyphs returns the glyphs in bucket order.
func (p *Palette) Glyphs() string { return string(p.glyphs) }

// String implements fmt.Stringer.
func (p *Palette) String() string { return string(p.glyphs) }

// Reverse returns a new Palette with the glyph order flipped.
// Use it when the output is shown light-on-dark instead of dark-on-light.
func (p *Palette) Reverse() *Palette {
	n := len(p.glyphs)
	out := make([]rune, n)
	for i, r := range p.glyphs {
		out[n-1-i] = r
	}
	return &Palette{glyphs: out}
}

// Bucket computes floor(intensity*n/256) with intensity clamped into
// [0, 255] and the result clamped into [0, n-1]. n < 1 is treated as 1.
func Bucket(intensity, n int) int {
	if n < 1 {
		n = 1
	}
	intensity = max(MinIntensity, min(intensity, MaxIntensity))
	return min(intensity*n/(MaxIntensity+1), n-1)
}

// Ensure Palette implements Schema.
var _ Schema = (*Palette)(nil)
