package converter

import (
	"math"

	terrors "github.com/matzehuels/textart/pkg/errors"
)

// RatioMode selects how the width/height ratio is computed for the
// maximum ratio check.
type RatioMode int

const (
	// RatioExact divides as real numbers.
	RatioExact RatioMode = iota

	// RatioTruncate divides as integers before comparing, so 299x100
	// counts as 2. It reproduces the output of older releases and lets
	// many wide images through.
	RatioTruncate
)

// String returns "exact" or "truncate".
func (m RatioMode) String() string {
	if m == RatioTruncate {
		return "truncate"
	}
	return "exact"
}

// Ratio returns width/height under mode.
func Ratio(width, height int, mode RatioMode) float64 {
	if height <= 0 {
		return math.Inf(1)
	}
	if mode == RatioTruncate {
		return float64(width / height)
	}
	return float64(width) / float64(height)
}

// CheckRatio returns a *BadImageSizeError when maxRatio is set and the
// image ratio exceeds it. Tall images are never rejected.
func CheckRatio(width, height int, maxRatio float64, mode RatioMode) error {
	if maxRatio <= 0 {
		return nil
	}
	if r := Ratio(width, height, mode); r > maxRatio {
		return &BadImageSizeError{Ratio: r, MaxRatio: maxRatio}
	}
	return nil
}

// checkPixels returns a TOO_LARGE error when maxPixels is set and the
// width x height raster exceeds it.
func checkPixels(width, height int, maxPixels int64) error {
	if maxPixels <= 0 {
		return nil
	}
	if n := int64(width) * int64(height); n > maxPixels {
		return terrors.New(terrors.ErrCodeTooLarge, "image %dx%d has %d pixels, limit is %d", width, height, n, maxPixels)
	}
	return nil
}

// ShrinkFactor returns the uniform factor that fits width x height into
// the limits. Limits of 0 are ignored and the result is never below 1, so
// images are never upscaled.
func ShrinkFactor(width, height, maxWidth, maxHeight int) float64 {
	factor := 1.0
	if maxHeight > 0 {
		factor = max(factor, float64(height)/float64(maxHeight))
	}
	if maxWidth > 0 {
		factor = max(factor, float64(width)/float64(maxWidth))
	}
	return factor
}

// TargetSize returns the output grid size for an image of width x height.
// Each side is divided by [ShrinkFactor], rounded half up, and kept at
// least 1.
func TargetSize(width, height, maxWidth, maxHeight int) (int, int) {
	if maxWidth <= 0 && maxHeight <= 0 {
		return width, height
	}
	f := ShrinkFactor(width, height, maxWidth, maxHeight)
	w := int(math.Floor(float64(width)/f + 0.5))
	h := int(math.Floor(float64(height)/f + 0.5))
	return max(w, 1), max(h, 1)
}
