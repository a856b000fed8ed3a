// Package codec decodes, resizes and desaturates raster images.
//
// The converter treats image handling as an external collaborator and
// talks to it only through the [Codec] interface. [Imaging] is the default
// implementation, built on github.com/disintegration/imaging.
//
// # Formats
//
// PNG, JPEG, GIF, BMP and TIFF are registered by imaging; WebP is
// registered here via golang.org/x/image/webp. Animated GIFs decode to
// their first frame.
//
// # Intensity convention
//
// Grayscale intensities are 8-bit values where 0 is black and 255 is white.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP decoder
)

// Config holds the dimensions and format of an encoded image.
type Config struct {
	Width  int
	Height int
	Format string
}

// Codec is the image backend used by the converter.
type Codec interface {
	// DecodeConfig reads only the image header.
	DecodeConfig(data []byte) (Config, error)

	// Decode decodes the full image.
	Decode(data []byte) (image.Image, error)

	// Resize scales img to exactly width x height using the codec's
	// smooth downscale policy.
	Resize(img image.Image, width, height int) image.Image

	// Grayscale converts img to a single-channel intensity grid.
	Grayscale(img image.Image) *Grid
}

// Imaging is the default Codec.
//
// Resampling uses imaging.Box, an area-averaging filter: every output pixel
// is the mean of the source pixels it covers. Transparent pixels are
// flattened over black before desaturation, and luma uses Rec. 601 weights
// (0.299R + 0.587G + 0.114B).
type Imaging struct{}

// New returns the default codec.
func New() Imaging { return Imaging{} }

// DecodeConfig implements Codec.
func (Imaging) DecodeConfig(data []byte) (Config, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Config{}, fmt.Errorf("decode image header: invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return Config{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Decode implements Codec. JPEG EXIF orientation is applied.
func (Imaging) Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Resize implements Codec. Sizes equal to the source return img unchanged.
func (Imaging) Resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return imaging.Resize(img, width, height, imaging.Box)
}

// Grayscale implements Codec.
func (Imaging) Grayscale(img image.Image) *Grid {
	b := img.Bounds()
	flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.Black), img, image.Pt(0, 0), 1.0)
	gray := imaging.Grayscale(flat)

	g := NewGrid(b.Dx(), b.Dy())
	for y := 0; y < g.Height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < g.Width; x++ {
			// All three channels carry the luma value.
			g.Pix[y*g.Width+x] = row[x*4]
		}
	}
	return g
}

// Ensure Imaging implements Codec.
var _ Codec = Imaging{}
