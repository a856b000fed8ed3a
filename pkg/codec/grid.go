package codec

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Grid is a row-major grid of 8-bit intensities.
type Grid struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewGrid allocates a zeroed grid.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// At returns the intensity at column x, row y.
func (g *Grid) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// Image returns the grid as an *image.Gray sharing no memory with g.
func (g *Grid) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+g.Width], g.Pix[y*g.Width:(y+1)*g.Width])
	}
	return img
}

// SaveGrid writes g to path. The image format is chosen from the file
// extension (png, jpg, gif, bmp, tif).
func SaveGrid(path string, g *Grid) error {
	if err := imaging.Save(g.Image(), path); err != nil {
		return fmt.Errorf("save grayscale snapshot: %w", err)
	}
	return nil
}
