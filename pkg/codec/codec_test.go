package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// encodePNG renders img as PNG bytes.
func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error: %v", err)
	}
	return buf.Bytes()
}

// solid returns a w x h image filled with c.
func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d >= -tol && d <= tol
}

func TestDecodeConfig(t *testing.T) {
	data := encodePNG(t, solid(30, 10, color.White))

	cfg, err := New().DecodeConfig(data)
	if err != nil {
		t.Fatalf("DecodeConfig() error: %v", err)
	}
	if cfg.Width != 30 || cfg.Height != 10 {
		t.Errorf("DecodeConfig() = %dx%d, want 30x10", cfg.Width, cfg.Height)
	}
	if cfg.Format != "png" {
		t.Errorf("Format = %q, want png", cfg.Format)
	}
}

func TestDecodeConfigRejectsGarbage(t *testing.T) {
	if _, err := New().DecodeConfig([]byte("definitely not an image")); err == nil {
		t.Error("DecodeConfig() should fail on non-image data")
	}
	if _, err := New().Decode([]byte("definitely not an image")); err == nil {
		t.Error("Decode() should fail on non-image data")
	}
}

func TestDecode(t *testing.T) {
	data := encodePNG(t, solid(7, 3, color.Black))

	img, err := New().Decode(data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 7 || b.Dy() != 3 {
		t.Errorf("Decode() bounds = %v, want 7x3", b)
	}
}

func TestResize(t *testing.T) {
	c := New()

	t.Run("same size is a no-op", func(t *testing.T) {
		src := solid(5, 5, color.White)
		if got := c.Resize(src, 5, 5); got != image.Image(src) {
			t.Error("Resize() to the source size should return the source")
		}
	})

	t.Run("exact target size", func(t *testing.T) {
		got := c.Resize(solid(200, 100, color.White), 50, 25)
		if b := got.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
			t.Errorf("Resize() bounds = %v, want 50x25", b)
		}
	})

	t.Run("averages covered area", func(t *testing.T) {
		// Left half black, right half white.
		src := solid(8, 4, color.Black)
		for y := 0; y < 4; y++ {
			for x := 4; x < 8; x++ {
				src.Set(x, y, color.White)
			}
		}
		g := c.Grayscale(c.Resize(src, 2, 1))
		if !near(g.At(0, 0), 0, 2) {
			t.Errorf("left cell = %d, want ~0", g.At(0, 0))
		}
		if !near(g.At(1, 0), 255, 2) {
			t.Errorf("right cell = %d, want ~255", g.At(1, 0))
		}
	})
}

func TestGrayscale(t *testing.T) {
	tests := []struct {
		name string
		c    color.Color
		want uint8
	}{
		{"black", color.NRGBA{0, 0, 0, 255}, 0},
		{"white", color.NRGBA{255, 255, 255, 255}, 255},
		{"red", color.NRGBA{255, 0, 0, 255}, 76},
		{"green", color.NRGBA{0, 255, 0, 255}, 150},
		{"blue", color.NRGBA{0, 0, 255, 255}, 29},
		{"mid gray", color.NRGBA{128, 128, 128, 255}, 128},
		{"transparent white flattens to black", color.NRGBA{255, 255, 255, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New().Grayscale(solid(3, 2, tt.c))
			if g.Width != 3 || g.Height != 2 {
				t.Fatalf("grid = %dx%d, want 3x2", g.Width, g.Height)
			}
			for _, v := range g.Pix {
				if !near(v, tt.want, 1) {
					t.Fatalf("intensity = %d, want %d", v, tt.want)
				}
			}
		})
	}
}

func TestGridImage(t *testing.T) {
	g := NewGrid(3, 2)
	for i := range g.Pix {
		g.Pix[i] = uint8(i * 40)
	}

	img := g.Image()
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("Image() bounds = %v, want 3x2", b)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if got := img.GrayAt(x, y).Y; got != g.At(x, y) {
				t.Errorf("GrayAt(%d, %d) = %d, want %d", x, y, got, g.At(x, y))
			}
		}
	}

	img.Pix[0] = 99
	if g.Pix[0] == 99 {
		t.Error("Image() should not share memory with the grid")
	}
}

func TestSaveGrid(t *testing.T) {
	g := NewGrid(4, 4)
	path := filepath.Join(t.TempDir(), "snapshot.png")

	if err := SaveGrid(path, g); err != nil {
		t.Fatalf("SaveGrid() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	cfg, err := New().DecodeConfig(data)
	if err != nil {
		t.Fatalf("snapshot is not a valid image: %v", err)
	}
	if cfg.Width != 4 || cfg.Height != 4 {
		t.Errorf("snapshot = %dx%d, want 4x4", cfg.Width, cfg.Height)
	}

	if err := SaveGrid(filepath.Join(t.TempDir(), "snapshot.unknown"), g); err == nil {
		t.Error("SaveGrid() should fail for an unknown extension")
	}
}
