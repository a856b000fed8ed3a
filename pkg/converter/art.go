package converter

import (
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/textart/pkg/codec"
	"github.com/matzehuels/textart/pkg/palette"
)

// Art is a rendered conversion.
type Art struct {
	Text         string  `json:"text"`
	SourceWidth  int     `json:"source_width"`
	SourceHeight int     `json:"source_height"`
	Width        int     `json:"width"`  // grid columns; each line has 2*Width glyphs
	Height       int     `json:"height"` // grid rows = number of lines
	Factor       float64 `json:"factor"`
	Format       string  `json:"format,omitempty"`
}

// Lines returns the rows of the art without their newlines.
func (a *Art) Lines() []string {
	if a.Text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(a.Text, "\n"), "\n")
}

// render maps every intensity through schema, writing each glyph twice
// and terminating every row with a newline.
func render(g *codec.Grid, schema palette.Schema) string {
	var b strings.Builder
	b.Grow(g.Height * (2*g.Width*utf8.UTFMax + 1))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			r := schema.Convert(int(g.At(x, y)))
			b.WriteRune(r)
			b.WriteRune(r)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
