package palette

import (
	"sort"

	"github.com/matzehuels/textart/pkg/errors"
)

// Names of the built-in palettes.
const (
	NameDefault = "default"
	NameSimple  = "simple"
	NameDense   = "dense"
)

// builtins maps palette names to glyph strings, darkest glyph first.
var builtins = map[string]string{
	NameDefault: DefaultGlyphs,
	NameSimple:  "@%#*+=-:. ",
	NameDense:   "$@B%8&WM#*oahkbdpqwmZO0QLCJUYXzcvunxrjft/\\|()1{}[]?-_+~<>i!lI;:,\"^`'. ",
}

// Lookup returns the built-in palette registered under name.
func Lookup(name string) (*Palette, error) {
	glyphs, ok := builtins[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidPalette, "unknown palette %q (must be one of: %v)", name, Names())
	}
	return MustNew(glyphs), nil
}

// Names returns the names of the built-in palettes in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
