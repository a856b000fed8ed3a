package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/textart/pkg/palette"
)

// rampWidth is the number of cells in a palette preview ramp.
const rampWidth = 32

// palettesCommand creates the palettes command.
func (c *CLI) palettesCommand() *cobra.Command {
	var invert bool

	cmd := &cobra.Command{
		Use:   "palettes",
		Short: "List built-in palettes",
		Long:  `List the built-in palettes with their glyphs and a black-to-white preview ramp.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printPalettes(cmd.OutOrStdout(), invert)
		},
	}

	cmd.Flags().BoolVar(&invert, "invert", false, "show the reversed palettes")
	return cmd
}

func printPalettes(w io.Writer, invert bool) error {
	nameStyle := StyleHighlight.Width(10)
	fmt.Fprintln(w, StyleTitle.Render("Palettes"))
	for _, name := range palette.Names() {
		p, err := palette.Lookup(name)
		if err != nil {
			return err
		}
		if invert {
			p = p.Reverse()
		}
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
			nameStyle.Render(name),
			StyleValue.Render(ramp(p, rampWidth)),
		))
		fmt.Fprintln(w, strings.Repeat(" ", 10)+StyleDim.Render(fmt.Sprintf("%d glyphs: %q", p.Len(), p.Glyphs())))
	}
	return nil
}

// ramp renders n evenly spaced intensities from black to white.
func ramp(s palette.Schema, n int) string {
	var b strings.Builder
	for i := range n {
		intensity := 0
		if n > 1 {
			intensity = i * 255 / (n - 1)
		}
		b.WriteRune(s.Convert(intensity))
	}
	return b.String()
}
