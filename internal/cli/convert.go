package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/textart/pkg/converter"
	"github.com/matzehuels/textart/pkg/pipeline"
)

// stdinSource is the argument that reads the image from standard input.
const stdinSource = "-"

// defaultJobs is the number of sources converted at once.
const defaultJobs = 4

// convertFlags holds flag values for the convert command.
type convertFlags struct {
	maxWidth    int
	maxHeight   int
	maxRatio    float64
	maxPixels   int64
	palette     string
	glyphs      string
	invert      bool
	legacyRatio bool
	snapshot    string
	output      string
	noCache     bool
	refresh     bool
	stats       bool
	jobs        int
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	flags := convertFlags{jobs: defaultJobs}

	cmd := &cobra.Command{
		Use:   "convert <source>...",
		Short: "Convert images to text art",
		Long: `Convert images to text art.

A source is an http(s) URL, a file:// URL, a file path, or "-" for stdin.
Flags override the [convert] section of the config file.`,
		Example: `  textart convert https://example.com/cat.png
  textart convert -w 100 --palette simple photo.jpg
  curl -s https://example.com/cat.png | textart convert -
  textart convert --snapshot gray.png -o cat.txt cat.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd, args, &flags)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&flags.maxWidth, "max-width", "w", 0, "maximum output width in glyph cells (0 = no limit)")
	f.IntVar(&flags.maxHeight, "max-height", 0, "maximum output height in rows (0 = no limit)")
	f.Float64Var(&flags.maxRatio, "max-ratio", 0, "reject images whose width/height ratio exceeds this (0 = no limit)")
	f.Int64Var(&flags.maxPixels, "max-pixels", 0, "reject images whose width*height exceeds this before decoding (0 = no limit)")
	f.StringVarP(&flags.palette, "palette", "p", "", "built-in palette name (see 'textart palettes')")
	f.StringVar(&flags.glyphs, "glyphs", "", "custom glyphs from darkest to lightest, overrides --palette")
	f.BoolVar(&flags.invert, "invert", false, "reverse the palette for dark terminals")
	f.BoolVar(&flags.legacyRatio, "legacy-ratio", false, "compare the ratio with integer division")
	f.StringVar(&flags.snapshot, "snapshot", "", "write the resized grayscale image to this PNG path")
	f.StringVarP(&flags.output, "output", "o", "", "write art to this file instead of stdout")
	f.BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	f.BoolVar(&flags.refresh, "refresh", false, "ignore cached entries and fetch again")
	f.BoolVar(&flags.stats, "stats", false, "print size and cache status for each source")
	f.IntVarP(&flags.jobs, "jobs", "j", defaultJobs, "number of sources converted at once")

	return cmd
}

// convertOptions merges the config defaults with the flags the user set.
func (c *CLI) convertOptions(cmd *cobra.Command, flags *convertFlags) pipeline.Options {
	cc := c.config().Convert
	opts := pipeline.Options{
		MaxWidth:    cc.MaxWidth,
		MaxHeight:   cc.MaxHeight,
		MaxRatio:    cc.MaxRatio,
		Palette:     cc.Palette,
		Glyphs:      cc.Glyphs,
		Invert:      cc.Invert,
		LegacyRatio: cc.LegacyRatio,
		MaxPixels:   cc.MaxPixels,
		Refresh:     flags.refresh,
		Snapshot:    flags.snapshot,
	}

	set := cmd.Flags().Changed
	if set("max-width") {
		opts.MaxWidth = flags.maxWidth
	}
	if set("max-height") {
		opts.MaxHeight = flags.maxHeight
	}
	if set("max-ratio") {
		opts.MaxRatio = flags.maxRatio
	}
	if set("max-pixels") {
		opts.MaxPixels = flags.maxPixels
	}
	if set("palette") {
		opts.Palette = flags.palette
		opts.Glyphs = ""
	}
	if set("glyphs") {
		opts.Glyphs = flags.glyphs
	}
	if set("invert") {
		opts.Invert = flags.invert
	}
	if set("legacy-ratio") {
		opts.LegacyRatio = flags.legacyRatio
	}
	return opts
}

// convertJob is one source and its outcome.
type convertJob struct {
	source string
	opts   pipeline.Options
	result *pipeline.Result
	err    error
}

func (c *CLI) runConvert(cmd *cobra.Command, sources []string, flags *convertFlags) error {
	if flags.snapshot != "" && len(sources) > 1 {
		return fmt.Errorf("--snapshot takes a single source, got %d", len(sources))
	}
	if flags.jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1")
	}

	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	base := c.convertOptions(cmd, flags)

	jobs, err := prepareJobs(sources, base, cmd.InOrStdin())
	if err != nil {
		return err
	}

	runner := c.newRunner(flags.noCache)
	defer runner.Cache.Close()

	var spinner *Spinner
	if logger.GetLevel() > log.DebugLevel {
		spinner = newSpinnerWithContext(ctx, convertMessage(0, len(jobs)))
		spinner.Start()
	}

	prog := newProgress(logger)
	convertAll(ctx, runner, jobs, flags.jobs, func(done int) {
		if spinner != nil {
			spinner.SetMessage("%s", convertMessage(done, len(jobs)))
		}
	})
	if spinner != nil {
		spinner.Stop()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var failed []error
	var arts []string
	for _, job := range jobs {
		if job.err != nil {
			printError("%s: %s", job.source, describeError(job.err))
			failed = append(failed, fmt.Errorf("%s: %w", job.source, job.err))
			continue
		}
		arts = append(arts, job.result.Art.Text)
		if flags.stats {
			printInfo("%s", job.source)
			printStats(job.result.Art, job.result.Stats.Bytes, job.result.CacheInfo.ArtHit)
		}
	}

	if err := writeArt(cmd.OutOrStdout(), flags.output, arts); err != nil {
		return err
	}
	if flags.output != "" && len(arts) > 0 {
		printSuccess("Wrote %d of %d images", len(arts), len(jobs))
		printFile(flags.output)
	}
	if flags.snapshot != "" && len(failed) == 0 {
		printFile(flags.snapshot)
	}
	if len(jobs) > 1 {
		prog.donef("Converted %d of %d images", len(arts), len(jobs))
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d conversions failed: %w", len(failed), len(jobs), errors.Join(failed...))
	}
	return nil
}

// prepareJobs builds one job per source, reading stdin for "-".
func prepareJobs(sources []string, base pipeline.Options, stdin io.Reader) ([]*convertJob, error) {
	jobs := make([]*convertJob, len(sources))
	usedStdin := false
	for i, src := range sources {
		opts := base
		opts.Source = src
		if src == stdinSource {
			if usedStdin {
				return nil, fmt.Errorf("stdin (%q) can only be given once", stdinSource)
			}
			usedStdin = true

			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			if len(data) == 0 {
				return nil, fmt.Errorf("read stdin: no image data")
			}
			opts.Source = "stdin"
			opts.Data = data
		}
		jobs[i] = &convertJob{source: src, opts: opts}
	}
	return jobs, nil
}

// convertAll runs every job with at most limit in flight. Results land in
// each job in place so output keeps argument order. A failed job does not
// stop the others.
func convertAll(ctx context.Context, runner *pipeline.Runner, jobs []*convertJob, limit int, onDone func(done int)) {
	var (
		g     errgroup.Group
		count atomic.Int32
	)
	g.SetLimit(limit)

	for _, job := range jobs {
		g.Go(func() error {
			job.result, job.err = runner.Execute(ctx, job.opts)
			onDone(int(count.Add(1)))
			return nil
		})
	}
	_ = g.Wait()
}

func convertMessage(done, total int) string {
	if total == 1 {
		return "Converting..."
	}
	return fmt.Sprintf("Converting %d/%d...", done, total)
}

// writeArt writes the arts to path, or to w when path is empty. Multiple
// arts are separated by a blank line.
func writeArt(w io.Writer, path string, arts []string) error {
	if len(arts) == 0 {
		return nil
	}
	text := strings.Join(arts, "\n")
	if path == "" {
		_, err := io.WriteString(w, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// describeError turns conversion errors into a short line for the terminal.
func describeError(err error) string {
	var sizeErr *converter.BadImageSizeError
	if errors.As(err, &sizeErr) {
		return fmt.Sprintf("image too elongated (ratio %.2f, limit %.2f)", sizeErr.Ratio, sizeErr.MaxRatio)
	}
	var fetchErr *converter.ImageFetchError
	if errors.As(err, &fetchErr) {
		return fmt.Sprintf("could not load image: %v", fetchErr.Cause)
	}
	return err.Error()
}
