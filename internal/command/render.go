package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/joeycumines/script-garden/internal/audio"
	"github.com/joeycumines/script-garden/internal/config"
	"github.com/joeycumines/script-garden/internal/render"
)

// RenderCommand processes a WAV file offline.
type RenderCommand struct {
	*BaseCommand
	config *config.Config

	source    sourceFlags
	in, out   string
	bitDepth  int
	tail      time.Duration
	automate  []string
	blockSize int
}

// NewRenderCommand creates a new render command.
func NewRenderCommand(cfg *config.Config) *RenderCommand {
	return &RenderCommand{
		BaseCommand: NewBaseCommand(
			"render",
			"Run a module over a WAV file and write the result",
			"render [options] --in <input.wav> --out <output.wav>",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the render command.
func (c *RenderCommand) SetupFlags(fs *flag.FlagSet) {
	c.source.setup(fs)
	c.automate = nil
	fs.StringVar(&c.in, "in", "", "Input WAV file")
	fs.StringVar(&c.out, "out", "", "Output WAV file")
	fs.IntVar(&c.bitDepth, "bit-depth", 0, "Output bit depth: 16, 24 or 32 (default from config)")
	fs.DurationVar(&c.tail, "tail", -1, "Silence appended to the input so effects can ring out (default from config)")
	fs.IntVar(&c.blockSize, "block-size", 0, "Frames per processed block (default from config)")
	fs.Func("automate", "Drive a parameter per block: name=expression (repeatable; replaces [automation] from config)", func(s string) error {
		c.automate = append(c.automate, s)
		return nil
	})
}

// Execute renders the file.
func (c *RenderCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	if c.in == "" || c.out == "" {
		return errors.New("both --in and --out are required")
	}
	s, err := c.config.Resolve()
	if err != nil {
		return err
	}
	opts, err := c.options(s)
	if err != nil {
		return err
	}

	backend, err := openBackend(s)
	if err != nil {
		return err
	}
	defer backend.Close()
	source, label, err := c.source.resolve(s, backend)
	if err != nil {
		return err
	}
	content, _ := source.Content()

	con, closeLog, err := openConsole(s, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	opts.Logger = con.Logger()

	clip, err := audio.ReadWAV(c.in)
	if err != nil {
		return err
	}
	tail := c.tail
	if tail < 0 {
		if tail, err = time.ParseDuration(c.config.CommandOption("render", "tail")); err != nil {
			return fmt.Errorf("render tail: %w", err)
		}
	}
	clip.Extend(int(tail.Seconds() * float64(clip.SampleRate)))

	bitDepth := c.bitDepth
	if bitDepth == 0 {
		if bitDepth, err = strconv.Atoi(c.config.CommandOption("render", "bit-depth")); err != nil {
			return fmt.Errorf("render bit-depth: %w", err)
		}
	}

	start := time.Now()
	stats, err := render.Render(ctx, content, clip, opts)
	if err != nil {
		return fmt.Errorf("rendering %s with %s: %w", c.in, label, err)
	}
	if err := audio.WriteWAV(c.out, clip.SampleRate, bitDepth, clip.Data); err != nil {
		return err
	}
	// log lines go to stderr first so the summary ends the output
	con.Flush()

	_, _ = fmt.Fprintf(stdout, "Rendered %s -> %s with %s (%s, %s)\n", c.in, c.out, label, stats.ModuleName, stats.ModuleHash)
	_, _ = fmt.Fprintf(stdout, "%d frames in %d blocks, %.2f ms per block, %s total\n",
		stats.Frames, stats.Blocks, stats.RunMillis, time.Since(start).Round(time.Millisecond))
	return nil
}

// options builds render options from flags, falling back to config.
func (c *RenderCommand) options(s config.Settings) (render.Options, error) {
	opts := render.Options{
		BlockSize:  s.BlockSize,
		Clip:       s.Clip,
		InputNoise: s.InputNoise,
	}
	if c.blockSize > 0 {
		opts.BlockSize = c.blockSize
	}

	var errs []error
	if len(c.automate) > 0 {
		for _, flagValue := range c.automate {
			a, err := render.ParseAutomation(flagValue)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			opts.Automation = append(opts.Automation, a)
		}
	} else {
		for _, entry := range c.config.Automation {
			a, err := render.Compile(entry.Parameter, entry.Expression)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			opts.Automation = append(opts.Automation, a)
		}
	}
	return opts, errors.Join(errs...)
}
