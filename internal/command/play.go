package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/joeycumines/script-garden/internal/audio"
	"github.com/joeycumines/script-garden/internal/audio/portaudio"
	"github.com/joeycumines/script-garden/internal/config"
	"github.com/joeycumines/script-garden/internal/monitor"
	"github.com/joeycumines/script-garden/internal/runtime"
	"github.com/joeycumines/script-garden/internal/state"
)

// PlayCommand runs a module live on the default sound card.
type PlayCommand struct {
	*BaseCommand
	config *config.Config
	source sourceFlags
	plain  bool
}

// NewPlayCommand creates a new play command.
func NewPlayCommand(cfg *config.Config) *PlayCommand {
	return &PlayCommand{
		BaseCommand: NewBaseCommand(
			"play",
			"Run a module live on the default audio input and output",
			"play [options]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the play command.
func (c *PlayCommand) SetupFlags(fs *flag.FlagSet) {
	c.source.setup(fs)
	fs.BoolVar(&c.plain, "plain", false, "Print log lines instead of opening the monitor")
}

// Execute plays until the user quits the monitor or interrupts.
func (c *PlayCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	s, err := c.config.Resolve()
	if err != nil {
		return err
	}
	useMonitor, err := c.config.CommandBool("play", "monitor")
	if err != nil {
		return err
	}
	useMonitor = useMonitor && !c.plain && isTerminal(stdout)

	backend, err := openBackend(s)
	if err != nil {
		return err
	}
	defer backend.Close()
	source, label, err := c.source.resolve(s, backend)
	if err != nil {
		return err
	}

	var mirror io.Writer
	if !useMonitor {
		mirror = stderr
	}
	con, closeLog, err := openConsole(s, mirror)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := con.Logger()

	ui := state.NewInterfaceData(source.Draft)
	if source.Mode == state.SourceWorkspace {
		ui.SelectWorkspace(source.Workspace)
	}
	ui.SetClip(s.Clip)
	ui.SetInputNoise(s.InputNoise)
	ui.SetTargetState(state.Refresh)
	shared := state.NewShared(ui, state.NewRuntimeData())

	rt := runtime.New(s.SampleRate,
		runtime.WithLogger(logger),
		runtime.WithMeterWindow(s.MeterWindow),
	)
	proc := runtime.NewProcessor(shared, rt)

	stream, err := portaudio.Open(portaudio.Config{
		SampleRate:      s.SampleRate,
		Channels:        s.Channels,
		FramesPerBuffer: s.BlockSize,
	}, func(b audio.Block) { proc.Process(b) }, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			logger.Warn("failed to close audio stream", "error", err)
		}
	}()
	if rate := stream.SampleRate(); rate != s.SampleRate {
		logger.Info("device sample rate differs from config", "requested", s.SampleRate, "actual", rate)
		proc.Initialize(rate)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	streamErr := make(chan error, 1)
	go func() { streamErr <- stream.Run(ctx) }()

	if useMonitor {
		m := monitor.New(shared, con, monitor.Options{Backend: backend, Title: label})
		err := monitor.Run(m, tea.WithContext(ctx))
		if errors.Is(err, tea.ErrProgramKilled) {
			err = nil
		}
		cancel()
		return errors.Join(err, <-streamErr)
	}

	_, _ = fmt.Fprintf(stdout, "Playing %s. Press Ctrl+C to stop.\n", label)
	select {
	case <-ctx.Done():
		return <-streamErr
	case err := <-streamErr:
		return err
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
