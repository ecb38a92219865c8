// Package portaudio runs a real-time duplex stream on the default sound card
// and hands every buffer to a block processor.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	pa "github.com/gordonklaus/portaudio"

	"github.com/joeycumines/script-garden/internal/audio"
)

// ProcessFunc transforms one block in place.
type ProcessFunc func(audio.Block)

// Config selects the stream shape.
type Config struct {
	SampleRate      float64
	Channels        int
	FramesPerBuffer int
}

// Stream is an open duplex stream. Run pumps it until the context ends.
type Stream struct {
	cfg     Config
	stream  *pa.Stream
	in      [][]float32
	out     [][]float32
	inBlk   *audio.Buffer
	outBlk  *audio.Buffer
	block   *audio.Buffer
	logger  *slog.Logger
	process ProcessFunc
}

// Open initialises PortAudio and opens the default input and output devices.
// Close must be called to release PortAudio.
func Open(cfg Config, process ProcessFunc, logger *slog.Logger) (*Stream, error) {
	if cfg.Channels <= 0 || cfg.FramesPerBuffer <= 0 || cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid stream config: %+v", cfg)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("unable to set up portaudio: %w", err)
	}

	s := &Stream{
		cfg:     cfg,
		in:      planar(cfg.Channels, cfg.FramesPerBuffer),
		out:     planar(cfg.Channels, cfg.FramesPerBuffer),
		block:   audio.NewBuffer(cfg.Channels, cfg.FramesPerBuffer),
		logger:  logger,
		process: process,
	}
	s.inBlk, s.outBlk = audio.Wrap(s.in), audio.Wrap(s.out)

	stream, err := pa.OpenDefaultStream(cfg.Channels, cfg.Channels, cfg.SampleRate, cfg.FramesPerBuffer, s.in, s.out)
	if err != nil {
		_ = pa.Terminate()
		return nil, fmt.Errorf("unable to open default stream: %w", err)
	}
	s.stream = stream

	if api, err := pa.DefaultHostApi(); err == nil {
		logger.Info("opened audio stream",
			"portaudio", strings.Split(pa.VersionText(), ",")[0],
			"api", api.Name,
			"sampleRate", stream.Info().SampleRate,
			"channels", cfg.Channels,
			"frames", cfg.FramesPerBuffer,
		)
	}
	return s, nil
}

// SampleRate reports the rate the device actually runs at.
func (s *Stream) SampleRate() float64 {
	return s.stream.Info().SampleRate
}

// Run starts the stream and processes buffers until ctx is cancelled or the
// device fails. Input overflows and output underflows are logged and skipped.
func (s *Stream) Run(ctx context.Context) error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	defer func() {
		if err := s.stream.Stop(); err != nil {
			s.logger.Warn("failed to stop stream", "error", err)
		}
	}()

	for ctx.Err() == nil {
		if err := s.stream.Read(); err != nil {
			if !errors.Is(err, pa.InputOverflowed) {
				return fmt.Errorf("read error: %w", err)
			}
			s.logger.Debug("input overflowed")
		}
		audio.Copy(s.block, s.inBlk)
		s.process(s.block)
		audio.Copy(s.outBlk, s.block)
		if err := s.stream.Write(); err != nil {
			if !errors.Is(err, pa.OutputUnderflowed) {
				return fmt.Errorf("write error: %w", err)
			}
			s.logger.Debug("output underflowed")
		}
	}
	return nil
}

// Close closes the stream and terminates PortAudio.
func (s *Stream) Close() error {
	return errors.Join(s.stream.Close(), pa.Terminate())
}

func planar(channels, frames int) [][]float32 {
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frames)
	}
	return out
}
