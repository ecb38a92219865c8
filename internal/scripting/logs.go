package scripting

import (
	"fmt"
	"log/slog"
	"sync"
)

// DefaultMaxLogLines bounds how many script log lines are kept between two
// drains.
const DefaultMaxLogLines = 256

// LogLine is one line emitted by a script through console or the log
// helpers.
type LogLine struct {
	Level   slog.Level
	Message string
}

func (l LogLine) String() string {
	return fmt.Sprintf("[%s] %s", l.Level, l.Message)
}

// logPrinter receives console output from the interpreter. Lines past the
// cap are counted and reported as one summary line on the next drain.
type logPrinter struct {
	mu      sync.Mutex
	max     int
	lines   []LogLine
	dropped int
}

func newLogPrinter(max int) *logPrinter {
	if max <= 0 {
		max = DefaultMaxLogLines
	}
	return &logPrinter{max: max}
}

func (p *logPrinter) Log(s string)   { p.add(slog.LevelInfo, s) }
func (p *logPrinter) Warn(s string)  { p.add(slog.LevelWarn, s) }
func (p *logPrinter) Error(s string) { p.add(slog.LevelError, s) }

func (p *logPrinter) add(level slog.Level, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.lines) >= p.max {
		p.dropped++
		return
	}
	p.lines = append(p.lines, LogLine{Level: level, Message: msg})
}

// drain returns the buffered lines and clears the buffer.
func (p *logPrinter) drain() []LogLine {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.lines) == 0 && p.dropped == 0 {
		return nil
	}
	out := p.lines
	if p.dropped > 0 {
		out = append(out, LogLine{
			Level:   slog.LevelWarn,
			Message: fmt.Sprintf("%d log lines dropped", p.dropped),
		})
	}
	p.lines = nil
	p.dropped = 0
	return out
}
