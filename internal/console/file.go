package console

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// RotatingFile is an append-only log file that rolls over by size. On
// rollover the live file becomes <path>.1, older backups shift up by one
// and anything past the backup limit is removed. It is safe for concurrent
// use.
type RotatingFile struct {
	mu         sync.Mutex
	path       string
	maxBytes   int64
	maxBackups int
	size       int64
	file       *os.File
}

// OpenRotatingFile opens path for appending, creating it and its directory
// when missing. maxSizeMB is raised to at least 1; with maxBackups 0 the
// file is simply truncated on rollover.
func OpenRotatingFile(path string, maxSizeMB, maxBackups int) (*RotatingFile, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("log file directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	return &RotatingFile{
		path:       path,
		maxBytes:   int64(max(maxSizeMB, 1)) << 20,
		maxBackups: max(maxBackups, 0),
		size:       info.Size(),
		file:       f,
	}, nil
}

// Write appends p, rolling over first when p would push the file past its
// limit. A single write is never split across files.
func (w *RotatingFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.roll(); err != nil {
			return 0, fmt.Errorf("log file rollover: %w", err)
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the live file.
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingFile) roll() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	backups := w.backups()
	for _, n := range slices.Backward(backups) {
		if n >= w.maxBackups {
			_ = os.Remove(w.backup(n))
		} else {
			_ = os.Rename(w.backup(n), w.backup(n+1))
		}
	}
	if w.maxBackups > 0 {
		_ = os.Rename(w.path, w.backup(1))
	} else {
		_ = os.Remove(w.path)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	return nil
}

func (w *RotatingFile) backup(n int) string {
	return w.path + "." + strconv.Itoa(n)
}

// backups returns the existing backup numbers in ascending order.
func (w *RotatingFile) backups() []int {
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}
	prefix := filepath.Base(w.path) + "."
	var out []int
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n >= 1 {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// JSONSink returns a sink writing one JSON object per entry to w.
func JSONSink(w io.Writer) func(Entry) {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(e Entry) {
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(e)
	}
}

// Tee fans every entry out to each non-nil sink in order.
func Tee(sinks ...func(Entry)) func(Entry) {
	sinks = slices.DeleteFunc(sinks, func(s func(Entry)) bool { return s == nil })
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	}
	return func(e Entry) {
		for _, s := range sinks {
			s(e)
		}
	}
}

var _ io.WriteCloser = (*RotatingFile)(nil)
