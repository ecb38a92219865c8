// Package console is the append-only log sink shared by the runtime, the
// scripts it hosts and whatever interface is watching them.
package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxEntries bounds the history kept when no size is configured.
const DefaultMaxEntries = 1000

// Entry is one recorded log line.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// String renders the entry on a single line.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(levelTag(e.Level))
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for _, k := range sortedKeys(e.Attrs) {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(e.Attrs[k])
	}
	return b.String()
}

// QueueSize bounds the entries waiting for the writer goroutine.
const QueueSize = 1024

// Console keeps a bounded history of log entries and optionally mirrors each
// one to a sink. It is safe for concurrent use.
//
// Logging never waits on the history lock or the sink: entries are handed to
// a writer goroutine through a bounded queue, and an entry that finds the
// queue full is dropped and counted. The count is reported as a warning once
// the writer catches up.
type Console struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
	level   slog.Leveler

	sinkMu sync.RWMutex
	sink   func(Entry)

	queue     chan item
	dropped   atomic.Uint64
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// item is a queued entry, or a flush marker when flush is set.
type item struct {
	entry Entry
	flush chan struct{}
}

// New creates a console keeping at most maxEntries lines and starts its
// writer goroutine. Call Close to stop it.
func New(maxEntries int, level slog.Leveler) *Console {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if level == nil {
		level = slog.LevelInfo
	}
	c := &Console{
		entries: make([]Entry, 0, min(maxEntries, 256)),
		max:     maxEntries,
		level:   level,
		queue:   make(chan item, QueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Logger returns a structured logger writing into the console.
func (c *Console) Logger() *slog.Logger {
	return slog.New(&handler{console: c})
}

// SetSink mirrors every future entry to fn. Pass nil to stop mirroring.
func (c *Console) SetSink(fn func(Entry)) {
	c.sinkMu.Lock()
	defer c.sinkMu.Unlock()
	c.sink = fn
}

// WriterSink returns a sink printing entries to w, one per line.
func WriterSink(w io.Writer) func(Entry) {
	var mu sync.Mutex
	return func(e Entry) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintln(w, e.String())
	}
}

// Flush waits until every entry logged before the call has been recorded
// and passed to the sink. It returns immediately once the console is closed.
func (c *Console) Flush() {
	done := make(chan struct{})
	select {
	case c.queue <- item{flush: done}:
	case <-c.stopped:
		return
	}
	select {
	case <-done:
	case <-c.stopped:
	}
}

// Close writes out whatever is queued and stops the writer goroutine.
// Entries logged afterwards are discarded.
func (c *Console) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	<-c.stopped
}

func (c *Console) enqueue(e Entry) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.queue <- item{entry: e}:
	default:
		c.dropped.Add(1)
	}
}

func (c *Console) loop() {
	defer close(c.stopped)
	for {
		select {
		case it := <-c.queue:
			c.handle(it)
		case <-c.done:
			for {
				select {
				case it := <-c.queue:
					c.handle(it)
				default:
					c.reportDropped()
					return
				}
			}
		}
	}
}

func (c *Console) handle(it item) {
	c.reportDropped()
	if it.flush != nil {
		close(it.flush)
		return
	}
	c.write(it.entry)
}

func (c *Console) reportDropped() {
	if n := c.dropped.Swap(0); n > 0 {
		c.write(Entry{
			Time:    time.Now(),
			Level:   slog.LevelWarn,
			Message: "log entries dropped",
			Attrs:   map[string]string{"count": strconv.FormatUint(n, 10)},
		})
	}
}

func (c *Console) write(e Entry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	if over := len(c.entries) - c.max; over > 0 {
		n := copy(c.entries, c.entries[over:])
		c.entries = c.entries[:n]
	}
	c.mu.Unlock()

	c.sinkMu.RLock()
	sink := c.sink
	c.sinkMu.RUnlock()
	if sink != nil {
		sink(e)
	}
}

// Recent returns the newest n entries, oldest first.
func (c *Console) Recent(n int) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 || n > len(c.entries) {
		n = len(c.entries)
	}
	out := make([]Entry, n)
	copy(out, c.entries[len(c.entries)-n:])
	return out
}

// Len returns the number of retained entries.
func (c *Console) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Search returns entries whose message or attributes contain query, ignoring
// case.
func (c *Console) Search(query string) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	query = strings.ToLower(query)
	var matches []Entry
	for _, e := range c.entries {
		if strings.Contains(strings.ToLower(e.Message), query) {
			matches = append(matches, e)
			continue
		}
		for k, v := range e.Attrs {
			if strings.Contains(strings.ToLower(k), query) || strings.Contains(strings.ToLower(v), query) {
				matches = append(matches, e)
				break
			}
		}
	}
	return matches
}

// Clear drops the history.
func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = c.entries[:0]
}

// handler adapts Console to slog. Attributes and groups are flattened into
// dotted keys.
type handler struct {
	console *Console
	attrs   []slog.Attr
	group   string
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.console.level.Level()
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	var attrs map[string]string
	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		attrs = make(map[string]string, len(h.attrs)+r.NumAttrs())
		for _, a := range h.attrs {
			addAttr(attrs, "", a)
		}
		r.Attrs(func(a slog.Attr) bool {
			addAttr(attrs, h.group, a)
			return true
		})
	}
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	h.console.enqueue(Entry{Time: t, Level: r.Level, Message: r.Message, Attrs: attrs})
	return nil
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &handler{console: h.console, group: h.group}
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return next
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &handler{console: h.console, attrs: h.attrs, group: group}
}

func addAttr(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(dst, key, ga)
		}
		return
	}
	dst[key] = a.Value.String()
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	}
	return "DBG"
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}

// ParseLevel accepts the slog level names (debug, info, warn, error), with
// optional offsets such as "warn+2".
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}
