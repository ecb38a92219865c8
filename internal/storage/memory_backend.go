package storage

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/joeycumines/script-garden/internal/module"
)

// InMemoryBackend keeps workspaces in process memory. Instances share one
// store, so a workspace created through one is visible to the others.
type InMemoryBackend struct{}

var globalInMemoryStore = struct {
	sync.RWMutex
	workspaces map[string]module.Content
}{
	workspaces: make(map[string]module.Content),
}

// NewInMemoryBackend returns a backend over the shared in-memory store.
func NewInMemoryBackend() (*InMemoryBackend, error) {
	return &InMemoryBackend{}, nil
}

// Create implements Backend.
func (b *InMemoryBackend) Create(p string, content module.Content) (Workspace, error) {
	if p == "" {
		return Workspace{}, fmt.Errorf("workspace path cannot be empty")
	}
	p = path.Clean(p)
	globalInMemoryStore.Lock()
	defer globalInMemoryStore.Unlock()
	if _, ok := globalInMemoryStore.workspaces[p]; ok {
		return Workspace{}, fmt.Errorf("%w: %s", ErrExists, p)
	}
	globalInMemoryStore.workspaces[p] = content
	return Workspace{Path: p, Content: content}, nil
}

// Load implements Backend.
func (b *InMemoryBackend) Load(p string) (Workspace, error) {
	w := Workspace{Path: p}
	if err := b.Refresh(&w); err != nil {
		return Workspace{}, err
	}
	return w, nil
}

// Refresh implements Backend.
func (b *InMemoryBackend) Refresh(w *Workspace) error {
	p := path.Clean(w.Path)
	globalInMemoryStore.RLock()
	content, ok := globalInMemoryStore.workspaces[p]
	globalInMemoryStore.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, w.Path)
	}
	w.Path = p
	w.Content = content
	return nil
}

// Save implements Backend.
func (b *InMemoryBackend) Save(w *Workspace) error {
	p := path.Clean(w.Path)
	globalInMemoryStore.Lock()
	defer globalInMemoryStore.Unlock()
	globalInMemoryStore.workspaces[p] = w.Content
	return nil
}

// List implements Backend.
func (b *InMemoryBackend) List(root string) ([]string, error) {
	root = path.Clean(root)
	globalInMemoryStore.RLock()
	defer globalInMemoryStore.RUnlock()
	var out []string
	for p := range globalInMemoryStore.workspaces {
		if path.Dir(p) == root && !strings.HasPrefix(path.Base(p), ".") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close implements Backend.
func (b *InMemoryBackend) Close() error { return nil }

var _ Backend = (*InMemoryBackend)(nil)
