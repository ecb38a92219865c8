package storage

import (
	"github.com/joeycumines/script-garden/internal/module"
)

// Backend persists workspaces.
type Backend interface {
	// Create writes content as a new workspace at path. It fails with
	// ErrExists if path already holds one.
	Create(path string, content module.Content) (Workspace, error)

	// Load reads the workspace at path. A missing workspace yields
	// ErrNotFound.
	Load(path string) (Workspace, error)

	// Refresh re-reads all files of w, replacing w.Content only on success.
	Refresh(w *Workspace) error

	// Save writes w.Content to w.Path, replacing what is stored there.
	Save(w *Workspace) error

	// List returns the workspace paths directly under root.
	List(root string) ([]string, error)

	// Close releases backend resources.
	Close() error
}
