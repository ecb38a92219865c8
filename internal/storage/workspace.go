// Package storage persists module content as workspaces: directories holding
// one file per script.
package storage

import (
	"errors"
	"os"

	"github.com/joeycumines/script-garden/internal/module"
)

var (
	// ErrWouldBlock is returned when another process holds a workspace lock.
	ErrWouldBlock = errors.New("workspace is locked by another process")
	// ErrExists is returned by Create when the target already holds a
	// workspace.
	ErrExists = errors.New("workspace already exists")
	// ErrNotFound is returned when a path holds no workspace.
	ErrNotFound = errors.New("workspace not found")
)

// LockFileName is created inside a workspace directory while it is written.
const LockFileName = ".garden.lock"

// Workspace is a loaded workspace: where it lives and what it held when last
// read. It is a plain value and may be copied freely.
type Workspace struct {
	Path    string
	Content module.Content
}

// ID is the module identity of the loaded content.
func (w Workspace) ID() string {
	return w.Content.ID()
}

var defaultBackend = &FileSystemBackend{}

// Create writes content into a new workspace at path on the local file
// system.
func Create(path string, content module.Content) (Workspace, error) {
	return defaultBackend.Create(path, content)
}

// Load reads the workspace at path from the local file system.
func Load(path string) (Workspace, error) {
	return defaultBackend.Load(path)
}

// Refresh re-reads every file of the workspace from the local file system.
// On failure w is left unchanged.
func (w *Workspace) Refresh() error {
	return defaultBackend.Refresh(w)
}

// Save writes w.Content back to the local file system.
func (w *Workspace) Save() error {
	return defaultBackend.Save(w)
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
