package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joeycumines/script-garden/internal/module"
)

// FileSystemBackend stores each workspace as a directory with one file per
// script. Writes hold an exclusive lock file inside the directory and
// replace files atomically.
type FileSystemBackend struct{}

// NewFileSystemBackend returns the local file system backend.
func NewFileSystemBackend() (*FileSystemBackend, error) {
	return &FileSystemBackend{}, nil
}

// Create implements Backend.
func (b *FileSystemBackend) Create(path string, content module.Content) (Workspace, error) {
	if path == "" {
		return Workspace{}, fmt.Errorf("workspace path cannot be empty")
	}
	if _, err := os.Stat(filepath.Join(path, module.InitFile)); err == nil {
		return Workspace{}, fmt.Errorf("%w: %s", ErrExists, path)
	} else if !isNotExist(err) {
		return Workspace{}, fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return Workspace{}, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	w := Workspace{Path: path, Content: content}
	if err := b.Save(&w); err != nil {
		return Workspace{}, err
	}
	return w, nil
}

// Load implements Backend.
func (b *FileSystemBackend) Load(path string) (Workspace, error) {
	w := Workspace{Path: path}
	if err := b.Refresh(&w); err != nil {
		return Workspace{}, err
	}
	return w, nil
}

// Refresh implements Backend.
func (b *FileSystemBackend) Refresh(w *Workspace) error {
	info, err := os.Stat(w.Path)
	if err != nil {
		if isNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, w.Path)
		}
		return fmt.Errorf("failed to stat workspace: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNotFound, w.Path)
	}

	var content module.Content
	var errs []error
	for _, file := range module.Files {
		data, err := os.ReadFile(filepath.Join(w.Path, file))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read %s: %w", file, err))
			continue
		}
		content.SetField(file, string(data))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	w.Content = content
	return nil
}

// Save implements Backend.
func (b *FileSystemBackend) Save(w *Workspace) error {
	lockFile, err := acquireFileLock(filepath.Join(w.Path, LockFileName))
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	defer func() {
		_ = releaseFileLock(lockFile)
	}()

	for _, file := range module.Files {
		text, _ := w.Content.Field(file)
		if err := AtomicWriteFile(filepath.Join(w.Path, file), []byte(text), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
	}
	return nil
}

// List implements Backend.
func (b *FileSystemBackend) List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, module.InitFile)); err == nil {
			out = append(out, dir)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close implements Backend.
func (b *FileSystemBackend) Close() error { return nil }

var _ Backend = (*FileSystemBackend)(nil)
