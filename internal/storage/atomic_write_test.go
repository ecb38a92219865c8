package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	t.Run("creates and replaces", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "run.js")

		if err := AtomicWriteFile(filename, []byte("first"), 0644); err != nil {
			t.Fatalf("AtomicWriteFile failed: %v", err)
		}
		if err := AtomicWriteFile(filename, []byte("second"), 0644); err != nil {
			t.Fatalf("AtomicWriteFile overwrite failed: %v", err)
		}

		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read back file: %v", err)
		}
		if string(got) != "second" {
			t.Errorf("File content mismatch: got %q, want %q", got, "second")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "a", "b", "init.js")
		if err := AtomicWriteFile(filename, []byte("nested"), 0644); err != nil {
			t.Fatalf("AtomicWriteFile with nested dirs failed: %v", err)
		}
		if _, err := os.Stat(filename); err != nil {
			t.Fatalf("expected file to exist: %v", err)
		}
	})

	t.Run("parent is a file", func(t *testing.T) {
		dir := t.TempDir()
		parent := filepath.Join(dir, "parent")
		if err := os.WriteFile(parent, []byte("file"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := AtomicWriteFile(filepath.Join(parent, "x.js"), []byte("x"), 0644); err == nil {
			t.Fatal("Expected an error but got none")
		}
	})

	t.Run("rename failure cleans up", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "reset.js")
		if err := os.Mkdir(filename, 0755); err != nil {
			t.Fatalf("Failed to create conflicting directory: %v", err)
		}
		if err := os.WriteFile(filepath.Join(filename, "keep"), nil, 0644); err != nil {
			t.Fatal(err)
		}

		err := AtomicWriteFile(filename, []byte("data"), 0644)
		if err == nil {
			t.Fatal("Expected an error but got none")
		}
		var renameErr RenameError
		if !errors.As(err, &renameErr) {
			t.Fatalf("Expected RenameError, got %T: %v", err, err)
		}
		if _, statErr := os.Stat(renameErr.TempPath()); !os.IsNotExist(statErr) {
			t.Errorf("Temporary file %q was not cleaned up after rename failure", renameErr.TempPath())
		}
	})
}
