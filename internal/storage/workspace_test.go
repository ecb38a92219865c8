package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/script-garden/internal/module"
)

func TestCreateLoadRefresh(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "gain")
	content := module.Default()

	w, err := Create(dir, content)
	require.NoError(t, err)
	assert.Equal(t, content, w.Content)
	for _, file := range module.Files {
		_, err := os.Stat(filepath.Join(dir, file))
		require.NoError(t, err, file)
	}
	_, err = os.Stat(filepath.Join(dir, LockFileName))
	assert.True(t, os.IsNotExist(err), "lock file must be removed after writing")

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, w, loaded)
	assert.Equal(t, content.ID(), loaded.ID())

	require.NoError(t, os.WriteFile(filepath.Join(dir, module.RunFile), []byte("// edited"), 0644))
	require.NoError(t, loaded.Refresh())
	assert.Equal(t, "// edited", loaded.Content.Run)
	assert.NotEqual(t, content.ID(), loaded.ID())
}

func TestCreateRefusesExisting(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := Create(dir, module.Default())
	require.NoError(t, err)

	_, err = Create(dir, module.Default())
	require.ErrorIs(t, err, ErrExists)
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshFailureKeepsContent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w, err := Create(dir, module.Default())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, module.TriggerFile)))
	err = w.Refresh()
	require.Error(t, err)
	assert.Contains(t, err.Error(), module.TriggerFile)
	assert.Equal(t, module.Default(), w.Content)
}

func TestSaveWritesBack(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w, err := Create(dir, module.Default())
	require.NoError(t, err)

	w.Content.Init = "MODULE_NAME = \"saved\";"
	require.NoError(t, w.Save())

	data, err := os.ReadFile(filepath.Join(dir, module.InitFile))
	require.NoError(t, err)
	assert.Equal(t, w.Content.Init, string(data))
}

func TestSaveFailsWhileLocked(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w, err := Create(dir, module.Default())
	require.NoError(t, err)

	lock, err := acquireFileLock(filepath.Join(dir, LockFileName))
	require.NoError(t, err)
	defer func() { _ = releaseFileLock(lock) }()

	err = w.Save()
	require.ErrorIs(t, err, ErrWouldBlock)
}

func TestFileSystemList(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	for _, name := range []string{"b", "a"} {
		_, err := Create(filepath.Join(root, name), module.Default())
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0755))

	b, err := GetBackend("fs")
	require.NoError(t, err)
	list, err := b.List(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a"), filepath.Join(root, "b")}, list)

	list, err = b.List(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInMemoryBackend(t *testing.T) {
	t.Parallel()
	b, err := GetBackend("memory")
	require.NoError(t, err)
	defer b.Close()

	root := "/mem/" + t.Name()
	content, ok := module.ExampleByName("Waveshaper")
	require.True(t, ok)

	w, err := b.Create(root+"/shaper", content)
	require.NoError(t, err)

	_, err = b.Create(root+"/shaper/", content)
	require.ErrorIs(t, err, ErrExists)

	other, err := NewInMemoryBackend()
	require.NoError(t, err)
	loaded, err := other.Load(root + "/shaper")
	require.NoError(t, err)
	assert.Equal(t, content, loaded.Content)

	w.Content.Run = "// changed"
	require.NoError(t, b.Save(&w))
	require.NoError(t, other.Refresh(&loaded))
	assert.Equal(t, "// changed", loaded.Content.Run)

	list, err := b.List(root)
	require.NoError(t, err)
	assert.Equal(t, []string{root + "/shaper"}, list)

	_, err = b.Load(root + "/missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetBackendUnknown(t *testing.T) {
	t.Parallel()
	_, err := GetBackend("s3")
	require.Error(t, err)
	assert.Equal(t, []string{"fs", "memory"}, BackendNames())
}
