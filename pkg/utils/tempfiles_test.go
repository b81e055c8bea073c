package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "history.json")

	require.NoError(t, WriteFileAtomic(path, []byte("[1]"), 0644))
	require.NoError(t, WriteFileAtomic(path, []byte("[2]"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[2]", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestRemoveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	assert.True(t, FileExists(path))
	assert.NoError(t, RemoveFile(path))
	assert.False(t, FileExists(path))
	assert.NoError(t, RemoveFile(path), "missing file is not an error")
	assert.False(t, FileExists(dir), "directories are not files")
}
