package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func TestExpandFilePaths(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.yaml"))
	b := touch(t, filepath.Join(dir, "b.yml"))
	touch(t, filepath.Join(dir, "notes.txt"))
	nested := touch(t, filepath.Join(dir, "sub", "c.yaml"))

	files, err := ExpandFilePaths([]string{dir}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	files, err = ExpandFilePaths([]string{dir}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, nested}, files)

	files, err = ExpandFilePaths([]string{filepath.Join(dir, "*.yaml"), nested}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{a, nested}, files)

	_, err = ExpandFilePaths([]string{filepath.Join(dir, "missing.yaml")}, false)
	assert.ErrorContains(t, err, "file not found")

	_, err = ExpandFilePaths([]string{filepath.Join(dir, "*.json")}, false)
	assert.ErrorContains(t, err, "no files match")
}

func TestYAMLFilesInDirectoryRejectsFiles(t *testing.T) {
	file := touch(t, filepath.Join(t.TempDir(), "a.yaml"))
	_, err := YAMLFilesInDirectory(file, false)
	assert.Error(t, err)
	assert.True(t, FileExists(file))
	assert.False(t, IsDirectory(file))
}
