package common

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"text/template"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestWriterWritesAndRecordsFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, discard())

	require.NoError(t, w.WriteFile("src/a.cpp", []byte("a")))
	require.NoError(t, w.Execute("b.txt", template.Must(template.New("b").Parse("hello {{.}}")), "world"))
	assert.Equal(t, []string{"src/a.cpp", "b.txt"}, w.Written())

	data, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	require.NoError(t, w.WriteManifest("c", "1.0.0"))
	_, err = os.Stat(filepath.Join(dir, ManifestName))
	assert.NoError(t, err)
}

func TestWriterSkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	first := NewWriter(dir, discard())
	require.NoError(t, first.WriteFile("a.txt", []byte("same")))
	require.NoError(t, first.WriteManifest("c", "1.0.0"))

	path := filepath.Join(dir, "a.txt")
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, old, old))

	second := NewWriter(dir, discard())
	require.NoError(t, second.WriteFile("a.txt", []byte("same")))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "unchanged file was rewritten")
	assert.Equal(t, []string{"a.txt"}, second.Written())

	require.NoError(t, second.WriteFile("a.txt", []byte("changed")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "changed", string(data))
}

func TestWriterRemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	first := NewWriter(dir, discard())
	require.NoError(t, first.WriteFile("keep.cs", []byte("k")))
	require.NoError(t, first.WriteFile("gone.cs", []byte("g")))
	require.NoError(t, first.WriteManifest("csharp", "1.0.0"))

	second := NewWriter(dir, discard())
	require.NoError(t, second.WriteFile("keep.cs", []byte("k")))
	require.NoError(t, second.WriteManifest("csharp", "1.0.0"))

	_, err := os.Stat(filepath.Join(dir, "gone.cs"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "keep.cs"))
	assert.NoError(t, err)
}

func TestWriterIgnoresCorruptManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte("{"), 0o644))
	w := NewWriter(dir, discard())
	require.NoError(t, w.WriteFile("a.txt", []byte("a")))
	assert.NoError(t, w.WriteManifest("c", "1.0.0"))
}

func TestWriterRefusesPathsOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "out")
	w := NewWriter(root, discard())

	for _, rel := range []string{"../escape.cs", "a/../../escape.cs", "/tmp/abs.cs", ""} {
		assert.Error(t, w.WriteFile(rel, []byte("x")), rel)
	}
	assert.Empty(t, w.Written())
	_, err := os.Stat(filepath.Join(parent, "escape.cs"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, w.WriteFile("nested/../inside.cs", []byte("ok")))
	assert.Equal(t, []string{"nested/../inside.cs"}, w.Written())
}

func TestWriterKeepsFilesOutsideRootListedInManifest(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "out")
	require.NoError(t, os.MkdirAll(root, 0o755))
	victim := filepath.Join(parent, "victim.txt")
	require.NoError(t, os.WriteFile(victim, []byte("v"), 0o644))
	manifest := `{"generator":"csharp","version":"1.0.0","files":{"../victim.txt":"00"}}`
	require.NoError(t, os.WriteFile(filepath.Join(root, ManifestName), []byte(manifest), 0o644))

	w := NewWriter(root, discard())
	require.NoError(t, w.WriteFile("a.cs", []byte("a")))
	require.NoError(t, w.WriteManifest("csharp", "1.0.0"))

	_, err := os.Stat(victim)
	assert.NoError(t, err)
}
