package generator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/bindgen/internal/codegen/common"
	"github.com/Alia5/bindgen/internal/codegen/failure"
	"github.com/Alia5/bindgen/internal/codegen/generator"
	bgtest "github.com/Alia5/bindgen/internal/testing"
)

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{"c", "csharp", "symbols"}, generator.Kinds())
}

func TestEmitWritesManifest(t *testing.T) {
	dir := t.TempDir()
	g := generator.New(bgtest.DiscardLogger())
	files, err := g.Emit(context.Background(), bgtest.DoubleMetadata(t), dir, "csharp")
	require.NoError(t, err)
	assert.Contains(t, files, "Tizen.Interop.cs")

	_, err = os.Stat(filepath.Join(dir, common.ManifestName))
	assert.NoError(t, err)
}

func TestEmitUnknownKind(t *testing.T) {
	g := generator.New(bgtest.DiscardLogger())
	_, err := g.Emit(context.Background(), bgtest.DoubleMetadata(t), t.TempDir(), "cobol")
	require.Error(t, err)
	assert.Equal(t, failure.KindConfiguration, failure.KindOf(err))
}

func TestEmitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := generator.New(bgtest.DiscardLogger())
	_, err := g.Emit(ctx, bgtest.DoubleMetadata(t), t.TempDir(), "c")
	require.Error(t, err)
	assert.Equal(t, failure.KindEmit, failure.KindOf(err))
}

func TestEmitUnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o644))

	g := generator.New(bgtest.DiscardLogger())
	_, err := g.Emit(context.Background(), bgtest.DoubleMetadata(t), blocker, "c")
	require.Error(t, err)
	assert.Equal(t, failure.KindEmit, failure.KindOf(err))

	var emitErr *failure.EmitError
	require.True(t, errors.As(err, &emitErr))
	assert.Empty(t, emitErr.Written)
}

func TestEmitReportsPartialOutput(t *testing.T) {
	dir := t.TempDir()
	// a directory where the source file should go makes the second write fail
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "Tizen_shim.cpp"), 0o755))

	g := generator.New(bgtest.DiscardLogger())
	written, err := g.Emit(context.Background(), bgtest.DoubleMetadata(t), dir, "c")
	require.Error(t, err)

	var emitErr *failure.EmitError
	require.True(t, errors.As(err, &emitErr))
	assert.Equal(t, []string{"include/Tizen_shim.h"}, emitErr.Written)
	assert.Equal(t, emitErr.Written, written)
}
