package configpaths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCandidatePathsPrioritizesUserPath(t *testing.T) {
	jsonPaths, yamlPaths, tomlPaths := ConfigCandidatePaths("/tmp/custom.yml")
	require.NotEmpty(t, yamlPaths)
	assert.Equal(t, "/tmp/custom.yml", yamlPaths[0])
	assert.NotContains(t, jsonPaths, "/tmp/custom.yml")
	assert.NotContains(t, tomlPaths, "/tmp/custom.yml")

	jsonPaths, _, _ = ConfigCandidatePaths("/tmp/noext")
	assert.Equal(t, "/tmp/noext", jsonPaths[0])
}

func TestFindUsesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	_, err = Find("")
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bindgen.toml"), []byte(""), 0o644))
	got, err := Find("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bindgen.toml"), got)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bindgen.yaml"), []byte(""), 0o644))
	got, err = Find("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bindgen.yaml"), got)
}

func TestFindUserPathMustExist(t *testing.T) {
	_, err := Find(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExt(t *testing.T) {
	assert.Equal(t, "yaml", Ext("yml"))
	assert.Equal(t, "toml", Ext("toml"))
	assert.Equal(t, "json", Ext(""))
}
