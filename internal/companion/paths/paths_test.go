package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()
	p := New(dir)
	assert.Equal(t, dir, p.BaseDir())
	assert.Equal(t, filepath.Join(dir, "config.json"), p.ConfigFile())
	assert.Equal(t, filepath.Join(dir, "mcp-config.json"), p.MCPConfigFile())
	assert.Equal(t, filepath.Join(dir, "companion.toml"), p.SettingsFile())
	assert.Equal(t, filepath.Join(dir, ".env"), p.EnvFile())
	assert.True(t, filepath.IsAbs(New("relative").BaseDir()))
}

func TestDefaultHonorsOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	p, err := Default()
	require.NoError(t, err)
	assert.Equal(t, dir, p.BaseDir())
}

func TestDefaultUsesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, "")
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	p, err := Default()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, DirName), p.BaseDir())
}

func TestEnsureBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	p := New(dir)
	require.NoError(t, p.EnsureBaseDir())
	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}
