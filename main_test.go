package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("fps = 12\nwidth = 640\n"), 0o600))

	cfg, cli, err := parseArgs([]string{"-config", path, "-width", "1024", "-vc", "3", "-headless"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, path, cli.configPath)
	assert.True(t, cli.headless)
	assert.Equal(t, 12, cfg.FPS, "from file")
	assert.Equal(t, 1024, cfg.Width, "flag wins over file")
	assert.Equal(t, 3, cfg.VideoCols)
}

func TestParseArgsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, cli, err := parseArgs(nil, io.Discard)
	require.NoError(t, err)
	assert.False(t, cli.headless)
	assert.Equal(t, 800, cfg.Width)
	require.NoError(t, cfg.Validate())
}

func TestParseArgsUnknownFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, _, err := parseArgs([]string{"-bogus"}, io.Discard)
	assert.Error(t, err)
}
