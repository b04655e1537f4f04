package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bongod.toml")
	content := "root = \"/data/bongo\"\naddr = \"0.0.0.0:9000\"\ncreate_db = true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/bongo", cfg.Root)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.True(t, cfg.CreateDB)
	assert.False(t, cfg.AutoFlush)
}
