package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "poster.png", cfg.Export.PNGName)
	assert.Equal(t, "poster.pptx", cfg.Export.PPTXName)
	assert.Equal(t, "PosterGen", cfg.Export.Author)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	yamlText := `
export:
  author: Studio
  scale: 2
assets:
  base_dir: ./media
  timeout: 3s
server:
  addr: 127.0.0.1:9000
`
	cfg, err := LoadFromReader(strings.NewReader(yamlText))
	require.NoError(t, err)

	assert.Equal(t, "Studio", cfg.Export.Author)
	assert.Equal(t, 2.0, cfg.Export.Scale)
	assert.Equal(t, "poster.png", cfg.Export.PNGName, "未出现的字段保留默认值")
	assert.Equal(t, "./media", cfg.Assets.BaseDir)
	assert.Equal(t, 3*time.Second, cfg.Assets.Timeout)
	assert.Equal(t, int64(20<<20), cfg.Assets.MaxBytes)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.Server.LogRequest)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posterkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export:\n  pptx_name: deck.pptx\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "deck.pptx", cfg.Export.PPTXName)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidateRejectsBadValues(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("export:\n  scale: 0\n  png_name: out/poster.png\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.scale")
	assert.Contains(t, err.Error(), "export.png_name")

	_, err = LoadFromReader(strings.NewReader("export: [1, 2"))
	assert.Error(t, err)
}

func TestLoadAssetAccess(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.Assets.AllowFiles)
	assert.True(t, cfg.Assets.AllowRemote)

	cfg, err := LoadFromReader(strings.NewReader(`
assets:
  allow_files: false
  allowed_hosts: [cdn.example.com, images.example.com]
`))
	require.NoError(t, err)
	assert.False(t, cfg.Assets.AllowFiles)
	assert.True(t, cfg.Assets.AllowRemote, "未出现的字段保留默认值")
	assert.Equal(t, []string{"cdn.example.com", "images.example.com"}, cfg.Assets.AllowedHosts)
}
