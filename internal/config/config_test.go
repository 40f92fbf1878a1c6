package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "dataset", cfg.Dataset.Root)
	assert.Equal(t, ".txt", cfg.Dataset.LabelExt)
	assert.Equal(t, []string{".jpg", ".jpeg", ".png"}, cfg.Dataset.ImageExts)
	assert.Equal(t, 10, cfg.Editor.MinGestureSize)
	assert.False(t, cfg.Session.AutoSave)
}

func TestLoadFromFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `dataset:
  root: /data/birds
  image_exts: [JPG, .png]
display:
  width: 800
  height: 600
editor:
  strict_edit: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/birds", cfg.Dataset.Root)
	assert.Equal(t, []string{".jpg", ".png"}, cfg.Dataset.ImageExts)
	assert.Equal(t, ".txt", cfg.Dataset.LabelExt)
	assert.Equal(t, 800, cfg.Display.Width)
	assert.True(t, cfg.Editor.StrictEdit)
	assert.Equal(t, 10, cfg.Editor.MinGestureSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("display: [unclosed"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestSaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Session.AutoSave = true
	cfg.Assist.Model = "llava"

	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"empty root":         func(c *Config) { c.Dataset.Root = "" },
		"no image exts":      func(c *Config) { c.Dataset.ImageExts = nil },
		"label ext clash":    func(c *Config) { c.Dataset.LabelExt = ".png" },
		"zero display":       func(c *Config) { c.Display.Width = 0 },
		"negative gesture":   func(c *Config) { c.Editor.MinGestureSize = -1 },
		"negative history":   func(c *Config) { c.Editor.MaxHistory = -2 },
		"assist without url": func(c *Config) { c.Assist.Enabled = true; c.Assist.URL = "" },
		"quality range":      func(c *Config) { c.Assist.SendQuality = 101 },
		"confidence range":   func(c *Config) { c.Assist.MinConfidence = 1.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.yaml", filepath.Base(GetConfigPath()))
}
