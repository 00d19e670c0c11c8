package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Equal(t, 100, c.Picker.BoxSize)
	require.Equal(t, "RECT", c.Picker.Shape)
	require.Equal(t, "default", c.Picker.Mode)
	require.Equal(t, "Manual", c.Picker.Label)
	require.Equal(t, 300.0, c.Picker.EraseSize)
	require.True(t, c.Picker.RemoveROIs)
	require.NotEmpty(t, c.Store.Path)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[picker]
box_size = 64
shape = "CIRCLE"

[[picker.labels]]
name = "Good"
color = "#FFFF0000"

[display]
lowpass = 1.5
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 64, c.Picker.BoxSize)
	require.Equal(t, "CIRCLE", c.Picker.Shape)
	require.Equal(t, "default", c.Picker.Mode)
	require.Equal(t, []Label{{Name: "Good", Color: "#FFFF0000"}}, c.Picker.Labels)
	require.Equal(t, 1.5, c.Display.Lowpass)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[picker]\nbox_size = 64\n"), 0o644))
	t.Setenv("EMPICKER_PICKER_BOX_SIZE", "32")
	t.Setenv("EMPICKER_PICKER_MODE", "filament")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 32, c.Picker.BoxSize)
	require.Equal(t, "filament", c.Picker.Mode)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	c := Default()
	c.Picker.BoxSize = 48
	c.Picker.Shape = "CENTER"
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 48, got.Picker.BoxSize)
	require.Equal(t, "CENTER", got.Picker.Shape)
}

func TestUserPathIsLoaded(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("EMPICKER_CONFIG", "")
	path, err := UserPath()
	require.NoError(t, err)

	cfg := Default()
	cfg.Picker.EraseSize = 120
	require.NoError(t, Save(cfg, path))

	got, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 120.0, got.Picker.EraseSize)
}
