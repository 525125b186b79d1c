package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl  string `json:"base_url"`
	MinRows  int    `json:"min_rows"`
	MaxRows  int    `json:"max_rows"`
	Keywords []string
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "nope.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scrape.json5"), `{
		// comments are fine in json5
		base_url: "https://www.flowagility.com",
		min_rows: 5,
		max_rows: 2000,
	}`)
	writeFile(t, filepath.Join(dir, "scrape.local.json5"), `{max_rows: 100}`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "scrape.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://www.flowagility.com", config.BaseUrl)
	require.Equal(t, 5, config.MinRows)
	require.Equal(t, 100, config.MaxRows)
}

func TestLoadWithDefaults(t *testing.T) {
	defaults := testConfig{
		BaseUrl: "https://www.flowagility.com",
		MinRows: 5,
		MaxRows: 2000,
	}

	t.Run("absent file keeps defaults", func(t *testing.T) {
		config, err := LoadWithDefaults(filepath.Join(t.TempDir(), "tunables.json5"), defaults)
		require.NoError(t, err)
		require.Equal(t, defaults, config)
	})

	t.Run("file layers on top", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "tunables.json5"), `{min_rows: 3}`)

		config, err := LoadWithDefaults(filepath.Join(dir, "tunables.json5"), defaults)
		require.NoError(t, err)
		require.Equal(t, 3, config.MinRows)
		require.Equal(t, 2000, config.MaxRows)
		require.Equal(t, defaults.BaseUrl, config.BaseUrl)
	})
}
