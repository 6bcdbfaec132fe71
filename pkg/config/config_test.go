package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqsrc/reqsrc/pkg/config"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	assert.NotEmpty(t, cfg.LockFile)
	assert.True(t, filepath.IsAbs(cfg.LockFile))
	assert.Equal(t, "src", cfg.SourceDir)
	assert.Equal(t, ".in", cfg.Extension)
	assert.Empty(t, cfg.IndexURL)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, config.Filename), []byte(`
source_dir: requirements
index_url: https://pypi.example.com/simple/
extra_index_urls:
  - https://extra.example.com/
`), 0o666))

	cfg, err := config.Load(workDir)
	require.NoError(t, err)
	assert.Equal(t, "requirements", cfg.SourceDir)
	assert.Equal(t, "https://pypi.example.com/simple/", cfg.IndexURL)
	assert.Equal(t, []string{"https://extra.example.com/"}, cfg.ExtraIndexURLs)
	// Unset keys keep their defaults.
	assert.Equal(t, config.Default().LockFile, cfg.LockFile)
	assert.Equal(t, ".in", cfg.Extension)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	testcases := map[string]string{
		"malformed":   "{ this is not yaml",
		"unknown-key": "index_urll: https://typo.example.com/\n",
	}
	for tcName, content := range testcases {
		content := content
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			workDir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(workDir, config.Filename), []byte(content), 0o666))
			_, err := config.Load(workDir)
			assert.Error(t, err)
		})
	}
}
