package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Width int    `yaml:"width"`
}

func (s *sample) Validate() error {
	if s.Width < 0 {
		return errors.New("width must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	cfg := sample{Width: 40}
	require.NoError(t, Load(writeFile(t, "name: ${SAMPLE_NAME}\n"), &cfg))
	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 40, cfg.Width)
}

func TestLoad_Validates(t *testing.T) {
	cfg := sample{}
	err := Load(writeFile(t, "width: -1\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_BadYAML(t *testing.T) {
	cfg := sample{}
	assert.Error(t, Load(writeFile(t, "name: [unclosed\n"), &cfg))
}

func TestLoadWithDefaults(t *testing.T) {
	cfg := sample{Name: "default"}
	loaded, err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, "default", cfg.Name)

	loaded, err = LoadWithDefaults(writeFile(t, "name: file\n"), &cfg)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "file", cfg.Name)

	bad := sample{Width: -5}
	_, err = LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), &bad)
	assert.Error(t, err, "defaults are validated too")
}
