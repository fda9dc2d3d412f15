package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/marginalia/internal/annotationservice"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	return cfg
}

func TestOpenWorkspace_SyncsExistingDocuments(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Vault.Path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Vault.Path, "a.org"),
		[]byte("* Title\n[[note:one][x]] [[comment:two]]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Vault.Path, "ignored.md"), []byte("[[note:no]]"), 0o644))

	ws, err := OpenWorkspace(WithConfig(cfg), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	defer ws.Close()

	docs, err := ws.Service.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.org", docs[0].Path)
	assert.Equal(t, "Title", docs[0].Title)
	assert.Equal(t, 2, docs[0].Annotations)
}

func TestOpenWorkspace_CreatesVault(t *testing.T) {
	cfg := testConfig(t)
	ws, err := OpenWorkspace(WithConfig(cfg), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	defer ws.Close()

	info, err := os.Stat(cfg.Vault.Path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenWorkspace_UsesExportAndListConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Export.Backends = []string{"html"}
	cfg.Annotations.MaxTextWidth = 3
	require.NoError(t, os.MkdirAll(cfg.Vault.Path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Vault.Path, "a.org"), []byte("[[note:b][longtext]]"), 0o644))

	ws, err := OpenWorkspace(WithConfig(cfg), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	defer ws.Close()

	ctx := context.Background()
	out, err := ws.Service.Export(ctx, "a.org", "latex")
	require.NoError(t, err)
	assert.Equal(t, "longtext", out)

	v, err := ws.Service.View(ctx, annotationservice.ListRequest{Path: "a.org"}, 0, false)
	require.NoError(t, err)
	defer v.Close()
	assert.Equal(t, 3, v.TextWidth())
}

func TestOpenWorkspace_RequiresConfig(t *testing.T) {
	_, err := OpenWorkspace()
	assert.ErrorIs(t, err, errConfigRequired)
}
