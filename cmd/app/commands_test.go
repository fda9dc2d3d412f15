package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	config string
	vault  string
}

func newTestEnv(t *testing.T, docs map[string]string) testEnv {
	t.Helper()
	dir := t.TempDir()
	vault := filepath.Join(dir, "vault")
	require.NoError(t, os.MkdirAll(vault, 0o755))
	for name, text := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(vault, name), []byte(text), 0o644))
	}
	cfg := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf("app:\n  log_level: error\nvault:\n  path: %s\nsqlite:\n  path: %s\n",
		vault, filepath.Join(dir, "index.db"))
	require.NoError(t, os.WriteFile(cfg, []byte(yaml), 0o644))
	return testEnv{config: cfg, vault: vault}
}

func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCommand()
	root.Writer = &out
	root.ErrWriter = &errOut
	err := root.Run(context.Background(), append([]string{"marginalia", "--config", e.config}, args...))
	return out.String(), err
}

func (e testEnv) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.vault, name))
	require.NoError(t, err)
	return string(data)
}

func TestAddListDelete(t *testing.T) {
	env := newTestEnv(t, map[string]string{"doc.org": "Some important text."})

	out, err := env.run(t, "add", "--body", "remember this", "--start", "5", "--end", "14", "doc.org")
	require.NoError(t, err)
	assert.Contains(t, out, "added note at doc.org:1")
	assert.Equal(t, "Some [[note:remember this][important]] text.", env.read(t, "doc.org"))

	out, err = env.run(t, "list", "doc.org")
	require.NoError(t, err)
	assert.Contains(t, out, "doc.org\n")
	assert.Contains(t, out, "important")
	assert.Contains(t, out, "remember this")

	out, err = env.run(t, "delete", "--offset", "5", "doc.org")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted note")
	assert.Equal(t, "Some important text.", env.read(t, "doc.org"))

	out, err = env.run(t, "list", "doc.org")
	require.NoError(t, err)
	assert.Equal(t, "No annotations found\n", out)
}

func TestDelete_NotAMarker(t *testing.T) {
	const text = "A [[https://example.com][link]] here."
	env := newTestEnv(t, map[string]string{"doc.org": text})

	_, err := env.run(t, "delete", "--offset", "4", "doc.org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no note or comment annotation at offset 4")
	assert.Equal(t, text, env.read(t, "doc.org"))
}

func TestEdit(t *testing.T) {
	env := newTestEnv(t, map[string]string{"doc.org": "x [[note:old][word]] y"})

	_, err := env.run(t, "edit", "--offset", "3", "--body", "new", "--to", "comment", "doc.org")
	require.NoError(t, err)
	assert.Equal(t, "x [[comment:new][word]] y", env.read(t, "doc.org"))
}

func TestTable(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"doc.org": "* A\n[[note:one][x]]\n* B\n[[comment:two][y]]\n",
	})

	out, err := env.run(t, "table", "doc.org")
	require.NoError(t, err)
	assert.Equal(t, "x\tone\ny\ttwo\n", out)

	out, err = env.run(t, "table", "--heading", "B", "doc.org")
	require.NoError(t, err)
	assert.Equal(t, "y\ttwo\n", out)

	out, err = env.run(t, "table", "--org", "--kind", "note", "doc.org")
	require.NoError(t, err)
	assert.Equal(t, "| x | one |\n", out)
}

func TestShow(t *testing.T) {
	env := newTestEnv(t, map[string]string{"doc.org": "Some [[note:remember this][important]] text."})

	out, err := env.run(t, "show", "--offset", "6", "doc.org")
	require.NoError(t, err)
	assert.Contains(t, out, "remember this")
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, map[string]string{"doc.org": "Some [[note:50% off][word]] text."})

	out, err := env.run(t, "export", "--backend", "latex", "doc.org")
	require.NoError(t, err)
	assert.Equal(t, `Some word\marginpar{\footnotesize 50\% off} text.`, out)

	out, err = env.run(t, "export", "--backend", "plain", "doc.org")
	require.NoError(t, err)
	assert.Equal(t, "Some word text.", out)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"a.org": "[[note:check the figures][table 2]]",
		"b.org": "[[comment:unrelated]]",
	})

	out, err := env.run(t, "search", "figures")
	require.NoError(t, err)
	assert.Contains(t, out, "a.org:1")
	assert.NotContains(t, out, "b.org")

	out, err = env.run(t, "search", "zzzunmatched")
	require.NoError(t, err)
	assert.Equal(t, "No annotations found\n", out)
}

func TestMissingPath(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.run(t, "list")
	assert.ErrorIs(t, err, errPathRequired)
}

func TestList_SeveralHeadings(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"doc.org": "* A\n[[note:one][x]]\n* B\n[[comment:two][y]]\n* C\nplain\n",
	})

	out, err := env.run(t, "list", "--heading", "A", "--heading", "B", "--heading", "C", "doc.org")
	require.NoError(t, err)
	assert.Contains(t, out, "doc.org::A\n")
	assert.Contains(t, out, "doc.org::B\n")
	assert.NotContains(t, out, "doc.org::C", "scopes without annotations are left out")

	out, err = env.run(t, "list", "--heading", "C", "doc.org")
	require.NoError(t, err)
	assert.Equal(t, "No annotations found\n", out)
}
