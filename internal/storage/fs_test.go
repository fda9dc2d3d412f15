package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempVault(t *testing.T, exts ...string) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir(), exts...)
	require.NoError(t, err)
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("* Hello\nWorld [[note:hi]]\n")
	require.NoError(t, s.Write("doc.org", content))
	got, err := s.Read("doc.org")
	require.NoError(t, err)
	assert.Equal(t, string(content), string(got))
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	require.NoError(t, s.Write("a/b/c.org", []byte("deep")))
	got, err := s.Read("a/b/c.org")
	require.NoError(t, err)
	assert.Equal(t, "deep", string(got))
}

func TestList(t *testing.T) {
	s := tempVault(t)
	require.NoError(t, s.Write("a.org", []byte("#+title: Alpha\ntext")))
	require.NoError(t, s.Write("sub/b.ORG", []byte("* Beta")))
	require.NoError(t, s.Write("readme.md", []byte("not org")))
	require.NoError(t, s.Write(".hidden/c.org", []byte("skipped")))

	items, err := s.List("")
	require.NoError(t, err)
	require.Len(t, items, 2)
	byPath := map[string]string{}
	for _, it := range items {
		byPath[it.Path] = it.Title
		assert.Len(t, it.Checksum, 64)
	}
	assert.Equal(t, "Alpha", byPath["a.org"])
	assert.Equal(t, "Beta", byPath["sub/b.ORG"])
}

func TestList_CustomExtensions(t *testing.T) {
	s := tempVault(t, "txt", ".org")
	require.NoError(t, s.Write("a.txt", []byte("a")))
	require.NoError(t, s.Write("b.org", []byte("b")))
	items, err := s.List("")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, s.IsDocument("x.TXT"))
}

func TestExists(t *testing.T) {
	s := tempVault(t)
	require.NoError(t, s.Write("a.org", []byte("a")))
	require.NoError(t, s.Write("a.md", []byte("a")))
	assert.True(t, s.Exists("a.org"))
	assert.False(t, s.Exists("a.md"))
	assert.False(t, s.Exists("missing.org"))
	assert.False(t, s.Exists("../a.org"))
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)
	for _, p := range []string{"../../etc/passwd", "../outside.org", "/etc/shadow"} {
		_, err := s.Read(p)
		assert.Error(t, err, p)
		assert.Error(t, s.Write(p, []byte("x")), p)
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempVault(t)
	require.NoError(t, s.Write("atomic.org", []byte("original")))
	require.NoError(t, s.Write("atomic.org", []byte("updated")))
	got, err := s.Read("atomic.org")
	require.NoError(t, err)
	assert.Equal(t, "updated", string(got))

	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".marginalia-tmp-*"))
	assert.Empty(t, matches)
}

func TestNewFS_Errors(t *testing.T) {
	_, err := NewFS("/tmp/marginalia-does-not-exist-" + t.Name())
	assert.Error(t, err)

	f, err := os.CreateTemp("", "marginalia-test-*")
	require.NoError(t, err)
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err = NewFS(f.Name())
	assert.Error(t, err)
}
