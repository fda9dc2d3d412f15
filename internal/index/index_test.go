package index

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/marginalia/internal/models"
	"github.com/starford/marginalia/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "marginalia-test-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

const sampleDoc = "#+title: Sample\n* Intro\nSome [[note:remember this][important]] text.\n" +
	"* Details\nA [[comment:check the numbers][figure 3]] and [[https://x.example][a link]].\n"

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count))
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM annotations`).Scan(&count))
}

func TestExtract(t *testing.T) {
	anns, err := Extract("doc.org", sampleDoc)
	require.NoError(t, err)
	require.Len(t, anns, 2)

	assert.Equal(t, models.Annotation{
		Path: "doc.org", Kind: "note", Body: "remember this", Text: "important", HasText: true,
		Heading: "Intro", Line: 3, Column: 6, Offset: len("#+title: Sample\n* Intro\nSome "),
	}, anns[0])
	assert.Equal(t, "comment", anns[1].Kind)
	assert.Equal(t, "Details", anns[1].Heading)
}

func TestIndexDocumentAndChecksum(t *testing.T) {
	db := testDB(t)
	require.NoError(t, IndexDocument(db, "doc.org", []byte(sampleDoc)))

	cs, err := db.GetChecksum("doc.org")
	require.NoError(t, err)
	assert.Len(t, cs, 64)

	docs, err := db.ListDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Sample", docs[0].Title)
	assert.Equal(t, 2, docs[0].Annotations)
}

func TestAnnotations_FilterAndOrder(t *testing.T) {
	db := testDB(t)
	require.NoError(t, IndexDocument(db, "b.org", []byte("[[note:b1]] [[comment:b2]]")))
	require.NoError(t, IndexDocument(db, "a.org", []byte("[[comment:a1]]")))

	all, err := db.Annotations("", nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a1", all[0].Body)
	assert.Equal(t, "b1", all[1].Body)

	comments, err := db.Annotations("b.org", []string{"comment"})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "b2", comments[0].Body)
}

func TestUpsertReplacesAnnotations(t *testing.T) {
	db := testDB(t)
	require.NoError(t, IndexDocument(db, "up.org", []byte("[[note:old]]")))
	require.NoError(t, IndexDocument(db, "up.org", []byte("[[note:new]] [[note:newer]]")))

	anns, err := db.Annotations("up.org", nil)
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, "new", anns[0].Body)
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	require.NoError(t, IndexDocument(db, "del.org", []byte("[[note:gone]]")))
	require.NoError(t, db.DeleteDocument("del.org"))

	cs, _ := db.GetChecksum("del.org")
	assert.Empty(t, cs)
	anns, err := db.Annotations("del.org", nil)
	require.NoError(t, err)
	assert.Empty(t, anns)
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.org")
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	require.NoError(t, IndexDocument(db, "s.org", []byte("[[note:uniqueword appears here][x]] [[comment:other]]")))

	hits, err := db.Search("uniqueword", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "s.org", hits[0].Path)
	assert.Equal(t, "note", hits[0].Kind)

	hits, err = db.Search("uniqueword", []string{"comment"}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSync(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Write("a.org", []byte("[[note:a]]")))
	require.NoError(t, store.Write("b.org", []byte("[[note:b]]")))
	require.NoError(t, Sync(db, store, quietLogger()))

	sums, err := db.AllChecksums()
	require.NoError(t, err)
	assert.Len(t, sums, 2)

	require.NoError(t, os.Remove(store.Root()+"/b.org"))
	require.NoError(t, store.Write("a.org", []byte("[[note:a2]]")))
	require.NoError(t, Sync(db, store, quietLogger()))

	sums, err = db.AllChecksums()
	require.NoError(t, err)
	assert.Len(t, sums, 1)
	anns, err := db.Annotations("a.org", nil)
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, "a2", anns[0].Body)
}
