package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "noteinsight.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertAndFetchNote(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.InsertNote(Note{ID: "note-1", CreatedAt: 1, UpdatedAt: 1, Title: "first"}))

	n, err := db.GetNote("note-1")
	require.NoError(t, err)
	require.Equal(t, "first", n.Title)
}

func TestSegmentDedupe(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.InsertNote(Note{ID: "note-1", CreatedAt: 1, UpdatedAt: 1}))

	seg := Segment{NoteID: "note-1", StartMs: 0, EndMs: 2500, Text: "Hello world.", IsFinal: true, Lang: "en"}
	inserted, err := db.InsertSegment(seg)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = db.InsertSegment(seg)
	require.NoError(t, err)
	require.False(t, inserted, "duplicate (noteId, startMs, endMs) must be silently ignored")

	count, err := db.CountSegmentsForNote("note-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCascadeDeleteNote(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.InsertNote(Note{ID: "note-1", CreatedAt: 1, UpdatedAt: 1}))

	for i := 0; i < 7; i++ {
		start := int64(i * 1000)
		_, err := db.InsertSegment(Segment{NoteID: "note-1", StartMs: start, EndMs: start + 500, Text: "x", IsFinal: true, Lang: "en"})
		require.NoError(t, err)
	}

	before, err := db.CountSegmentsForNote("note-1")
	require.NoError(t, err)
	require.Equal(t, 7, before)

	require.NoError(t, db.DeleteNote("note-1"))

	after, err := db.CountSegmentsForNote("note-1")
	require.NoError(t, err)
	require.Equal(t, 0, after)
}

func TestRepairRecreatesMissingTable(t *testing.T) {
	db := openTestDB(t)
	_, err := db.conn.Exec("DROP TABLE segments")
	require.NoError(t, err)

	require.NoError(t, db.repair())

	exists, err := db.tableExists("segments")
	require.NoError(t, err)
	require.True(t, exists)
}
