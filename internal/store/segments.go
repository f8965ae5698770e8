package store

import "fmt"

// Segment mirrors the §3 Segment record. Only IsFinal=true rows are
// ever persisted; partial segments never reach this package.
type Segment struct {
	ID      int64
	NoteID  string
	StartMs int64
	EndMs   int64
	Text    string
	IsFinal bool
	Lang    string
}

// InsertSegment performs an "insert or ignore" on the
// (note_id, start_ms, end_ms) unique key per §4.9: duplicates are
// silently dropped rather than erroring. Returns true if a row was
// actually inserted.
func (db *DB) InsertSegment(s Segment) (bool, error) {
	result, err := db.conn.Exec(
		`INSERT OR IGNORE INTO segments (note_id, start_ms, end_ms, text, is_final, lang)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.NoteID, s.StartMs, s.EndMs, s.Text, boolToInt(s.IsFinal), s.Lang,
	)
	if err != nil {
		return false, fmt.Errorf("store: insert segment note=%q [%d,%d]: %w", s.NoteID, s.StartMs, s.EndMs, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: insert segment rows affected: %w", err)
	}
	return n > 0, nil
}

// SegmentsForNote returns all persisted segments for a note, ordered by
// start time.
func (db *DB) SegmentsForNote(noteID string) ([]Segment, error) {
	rows, err := db.conn.Query(
		`SELECT id, note_id, start_ms, end_ms, text, is_final, lang FROM segments WHERE note_id = ? ORDER BY start_ms`,
		noteID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query segments for note %q: %w", noteID, err)
	}
	defer rows.Close()

	var out []Segment
	for rows.Next() {
		var s Segment
		var isFinal int
		if err := rows.Scan(&s.ID, &s.NoteID, &s.StartMs, &s.EndMs, &s.Text, &isFinal, &s.Lang); err != nil {
			return nil, fmt.Errorf("store: scan segment: %w", err)
		}
		s.IsFinal = isFinal != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountSegmentsForNote reports the number of persisted segments for a note.
func (db *DB) CountSegmentsForNote(noteID string) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM segments WHERE note_id = ?`, noteID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count segments for note %q: %w", noteID, err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
