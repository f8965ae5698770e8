package store

import (
	"database/sql"
	"fmt"
)

// Note mirrors the §3 Note record.
type Note struct {
	ID              string
	CreatedAt       int64
	UpdatedAt       int64
	Title           string
	DurationMs      *int64
	LanguageLock    *string
	AudioPath       *string
	AsrModel        *string
	LlmModel        *string
	InsightsStatus  *string
}

// InsertNote creates a new Note row.
func (db *DB) InsertNote(n Note) error {
	_, err := db.conn.Exec(
		`INSERT INTO notes (id, created_at, updated_at, title, duration_ms, language_lock, audio_path, asr_model, llm_model, insights_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.CreatedAt, n.UpdatedAt, n.Title, n.DurationMs, n.LanguageLock, n.AudioPath, n.AsrModel, n.LlmModel, n.InsightsStatus,
	)
	if err != nil {
		return fmt.Errorf("store: insert note %q: %w", n.ID, err)
	}
	return nil
}

// UpdateNoteStop applies the stop-time fields (duration, lock, audio
// path) set once WAV finalization and final transcription complete.
func (db *DB) UpdateNoteStop(noteID string, durationMs int64, languageLock string, audioPath string, updatedAt int64) error {
	_, err := db.conn.Exec(
		`UPDATE notes SET duration_ms = ?, language_lock = ?, audio_path = ?, updated_at = ? WHERE id = ?`,
		durationMs, languageLock, audioPath, updatedAt, noteID,
	)
	if err != nil {
		return fmt.Errorf("store: update note stop %q: %w", noteID, err)
	}
	return nil
}

// GetNote fetches a single Note by id.
func (db *DB) GetNote(id string) (Note, error) {
	var n Note
	err := db.conn.QueryRow(
		`SELECT id, created_at, updated_at, title, duration_ms, language_lock, audio_path, asr_model, llm_model, insights_status
		 FROM notes WHERE id = ?`, id,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt, &n.Title, &n.DurationMs, &n.LanguageLock, &n.AudioPath, &n.AsrModel, &n.LlmModel, &n.InsightsStatus)
	if err == sql.ErrNoRows {
		return Note{}, fmt.Errorf("store: note %q: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return Note{}, fmt.Errorf("store: get note %q: %w", id, err)
	}
	return n, nil
}

// DeleteNote removes a Note row. With foreign keys enabled, this
// cascades to its Segments (§3).
func (db *DB) DeleteNote(id string) error {
	_, err := db.conn.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete note %q: %w", id, err)
	}
	return nil
}
