// Package coordinator implements the SessionCoordinator of §4.8: the
// sole consumer of session events and the only writer of segments.
package coordinator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/voicenote/core/internal/asrerr"
	"github.com/voicenote/core/internal/language"
	"github.com/voicenote/core/internal/session"
	"github.com/voicenote/core/internal/store"
	"github.com/voicenote/core/internal/transcript"
)

// SegmentWriter is the subset of *store.DB the coordinator writes
// through, narrowed so tests can inject a fake.
type SegmentWriter interface {
	InsertSegment(store.Segment) (bool, error)
}

// Coordinator gates partial/final events by session identity and owns
// the only code path that ever writes to the segment store (§4.8).
// It implements session.EventSink.
type Coordinator struct {
	db     SegmentWriter
	logger *slog.Logger

	mu sync.Mutex

	sessionID string // live session id; empty when idle
	noteID    string

	lastActiveSessionID string
	lastActiveNoteID    string
	languageLock        language.Lock

	insertedFinalKeys map[string]struct{}

	// partials holds the latest in-memory (never persisted) partial
	// segment list, keyed by noteId for getState-style reads. Never
	// persisted — getState-only.
	partials map[string][]transcript.Segment
}

// New constructs an idle Coordinator writing through db.
func New(db SegmentWriter, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		db:                db,
		logger:            logger,
		insertedFinalKeys: make(map[string]struct{}),
		partials:          make(map[string][]transcript.Segment),
	}
}

var _ session.EventSink = (*Coordinator)(nil)

// OnState tracks which session is live. Entering "recording" makes it
// the live session; reaching "idle" retires it to lastActive* so a
// final that arrives shortly after can still be matched (§4.7, §4.8).
func (c *Coordinator) OnState(e session.StateEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Status {
	case "recording":
		c.sessionID = e.SessionID
		c.noteID = e.NoteID
		c.languageLock = e.LanguageLock
	case "idle":
		if c.sessionID != "" {
			c.lastActiveSessionID = c.sessionID
			c.lastActiveNoteID = c.noteID
		}
		c.sessionID = ""
		c.noteID = ""
	}
}

// OnPartial implements §4.8's partial gating: drop stale events, learn
// a not-yet-locked language, and replace (never append) the in-memory
// partial list. Partials never touch the store.
func (c *Coordinator) OnPartial(e session.PartialEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID == "" || e.SessionID != c.sessionID || e.NoteID != c.noteID {
		c.logDrop("partial", e.NoteID, e.SessionID)
		return
	}
	if e.LanguageLock != "" && c.languageLock == "" {
		c.languageLock = e.LanguageLock
	}
	c.partials[e.NoteID] = e.Segments
}

// LanguageLock reports the language lock learned so far for the live
// session, or LockUnset if none has been learned yet.
func (c *Coordinator) LanguageLock() language.Lock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.languageLock
}

// Partials returns the last-known in-memory partial segments for a
// note; it is never backed by the store.
func (c *Coordinator) Partials(noteID string) []transcript.Segment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partials[noteID]
}

// OnFinal implements §4.8's final gating and dedupe-then-insert. This
// is the only path that ever writes segments.
func (c *Coordinator) OnFinal(e session.FinalEvent) {
	c.mu.Lock()
	live := c.sessionID != ""
	var ok bool
	if live {
		ok = e.SessionID == c.sessionID
	} else {
		ok = e.SessionID == c.lastActiveSessionID && e.NoteID == c.lastActiveNoteID
	}
	if !ok {
		c.mu.Unlock()
		c.logDrop("final", e.NoteID, e.SessionID)
		return
	}
	delete(c.partials, e.NoteID)
	c.mu.Unlock()

	if e.Error != "" {
		if c.logger != nil {
			c.logger.Warn("coordinator: final arrived with error", "noteId", e.NoteID, "sessionId", e.SessionID, "error", e.Error)
		}
		return
	}

	inserted := false
	for _, seg := range e.Segments {
		key := finalKey(e.NoteID, seg)
		c.mu.Lock()
		_, seen := c.insertedFinalKeys[key]
		c.mu.Unlock()
		if seen {
			continue
		}

		wasInserted, err := c.db.InsertSegment(store.Segment{
			NoteID:  e.NoteID,
			StartMs: seg.StartMs,
			EndMs:   seg.EndMs,
			Text:    seg.Text,
			IsFinal: true,
			Lang:    transcript.NormalizeLang(seg.Lang),
		})
		if err != nil {
			if c.logger != nil {
				c.logger.Error("coordinator: insert segment failed", "noteId", e.NoteID, "error", err)
			}
			continue
		}

		c.mu.Lock()
		c.insertedFinalKeys[key] = struct{}{}
		c.mu.Unlock()
		if wasInserted {
			inserted = true
		}
	}

	if inserted {
		c.mu.Lock()
		if e.SessionID == c.lastActiveSessionID && e.NoteID == c.lastActiveNoteID {
			c.lastActiveSessionID = ""
			c.lastActiveNoteID = ""
		}
		c.mu.Unlock()
	}
}

func (c *Coordinator) logDrop(kind, noteID, sessionID string) {
	if c.logger == nil {
		return
	}
	c.logger.Info("coordinator: dropped stale event",
		"kind", kind, "noteId", noteID, "sessionId", sessionID,
		"error", asrerr.Tag(asrerr.KindStaleEvent, asrerr.ErrStaleEvent))
}

func finalKey(noteID string, seg transcript.Segment) string {
	return fmt.Sprintf("%s:%d:%d:%s", noteID, seg.StartMs, seg.EndMs, seg.Text)
}
