// Package scheduler implements the periodic partial-transcription timer
// (§4.4): snapshot the rolling window, run one inference, and emit a
// partial event when the text has meaningfully changed.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voicenote/core/internal/asrerr"
	"github.com/voicenote/core/internal/ids"
	"github.com/voicenote/core/internal/language"
	"github.com/voicenote/core/internal/recognizer"
	"github.com/voicenote/core/internal/ringbuffer"
	"github.com/voicenote/core/internal/transcript"
	"github.com/voicenote/core/internal/wav"
)

const (
	tickInterval      = 900 * time.Millisecond
	minSamples        = 16000 // 1s @ 16kHz
	snapshotMax       = 6 * 16000
	partialDurationMs = 6000
	maxSegments       = 10
	flickerMinDiff    = 3
)

// Deps wires the scheduler to the owning session without a direct
// dependency on the session package (kept decoupled the way the
// teacher injects Transcriber/Indicator interfaces into its Session).
type Deps struct {
	Ring              *ringbuffer.Buffer
	Recognizer        recognizer.Recognizer
	ScratchDir        string
	EffectiveLanguage func() string
	OnLockChange      func(language.Lock)
	Emit              func(segments []transcript.Segment)
	Logger            *slog.Logger
}

// PartialScheduler drives the 900ms tick of §4.4.
type PartialScheduler struct {
	deps Deps

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup

	inFlight atomic.Bool

	mu            sync.Mutex
	lastEmitted   string
}

// Start begins the periodic ticker on a background goroutine.
func Start(deps Deps) *PartialScheduler {
	s := &PartialScheduler{
		deps:   deps,
		ticker: time.NewTicker(tickInterval),
		stopCh: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *PartialScheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.ticker.C:
			s.tick()
		}
	}
}

// Cancel stops the ticker and signals the run loop to exit, without
// waiting for any in-flight tick to finish. Per §4.4/§5, cancellation
// does not interrupt an in-flight inference; the session's stop
// sequence polls InFlight() itself for its bounded 5s grace period
// instead of joining this goroutine synchronously.
func (s *PartialScheduler) Cancel() {
	s.ticker.Stop()
	close(s.stopCh)
}

// Stop cancels the ticker and blocks until the run loop has fully
// exited, including any tick already in progress. Most callers past
// the grace period want Cancel instead; Stop remains useful for tests
// and any teardown that can afford to block.
func (s *PartialScheduler) Stop() {
	s.Cancel()
	s.wg.Wait()
}

// InFlight reports whether a partial inference is currently running.
func (s *PartialScheduler) InFlight() bool {
	return s.inFlight.Load()
}

func (s *PartialScheduler) tick() {
	if !s.inFlight.CompareAndSwap(false, true) {
		return // at-most-one inference in flight
	}
	defer s.inFlight.Store(false)

	if s.deps.Ring.Count() < minSamples {
		return
	}

	samples := s.deps.Ring.Snapshot(snapshotMax)
	scratchPath := filepath.Join(s.deps.ScratchDir, fmt.Sprintf("partial-%s.wav", ids.New()))

	if err := writeScratchWAV(scratchPath, samples); err != nil {
		s.logDebug("scheduler: write scratch wav failed", err)
		return
	}
	defer os.Remove(scratchPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lang := s.deps.EffectiveLanguage()
	first, err := s.deps.Recognizer.Transcribe(ctx, scratchPath, lang)
	if err != nil {
		s.logDebug("scheduler: recognizer error", asrerr.Tag(asrerr.KindRecognizerError, err))
		return
	}

	outcome := language.ResolvePartial(ctx, s.deps.Recognizer, scratchPath, lang, first)
	if outcome.NewLock != language.LockUnset && s.deps.OnLockChange != nil {
		s.deps.OnLockChange(outcome.NewLock)
	}

	text := strings.TrimSpace(outcome.Text)
	if !s.shouldEmit(text) {
		return
	}

	segs := transcript.BuildSegments(text, partialDurationMs, transcript.NormalizeLang(lang))
	if len(segs) > maxSegments {
		segs = segs[:maxSegments]
	}
	if s.deps.Emit != nil {
		s.deps.Emit(segs)
	}
}

// shouldEmit implements §4.4 step 7's flicker suppression: emit only if
// the new text differs from the last emitted by at least 3 characters
// or no longer shares a prefix with it.
func (s *PartialScheduler) shouldEmit(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.lastEmitted
	if text == prev {
		return false
	}
	if !strings.HasPrefix(text, prev) && !strings.HasPrefix(prev, text) {
		s.lastEmitted = text
		return true
	}
	if abs(len(text)-len(prev)) >= flickerMinDiff {
		s.lastEmitted = text
		return true
	}
	return false
}

func writeScratchWAV(path string, samples []int16) error {
	w, err := wav.New(path)
	if err != nil {
		return asrerr.Tag(asrerr.KindWavIOError, err)
	}
	if err := w.Append(samples); err != nil {
		return asrerr.Tag(asrerr.KindWavIOError, err)
	}
	if _, err := w.Finish(); err != nil {
		return asrerr.Tag(asrerr.KindWavIOError, err)
	}
	return nil
}

func (s *PartialScheduler) logDebug(msg string, err error) {
	if s.deps.Logger == nil {
		return
	}
	s.deps.Logger.Debug(msg, "error", err)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
