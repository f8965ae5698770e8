// Package session implements the TranscriptionSession lifecycle of
// §4.7: own one recording's capture graph, rolling window, and partial
// scheduler, and drive the three-state FSM through start/stop.
package session

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/voicenote/core/internal/asrerr"
	"github.com/voicenote/core/internal/audio"
	"github.com/voicenote/core/internal/fsm"
	"github.com/voicenote/core/internal/language"
	"github.com/voicenote/core/internal/recognizer"
	"github.com/voicenote/core/internal/ringbuffer"
	"github.com/voicenote/core/internal/scheduler"
	"github.com/voicenote/core/internal/transcript"
	"github.com/voicenote/core/internal/wav"
)

const (
	ringCapacity     = 96000 // samples @16kHz, per §4.7
	stopGracePeriod  = 5 * time.Second
	stopPollInterval = 50 * time.Millisecond
	finalizeTimeout  = 30 * time.Second
)

// Segment is the wire shape of one transcript segment in an event.
type Segment = transcript.Segment

// PartialEvent is the `partial` event of §6.
type PartialEvent struct {
	NoteID       string
	SessionID    string
	Segments     []Segment
	LanguageLock language.Lock
}

// FinalEvent is the `final` event of §6.
type FinalEvent struct {
	NoteID       string
	SessionID    string
	Segments     []Segment
	LanguageLock language.Lock
	DurationMs   int64
	Error        string
}

// StateEvent is the `state` event of §6.
type StateEvent struct {
	NoteID       string
	SessionID    string
	Status       fsm.State
	LanguageMode language.Mode
	LanguageLock language.Lock
}

// EventSink receives lifecycle events via direct dispatch. There is
// exactly one sink per Session, not a listener list.
type EventSink interface {
	OnPartial(PartialEvent)
	OnFinal(FinalEvent)
	OnState(StateEvent)
}

// PermissionChecker gates Start on OS microphone access, which a pure
// Go capture layer cannot query on its own.
type PermissionChecker interface {
	CheckMicrophonePermission(ctx context.Context) error
}

// PermissionCheckerFunc adapts a function to PermissionChecker.
type PermissionCheckerFunc func(ctx context.Context) error

func (f PermissionCheckerFunc) CheckMicrophonePermission(ctx context.Context) error {
	return f(ctx)
}

// DeviceSelector resolves the capture source to use for a new session.
type DeviceSelector func(ctx context.Context) (audio.Device, error)

// captureSource is the subset of *audio.Capture the session needs,
// narrowed so tests can inject a fake instead of a live Pulse stream.
type captureSource interface {
	NativeRate() uint32
	Frames() <-chan []int16
	Stop() error
	Close()
}

// CaptureStarter opens a capture stream for the selected device. The
// production wiring passes DefaultCaptureStarter; tests inject a fake.
type CaptureStarter func(ctx context.Context, device audio.Device) (captureSource, error)

// DefaultCaptureStarter adapts audio.StartCapture to CaptureStarter.
func DefaultCaptureStarter(ctx context.Context, device audio.Device) (captureSource, error) {
	return audio.StartCapture(ctx, device)
}

// StartParams is the startRecording control call of §6.
type StartParams struct {
	NoteID       string
	SessionID    string
	LanguageMode language.Mode
	ASRModel     string
}

// StopParams is the stopRecording control call of §6.
type StopParams struct {
	NoteID       string
	SessionID    string
	LanguageLock language.Lock
}

// StopResult is stopRecording's synchronous return value; the final
// transcription itself arrives later as a FinalEvent.
type StopResult struct {
	AudioPath    string
	DurationMs   int64
	LanguageLock language.Lock
	Error        string
}

// Session owns one recording's capture pipeline and drives it through
// the idle/recording/stopping lifecycle of §4.7.
type Session struct {
	logger       *slog.Logger
	sink         EventSink
	recognizer   recognizer.Recognizer
	permission   PermissionChecker
	selectDevice DeviceSelector
	startCapture CaptureStarter
	docsDir      string
	scratchDir   string

	mu           sync.RWMutex
	state        fsm.State
	noteID       string
	sessionID    string
	audioPath    string
	languageMode language.Mode
	languageLock language.Lock

	ring    *ringbuffer.Buffer
	writer  *wav.Writer
	capture captureSource
	graph   *audio.Graph
	sched   *scheduler.PartialScheduler
}

// New constructs an idle Session. sink and permission may be nil only
// in tests that never call Start; startCapture defaults to
// DefaultCaptureStarter when nil.
func New(
	logger *slog.Logger,
	sink EventSink,
	rec recognizer.Recognizer,
	permission PermissionChecker,
	selectDevice DeviceSelector,
	startCapture CaptureStarter,
	docsDir string,
	scratchDir string,
) *Session {
	if startCapture == nil {
		startCapture = DefaultCaptureStarter
	}
	return &Session{
		logger:       logger,
		sink:         sink,
		recognizer:   rec,
		permission:   permission,
		selectDevice: selectDevice,
		startCapture: startCapture,
		docsDir:      docsDir,
		scratchDir:   scratchDir,
		state:        fsm.StateIdle,
	}
}

// GetState returns a snapshot state event for the current session.
func (s *Session) GetState() StateEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateEventLocked()
}

func (s *Session) stateEventLocked() StateEvent {
	return StateEvent{
		NoteID:       s.noteID,
		SessionID:    s.sessionID,
		Status:       s.state,
		LanguageMode: s.languageMode,
		LanguageLock: s.languageLock,
	}
}

// Start initializes capture, the rolling window, the WAV file, and the
// partial scheduler, and transitions idle -> recording. A fatal error
// here leaves the FSM at idle, per §4.7: the transition into recording
// simply never happens.
func (s *Session) Start(ctx context.Context, params StartParams) error {
	s.mu.Lock()
	if s.state != fsm.StateIdle {
		s.mu.Unlock()
		return asrerr.ErrAlreadyRecording
	}
	s.mu.Unlock()

	if s.permission != nil {
		if err := s.permission.CheckMicrophonePermission(ctx); err != nil {
			return asrerr.Tag(asrerr.KindPermissionDenied, err)
		}
	}

	device, err := s.selectDevice(ctx)
	if err != nil {
		return asrerr.Tag(asrerr.KindAudioInitFailed, err)
	}
	capture, err := s.startCapture(ctx, device)
	if err != nil {
		return asrerr.Tag(asrerr.KindAudioInitFailed, err)
	}

	audioPath := filepath.Join(s.docsDir, "Audio", params.NoteID+".wav")
	if err := os.MkdirAll(filepath.Dir(audioPath), 0o700); err != nil {
		capture.Close()
		return asrerr.Tag(asrerr.KindWavIOError, err)
	}
	writer, err := wav.New(audioPath)
	if err != nil {
		capture.Close()
		return asrerr.Tag(asrerr.KindWavIOError, err)
	}

	ring := ringbuffer.New(ringCapacity)
	graph := audio.NewGraph(capture.NativeRate(), ring, writer)
	go graph.Drain(capture.Frames())

	s.mu.Lock()
	s.noteID = params.NoteID
	s.sessionID = params.SessionID
	s.languageMode = params.LanguageMode
	s.languageLock = language.LockUnset
	s.audioPath = audioPath
	s.ring = ring
	s.writer = writer
	s.capture = capture
	s.graph = graph
	next, terr := fsm.Transition(s.state, fsm.EventStart)
	if terr == nil {
		s.state = next
	}
	s.mu.Unlock()
	if terr != nil {
		capture.Close()
		return terr
	}

	s.sched = scheduler.Start(scheduler.Deps{
		Ring:              ring,
		Recognizer:        s.recognizer,
		ScratchDir:        s.scratchDir,
		EffectiveLanguage: s.effectivePartialLanguage,
		OnLockChange:      s.setLanguageLock,
		Emit:              s.emitPartial,
		Logger:            s.logger,
	})

	s.emitState()
	return nil
}

// SetLanguage updates the recording-in-progress language mode; it is
// only meaningful while the session is recording (§6).
func (s *Session) SetLanguage(noteID string, mode language.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != fsm.StateRecording || s.noteID != noteID {
		return asrerr.ErrNotRecording
	}
	s.languageMode = mode
	return nil
}

// Stop transitions recording -> stopping, tears down the capture graph,
// and schedules the final transcription in the background. It returns
// synchronously per §4.7 once the audio file is finalized; the `final`
// event follows asynchronously.
func (s *Session) Stop(_ context.Context, params StopParams) (StopResult, error) {
	s.mu.Lock()
	if s.state != fsm.StateRecording || s.sessionID != params.SessionID {
		s.mu.Unlock()
		return StopResult{}, asrerr.ErrNotRecording
	}
	next, err := fsm.Transition(s.state, fsm.EventStop)
	if err != nil {
		s.mu.Unlock()
		return StopResult{}, err
	}
	s.state = next
	sched := s.sched
	capture := s.capture
	graph := s.graph
	writer := s.writer
	noteID := s.noteID
	sessionID := s.sessionID
	audioPath := s.audioPath
	s.mu.Unlock()

	// §4.5: the final resolves against the requested mode at stop, not
	// the (possibly stale) recording-time language mode.
	mode := language.ModeFromLock(params.LanguageLock)

	s.emitState()

	sched.Cancel()

	deadline := time.Now().Add(stopGracePeriod)
	for sched.InFlight() && time.Now().Before(deadline) {
		time.Sleep(stopPollInterval)
	}

	_ = capture.Stop()
	writeErr := graph.Stop()

	durationMs := graph.TotalFrames() / 16 // output is always 16kHz mono

	if _, ferr := writer.Finish(); ferr != nil && writeErr == nil {
		writeErr = ferr
	}

	result := StopResult{
		AudioPath:    audioPath,
		DurationMs:   durationMs,
		LanguageLock: params.LanguageLock,
	}
	if writeErr != nil {
		result.Error = asrerr.Tag(asrerr.KindWavIOError, writeErr).Error()
	}

	go s.finalize(noteID, sessionID, audioPath, durationMs, mode)

	return result, nil
}

func (s *Session) finalize(noteID, sessionID, audioPath string, durationMs int64, mode language.Mode) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	event := FinalEvent{NoteID: noteID, SessionID: sessionID, DurationMs: durationMs}

	outcome, err := language.ResolveFinal(ctx, s.recognizer, audioPath, mode)
	switch {
	case err != nil:
		event.Error = asrerr.Tag(asrerr.KindRecognizerError, err).Error()
	case strings.TrimSpace(outcome.Text) == "":
		event.Error = "Empty transcription"
	default:
		lang := string(outcome.ResolvedLock)
		if lang == "" {
			lang = string(mode)
		}
		event.Segments = transcript.BuildSegments(outcome.Text, durationMs, lang)
		event.LanguageLock = outcome.ResolvedLock
	}

	if s.sink != nil {
		s.sink.OnFinal(event)
	}
	s.finishStopping(noteID, sessionID)
}

func (s *Session) finishStopping(noteID, sessionID string) {
	s.mu.Lock()
	next, err := fsm.Transition(s.state, fsm.EventFinalDone)
	if err == nil {
		s.state = next
	}
	ev := s.stateEventLocked()
	s.mu.Unlock()

	if err != nil {
		if s.logger != nil {
			s.logger.Error("session: invalid stopping->idle transition", "noteId", noteID, "sessionId", sessionID, "error", err)
		}
		return
	}
	if s.sink != nil {
		s.sink.OnState(ev)
	}
}

func (s *Session) effectivePartialLanguage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return language.EffectivePartialLanguage(s.languageLock, s.languageMode)
}

func (s *Session) setLanguageLock(lock language.Lock) {
	s.mu.Lock()
	s.languageLock = lock
	s.mu.Unlock()
}

func (s *Session) emitPartial(segs []transcript.Segment) {
	s.mu.RLock()
	ev := PartialEvent{
		NoteID:       s.noteID,
		SessionID:    s.sessionID,
		Segments:     segs,
		LanguageLock: s.languageLock,
	}
	s.mu.RUnlock()
	if s.sink != nil {
		s.sink.OnPartial(ev)
	}
}

func (s *Session) emitState() {
	s.mu.RLock()
	ev := s.stateEventLocked()
	s.mu.RUnlock()
	if s.sink != nil {
		s.sink.OnState(ev)
	}
}
