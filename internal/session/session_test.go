package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicenote/core/internal/audio"
	"github.com/voicenote/core/internal/fsm"
	"github.com/voicenote/core/internal/language"
	"github.com/voicenote/core/internal/recognizer"
)

// fakeCapture is a captureSource test double with a fixed number of
// 20ms 16kHz frames queued up front; its channel closes when Stop is
// called, so Session.Stop's grace/poll logic
// exercises real goroutines without a Pulse server.
type fakeCapture struct {
	rate   uint32
	frames chan []int16
	mu     sync.Mutex
	closed bool
}

func newFakeCapture(rate uint32, frameCount int, frameSamples int) *fakeCapture {
	c := &fakeCapture{rate: rate, frames: make(chan []int16, frameCount+1)}
	for i := 0; i < frameCount; i++ {
		c.frames <- make([]int16, frameSamples)
	}
	return c
}

func (c *fakeCapture) NativeRate() uint32       { return c.rate }
func (c *fakeCapture) Frames() <-chan []int16   { return c.frames }
func (c *fakeCapture) Close()                   { _ = c.Stop() }
func (c *fakeCapture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.frames)
	}
	return nil
}

type recordingSink struct {
	mu       sync.Mutex
	partials []PartialEvent
	finals   []FinalEvent
	states   []StateEvent
}

func (r *recordingSink) OnPartial(e PartialEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partials = append(r.partials, e)
}

func (r *recordingSink) OnFinal(e FinalEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finals = append(r.finals, e)
}

func (r *recordingSink) OnState(e StateEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, e)
}

func (r *recordingSink) lastState() fsm.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return ""
	}
	return r.states[len(r.states)-1].Status
}

func (r *recordingSink) finalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.finals)
}

func alwaysAllow(context.Context) error { return nil }

func fixedDevice(context.Context) (audio.Device, error) {
	return audio.Device{ID: "fake", SampleRate: 16000}, nil
}

func newTestSession(t *testing.T, sink EventSink, rec recognizer.Recognizer, starter CaptureStarter) *Session {
	t.Helper()
	docsDir := t.TempDir()
	scratchDir := t.TempDir()
	return New(nil, sink, rec, PermissionCheckerFunc(alwaysAllow), fixedDevice, starter, docsDir, scratchDir)
}

func TestSessionStartRejectsWhenNotIdle(t *testing.T) {
	sink := &recordingSink{}
	stub := recognizer.NewStub(nil)
	starter := func(context.Context, audio.Device) (captureSource, error) {
		return newFakeCapture(16000, 0, 320), nil
	}
	s := newTestSession(t, sink, stub, starter)

	require.NoError(t, s.Start(context.Background(), StartParams{NoteID: "n1", SessionID: "s1", LanguageMode: language.ModeEn}))
	err := s.Start(context.Background(), StartParams{NoteID: "n2", SessionID: "s2", LanguageMode: language.ModeEn})
	require.Error(t, err)
}

func TestSessionStartTransitionsToRecordingAndEmitsState(t *testing.T) {
	sink := &recordingSink{}
	stub := recognizer.NewStub(nil)
	starter := func(context.Context, audio.Device) (captureSource, error) {
		return newFakeCapture(16000, 0, 320), nil
	}
	s := newTestSession(t, sink, stub, starter)

	require.NoError(t, s.Start(context.Background(), StartParams{NoteID: "n1", SessionID: "s1", LanguageMode: language.ModeEn}))
	assert.Equal(t, fsm.StateRecording, s.GetState().Status)
	assert.Equal(t, fsm.StateRecording, sink.lastState())
}

func TestSessionStopReturnsDurationFromFrameCount(t *testing.T) {
	sink := &recordingSink{}
	stub := recognizer.NewStub(map[string]recognizer.StubOutput{"en": {Text: "Hello world. This is a test."}})
	// 50 frames * 320 samples (20ms @16kHz) = 16000 samples = exactly 1000ms.
	starter := func(context.Context, audio.Device) (captureSource, error) {
		return newFakeCapture(16000, 50, 320), nil
	}
	s := newTestSession(t, sink, stub, starter)

	require.NoError(t, s.Start(context.Background(), StartParams{NoteID: "n1", SessionID: "s1", LanguageMode: language.ModeEn}))
	time.Sleep(50 * time.Millisecond) // let the drain goroutine push frames through

	result, err := s.Stop(context.Background(), StopParams{NoteID: "n1", SessionID: "s1", LanguageLock: language.LockEn})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.DurationMs)
	assert.Equal(t, filepath.Join(s.docsDir, "Audio", "n1.wav"), result.AudioPath)
	assert.Empty(t, result.Error)
}

func TestSessionStopRejectsWrongSessionID(t *testing.T) {
	sink := &recordingSink{}
	stub := recognizer.NewStub(nil)
	starter := func(context.Context, audio.Device) (captureSource, error) {
		return newFakeCapture(16000, 0, 320), nil
	}
	s := newTestSession(t, sink, stub, starter)
	require.NoError(t, s.Start(context.Background(), StartParams{NoteID: "n1", SessionID: "s1", LanguageMode: language.ModeEn}))

	_, err := s.Stop(context.Background(), StopParams{NoteID: "n1", SessionID: "wrong"})
	require.Error(t, err)
}

func TestSessionFinalizeEmitsFinalAndReturnsToIdle(t *testing.T) {
	sink := &recordingSink{}
	stub := recognizer.NewStub(map[string]recognizer.StubOutput{"en": {Text: "Hello world. This is a test."}})
	starter := func(context.Context, audio.Device) (captureSource, error) {
		return newFakeCapture(16000, 50, 320), nil
	}
	s := newTestSession(t, sink, stub, starter)
	require.NoError(t, s.Start(context.Background(), StartParams{NoteID: "n1", SessionID: "s1", LanguageMode: language.ModeEn}))
	time.Sleep(50 * time.Millisecond)

	_, err := s.Stop(context.Background(), StopParams{NoteID: "n1", SessionID: "s1", LanguageLock: language.LockEn})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sink.finalCount() == 1 }, time.Second, 10*time.Millisecond)
	sink.mu.Lock()
	final := sink.finals[0]
	sink.mu.Unlock()
	assert.Empty(t, final.Error)
	assert.NotEmpty(t, final.Segments)

	require.Eventually(t, func() bool { return s.GetState().Status == fsm.StateIdle }, time.Second, 10*time.Millisecond)
}

func TestSessionFinalizeEmptyTranscriptionReportsError(t *testing.T) {
	sink := &recordingSink{}
	stub := recognizer.NewStub(map[string]recognizer.StubOutput{"en": {Text: ""}})
	starter := func(context.Context, audio.Device) (captureSource, error) {
		return newFakeCapture(16000, 50, 320), nil
	}
	s := newTestSession(t, sink, stub, starter)
	require.NoError(t, s.Start(context.Background(), StartParams{NoteID: "n1", SessionID: "s1", LanguageMode: language.ModeEn}))
	time.Sleep(50 * time.Millisecond)

	_, err := s.Stop(context.Background(), StopParams{NoteID: "n1", SessionID: "s1", LanguageLock: language.LockEn})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sink.finalCount() == 1 }, time.Second, 10*time.Millisecond)
	sink.mu.Lock()
	final := sink.finals[0]
	sink.mu.Unlock()
	assert.Equal(t, "Empty transcription", final.Error)
	assert.Empty(t, final.Segments)
}

func TestSessionPermissionDeniedStaysIdle(t *testing.T) {
	sink := &recordingSink{}
	stub := recognizer.NewStub(nil)
	starter := func(context.Context, audio.Device) (captureSource, error) {
		return newFakeCapture(16000, 0, 320), nil
	}
	docsDir, scratchDir := t.TempDir(), t.TempDir()
	denied := func(context.Context) error { return assert.AnError }
	s := New(nil, sink, stub, PermissionCheckerFunc(denied), fixedDevice, starter, docsDir, scratchDir)

	err := s.Start(context.Background(), StartParams{NoteID: "n1", SessionID: "s1", LanguageMode: language.ModeEn})
	require.Error(t, err)
	assert.Equal(t, fsm.StateIdle, s.GetState().Status)
}

func TestSessionFinalUsesRequestedLockAtStopNotRecordingMode(t *testing.T) {
	sink := &recordingSink{}
	stub := recognizer.NewStub(map[string]recognizer.StubOutput{"tr": {Text: "merhaba"}})
	starter := func(context.Context, audio.Device) (captureSource, error) {
		return newFakeCapture(16000, 50, 320), nil
	}
	s := newTestSession(t, sink, stub, starter)
	require.NoError(t, s.Start(context.Background(), StartParams{NoteID: "n1", SessionID: "s1", LanguageMode: language.ModeEn}))
	time.Sleep(50 * time.Millisecond)

	// Stop requests tr even though recording started in en; the final
	// must resolve against the stop request, not the stale start mode.
	_, err := s.Stop(context.Background(), StopParams{NoteID: "n1", SessionID: "s1", LanguageLock: language.LockTr})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sink.finalCount() == 1 }, time.Second, 10*time.Millisecond)
	sink.mu.Lock()
	final := sink.finals[0]
	sink.mu.Unlock()
	assert.Empty(t, final.Error)
	assert.Equal(t, language.LockTr, final.LanguageLock)
	require.NotEmpty(t, final.Segments)
	assert.Equal(t, "tr", final.Segments[0].Lang)
}

func TestSessionSetLanguageOnlyWhileRecording(t *testing.T) {
	sink := &recordingSink{}
	stub := recognizer.NewStub(nil)
	starter := func(context.Context, audio.Device) (captureSource, error) {
		return newFakeCapture(16000, 0, 320), nil
	}
	s := newTestSession(t, sink, stub, starter)

	err := s.SetLanguage("n1", language.ModeTr)
	require.Error(t, err)

	require.NoError(t, s.Start(context.Background(), StartParams{NoteID: "n1", SessionID: "s1", LanguageMode: language.ModeEn}))
	require.NoError(t, s.SetLanguage("n1", language.ModeTr))
}
