// Package asrerr enumerates the error taxonomy used across the
// capture/transcription pipeline, so callers can branch with errors.Is
// instead of matching message strings.
package asrerr

import "errors"

// Kind classifies a pipeline failure per the disposition table.
type Kind string

const (
	KindPermissionDenied Kind = "permission_denied"
	KindAudioInitFailed  Kind = "audio_init_failed"
	KindWavIOError       Kind = "wav_io_error"
	KindRecognizerError  Kind = "recognizer_error"
	KindEmptyTranscript  Kind = "empty_transcription"
	KindStaleEvent       Kind = "stale_event"
	KindDuplicateSegment Kind = "duplicate_segment"
	KindDbSchemaMissing  Kind = "db_schema_missing"
)

var (
	// ErrPermissionDenied: microphone permission was not granted.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrAudioInitFailed: capture/resampler setup failed.
	ErrAudioInitFailed = errors.New("audio capture initialization failed")
	// ErrWavIOError: WAV file create/write/seek failure.
	ErrWavIOError = errors.New("wav file i/o error")
	// ErrRecognizerError: the Recognizer reported a non-null error.
	ErrRecognizerError = errors.New("recognizer error")
	// ErrEmptyTranscription: final transcription produced no usable text.
	ErrEmptyTranscription = errors.New("empty transcription")
	// ErrStaleEvent: an event failed Coordinator session/note gating.
	ErrStaleEvent = errors.New("stale event dropped")
	// ErrNotRecording: a stop/setLanguage call arrived outside an active session.
	ErrNotRecording = errors.New("no active recording session")
	// ErrAlreadyRecording: start called while a session is already live.
	ErrAlreadyRecording = errors.New("a recording session is already active")
)

// taggedError pairs an error with a Kind for errors.As-based branching.
type taggedError struct {
	kind Kind
	err  error
}

func (t *taggedError) Error() string { return t.err.Error() }
func (t *taggedError) Unwrap() error { return t.err }

// Tag wraps err with a Kind, preserving Is/As compatibility with the
// wrapped sentinel.
func Tag(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &taggedError{kind: kind, err: err}
}

// KindOf extracts the Kind tagged onto err, if any.
func KindOf(err error) (Kind, bool) {
	var t *taggedError
	if errors.As(err, &t) {
		return t.kind, true
	}
	return "", false
}
