// Package recognizer defines the Recognizer contract that the capture
// pipeline treats as a black-box ASR engine (§6), plus a whisper.cpp
// backed implementation and a pure-Go test double.
package recognizer

import "context"

// Result is the transcription output of one Recognizer.Transcribe call.
type Result struct {
	Text                 string
	DurationMs           int64
	DetectedLanguage     string
	DetectedProbability  float64
	Err                  error
}

// Recognizer abstracts a loaded ASR model. Implementations must be safe
// to invoke serially from any thread; the pipeline never calls
// Transcribe concurrently with itself, but may call it from different
// goroutines across ticks (§6).
type Recognizer interface {
	LoadModel(path string) (bool, error)
	IsModelLoaded() bool
	// Transcribe runs inference against a 16kHz mono 16-bit PCM WAV file.
	// language is an ISO code or the literal string "auto".
	Transcribe(ctx context.Context, wavPath string, language string) (Result, error)
}

// AutoLanguage is the literal language token requesting auto-detection.
const AutoLanguage = "auto"
