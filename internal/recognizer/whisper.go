package recognizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/voicenote/core/internal/wav"
)

// WhisperRecognizer wraps a whisper.cpp model loaded once and shared
// across calls. whisper.cpp contexts are not goroutine-safe, so a
// mutex serializes inference: Transcribe is safe to invoke serially
// from any thread, but never concurrently with itself.
type WhisperRecognizer struct {
	mu    sync.Mutex
	model whisperlib.Model
	path  string
}

// NewWhisperRecognizer constructs an unloaded recognizer. Call LoadModel
// before Transcribe.
func NewWhisperRecognizer() *WhisperRecognizer {
	return &WhisperRecognizer{}
}

// LoadModel loads the whisper.cpp model file once; subsequent calls are
// no-ops returning true as long as the path matches.
func (w *WhisperRecognizer) LoadModel(path string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model != nil {
		return w.path == path, nil
	}

	model, err := whisperlib.New(path)
	if err != nil {
		return false, fmt.Errorf("recognizer: load model %q: %w", path, err)
	}
	w.model = model
	w.path = path
	return true, nil
}

// IsModelLoaded reports whether a model is currently loaded.
func (w *WhisperRecognizer) IsModelLoaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.model != nil
}

// Close releases the underlying model.
func (w *WhisperRecognizer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}

// langDetector is implemented by whisper.cpp contexts that expose
// detected-language metadata after Process. Not every build of the
// bindings surfaces this, so callers feature-detect via a type
// assertion rather than assuming the method exists.
type langDetector interface {
	DetectedLanguage() (string, float32)
}

// Transcribe loads samples from wavPath, runs whisper.cpp inference
// with the requested language (or auto-detection), and returns the
// concatenated segment text plus any detected-language metadata the
// bound context exposes.
func (w *WhisperRecognizer) Transcribe(ctx context.Context, wavPath string, language string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("recognizer: context already done: %w", err)
	}

	w.mu.Lock()
	model := w.model
	w.mu.Unlock()
	if model == nil {
		return Result{}, errors.New("recognizer: no model loaded")
	}

	pcm, err := readPCM16(wavPath)
	if err != nil {
		return Result{}, fmt.Errorf("recognizer: read wav %q: %w", wavPath, err)
	}
	samples := pcmToFloat32Mono(pcm)

	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("recognizer: create context: %w", err)
	}

	reqLang := language
	if reqLang == "" {
		reqLang = AutoLanguage
	}
	if err := wctx.SetLanguage(reqLang); err != nil {
		return Result{}, fmt.Errorf("recognizer: set language %q: %w", reqLang, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("recognizer: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("recognizer: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	result := Result{
		Text:       strings.Join(parts, " "),
		DurationMs: wav.DurationMs(uint32(len(pcm))),
	}
	if detector, ok := any(wctx).(langDetector); ok {
		lang, prob := detector.DetectedLanguage()
		result.DetectedLanguage = lang
		result.DetectedProbability = float64(prob)
	}
	return result, nil
}

var _ Recognizer = (*WhisperRecognizer)(nil)
