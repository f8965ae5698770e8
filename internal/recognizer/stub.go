package recognizer

import (
	"context"
	"strings"
)

// StubOutput is one canned response keyed by requested language.
type StubOutput struct {
	Text                string
	DetectedLanguage    string
	DetectedProbability float64
	Err                 error
}

// Stub is a pure-Go Recognizer test double. Responses are keyed by the
// language argument passed to Transcribe ("auto", "en", "tr", ...), so
// tests can script the dual-run fallback and quality-score scenarios
// without a native model.
type Stub struct {
	loaded    bool
	Responses map[string]StubOutput
	// Calls records every (wavPath, language) pair passed to Transcribe,
	// in order, for assertions about call sequencing.
	Calls []StubCall
}

// StubCall is one recorded Transcribe invocation.
type StubCall struct {
	WavPath  string
	Language string
}

// NewStub constructs a Stub with the given per-language responses.
func NewStub(responses map[string]StubOutput) *Stub {
	return &Stub{Responses: responses}
}

func (s *Stub) LoadModel(string) (bool, error) {
	s.loaded = true
	return true, nil
}

func (s *Stub) IsModelLoaded() bool {
	return s.loaded
}

// Transcribe looks up a canned response by the normalized language key
// (auto_en/auto_tr normalize to en/tr) and returns it verbatim.
func (s *Stub) Transcribe(_ context.Context, wavPath string, language string) (Result, error) {
	s.Calls = append(s.Calls, StubCall{WavPath: wavPath, Language: language})

	key := strings.TrimPrefix(language, "auto_")
	out, ok := s.Responses[language]
	if !ok {
		out, ok = s.Responses[key]
	}
	if !ok {
		return Result{}, nil
	}
	if out.Err != nil {
		return Result{}, out.Err
	}
	return Result{
		Text:                out.Text,
		DetectedLanguage:    out.DetectedLanguage,
		DetectedProbability: out.DetectedProbability,
	}, nil
}

var _ Recognizer = (*Stub)(nil)
