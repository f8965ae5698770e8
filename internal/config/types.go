// Package config resolves, parses, validates, and defaults voicenoted
// runtime configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by
// voicenoted (§2A).
type Config struct {
	// DocumentsDir is the root directory under which per-note audio
	// files are written (C6's Audio/<noteId>.wav path).
	DocumentsDir string `yaml:"documents_dir"`
	// DatabasePath is the sqlite file holding notes/segments (§4.9).
	DatabasePath string `yaml:"database_path"`
	// ScratchDir holds short-lived partial-tick WAV snapshots (§4.4).
	ScratchDir string `yaml:"scratch_dir"`

	ASR   ASRConfig   `yaml:"asr"`
	Audio AudioConfig `yaml:"audio"`
	Debug DebugConfig `yaml:"debug"`
}

// ASRConfig controls the recognizer model and default language mode.
type ASRConfig struct {
	ModelPath       string        `yaml:"model_path"`
	DefaultMode     string        `yaml:"default_mode"`
	// PartialTick is read from partial_tick_ms as a Go duration string
	// such as "900ms"; a bare integer is rejected by the YAML decoder.
	PartialTick     time.Duration `yaml:"partial_tick_ms"`
	RollingWindowS  int           `yaml:"rolling_window_seconds"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `yaml:"input"`
	Fallback string `yaml:"fallback"`
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool `yaml:"enable_audio_dump"`
	EnableGRPCDump  bool `yaml:"enable_grpc_dump"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Message string
}
