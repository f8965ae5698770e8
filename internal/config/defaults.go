package config

import "time"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		DocumentsDir: "~/Documents/VoiceNoted",
		DatabasePath: "~/.local/share/voicenoted/notes.db",
		ScratchDir:   "~/.cache/voicenoted/scratch",
		ASR: ASRConfig{
			ModelPath:      "~/.local/share/voicenoted/models/ggml-base.en.bin",
			DefaultMode:    "auto",
			PartialTick:    900 * time.Millisecond,
			RollingWindowS: 6,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Debug: DebugConfig{},
	}
}
