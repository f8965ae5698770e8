package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.DocumentsDir) == "" {
		return nil, fmt.Errorf("documents_dir must not be empty")
	}
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		return nil, fmt.Errorf("database_path must not be empty")
	}
	if strings.TrimSpace(cfg.ScratchDir) == "" {
		return nil, fmt.Errorf("scratch_dir must not be empty")
	}
	if strings.TrimSpace(cfg.ASR.ModelPath) == "" {
		return nil, fmt.Errorf("asr.model_path must not be empty")
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.ASR.DefaultMode))
	switch mode {
	case "auto", "en", "tr":
	default:
		return nil, fmt.Errorf("asr.default_mode must be one of: auto, en, tr")
	}

	if cfg.ASR.PartialTick <= 0 {
		return nil, fmt.Errorf("asr.partial_tick_ms must be > 0")
	}
	if cfg.ASR.RollingWindowS <= 0 {
		return nil, fmt.Errorf("asr.rolling_window_seconds must be > 0")
	}

	if strings.TrimSpace(cfg.Audio.Input) == "" {
		warnings = append(warnings, Warning{Message: "audio.input is empty; falling back to default device selection"})
	}

	return warnings, nil
}
