package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
// A missing file is not an error: defaults apply and a warning is recorded.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	cfg := Default()
	warnings := make([]Warning, 0)

	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
		}
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
		return Loaded{
			Path:     resolvedPath,
			Config:   applyPathExpansion(cfg),
			Warnings: warnings,
			Exists:   false,
		}, nil
	}

	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	cfg = applyPathExpansion(cfg)

	validateWarnings, err := Validate(cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}
	warnings = append(warnings, validateWarnings...)

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}

// applyPathExpansion resolves "~"-prefixed path fields against the user's
// home directory once, after defaulting/parsing.
func applyPathExpansion(cfg Config) Config {
	cfg.DocumentsDir = expandHome(cfg.DocumentsDir)
	cfg.DatabasePath = expandHome(cfg.DatabasePath)
	cfg.ScratchDir = expandHome(cfg.ScratchDir)
	cfg.ASR.ModelPath = expandHome(cfg.ASR.ModelPath)
	return cfg
}
