// Package doctor runs runtime readiness diagnostics for config, storage,
// the ASR model, and audio capture.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voicenote/core/internal/audio"
	"github.com/voicenote/core/internal/config"
	"github.com/voicenote/core/internal/store"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes config/storage/model/audio readiness checks.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{
		{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)},
		checkDirWritable("documents_dir", cfg.Config.DocumentsDir),
		checkDirWritable("scratch_dir", cfg.Config.ScratchDir),
		checkDatabase(cfg.Config.DatabasePath),
		checkModel(cfg.Config.ASR.ModelPath),
		checkAudioSelection(ctx, cfg.Config),
	}
	return Report{Checks: checks}
}

// checkDirWritable verifies dir exists (creating it if missing) and
// accepts a probe file write.
func checkDirWritable(name, dir string) Check {
	if strings.TrimSpace(dir) == "" {
		return Check{Name: name, Pass: false, Message: "path is empty"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("cannot create %q: %v", dir, err)}
	}
	probe := filepath.Join(dir, ".voicenoted-doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%q is not writable: %v", dir, err)}
	}
	_ = os.Remove(probe)
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%q is writable", dir)}
}

// checkDatabase opens (creating if absent) and migrates the sqlite
// database, reusing the same path the running process would.
func checkDatabase(path string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{Name: "database", Pass: false, Message: "database_path is empty"}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Check{Name: "database", Pass: false, Message: fmt.Sprintf("cannot create %q: %v", filepath.Dir(path), err)}
	}
	db, err := store.Open(path)
	if err != nil {
		return Check{Name: "database", Pass: false, Message: err.Error()}
	}
	defer db.Close()
	return Check{Name: "database", Pass: true, Message: fmt.Sprintf("reachable at %q, schema v%d", path, store.SchemaVersion)}
}

// checkModel verifies the configured ASR model file exists on disk. It
// does not load the model, so a file that exists but fails to load
// still passes this check.
func checkModel(path string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{Name: "asr.model", Pass: false, Message: "asr.model_path is empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "asr.model", Pass: false, Message: fmt.Sprintf("not found at %q: %v", path, err)}
	}
	if info.IsDir() {
		return Check{Name: "asr.model", Pass: false, Message: fmt.Sprintf("%q is a directory, expected a model file", path)}
	}
	return Check{Name: "asr.model", Pass: true, Message: fmt.Sprintf("found at %q (%d bytes)", path, info.Size())}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}
