package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voicenote/core/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckDirWritableCreatesAndAccepts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "docs")
	check := checkDirWritable("documents_dir", dir)
	require.True(t, check.Pass)
	require.DirExists(t, dir)
}

func TestCheckDirWritableEmptyPath(t *testing.T) {
	check := checkDirWritable("documents_dir", "")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "empty")
}

func TestCheckDatabaseOpensAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")
	check := checkDatabase(path)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "reachable")
}

func TestCheckModelMissing(t *testing.T) {
	check := checkModel(filepath.Join(t.TempDir(), "ggml-missing.bin"))
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "not found")
}

func TestCheckModelFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ggml-base.bin")
	require.NoError(t, os.WriteFile(path, []byte("fake model bytes"), 0o600))

	check := checkModel(path)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "found at")
}

func TestCheckModelRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	check := checkModel(dir)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "directory")
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Equal(t, "audio.device", check.Name)
}

func TestRunAggregatesAllChecks(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DocumentsDir = filepath.Join(dir, "docs")
	cfg.ScratchDir = filepath.Join(dir, "scratch")
	cfg.DatabasePath = filepath.Join(dir, "notes.db")
	cfg.ASR.ModelPath = filepath.Join(dir, "missing-model.bin")

	report := Run(context.Background(), config.Loaded{Path: "config.yaml", Config: cfg})
	require.False(t, report.OK(), "missing model must fail the report")

	names := make([]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		names = append(names, c.Name)
	}
	require.Contains(t, names, "asr.model")
	require.Contains(t, names, "database")
}
