// Package app wires config, logging, storage, and diagnostics together
// for the cmd/voicenoted operability surface (§1A). It never drives
// recording itself — that control surface (§6) belongs to the embedding
// native layer, not this CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/voicenote/core/internal/audio"
	"github.com/voicenote/core/internal/config"
	"github.com/voicenote/core/internal/doctor"
	"github.com/voicenote/core/internal/logging"
	"github.com/voicenote/core/internal/version"
)

// Runner holds process-level dependencies used by command handlers.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute is the package entrypoint used by cmd/voicenoted/main.go.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// flags is the parsed set of ambient-surface CLI flags (§2A).
type flags struct {
	configPath  string
	showVersion bool
	runDoctor   bool
	showDevices bool
	help        bool
}

func parseFlags(args []string) (flags, error) {
	fs := pflag.NewFlagSet("voicenoted", pflag.ContinueOnError)
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)

	f := flags{}
	fs.StringVar(&f.configPath, "config", "", "path to config.yaml")
	fs.BoolVar(&f.showVersion, "version", false, "print version and exit")
	fs.BoolVar(&f.runDoctor, "doctor", false, "run readiness diagnostics")
	fs.BoolVar(&f.showDevices, "devices", false, "list discovered audio input devices")
	fs.BoolVarP(&f.help, "help", "h", false, "show usage")

	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

// Execute parses CLI flags, loads config/logging, and dispatches a
// diagnostic command.
func (r Runner) Execute(ctx context.Context, args []string) int {
	f, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, usageText())
		return 2
	}

	if f.help {
		fmt.Fprint(r.Stdout, usageText())
		return 0
	}

	if f.showVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("voicenoted ambient surface start",
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch {
	case f.runDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case f.showDevices:
		return r.commandDevices(ctx)
	default:
		fmt.Fprint(r.Stdout, usageText())
		return 0
	}
}

// commandDevices prints discovered input devices and key availability metadata.
func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func usageText() string {
	return "Usage: voicenoted [--config path] [--doctor] [--devices] [--version]\n" +
		"\n" +
		"voicenoted has no recording control surface of its own; that lives in\n" +
		"the native layer embedding this module. This binary only runs the\n" +
		"readiness checks (--doctor), lists input devices (--devices), and\n" +
		"reports build metadata (--version).\n"
}
