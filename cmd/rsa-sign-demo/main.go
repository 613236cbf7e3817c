package main

import (
	"crypto/rand"
	"io"
	"log/slog"
	"os"

	"github.com/glinharesb/rsa-sign-demo/internal/audit"
	"github.com/glinharesb/rsa-sign-demo/internal/config"
	"github.com/glinharesb/rsa-sign-demo/internal/demo"
	"github.com/glinharesb/rsa-sign-demo/internal/hsm"
)

// exitConfig is returned when the environment cannot be turned into a run.
const exitConfig = 2

func main() {
	os.Exit(exitStatus(run(os.Stdout)))
}

// exitStatus folds a stage code into a process status that stays non-zero
// once the OS keeps only its low 8 bits.
func exitStatus(code int) int {
	if code == 0 {
		return 0
	}
	if s := code & 0xff; s != 0 {
		return s
	}
	return 1
}

func run(stdout io.Writer) int {
	cfg := config.Load()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts, err := demo.OptionsFromConfig(cfg)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return exitConfig
	}

	var auditOut io.Writer
	if cfg.AuditFile != "" {
		f, err := os.OpenFile(cfg.AuditFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			slog.Error("open audit file", "path", cfg.AuditFile, "error", err)
			return exitConfig
		}
		defer f.Close()
		auditOut = f
	}

	journal := audit.NewLogger(max(cfg.AuditBuffer, 1), auditOut)
	sub := journal.Subscribe()
	mirrored := make(chan struct{})
	go func() {
		defer close(mirrored)
		for e := range sub.C {
			slog.Debug("journal", "run_id", e.RunID, "stage", e.Stage, "status", e.Status, "code", e.Code)
		}
	}()
	defer func() {
		journal.Close()
		journal.Unsubscribe(sub)
		<-mirrored
	}()

	runner := demo.NewRunner(opts, hsm.NewSoftwareHSM(), rand.Reader, stdout, journal)
	res, err := runner.Run()
	code := demo.ExitCode(err)
	if err != nil {
		slog.Error("demo failed", "run_id", res.RunID, "completed", res.Completed.String(), "code", code, "error", err)
		return code
	}

	slog.Info("demo complete", "run_id", res.RunID, "signature_bytes", len(res.Signature))
	return code
}
