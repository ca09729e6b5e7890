package provbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.uber.org/zap"
)

// entrypointLogFile is the path for entrypoint debug logging
const entrypointLogFile = "/tmp/provbox-entrypoint.log"

// EntrypointMarkerFile is written once provisioning succeeds, right before
// the hand-off. Health checks can look for it to verify the entrypoint ran.
const EntrypointMarkerFile = "/tmp/provbox-entrypoint-ran"

// elog is the entrypoint file logger (initialized by initEntrypointLog)
var elog *slog.Logger

// initEntrypointLog initializes the file logger for entrypoint debugging.
// Logs are appended to /tmp/provbox-entrypoint.log; the file is never closed
// explicitly because a successful hand-off replaces the process.
func initEntrypointLog() {
	f, err := os.OpenFile(entrypointLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		// Can't log to file, use a no-op logger
		elog = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}

	// Write separator for new run
	fmt.Fprintf(f, "\n========== provbox entrypoint new run at %s ==========\n", time.Now().Format(time.RFC3339))

	elog = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// Entrypoint sequences the two operations of the wrapper: run provisioning
// to completion, then replace the current process with the job command.
// The second step is guaranteed not to run unless the first exits zero.
type Entrypoint struct {
	// Provisioner runs the provisioning step
	Provisioner PlaybookRunner

	// Exec performs the process replacement (default: syscall.Exec)
	Exec ExecFunc

	// Progress receives the informational messages bracketing each step.
	// Nil means stderr.
	Progress io.Writer
}

// NewEntrypoint builds an entrypoint wired to the real ansible runner and
// the real exec primitive.
func NewEntrypoint(config *Config) *Entrypoint {
	return &Entrypoint{
		Provisioner: NewAnsibleRunner(config),
	}
}

// Run executes the entrypoint sequence with the given hand-off arguments.
// On success it never returns: the process image has been replaced. Every
// returned error is terminal; provisioning failures carry the tool's exit
// status via ExitCodeError.
func (e *Entrypoint) Run(ctx context.Context, args []string) error {
	initEntrypointLog()

	elog.Info("entrypoint starting", "args", args)
	zlog.Info("running provbox entrypoint", zap.Strings("args", args))

	progress := e.Progress
	if progress == nil {
		progress = os.Stderr
	}

	// An empty hand-off command can never succeed, so reject it before
	// spending a provisioning run on it.
	if len(args) == 0 {
		elog.Error("no hand-off command supplied")
		return ErrEmptyCommand
	}

	fmt.Fprintln(progress, "provbox: running provisioning playbook")
	if err := e.Provisioner.Run(ctx); err != nil {
		elog.Error("provisioning failed", "error", err, "exit_code", ExitCode(err))
		zlog.Info("provisioning failed", zap.Error(err), zap.Int("exit_code", ExitCode(err)))
		fmt.Fprintln(progress, "provbox: provisioning failed")
		return provisionError(err)
	}

	elog.Info("provisioning complete")
	fmt.Fprintln(progress, "provbox: provisioning complete, starting job")

	writeMarkerFile()

	// Replaces the current process on success.
	return Handoff(args, e.Exec)
}

// writeMarkerFile records that the entrypoint reached the hand-off. Failure
// to write it is not worth dying over this late in the sequence.
func writeMarkerFile() {
	content := fmt.Sprintf("provisioned at %s\n", time.Now().Format(time.RFC3339))
	if err := os.WriteFile(EntrypointMarkerFile, []byte(content), 0644); err != nil {
		elog.Warn("failed to write marker file", "path", EntrypointMarkerFile, "error", err)
	}
}
