package provbox

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// ErrEmptyCommand is returned when the entrypoint is invoked without a
// command to hand off to.
var ErrEmptyCommand = errors.New("no command to hand off to (usage: provbox entrypoint -- <cmd> [args...])")

// ExecFunc replaces the current process image with the given command.
// The default is syscall.Exec; tests substitute a recorder.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// Handoff replaces the current process with the given command, preserving
// argument order, standard streams and environment. On success it never
// returns: the job command inherits the entrypoint's process identity, so
// the exit status a supervisor sees is entirely the job's.
func Handoff(args []string, execFn ExecFunc) error {
	if len(args) == 0 {
		return ErrEmptyCommand
	}
	if execFn == nil {
		execFn = syscall.Exec
	}

	path, err := resolveCommand(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve command %q: %w", args[0], err)
	}

	zlog.Info("handing off to command",
		zap.String("path", path),
		zap.Strings("argv", args))

	if err := execFn(path, args, os.Environ()); err != nil {
		return fmt.Errorf("failed to exec %q: %w", path, err)
	}

	// Only reachable with a non-exec'ing ExecFunc (tests).
	return nil
}

// resolveCommand finds the executable for the hand-off target. Commands
// containing a path separator are taken as-is (after checking they exist);
// bare names are resolved through PATH.
func resolveCommand(name string) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}
	return exec.LookPath(name)
}
