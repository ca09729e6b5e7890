package provbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// PlaybookRunner executes the provisioning step. The run is synchronous and
// unbounded: callers pass context.Background() unless they have a reason to
// cancel, matching the "wait for the provisioner, however long it takes"
// contract of the entrypoint.
type PlaybookRunner interface {
	Run(ctx context.Context) error
}

// AnsibleRunner invokes ansible-playbook against a fixed inventory and
// playbook, passing the entrypoint's stdio straight through so the
// provisioning output lands where a supervisor expects it.
type AnsibleRunner struct {
	// Binary is the provisioning tool to invoke (default: ansible-playbook)
	Binary string

	// Inventory is the path passed via -i
	Inventory string

	// Playbook is the playbook path
	Playbook string

	// Stdin, Stdout, Stderr override the inherited streams. Nil means the
	// process's own streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewAnsibleRunner builds a runner from config, inheriting the current
// process's standard streams.
func NewAnsibleRunner(config *Config) *AnsibleRunner {
	return &AnsibleRunner{
		Binary:    config.AnsibleBinary,
		Inventory: config.InventoryPath,
		Playbook:  config.PlaybookPath,
	}
}

// Run executes the provisioning playbook and blocks until it finishes.
// A non-zero exit from the tool is returned as an *exec.ExitError (use
// ExitCode to recover the status).
func (r *AnsibleRunner) Run(ctx context.Context) error {
	binary := r.Binary
	if binary == "" {
		binary = DefaultAnsibleBinary
	}

	zlog.Info("running provisioning playbook",
		zap.String("binary", binary),
		zap.String("inventory", r.Inventory),
		zap.String("playbook", r.Playbook))

	cmd := exec.CommandContext(ctx, binary, "-i", r.Inventory, r.Playbook)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	return cmd.Run()
}

// ExitCodeError carries a process exit status up through the command layer
// so main can terminate with the same code the provisioning tool (or the
// failed hand-off) produced.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the exit status from a subprocess error. Errors that
// don't carry a status (e.g. the binary was never started) map to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	var coded *ExitCodeError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return 1
}

// provisionError wraps a failed provisioning run so the wrapper exits with
// the tool's own status.
func provisionError(err error) error {
	return &ExitCodeError{
		Code: ExitCode(err),
		Err:  fmt.Errorf("provisioning failed: %w", err),
	}
}
