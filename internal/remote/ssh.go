package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/michaelbrown/sshmcp/internal/config"
)

const (
	// DefaultTimeout bounds a single remote command, connection included.
	DefaultTimeout = 60 * time.Second

	// ConnectTimeout is passed to ssh as -o ConnectTimeout, in seconds.
	ConnectTimeout = 10

	sshBinary = "ssh"

	// waitDelay caps how long Wait blocks on pipes held open by
	// grandchildren after the ssh process itself has been killed.
	waitDelay = 2 * time.Second
)

// SSHRunner runs commands through the system ssh client.
type SSHRunner struct {
	cfg     config.SSHConfig
	timeout time.Duration
}

// NewSSHRunner creates a runner for the configured host.
func NewSSHRunner(cfg config.SSHConfig) *SSHRunner {
	return &SSHRunner{cfg: cfg, timeout: DefaultTimeout}
}

// Args builds the ssh argument list for an invocation.
func (r *SSHRunner) Args(inv Invocation) []string {
	args := []string{
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=" + strconv.Itoa(ConnectTimeout),
		"-o", "StrictHostKeyChecking=accept-new",
		"-p", strconv.Itoa(r.cfg.Port),
	}

	if r.cfg.KeyPath != "" {
		args = append(args, "-i", r.cfg.KeyPath)
	}

	return append(args, r.cfg.Target(), inv.RemoteCommand())
}

// Run executes inv once and waits for it to finish.
func (r *SSHRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, sshBinary, r.Args(inv)...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode, err := r.exitStatus(ctx, runCtx, cmd.Run())
	if err != nil {
		return nil, err
	}

	return &Result{
		ExitCode: exitCode,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
	}, nil
}

// exitStatus interprets cmd.Run's error. A command that exited on its own is
// reported as such even if a deadline passed in the meantime.
func (r *SSHRunner) exitStatus(ctx, runCtx context.Context, err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	// A deadline on runCtx that the parent did not set means the watchdog fired.
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return 0, fmt.Errorf("%w after %d seconds", ErrTimeout, int(r.timeout.Seconds()))
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, &ExecError{Err: err}
	}
	return exitErr.ExitCode(), nil
}
