package remote

import (
	"context"
	"errors"
	"fmt"
)

// SudoPrefix is prepended to privileged commands.
const SudoPrefix = "sudo "

// Invocation describes one remote command.
type Invocation struct {
	Command string
	Sudo    bool // run with SudoPrefix
}

// RemoteCommand returns the command string sent to the remote shell.
func (inv Invocation) RemoteCommand() string {
	if inv.Sudo {
		return SudoPrefix + inv.Command
	}
	return inv.Command
}

// Result is the outcome of a remote command that ran to completion.
// A non-zero ExitCode is data, not an error.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes commands on the remote host.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// ErrTimeout is returned when the watchdog kills a command.
var ErrTimeout = errors.New("SSH command timed out")

// ExecError reports that the ssh client could not be started or failed at
// the OS level.
type ExecError struct {
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("running ssh: %v", e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
