// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runner

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"github.com/intel-hpdd/logging/debug"
	"github.com/pkg/errors"
)

type (
	// Runner executes an external program and returns its decoded
	// stdout. Implementations must block until the program exits.
	Runner interface {
		Run(prog string, args ...string) (string, error)
	}

	// CommandError describes a nonzero exit from an external program.
	// Output holds both captured streams concatenated.
	CommandError struct {
		Prog     string
		Args     []string
		ExitCode int
		Output   string
	}

	// ExecRunner runs programs with os/exec. No shell is involved;
	// arguments are passed through verbatim.
	ExecRunner struct{}
)

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q exited %d: %s",
		e.CommandLine(), e.ExitCode, strings.TrimSpace(e.Output))
}

// CommandLine reassembles the failing invocation for diagnostics.
func (e *CommandError) CommandLine() string {
	return strings.Join(append([]string{e.Prog}, e.Args...), " ")
}

// New returns a Runner backed by os/exec.
func New() *ExecRunner {
	return &ExecRunner{}
}

// Run executes prog synchronously. On exit code 0 the captured stdout is
// returned; any other exit yields a *CommandError wrapping the exit code
// and both output streams. Failures are never retried here.
func (r *ExecRunner) Run(prog string, args ...string) (string, error) {
	debug.Printf("exec: %s %s", prog, strings.Join(args, " "))

	cmd := exec.Command(prog, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		status, ok := exitErr.Sys().(syscall.WaitStatus)
		if !ok {
			return "", errors.Wrapf(err, "%s: no wait status", prog)
		}
		return "", &CommandError{
			Prog:     prog,
			Args:     args,
			ExitCode: status.ExitStatus(),
			Output:   stdout.String() + stderr.String(),
		}
	}

	// Program could not be started at all (not found, not executable).
	return "", errors.Wrapf(err, "failed to start %s", prog)
}
