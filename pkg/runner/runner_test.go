// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runner_test

import (
	"strings"
	"testing"

	"github.com/cea-hpc/tapebench/pkg/runner"
)

func TestRunCapturesStdout(t *testing.T) {
	out, err := runner.New().Run("echo", "-n", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello" {
		t.Fatalf("expected %q, got %q", "hello", out)
	}
}

func TestRunNonzeroExit(t *testing.T) {
	_, err := runner.New().Run("sh", "-c", "echo oops >&2; exit 3")
	if err == nil {
		t.Fatal("expected error for nonzero exit")
	}

	cmdErr, ok := err.(*runner.CommandError)
	if !ok {
		t.Fatalf("expected *CommandError, got %T: %s", err, err)
	}
	if cmdErr.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", cmdErr.ExitCode)
	}
	if !strings.Contains(cmdErr.Output, "oops") {
		t.Fatalf("stderr not captured: %q", cmdErr.Output)
	}
	if !strings.Contains(cmdErr.Error(), "sh -c") {
		t.Fatalf("command line missing from message: %s", cmdErr.Error())
	}
}

func TestRunMissingProgram(t *testing.T) {
	_, err := runner.New().Run("no-such-program-tapebench")
	if err == nil {
		t.Fatal("expected error for missing program")
	}
	if _, ok := err.(*runner.CommandError); ok {
		t.Fatal("start failure must not be a CommandError")
	}
}

func TestFakeRunnerScripting(t *testing.T) {
	fake := runner.NewFake()
	fake.Script("mt -f /dev/st0 status", "File number=4, block number=0.\n", nil)

	out, err := fake.Run("mt", "-f", "/dev/st0", "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "File number=4,") {
		t.Fatalf("scripted reply not returned: %q", out)
	}

	if len(fake.Calls) != 1 {
		t.Fatalf("expected 1 recorded call, got %d", len(fake.Calls))
	}
	if fake.CommandLines()[0] != "mt -f /dev/st0 status" {
		t.Fatalf("unexpected recorded line: %q", fake.CommandLines()[0])
	}
}
