// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runner

import (
	"strings"
)

type (
	// Call records a single invocation made through a FakeRunner.
	Call struct {
		Prog string
		Args []string
	}

	// Reply scripts the response for invocations whose command line
	// starts with Prefix.
	Reply struct {
		Prefix string
		Stdout string
		Err    error
	}

	// FakeRunner is a scripted Runner for tests. Every call is
	// recorded; the first matching Reply wins, unmatched calls
	// succeed with empty output.
	FakeRunner struct {
		Calls   []Call
		Replies []Reply
	}
)

// NewFake returns an empty FakeRunner.
func NewFake() *FakeRunner {
	return &FakeRunner{}
}

// Script appends a scripted reply.
func (f *FakeRunner) Script(prefix, stdout string, err error) {
	f.Replies = append(f.Replies, Reply{Prefix: prefix, Stdout: stdout, Err: err})
}

func (f *FakeRunner) Run(prog string, args ...string) (string, error) {
	f.Calls = append(f.Calls, Call{Prog: prog, Args: args})

	line := strings.Join(append([]string{prog}, args...), " ")
	for _, r := range f.Replies {
		if strings.HasPrefix(line, r.Prefix) {
			return r.Stdout, r.Err
		}
	}
	return "", nil
}

// CommandLines renders every recorded call, one line per invocation.
func (f *FakeRunner) CommandLines() []string {
	var lines []string
	for _, c := range f.Calls {
		lines = append(lines, strings.Join(append([]string{c.Prog}, c.Args...), " "))
	}
	return lines
}

// Reset clears recorded calls but keeps scripted replies.
func (f *FakeRunner) Reset() {
	f.Calls = nil
}
