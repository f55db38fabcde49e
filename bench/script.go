// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bench

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

type (
	// Op is a benchmark action verb.
	Op string

	// Action is one line of a benchmark script: move the object at
	// Path to or from Medium. Medium may be empty for backends
	// that allocate media themselves.
	Action struct {
		Op     Op
		Path   string
		Medium string
	}
)

const (
	OpPut Op = "put"
	OpGet Op = "get"
)

// ParseScript reads a benchmark action script: one action per line,
// "put|get <path> [<medium>]". Blank lines and #-comments are
// skipped.
func ParseScript(r io.Reader) ([]Action, error) {
	var actions []Action

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields) > 3 {
			return nil, errors.Errorf("line %d: expected 'put|get <path> [<medium>]', got %q",
				lineno, line)
		}

		op := Op(fields[0])
		if op != OpPut && op != OpGet {
			return nil, errors.Errorf("line %d: unknown action %q", lineno, fields[0])
		}

		action := Action{Op: op, Path: fields[1]}
		if len(fields) == 3 {
			action.Medium = fields[2]
		}
		actions = append(actions, action)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading script")
	}

	return actions, nil
}

// Media returns the distinct media referenced by the actions, in
// first-reference order.
func Media(actions []Action) []string {
	seen := make(map[string]bool)
	var media []string
	for _, a := range actions {
		if a.Medium == "" || seen[a.Medium] {
			continue
		}
		seen[a.Medium] = true
		media = append(media, a.Medium)
	}
	return media
}
