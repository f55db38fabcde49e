// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backend

import (
	"testing"

	"github.com/cea-hpc/tapebench/mt"
	"github.com/cea-hpc/tapebench/pkg/runner"
)

// TestMoveToIndex exercises the relative-seek arithmetic over a grid
// of (current, target, drift) states. The asymmetry matters: forward
// skips cross (target - current) marks, backward skips cross
// (current - target + 1).
func TestMoveToIndex(t *testing.T) {
	var tests = []struct {
		desc     string
		current  int
		atBegin  bool
		target   int
		expected []string
	}{
		{"stay at begin", 3, true, 3, nil},
		{"stay at zero", 0, true, 0, nil},
		{"drift correction", 3, false, 3,
			[]string{"mt -f /dev/nst0 bsfm 1"}},
		{"drift correction at zero", 0, false, 0,
			[]string{"mt -f /dev/nst0 rewind"}},
		{"forward one", 0, true, 1,
			[]string{"mt -f /dev/nst0 fsf 1"}},
		{"forward many", 2, true, 7,
			[]string{"mt -f /dev/nst0 fsf 5"}},
		{"forward from drift", 2, false, 5,
			[]string{"mt -f /dev/nst0 fsf 3"}},
		{"backward one", 5, true, 4,
			[]string{"mt -f /dev/nst0 bsfm 2"}},
		{"backward many", 9, true, 2,
			[]string{"mt -f /dev/nst0 bsfm 8"}},
		{"backward from drift", 4, false, 2,
			[]string{"mt -f /dev/nst0 bsfm 3"}},
		{"backward to zero rewinds", 7, true, 0,
			[]string{"mt -f /dev/nst0 rewind"}},
		{"backward to zero from drift", 1, false, 0,
			[]string{"mt -f /dev/nst0 rewind"}},
	}

	for _, tc := range tests {
		fake := runner.NewFake()
		tp := &tarTape{
			drv:          mt.NewDrive("/dev/nst0", fake),
			currentIndex: tc.current,
			atIndexBegin: tc.atBegin,
		}

		if err := tp.moveToIndex(tc.target, defaultBackwardSkipSlack); err != nil {
			t.Fatalf("%s: %s", tc.desc, err)
		}

		lines := fake.CommandLines()
		if len(lines) != len(tc.expected) {
			t.Fatalf("%s: expected %v, got %v", tc.desc, tc.expected, lines)
		}
		for i, want := range tc.expected {
			if lines[i] != want {
				t.Fatalf("%s: command %d: expected %q, got %q",
					tc.desc, i, want, lines[i])
			}
		}

		if tp.currentIndex != tc.target {
			t.Fatalf("%s: cursor at %d, expected %d", tc.desc, tp.currentIndex, tc.target)
		}
		if !tp.atIndexBegin {
			t.Fatalf("%s: cursor not at index begin", tc.desc)
		}
	}
}

// TestMoveToIndexSlack checks that the backward positioning offset is
// a parameter, not a constant baked into the arithmetic.
func TestMoveToIndexSlack(t *testing.T) {
	fake := runner.NewFake()
	tp := &tarTape{
		drv:          mt.NewDrive("/dev/nst0", fake),
		currentIndex: 6,
		atIndexBegin: true,
	}

	if err := tp.moveToIndex(3, 0); err != nil {
		t.Fatal(err)
	}

	lines := fake.CommandLines()
	if len(lines) != 1 || lines[0] != "mt -f /dev/nst0 bsfm 3" {
		t.Fatalf("expected slackless bsfm 3, got %v", lines)
	}
}
