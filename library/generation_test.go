// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package library

import "testing"

func TestTapeGeneration(t *testing.T) {
	var tests = []struct {
		label string
		gen   int
	}{
		{"P00001L5", 5},
		{"000002L6", 6},
		{"X9L7", 7},
		{"P00001L8", 8},
		{"P00001", GenUnknown},
		{"P00001L4", GenUnknown},
		{"L", GenUnknown},
		{"", GenUnknown},
	}

	for _, tc := range tests {
		if got := TapeGeneration(tc.label); got != tc.gen {
			t.Errorf("TapeGeneration(%q): expected %d, got %d", tc.label, tc.gen, got)
		}
	}
}

func TestDriveGeneration(t *testing.T) {
	var tests = []struct {
		model string
		gen   int
	}{
		{"Ultrium 5-SCSI", 5},
		{"ULT3580-TD5", 5},
		{"Ultrium 6-SCSI", 6},
		{"ULTRIUM-HH7", 7},
		{"ULT3580-TD8", 8},
		{"VXA-320", GenUnknown},
		{"", GenUnknown},
	}

	for _, tc := range tests {
		if got := DriveGeneration(tc.model); got != tc.gen {
			t.Errorf("DriveGeneration(%q): expected %d, got %d", tc.model, tc.gen, got)
		}
	}
}

func TestCompatible(t *testing.T) {
	var tests = []struct {
		drive, tape int
		ok          bool
	}{
		{5, 5, true},
		{6, 5, true},
		{6, 6, true},
		{7, 6, true},
		{5, 6, false},
		{7, 5, false},
		{GenUnknown, 5, false},
		{6, GenUnknown, false},
		{GenUnknown, GenUnknown, false},
	}

	for _, tc := range tests {
		if got := Compatible(tc.drive, tc.tape); got != tc.ok {
			t.Errorf("Compatible(%d, %d): expected %v, got %v",
				tc.drive, tc.tape, tc.ok, got)
		}
	}
}
