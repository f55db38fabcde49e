// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package library

import (
	"strings"

	"github.com/intel-hpdd/logging/alert"
)

// GenUnknown marks a tape or drive whose technology generation could
// not be determined. It is never compatible with anything.
const GenUnknown = 0

// driveModels maps known drive model substrings to their LTO
// generation. Models are matched case-insensitively against the
// device id reported by the changer.
var driveModels = []struct {
	substr string
	gen    int
}{
	{"ULTRIUM 5", 5},
	{"ULT3580-TD5", 5},
	{"ULTRIUM-HH5", 5},
	{"ULTRIUM 6", 6},
	{"ULT3580-TD6", 6},
	{"ULTRIUM-HH6", 6},
	{"ULTRIUM 7", 7},
	{"ULT3580-TD7", 7},
	{"ULTRIUM-HH7", 7},
	{"ULTRIUM 8", 8},
	{"ULT3580-TD8", 8},
	{"ULTRIUM-HH8", 8},
}

// TapeGeneration derives a tape's LTO generation from its barcode
// label suffix (e.g. "P00001L5" is generation 5). Unrecognized labels
// are logged and mapped to GenUnknown.
func TapeGeneration(label string) int {
	if len(label) >= 2 {
		suffix := label[len(label)-2:]
		if suffix[0] == 'L' && suffix[1] >= '5' && suffix[1] <= '9' {
			return int(suffix[1] - '0')
		}
	}
	alert.Warnf("tape %q: unrecognized label suffix, treated as unknown generation", label)
	return GenUnknown
}

// DriveGeneration derives a drive's LTO generation from its model
// string. Unrecognized models are logged and mapped to GenUnknown.
func DriveGeneration(model string) int {
	upper := strings.ToUpper(model)
	for _, m := range driveModels {
		if strings.Contains(upper, m.substr) {
			return m.gen
		}
	}
	alert.Warnf("drive model %q: unrecognized, treated as unknown generation", model)
	return GenUnknown
}

// Compatible reports whether a drive can mount a tape. A generation N
// tape mounts in a generation N or N+1 drive; unknown generations
// never match (fail closed).
func Compatible(driveGen, tapeGen int) bool {
	if driveGen == GenUnknown || tapeGen == GenUnknown {
		return false
	}
	return driveGen == tapeGen || driveGen == tapeGen+1
}
