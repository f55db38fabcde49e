// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mt wraps the mt command set used to position a tape drive:
// absolute and relative file-mark seeks, rewind, erase and position
// queries.
package mt

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/cea-hpc/tapebench/pkg/runner"
)

// Drive positions one tape drive through its st device node.
type Drive struct {
	device string
	run    runner.Runner
}

// NewDrive binds a positional driver to an st device node.
func NewDrive(device string, run runner.Runner) *Drive {
	return &Drive{
		device: device,
		run:    run,
	}
}

// Device returns the st node this driver operates on.
func (d *Drive) Device() string {
	return d.device
}

func (d *Drive) mt(args ...string) error {
	_, err := d.run.Run("mt", append([]string{"-f", d.device}, args...)...)
	return err
}

// Rewind positions the head at the beginning of the tape.
func (d *Drive) Rewind() error {
	return d.mt("rewind")
}

// Erase wipes the tape. Destructive: everything after the current
// position is gone.
func (d *Drive) Erase() error {
	return d.mt("erase")
}

// SeekFileMark positions the head at the start of file n, counting
// from 0. This is an absolute primitive: it works regardless of the
// current head position.
func (d *Drive) SeekFileMark(n int) error {
	return d.mt("asf", strconv.Itoa(n))
}

// SeekEOD positions the head at the end of recorded data, where the
// next write will append.
func (d *Drive) SeekEOD() error {
	return d.mt("eod")
}

// SkipForward moves the head forward across n file marks.
func (d *Drive) SkipForward(n int) error {
	return d.mt("fsf", strconv.Itoa(n))
}

// SkipBackward moves the head backward across n file marks, landing
// just after the mark crossed last.
func (d *Drive) SkipBackward(n int) error {
	return d.mt("bsfm", strconv.Itoa(n))
}

// FileNumber queries the drive for the file number under the head,
// parsed from the "File number=<n>," token of mt status output.
func (d *Drive) FileNumber() (int, error) {
	out, err := d.run.Run("mt", "-f", d.device, "status")
	if err != nil {
		return 0, errors.Wrap(err, "mt status")
	}
	return parseFileNumber(out)
}

func parseFileNumber(out string) (int, error) {
	const token = "File number="
	start := strings.Index(out, token)
	if start < 0 {
		return 0, errors.Errorf("no %q token in mt status output", token)
	}
	rest := out[start+len(token):]
	end := strings.IndexByte(rest, ',')
	if end < 0 {
		return 0, errors.New("unterminated file number in mt status output")
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		return 0, errors.Wrap(err, "bad file number in mt status output")
	}
	return n, nil
}
