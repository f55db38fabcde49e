// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package bench runs scripted put/get sequences against a selected
// backend and reports timings.
package bench

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/intel-hpdd/logging/audit"
	"github.com/intel-hpdd/logging/debug"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"

	"github.com/cea-hpc/tapebench/backend"
	"github.com/cea-hpc/tapebench/pkg/checksum"
)

type (
	// Options tunes a benchmark run.
	Options struct {
		// Check verifies each put by reading the object back
		// immediately and comparing checksums. The extra reads
		// distort put timings; use for validation runs only.
		Check bool

		// InitTapes wipes every referenced medium before the
		// timed phase. Destructive.
		InitTapes bool

		// OutputDir is where retrieved objects land.
		OutputDir string
	}

	// Driver orchestrates one benchmark session.
	Driver struct {
		backend backend.Backend
		opts    Options
		session string

		putTimer metrics.Timer
		getTimer metrics.Timer
		putBytes int64
		getBytes int64
	}
)

// NewDriver returns a Driver for one session over the given backend.
func NewDriver(b backend.Backend, opts Options) *Driver {
	return &Driver{
		backend:  b,
		opts:     opts,
		session:  uuid.New(),
		putTimer: metrics.NewTimer(),
		getTimer: metrics.NewTimer(),
	}
}

// Run executes the actions: a setup phase that stages drives (and
// optionally wipes tapes), then the timed phase. Setup failures
// abort before any timing starts; a failure during the timed phase
// terminates the run, because numbers after a partial failure are
// meaningless.
func (d *Driver) Run(actions []Action) error {
	audit.Logf("session %s: %d actions", d.session, len(actions))

	if err := d.setup(actions); err != nil {
		return errors.Wrap(err, "benchmark setup")
	}

	start := time.Now()
	for i, a := range actions {
		if err := d.execute(a); err != nil {
			return errors.Wrapf(err, "action %d (%s %s)", i+1, a.Op, a.Path)
		}
	}
	d.report(time.Since(start))
	return nil
}

func (d *Driver) setup(actions []Action) error {
	for _, medium := range Media(actions) {
		debug.Printf("staging drive for %s", medium)
		if err := d.backend.AddDrive(medium); err != nil {
			return err
		}
		if d.opts.InitTapes {
			audit.Logf("wiping %s", medium)
			if err := d.backend.InitTape(medium); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Driver) execute(a Action) error {
	size := fileSize(a.Path)

	start := time.Now()
	switch a.Op {
	case OpPut:
		if err := d.backend.Put(a.Path, a.Medium); err != nil {
			return err
		}
		d.putTimer.UpdateSince(start)
		d.putBytes += size
	case OpGet:
		if err := d.backend.Get(a.Path, a.Medium); err != nil {
			return err
		}
		d.getTimer.UpdateSince(start)
		d.getBytes += size
	default:
		return errors.Errorf("unknown action %q", a.Op)
	}

	if d.opts.Check && a.Op == OpPut {
		return d.verify(a)
	}
	return nil
}

// verify reads a just-put object back and compares checksums.
func (d *Driver) verify(a Action) error {
	if err := d.backend.Get(a.Path, a.Medium); err != nil {
		return errors.Wrap(err, "check read")
	}

	equal, err := checksum.FilesEqual(a.Path, d.retrievedPath(a.Path))
	if err != nil {
		return errors.Wrap(err, "check compare")
	}
	if !equal {
		return errors.Errorf("check failed: %s did not survive the round trip", a.Path)
	}
	debug.Printf("check ok: %s", a.Path)
	return nil
}

// retrievedPath finds where the backend put the retrieved copy: the
// positional backends write "<name>.out", the archive ones extract
// under the original member name.
func (d *Driver) retrievedPath(path string) string {
	base := filepath.Base(path)
	dir := d.opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(path)
	}

	out := filepath.Join(dir, base+".out")
	if _, err := os.Stat(out); err == nil {
		return out
	}
	return filepath.Join(dir, base)
}

func (d *Driver) report(elapsed time.Duration) {
	audit.Logf("session %s done in %s", d.session, elapsed)
	if count := d.putTimer.Count(); count > 0 {
		audit.Logf("put: %d objects, %s, mean %s, %s/s",
			count,
			humanize.IBytes(uint64(d.putBytes)),
			time.Duration(int64(d.putTimer.Mean())),
			humanize.IBytes(rate(d.putBytes, d.putTimer.Sum())))
	}
	if count := d.getTimer.Count(); count > 0 {
		audit.Logf("get: %d objects, %s, mean %s, %s/s",
			count,
			humanize.IBytes(uint64(d.getBytes)),
			time.Duration(int64(d.getTimer.Mean())),
			humanize.IBytes(rate(d.getBytes, d.getTimer.Sum())))
	}
}

// rate converts a byte count over nanoseconds into bytes per second.
func rate(bytes, ns int64) uint64 {
	if ns <= 0 {
		return 0
	}
	return uint64(float64(bytes) / (float64(ns) / float64(time.Second)))
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
