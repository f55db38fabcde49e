// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backend

import (
	"path/filepath"

	"github.com/intel-hpdd/logging/debug"
	"github.com/pkg/errors"

	"github.com/cea-hpc/tapebench/mt"
)

// defaultBackwardSkipSlack compensates for drives landing one mark
// past the target when skipping backward across records. Observed on
// LTO hardware; likely drive-family specific, hence a parameter.
const defaultBackwardSkipSlack = 1

type (
	// TarBackend writes one tar archive per object and positions
	// the tape with relative seeks only, tracking the head's
	// cursor explicitly.
	TarBackend struct {
		env   *Env
		slack int
		tapes map[string]*tarTape
	}

	// tarTape is the per-tape cursor state. currentIndex is the
	// zero-based ordinal the head sits at; atIndexBegin records
	// whether it sits exactly at that record's start or has
	// drifted past it by reading.
	tarTape struct {
		drv          *mt.Drive
		objects      map[string]int
		currentIndex int
		atIndexBegin bool
	}
)

// NewTarBackend returns an archive backend with the default backward
// skip slack.
func NewTarBackend(env *Env) *TarBackend {
	return &TarBackend{
		env:   env,
		slack: defaultBackwardSkipSlack,
		tapes: make(map[string]*tarTape),
	}
}

// SetBackwardSkipSlack overrides the backward positioning offset for
// drive families with different bsfm landing behavior.
func (b *TarBackend) SetBackwardSkipSlack(n int) {
	b.slack = n
}

// AddDrive loads the tape and, the first time a tape is seen in this
// session, normalizes its head position with a forced rewind. Some
// hardware rewinds implicitly on load and some does not; rewinding
// unconditionally makes the cursor state trustworthy either way.
func (b *TarBackend) AddDrive(tape string) error {
	if tp, ok := b.tapes[tape]; ok {
		// already tracked; make sure it is still loaded
		drv, err := b.env.loadDrive(tape)
		if err != nil {
			return err
		}
		tp.drv = drv
		return nil
	}

	drv, err := b.env.loadDrive(tape)
	if err != nil {
		return err
	}
	if err := drv.Rewind(); err != nil {
		return err
	}
	b.tapes[tape] = &tarTape{
		drv:          drv,
		objects:      make(map[string]int),
		currentIndex: 0,
		atIndexBegin: true,
	}
	return nil
}

func (b *TarBackend) InitTape(tape string) error {
	if err := b.AddDrive(tape); err != nil {
		return err
	}
	tp := b.tapes[tape]

	if err := tp.drv.Rewind(); err != nil {
		return err
	}
	if err := tp.drv.Erase(); err != nil {
		return err
	}
	tp.objects = make(map[string]int)
	tp.currentIndex = 0
	tp.atIndexBegin = true
	return nil
}

// Put appends the object as one archive at the tape's logical end:
// index len(objects), the first unused one. Sequential media cannot
// insert mid-stream, so appending is the only write mode.
func (b *TarBackend) Put(path, tape string) error {
	tp, err := b.tape(tape)
	if err != nil {
		return err
	}

	target := len(tp.objects)
	if err := tp.moveToIndex(target, b.slack); err != nil {
		return err
	}

	_, err = b.env.Run.Run("tar", "cf", tp.drv.Device(),
		"-C", filepath.Dir(path), filepath.Base(path))
	if err != nil {
		return errors.Wrapf(err, "archiving %s to %s", path, tape)
	}

	tp.objects[path] = target
	tp.currentIndex = len(tp.objects)
	tp.atIndexBegin = true
	debug.Printf("%s archived on %s at index %d", path, tape, target)
	return nil
}

// Get extracts the object's archive into the output directory.
// Reading consumes the record: the head is left inside the index, so
// the cursor is flagged off-begin for the next move.
func (b *TarBackend) Get(path, tape string) error {
	tp, err := b.tape(tape)
	if err != nil {
		return err
	}

	index, ok := tp.objects[path]
	if !ok {
		return errors.Errorf("object %q was never put on tape %s", path, tape)
	}

	if err := tp.moveToIndex(index, b.slack); err != nil {
		return err
	}

	args := []string{"xf", tp.drv.Device()}
	if b.env.OutputDir != "" {
		args = append(args, "-C", b.env.OutputDir)
	}
	if _, err := b.env.Run.Run("tar", args...); err != nil {
		return errors.Wrapf(err, "extracting %s from %s", path, tape)
	}

	tp.atIndexBegin = false
	return nil
}

func (b *TarBackend) Close() error {
	if b.env.Cache == nil {
		return nil
	}
	return b.env.Cache.UnloadAll()
}

func (b *TarBackend) tape(tape string) (*tarTape, error) {
	tp, ok := b.tapes[tape]
	if !ok {
		return nil, errors.Errorf("tape %s has no drive, call AddDrive first", tape)
	}
	return tp, nil
}

// moveToIndex positions the head at the start of the target record
// using relative seeks only.
//
// Forward skips cross exactly (target - current) marks. Backward
// skips cross (current - target + slack) marks because the drive
// lands after the last mark crossed, one short of the record start.
// A head that drifted past the start of the current record gets one
// corrective backward step first, or a rewind when the target is the
// very beginning of the tape.
func (tp *tarTape) moveToIndex(target, slack int) error {
	if target == tp.currentIndex && !tp.atIndexBegin {
		if target == 0 {
			if err := tp.drv.Rewind(); err != nil {
				return err
			}
		} else {
			if err := tp.drv.SkipBackward(1); err != nil {
				return err
			}
		}
	} else if target > tp.currentIndex {
		if err := tp.drv.SkipForward(target - tp.currentIndex); err != nil {
			return err
		}
	} else if target < tp.currentIndex {
		if target == 0 {
			if err := tp.drv.Rewind(); err != nil {
				return err
			}
		} else {
			if err := tp.drv.SkipBackward(tp.currentIndex - target + slack); err != nil {
				return err
			}
		}
	}

	tp.currentIndex = target
	tp.atIndexBegin = true
	return nil
}
