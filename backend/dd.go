// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backend

import (
	"path/filepath"

	"github.com/intel-hpdd/logging/debug"
	"github.com/pkg/errors"
)

// ddBlockSize is the transfer block size handed to dd.
const ddBlockSize = "256k"

// DDBackend moves raw object bytes with dd, one object per tape
// file. Positions are absolute file-mark indices: the drive's asf
// primitive reaches any of them regardless of head position, so no
// cursor state is tracked beyond the object-to-index map.
type DDBackend struct {
	env       *Env
	positions map[string]map[string]int
}

// NewDDBackend returns a raw block-transfer backend.
func NewDDBackend(env *Env) *DDBackend {
	return &DDBackend{
		env:       env,
		positions: make(map[string]map[string]int),
	}
}

func (b *DDBackend) AddDrive(tape string) error {
	_, err := b.env.loadDrive(tape)
	if err != nil {
		return err
	}
	if b.positions[tape] == nil {
		b.positions[tape] = make(map[string]int)
	}
	return nil
}

func (b *DDBackend) InitTape(tape string) error {
	drv, err := b.env.loadDrive(tape)
	if err != nil {
		return err
	}
	if err := drv.Rewind(); err != nil {
		return err
	}
	if err := drv.Erase(); err != nil {
		return err
	}
	b.positions[tape] = make(map[string]int)
	return nil
}

// Put appends the object at the end of recorded data. The drive
// reports its file number after the write; the mark just written is
// one behind it, and that is the index the object lives at.
func (b *DDBackend) Put(path, tape string) error {
	drv, err := b.env.loadDrive(tape)
	if err != nil {
		return err
	}

	if err := drv.SeekEOD(); err != nil {
		return err
	}
	_, err = b.env.Run.Run("dd",
		"if="+path, "of="+drv.Device(), "bs="+ddBlockSize)
	if err != nil {
		return errors.Wrapf(err, "writing %s to %s", path, tape)
	}

	n, err := drv.FileNumber()
	if err != nil {
		return err
	}
	b.positions[tape][path] = n - 1
	debug.Printf("%s stored on %s at file %d", path, tape, n-1)
	return nil
}

// Get seeks straight to the object's recorded mark and reads it out
// to "<path>.out".
func (b *DDBackend) Get(path, tape string) error {
	index, ok := b.positions[tape][path]
	if !ok {
		return errors.Errorf("object %q was never put on tape %s", path, tape)
	}

	drv, err := b.env.loadDrive(tape)
	if err != nil {
		return err
	}
	if err := drv.SeekFileMark(index); err != nil {
		return err
	}

	out := b.outputPath(path)
	_, err = b.env.Run.Run("dd",
		"if="+drv.Device(), "of="+out, "bs="+ddBlockSize)
	return errors.Wrapf(err, "reading %s from %s", path, tape)
}

func (b *DDBackend) Close() error {
	if b.env.Cache == nil {
		return nil
	}
	return b.env.Cache.UnloadAll()
}

func (b *DDBackend) outputPath(path string) string {
	out := path + ".out"
	if b.env.OutputDir != "" {
		out = filepath.Join(b.env.OutputDir, filepath.Base(path)+".out")
	}
	return out
}
