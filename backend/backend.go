// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package backend implements the data-movement backends of the
// benchmark: raw block transfers (dd), archive transfers (tar), an
// LTFS mount-based variant and a thin proxy to the production object
// store.
package backend

import (
	"github.com/pkg/errors"

	"github.com/cea-hpc/tapebench/library"
	"github.com/cea-hpc/tapebench/mt"
	"github.com/cea-hpc/tapebench/pkg/runner"
)

type (
	// Backend moves object data to and from tapes. Implementations
	// are not safe for concurrent use: a single session drives one
	// tape at a time and every call blocks on external commands.
	Backend interface {
		// AddDrive makes sure the tape is mounted in a
		// compatible drive and the backend is ready to move
		// data for it.
		AddDrive(tape string) error

		// InitTape rewinds and wipes the tape and resets all
		// position state for it. Destructive: call at most
		// once per tape per session.
		InitTape(tape string) error

		// Put appends the file at path to the tape.
		Put(path, tape string) error

		// Get reads a previously put object back out to
		// "<path>.out".
		Get(path, tape string) error

		// Close releases whatever the backend holds: unmounts
		// filesystems, returns tapes to their slots.
		Close() error
	}

	// Env carries the shared collaborators a backend needs.
	Env struct {
		Cache     *library.Cache
		Run       runner.Runner
		OutputDir string
		MountRoot string
	}
)

// Backend names accepted by New.
const (
	DD     = "dd"
	Tar    = "tar"
	LTFS   = "ltfs"
	Phobos = "phobos"
)

// New returns the named backend. The set of names is closed.
func New(name string, env *Env) (Backend, error) {
	switch name {
	case DD:
		return NewDDBackend(env), nil
	case Tar:
		return NewTarBackend(env), nil
	case LTFS:
		return NewLTFSBackend(env), nil
	case Phobos:
		return NewPhobosBackend(env), nil
	}
	return nil, errors.Errorf("unknown backend %q", name)
}

// loadDrive mounts the tape through the library cache and returns a
// positional driver on the assigned drive's st node.
func (env *Env) loadDrive(tape string) (*mt.Drive, error) {
	if env.Cache == nil {
		return nil, errors.New("backend needs a library cache")
	}
	d, err := env.Cache.Load(tape)
	if err != nil {
		return nil, err
	}
	return mt.NewDrive(d.Device.ST, env.Run), nil
}
