// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backend

import (
	"path/filepath"

	"github.com/intel-hpdd/logging/debug"
	"github.com/pkg/errors"
)

// PhobosBackend proxies the production object store's CLI. The
// store's own daemon owns drive scheduling and tape positioning, so
// this backend carries no state at all; it exists to benchmark the
// full stack against the raw backends.
type PhobosBackend struct {
	env *Env
}

// NewPhobosBackend returns a production-store proxy backend.
func NewPhobosBackend(env *Env) *PhobosBackend {
	return &PhobosBackend{env: env}
}

// AddDrive is a no-op: the store daemon allocates drives itself.
func (b *PhobosBackend) AddDrive(tape string) error {
	debug.Printf("phobos: drive allocation for %s left to the daemon", tape)
	return nil
}

func (b *PhobosBackend) InitTape(tape string) error {
	_, err := b.env.Run.Run("phobos", "tape", "format", "--unlock", tape)
	return errors.Wrapf(err, "formatting %s", tape)
}

func (b *PhobosBackend) Put(path, tape string) error {
	_, err := b.env.Run.Run("phobos", "put", path, objectID(path))
	return errors.Wrapf(err, "storing %s", path)
}

func (b *PhobosBackend) Get(path, tape string) error {
	out := path + ".out"
	if b.env.OutputDir != "" {
		out = filepath.Join(b.env.OutputDir, filepath.Base(path)+".out")
	}
	_, err := b.env.Run.Run("phobos", "get", objectID(path), out)
	return errors.Wrapf(err, "retrieving %s", path)
}

func (b *PhobosBackend) Close() error {
	return nil
}

func objectID(path string) string {
	return filepath.Base(path)
}
