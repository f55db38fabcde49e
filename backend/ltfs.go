// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backend

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/intel-hpdd/logging/audit"
	"github.com/intel-hpdd/logging/debug"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/cea-hpc/tapebench/library"
	"github.com/cea-hpc/tapebench/pkg/progress"
)

// LTFSBackend mounts a filesystem view of each tape and moves data
// with ordinary file copies. Positioning is LTFS's problem; the hard
// part here is the mount lifecycle.
type LTFSBackend struct {
	env    *Env
	mounts map[string]string
}

// NewLTFSBackend returns a mount-based backend.
func NewLTFSBackend(env *Env) *LTFSBackend {
	return &LTFSBackend{
		env:    env,
		mounts: make(map[string]string),
	}
}

func (b *LTFSBackend) mountRoot() string {
	if b.env.MountRoot != "" {
		return b.env.MountRoot
	}
	return "/mnt/tapebench"
}

func (b *LTFSBackend) AddDrive(tape string) error {
	if _, ok := b.mounts[tape]; ok {
		return nil
	}

	d, err := b.loadCached(tape)
	if err != nil {
		return err
	}

	mountpoint := filepath.Join(b.mountRoot(), tape)
	if err := os.MkdirAll(mountpoint, 0755); err != nil {
		return errors.Wrap(err, "creating mountpoint")
	}

	if !isMounted(mountpoint) {
		audit.Logf("mounting %s on %s", tape, mountpoint)
		_, err = b.env.Run.Run("ltfs",
			"-o", "devname="+d.Device.SG, mountpoint)
		if err != nil {
			return errors.Wrapf(err, "mounting %s", tape)
		}
	}

	b.mounts[tape] = mountpoint
	return nil
}

// InitTape formats the tape with mkltfs. The tape must not be
// mounted while formatting; a stale mount from an earlier session is
// torn down first.
func (b *LTFSBackend) InitTape(tape string) error {
	d, err := b.loadCached(tape)
	if err != nil {
		return err
	}

	mountpoint := filepath.Join(b.mountRoot(), tape)
	if isMounted(mountpoint) {
		if err := unix.Unmount(mountpoint, 0); err != nil {
			return errors.Wrapf(err, "unmounting %s before format", tape)
		}
		delete(b.mounts, tape)
	}

	_, err = b.env.Run.Run("mkltfs", "-f", "-d", d.Device.SG)
	if err != nil {
		return errors.Wrapf(err, "formatting %s", tape)
	}
	return b.AddDrive(tape)
}

func (b *LTFSBackend) Put(path, tape string) error {
	mountpoint, ok := b.mounts[tape]
	if !ok {
		return errors.Errorf("tape %s is not mounted, call AddDrive first", tape)
	}
	dst := filepath.Join(mountpoint, filepath.Base(path))
	return copyFile(dst, path)
}

func (b *LTFSBackend) Get(path, tape string) error {
	mountpoint, ok := b.mounts[tape]
	if !ok {
		return errors.Errorf("tape %s is not mounted, call AddDrive first", tape)
	}

	src := filepath.Join(mountpoint, filepath.Base(path))
	out := path + ".out"
	if b.env.OutputDir != "" {
		out = filepath.Join(b.env.OutputDir, filepath.Base(path)+".out")
	}
	return copyFile(out, src)
}

// Close unmounts every tape, then returns them all to their slots.
func (b *LTFSBackend) Close() error {
	for tape, mountpoint := range b.mounts {
		debug.Printf("unmounting %s from %s", tape, mountpoint)
		if err := unix.Unmount(mountpoint, 0); err != nil {
			return errors.Wrapf(err, "unmounting %s", tape)
		}
		delete(b.mounts, tape)
	}
	if b.env.Cache == nil {
		return nil
	}
	return b.env.Cache.UnloadAll()
}

func (b *LTFSBackend) loadCached(tape string) (*library.Drive, error) {
	if b.env.Cache == nil {
		return nil, errors.New("ltfs backend needs a library cache")
	}
	return b.env.Cache.Load(tape)
}

// isMounted checks /proc/self/mounts for the given mountpoint.
func isMounted(path string) bool {
	mounts, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(mounts), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == path {
			return true
		}
	}
	return false
}

// progressInterval is how often long copies report through audit.
const progressInterval = 10 * time.Second

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "opening source")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, "creating destination")
	}

	reader := progress.NewReader(in, progressInterval,
		func(total, delta uint64) error {
			audit.Logf("%s: %s copied (+%s)", src,
				humanize.IBytes(total+delta), humanize.IBytes(delta))
			return nil
		})
	defer reader.StopUpdates()

	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}
	return out.Close()
}
