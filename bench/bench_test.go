// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bench_test

import (
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/pkg/errors"

	"github.com/cea-hpc/tapebench/backend"
	"github.com/cea-hpc/tapebench/bench"
	"github.com/cea-hpc/tapebench/changer"
	"github.com/cea-hpc/tapebench/internal/testhelpers"
	"github.com/cea-hpc/tapebench/library"
)

const testTape = "P00001L5"

func benchEnv(t *testing.T) (*backend.Env, func()) {
	elements := []changer.Element{
		{Type: changer.TypeDrive, Address: 0, Model: "Ultrium 5-SCSI", Serial: "SER0", SourceAddress: -1},
		{Type: changer.TypeSlot, Address: 1, Volume: testTape, SourceAddress: -1},
	}
	devices := library.DeviceMap{
		{ST: "/dev/nst0", SG: "/dev/sg4", Serial: "SER0"},
	}
	cache, err := library.New(changer.NewFake(elements), devices)
	if err != nil {
		t.Fatal(err)
	}

	outdir, cleanOut := testhelpers.TempDir(t)
	return &backend.Env{
		Cache:     cache,
		Run:       backend.NewTapeSim(),
		OutputDir: outdir,
	}, cleanOut
}

func TestDriverRun(t *testing.T) {
	env, cleanOut := benchEnv(t)
	defer cleanOut()

	srcdir, cleanSrc := testhelpers.TempDir(t)
	defer cleanSrc()
	obj1, _ := testhelpers.TempFile(t, srcdir, 4096)
	obj2, _ := testhelpers.TempFile(t, srcdir, 8192)

	b := backend.NewDDBackend(env)
	driver := bench.NewDriver(b, bench.Options{
		InitTapes: true,
		OutputDir: env.OutputDir,
	})

	// the timer arbiter goroutine spawned by driver construction is
	// process-wide; snapshot after it so the run itself is checked
	defer leaktest.Check(t)()

	actions := []bench.Action{
		{Op: bench.OpPut, Path: obj1, Medium: testTape},
		{Op: bench.OpPut, Path: obj2, Medium: testTape},
		{Op: bench.OpGet, Path: obj1, Medium: testTape},
		{Op: bench.OpGet, Path: obj2, Medium: testTape},
	}
	if err := driver.Run(actions); err != nil {
		t.Fatal(err)
	}
}

func TestDriverCheckMode(t *testing.T) {
	env, cleanOut := benchEnv(t)
	defer cleanOut()

	srcdir, cleanSrc := testhelpers.TempDir(t)
	defer cleanSrc()
	obj, _ := testhelpers.TempFile(t, srcdir, 1024)

	b := backend.NewTarBackend(env)
	driver := bench.NewDriver(b, bench.Options{
		Check:     true,
		InitTapes: true,
		OutputDir: env.OutputDir,
	})

	actions := []bench.Action{
		{Op: bench.OpPut, Path: obj, Medium: testTape},
	}
	if err := driver.Run(actions); err != nil {
		t.Fatal(err)
	}
}

func TestDriverSetupFailureAborts(t *testing.T) {
	env, cleanOut := benchEnv(t)
	defer cleanOut()

	b := backend.NewDDBackend(env)
	driver := bench.NewDriver(b, bench.Options{OutputDir: env.OutputDir})

	// an unknown medium fails drive staging before any timing
	actions := []bench.Action{
		{Op: bench.OpPut, Path: "/data/obj", Medium: "NOPE99L5"},
	}
	err := driver.Run(actions)
	if err == nil {
		t.Fatal("expected setup failure for unknown medium")
	}
	if errors.Cause(err) == nil {
		t.Fatal("expected a wrapped cause")
	}
}

func TestDriverTimedFailureTerminates(t *testing.T) {
	env, cleanOut := benchEnv(t)
	defer cleanOut()

	b := backend.NewDDBackend(env)
	driver := bench.NewDriver(b, bench.Options{OutputDir: env.OutputDir})

	// getting an object that was never put fails during the timed
	// phase and must terminate the run
	actions := []bench.Action{
		{Op: bench.OpGet, Path: "/data/never-put", Medium: testTape},
	}
	if err := driver.Run(actions); err == nil {
		t.Fatal("expected timed-phase failure to terminate the run")
	}
}
