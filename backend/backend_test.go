// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backend_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cea-hpc/tapebench/backend"
	"github.com/cea-hpc/tapebench/changer"
	"github.com/cea-hpc/tapebench/internal/testhelpers"
	"github.com/cea-hpc/tapebench/library"
)

const testTape = "P00001L5"

func testEnv(t *testing.T) (*backend.Env, *backend.TapeSim, func()) {
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
	sim := backend.NewTapeSim()
	env := &backend.Env{
		Cache:     cache,
		Run:       sim,
		OutputDir: outdir,
	}
	return env, sim, cleanOut
}

// verifyRoundTrip compares src against its retrieved copy: dd writes
// "<name>.out", tar extracts under the archived member name.
func verifyRoundTrip(t *testing.T, env *backend.Env, src string) {
	out := filepath.Join(env.OutputDir, filepath.Base(src)+".out")
	if _, err := os.Stat(out); err != nil {
		out = filepath.Join(env.OutputDir, filepath.Base(src))
	}
	want, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(want, got) {
		t.Fatalf("%s: round trip mismatch: %d bytes in, %d bytes out",
			src, len(want), len(got))
	}
}

func TestDDRoundTrip(t *testing.T) {
	env, _, cleanOut := testEnv(t)
	defer cleanOut()

	srcdir, cleanSrc := testhelpers.TempDir(t)
	defer cleanSrc()

	// a 0-byte, a 16-byte and a 1MiB object on the same tape
	var files []string
	for _, size := range []uint64{0, 16, 1024 * 1024} {
		name, _ := testhelpers.TempFile(t, srcdir, size)
		files = append(files, name)
	}

	b := backend.NewDDBackend(env)
	if err := b.AddDrive(testTape); err != nil {
		t.Fatal(err)
	}
	if err := b.InitTape(testTape); err != nil {
		t.Fatal(err)
	}

	for _, f := range files {
		if err := b.Put(f, testTape); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		if err := b.Get(f, testTape); err != nil {
			t.Fatal(err)
		}
		verifyRoundTrip(t, env, f)
	}
}

func TestDDGetUnknownObject(t *testing.T) {
	env, _, cleanOut := testEnv(t)
	defer cleanOut()

	b := backend.NewDDBackend(env)
	if err := b.AddDrive(testTape); err != nil {
		t.Fatal(err)
	}
	if err := b.Get("/no/such/object", testTape); err == nil {
		t.Fatal("expected error for object never put")
	}
}

func tarSetup(t *testing.T) (*backend.TarBackend, *backend.Env, *backend.TapeSim, []string, func()) {
	env, sim, cleanOut := testEnv(t)

	srcdir, cleanSrc := testhelpers.TempDir(t)

	var files []string
	for _, size := range []uint64{64, 128, 256} {
		name, _ := testhelpers.TempFile(t, srcdir, size)
		files = append(files, name)
	}

	b := backend.NewTarBackend(env)
	if err := b.AddDrive(testTape); err != nil {
		t.Fatal(err)
	}
	if err := b.InitTape(testTape); err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if err := b.Put(f, testTape); err != nil {
			t.Fatal(err)
		}
	}

	return b, env, sim, files, func() {
		cleanSrc()
		cleanOut()
	}
}

func TestTarRoundTrip(t *testing.T) {
	b, env, _, files, cleanup := tarSetup(t)
	defer cleanup()

	// read back out of write order to force forward and backward
	// seeks through the cursor state machine
	for _, i := range []int{2, 0, 1} {
		if err := b.Get(files[i], testTape); err != nil {
			t.Fatal(err)
		}
		verifyRoundTrip(t, env, files[i])
	}

	// appending after reads must land at the next unused index
	srcdir, cleanSrc := testhelpers.TempDir(t)
	defer cleanSrc()
	extra, _ := testhelpers.TempFile(t, srcdir, 32)
	if err := b.Put(extra, testTape); err != nil {
		t.Fatal(err)
	}
	if err := b.Get(extra, testTape); err != nil {
		t.Fatal(err)
	}
	verifyRoundTrip(t, env, extra)
}

// TestTarRereadBacksUpOneMark is the backward-seek regression case:
// re-reading the record just read must issue exactly one corrective
// backward step, not a rewind and not nothing.
func TestTarRereadBacksUpOneMark(t *testing.T) {
	b, env, sim, files, cleanup := tarSetup(t)
	defer cleanup()

	if err := b.Get(files[1], testTape); err != nil {
		t.Fatal(err)
	}

	before := len(sim.Calls)
	if err := b.Get(files[1], testTape); err != nil {
		t.Fatal(err)
	}
	verifyRoundTrip(t, env, files[1])

	var seeks []string
	for _, line := range sim.CommandLines()[before:] {
		if strings.HasPrefix(line, "mt ") {
			seeks = append(seeks, line)
		}
	}
	if len(seeks) != 1 || seeks[0] != "mt -f /dev/nst0 bsfm 1" {
		t.Fatalf("expected a single bsfm 1 before the re-read, got %v", seeks)
	}
}

// TestTarRereadAtZeroRewinds covers the limit of the corrective
// step: inside record 0 there is no mark left to cross backward, so
// the correction has to be a rewind.
func TestTarRereadAtZeroRewinds(t *testing.T) {
	b, env, sim, files, cleanup := tarSetup(t)
	defer cleanup()

	if err := b.Get(files[0], testTape); err != nil {
		t.Fatal(err)
	}

	before := len(sim.Calls)
	if err := b.Get(files[0], testTape); err != nil {
		t.Fatal(err)
	}
	verifyRoundTrip(t, env, files[0])

	var seeks []string
	for _, line := range sim.CommandLines()[before:] {
		if strings.HasPrefix(line, "mt ") {
			seeks = append(seeks, line)
		}
	}
	if len(seeks) != 1 || seeks[0] != "mt -f /dev/nst0 rewind" {
		t.Fatalf("expected a single rewind before the re-read, got %v", seeks)
	}
}

func TestTarGetUnknownObject(t *testing.T) {
	b, _, _, _, cleanup := tarSetup(t)
	defer cleanup()

	if err := b.Get("/no/such/object", testTape); err == nil {
		t.Fatal("expected error for object never put")
	}
}

func TestTarPutWithoutDrive(t *testing.T) {
	env, _, cleanOut := testEnv(t)
	defer cleanOut()

	b := backend.NewTarBackend(env)
	if err := b.Put("/some/object", testTape); err == nil {
		t.Fatal("expected error putting before AddDrive")
	}
}

func TestBackendDispatch(t *testing.T) {
	env := &backend.Env{}
	for _, name := range []string{backend.DD, backend.Tar, backend.LTFS, backend.Phobos} {
		if _, err := backend.New(name, env); err != nil {
			t.Fatalf("backend %q: %s", name, err)
		}
	}
	if _, err := backend.New("nfs", env); err == nil {
		t.Fatal("expected error for unknown backend name")
	}
}

func TestCloseUnloadsTapes(t *testing.T) {
	env, _, cleanOut := testEnv(t)
	defer cleanOut()

	b := backend.NewDDBackend(env)
	if err := b.AddDrive(testTape); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	for _, d := range env.Cache.Drives() {
		if d.Volume != "" {
			t.Fatalf("drive %d still loaded after Close", d.Address)
		}
	}
}
