// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package library_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cea-hpc/tapebench/internal/testhelpers"
	"github.com/cea-hpc/tapebench/library"
)

func TestLoadDeviceMap(t *testing.T) {
	dir, cleanup := testhelpers.TempDir(t)
	defer cleanup()

	path := filepath.Join(dir, "devices.yaml")
	content := `- st: /dev/nst0
  sg: /dev/sg4
  serial: HU1234ABC0
- st: /dev/nst1
  sg: /dev/sg5
  serial: HU1234ABC1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	devices, err := library.LoadDeviceMap(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}

	dev, err := devices.Resolve("HU1234ABC1")
	if err != nil {
		t.Fatal(err)
	}
	if dev.ST != "/dev/nst1" || dev.SG != "/dev/sg5" {
		t.Fatalf("bad resolution: %+v", dev)
	}
}

func TestResolveAmbiguity(t *testing.T) {
	devices := library.DeviceMap{
		{ST: "/dev/nst0", Serial: "DUP"},
		{ST: "/dev/nst1", Serial: "DUP"},
	}

	_, err := devices.Resolve("DUP")
	resErr, ok := err.(*library.DriveResolutionError)
	if !ok {
		t.Fatalf("expected *DriveResolutionError, got %T", err)
	}
	if resErr.Matches != 2 {
		t.Fatalf("expected 2 matches, got %d", resErr.Matches)
	}

	if _, err := devices.Resolve("MISSING"); err == nil {
		t.Fatal("expected error for unknown serial")
	}
}
