// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/intel-hpdd/logging/debug"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type (
	// TapeDevice is one OS-level tape device: the rewinding st
	// node, its sg counterpart and the serial number read from the
	// device itself.
	TapeDevice struct {
		ST     string `yaml:"st"`
		SG     string `yaml:"sg"`
		Serial string `yaml:"serial"`
	}

	// DeviceMap is the immutable system-side view of the local
	// tape devices, built once at startup and handed to the cache
	// constructor.
	DeviceMap []TapeDevice

	// DriveResolutionError reports a serial that matched zero or
	// more than one local device: the library's view and the OS's
	// view have diverged.
	DriveResolutionError struct {
		Serial  string
		Matches int
	}
)

func (e *DriveResolutionError) Error() string {
	return fmt.Sprintf("drive serial %q matched %d local tape devices, want exactly 1",
		e.Serial, e.Matches)
}

// Resolve returns the unique device with the given serial. Zero or
// multiple matches yield a *DriveResolutionError.
func (m DeviceMap) Resolve(serial string) (TapeDevice, error) {
	var found []TapeDevice
	for _, dev := range m {
		if dev.Serial == serial {
			found = append(found, dev)
		}
	}
	if len(found) != 1 {
		return TapeDevice{}, &DriveResolutionError{Serial: serial, Matches: len(found)}
	}
	return found[0], nil
}

const scsiTapeSysfs = "/sys/class/scsi_tape"

// ResolveDevices probes the local st devices in index order and reads
// each drive's serial number from its unit serial VPD page. The sg
// node is resolved through the device's generic symlink.
func ResolveDevices() (DeviceMap, error) {
	entries, err := os.ReadDir(scsiTapeSysfs)
	if err != nil {
		return nil, errors.Wrap(err, "no scsi tape devices")
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		// keep only the plain rewinding nodes: st0, st1, ...
		// mode variants (st0a, st0l, st0m) alias the same drive
		if strings.HasPrefix(name, "st") && !strings.ContainsAny(name[2:], "alm") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var devices DeviceMap
	for _, name := range names {
		dev, err := probeDevice(name)
		if err != nil {
			debug.Printf("skipping %s: %s", name, err)
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func probeDevice(name string) (TapeDevice, error) {
	sysdir := filepath.Join(scsiTapeSysfs, name, "device")

	serial, err := readSerial(filepath.Join(sysdir, "vpd_pg80"))
	if err != nil {
		return TapeDevice{}, err
	}

	generic, err := os.Readlink(filepath.Join(sysdir, "generic"))
	if err != nil {
		return TapeDevice{}, errors.Wrapf(err, "%s: no generic node", name)
	}

	return TapeDevice{
		ST:     "/dev/n" + name, // non-rewinding node: positional state must survive close
		SG:     "/dev/" + filepath.Base(generic),
		Serial: serial,
	}, nil
}

// readSerial parses a unit serial number VPD page (0x80): a 4-byte
// header followed by the serial, space padded.
func readSerial(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "reading vpd page")
	}
	if len(raw) <= 4 {
		return "", errors.Errorf("%s: short vpd page", path)
	}
	return strings.TrimSpace(string(raw[4:])), nil
}

// LoadDeviceMap reads a YAML device map, overriding sysfs probing for
// setups where the st/sg correlation is maintained by hand.
func LoadDeviceMap(path string) (DeviceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading device map")
	}

	var devices DeviceMap
	if err := yaml.Unmarshal(data, &devices); err != nil {
		return nil, errors.Wrapf(err, "parsing device map %s", path)
	}
	return devices, nil
}
