// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/hashicorp/hcl"
	"github.com/pkg/errors"

	"github.com/cea-hpc/tapebench/library"
)

const defaultConfigPath = "/etc/tapebench/tapebench.conf"

type config struct {
	ChangerDevice string `hcl:"changer_device"`
	MountRoot     string `hcl:"mount_root"`
	OutputDir     string `hcl:"output_dir"`

	// DeviceMapFile optionally overrides sysfs probing with a
	// hand-maintained YAML st/sg/serial correlation.
	DeviceMapFile string `hcl:"device_map"`
}

func defaultConfig() *config {
	return &config{
		MountRoot: "/mnt/tapebench",
	}
}

// Merge overlays other onto c; set fields win.
func (c *config) Merge(other *config) *config {
	result := *c
	if other == nil {
		return &result
	}
	if other.ChangerDevice != "" {
		result.ChangerDevice = other.ChangerDevice
	}
	if other.MountRoot != "" {
		result.MountRoot = other.MountRoot
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.DeviceMapFile != "" {
		result.DeviceMapFile = other.DeviceMapFile
	}
	return &result
}

// loadConfig reads the HCL config file. A missing file at the
// default path is fine; a missing file named explicitly is not.
func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == defaultConfigPath {
			return defaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	loaded := &config{}
	if err := hcl.Decode(loaded, string(data)); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return defaultConfig().Merge(loaded), nil
}

// deviceMap builds the system-side device view: the YAML override
// when configured, sysfs probing otherwise.
func (c *config) deviceMap() (library.DeviceMap, error) {
	if c.DeviceMapFile != "" {
		return library.LoadDeviceMap(c.DeviceMapFile)
	}
	return library.ResolveDevices()
}
