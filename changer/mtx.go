// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package changer

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/cea-hpc/tapebench/pkg/runner"
)

// MtxChanger talks to a changer device through the mtx program.
type MtxChanger struct {
	device string
	run    runner.Runner
}

// NewMtx returns a Changer bound to a changer device node (sg).
func NewMtx(device string, run runner.Runner) *MtxChanger {
	return &MtxChanger{
		device: device,
		run:    run,
	}
}

// Status invokes "mtx status" and parses the element inventory.
// Drive device identifiers require DVCID support in the changer;
// drives without one are still listed, resolution fails later.
func (c *MtxChanger) Status() ([]Element, error) {
	out, err := c.run.Run("mtx", "-f", c.device, "status")
	if err != nil {
		return nil, errors.Wrap(err, "library scan failed")
	}
	return ParseStatus(out)
}

// Load moves a tape from slot (1-based) into drive (0-based).
func (c *MtxChanger) Load(slot, drive int) error {
	_, err := c.run.Run("mtx", "-f", c.device, "load",
		strconv.Itoa(slot), strconv.Itoa(drive))
	return errors.Wrapf(err, "load slot %d into drive %d", slot, drive)
}

// Unload returns a drive's tape to slot, same addressing as Load.
func (c *MtxChanger) Unload(slot, drive int) error {
	_, err := c.run.Run("mtx", "-f", c.device, "unload",
		strconv.Itoa(slot), strconv.Itoa(drive))
	return errors.Wrapf(err, "unload drive %d into slot %d", drive, slot)
}

// ParseStatus parses mtx status output. Recognized lines:
//
//	Data Transfer Element 0:Full (Storage Element 3 Loaded):VolumeTag = P00003L5:DeviceID = HP Ultrium 6-SCSI HU1327WGF0
//	Data Transfer Element 1:Empty:DeviceID = HP Ultrium 6-SCSI HU1327WGF1
//	Storage Element 1:Full :VolumeTag=P00001L5
//	Storage Element 21 IMPORT/EXPORT:Empty
//
// The changer banner and anything else is skipped.
func ParseStatus(out string) ([]Element, error) {
	var elements []Element

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Data Transfer Element "):
			elem, err := parseDrive(line)
			if err != nil {
				return nil, err
			}
			elements = append(elements, elem)
		case strings.HasPrefix(line, "Storage Element "):
			elem, err := parseSlot(line)
			if err != nil {
				return nil, err
			}
			elements = append(elements, elem)
		}
	}

	if len(elements) == 0 {
		return nil, errors.New("no elements in changer status output")
	}
	return elements, nil
}

func parseDrive(line string) (Element, error) {
	elem := Element{Type: TypeDrive, SourceAddress: -1}

	rest := strings.TrimPrefix(line, "Data Transfer Element ")
	addr, rest, err := splitAddress(rest)
	if err != nil {
		return elem, errors.Wrapf(err, "bad drive line %q", line)
	}
	elem.Address = addr

	for _, field := range strings.Split(rest, ":") {
		field = strings.TrimSpace(field)
		switch {
		case strings.HasPrefix(field, "Full"):
			// "Full (Storage Element 3 Loaded)"
			src, ok := parseSource(field)
			if ok {
				elem.SourceAddress = src
			}
		case strings.HasPrefix(field, "VolumeTag"):
			elem.Volume = tagValue(field)
		case strings.HasPrefix(field, "DeviceID"):
			elem.Vendor, elem.Model, elem.Serial = parseDeviceID(tagValue(field))
		}
	}
	return elem, nil
}

func parseSlot(line string) (Element, error) {
	elem := Element{Type: TypeSlot, SourceAddress: -1}

	rest := strings.TrimPrefix(line, "Storage Element ")
	addr, rest, err := splitAddress(rest)
	if err != nil {
		return elem, errors.Wrapf(err, "bad slot line %q", line)
	}
	elem.Address = addr

	if strings.HasPrefix(rest, "IMPORT/EXPORT") {
		elem.Type = TypeImportExport
		rest = strings.TrimPrefix(rest, "IMPORT/EXPORT")
	}

	for _, field := range strings.Split(rest, ":") {
		field = strings.TrimSpace(field)
		if strings.HasPrefix(field, "VolumeTag") {
			elem.Volume = tagValue(field)
		}
	}
	return elem, nil
}

// splitAddress peels the leading element number off "21 IMPORT/EXPORT:Empty"
// or "0:Full (...)". The remainder starts at the first non-digit.
func splitAddress(s string) (int, string, error) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, s, errors.New("missing element address")
	}
	addr, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, s, err
	}
	return addr, strings.TrimLeft(s[end:], " :"), nil
}

// parseSource extracts N from "Full (Storage Element N Loaded)".
func parseSource(field string) (int, bool) {
	open := strings.Index(field, "(Storage Element ")
	if open < 0 {
		return 0, false
	}
	rest := field[open+len("(Storage Element "):]
	end := strings.IndexByte(rest, ' ')
	if end < 0 {
		return 0, false
	}
	src, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return src, true
}

// tagValue returns the value of a "Name = value" or "Name=value" field.
func tagValue(field string) string {
	eq := strings.IndexByte(field, '=')
	if eq < 0 {
		return ""
	}
	return strings.TrimSpace(field[eq+1:])
}

// parseDeviceID splits a DVCID string into vendor, model and serial.
// The serial is the last whitespace-separated token, the vendor the
// first, and the model everything in between.
func parseDeviceID(id string) (vendor, model, serial string) {
	fields := strings.Fields(id)
	switch len(fields) {
	case 0:
		return "", "", ""
	case 1:
		return "", "", fields[0]
	case 2:
		return fields[0], "", fields[1]
	}
	return fields[0], strings.Join(fields[1:len(fields)-1], " "), fields[len(fields)-1]
}
