// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package changer drives a SCSI medium changer through the mtx
// command and exposes the library's element inventory.
package changer

import (
	"strconv"

	"github.com/pkg/errors"
)

type (
	// ElementType identifies a medium-changer element class.
	ElementType int

	// Element is one entry from a library scan. Address is the
	// changer's own identifier for the element: monotonic per type
	// but not necessarily zero-based or contiguous.
	Element struct {
		Type    ElementType
		Address int

		// Volume is the label of the tape resident in this
		// element, or empty.
		Volume string

		// Vendor, Model and Serial are only set on drive
		// elements whose changer reports device identifiers.
		Vendor string
		Model  string
		Serial string

		// SourceAddress is the slot a loaded tape came from.
		// Only meaningful on full drive elements.
		SourceAddress int
	}

	// Changer scans a library and moves media between elements.
	Changer interface {
		// Status returns the flat element inventory.
		Status() ([]Element, error)

		// Load moves a tape from a slot into a drive. The slot
		// argument is 1-based and the drive argument 0-based;
		// both follow the mtx convention and must be passed
		// through unmodified.
		Load(slot, drive int) error

		// Unload returns a drive's tape to a slot, same
		// addressing convention as Load.
		Unload(slot, drive int) error
	}
)

const (
	TypeSlot ElementType = iota
	TypeDrive
	TypeArm
	TypeImportExport
)

func (t ElementType) String() string {
	switch t {
	case TypeSlot:
		return "slot"
	case TypeDrive:
		return "drive"
	case TypeArm:
		return "arm"
	case TypeImportExport:
		return "import/export"
	}
	return "element[" + strconv.Itoa(int(t)) + "]"
}

// ErrNoDeviceID reports a drive element whose changer did not return
// device identification data.
var ErrNoDeviceID = errors.New("changer did not report a drive device id")
