// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package library maintains the in-memory topology of a tape library
// and allocates drives to tapes. The cache is the single source of
// truth for slot/drive occupancy between explicit reloads; it is
// never reconciled against hardware behind the caller's back.
package library

import (
	"fmt"
	"sort"

	"github.com/intel-hpdd/logging/audit"
	"github.com/intel-hpdd/logging/debug"
	"github.com/pkg/errors"

	"github.com/cea-hpc/tapebench/changer"
)

type (
	// Slot is a storage location. Volume is the label of the
	// resident tape, or empty while that tape is loaded in a
	// drive.
	Slot struct {
		Address int
		Volume  string
	}

	// Drive is a data-transfer element together with its resolved
	// OS device nodes. SourceAddress tracks the slot a loaded
	// tape came from.
	Drive struct {
		Address       int
		Model         string
		Serial        string
		Volume        string
		SourceAddress int
		Device        TapeDevice
	}

	// Cache aggregates the slots and drives of one library.
	Cache struct {
		chgr    changer.Changer
		devices DeviceMap
		slots   []*Slot
		drives  []*Drive
	}

	// TapeNotFoundError reports a tape that is in neither a slot
	// nor a drive: the caller asked about a tape this library
	// does not hold.
	TapeNotFoundError struct {
		Tape string
	}
)

func (e *TapeNotFoundError) Error() string {
	return fmt.Sprintf("tape %q is in no slot and no drive of this library", e.Tape)
}

// New scans the library and builds a cache. Every drive's OS device
// is resolved through the supplied map; a serial matching zero or
// multiple local devices fails the whole build.
func New(chgr changer.Changer, devices DeviceMap) (*Cache, error) {
	c := &Cache{
		chgr:    chgr,
		devices: devices,
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload rebuilds the cache wholesale from a live scan. Partial
// patching is never done: either the new inventory replaces the old
// one completely or the old one stays.
func (c *Cache) Reload() error {
	elements, err := c.chgr.Status()
	if err != nil {
		return errors.Wrap(err, "library scan")
	}

	slots, drives, err := c.build(elements)
	if err != nil {
		return err
	}

	c.slots = slots
	c.drives = drives
	debug.Printf("library cache: %d slots, %d drives", len(slots), len(drives))
	return nil
}

// build partitions raw elements into sorted slot and drive lists.
// Ascending address order is a hard requirement: the index arithmetic
// below assumes it, gaps included.
func (c *Cache) build(elements []changer.Element) ([]*Slot, []*Drive, error) {
	var slots []*Slot
	var drives []*Drive

	for _, e := range elements {
		switch e.Type {
		case changer.TypeSlot:
			slots = append(slots, &Slot{
				Address: e.Address,
				Volume:  e.Volume,
			})
		case changer.TypeDrive:
			if e.Serial == "" {
				return nil, nil, errors.Wrapf(changer.ErrNoDeviceID,
					"drive at address %d", e.Address)
			}
			dev, err := c.devices.Resolve(e.Serial)
			if err != nil {
				return nil, nil, err
			}
			drives = append(drives, &Drive{
				Address:       e.Address,
				Model:         e.Model,
				Serial:        e.Serial,
				Volume:        e.Volume,
				SourceAddress: e.SourceAddress,
				Device:        dev,
			})
		}
		// arm and import/export elements are not used
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Address < slots[j].Address })
	sort.Slice(drives, func(i, j int) bool { return drives[i].Address < drives[j].Address })

	if len(drives) == 0 {
		return nil, nil, errors.New("library has no drives")
	}
	return slots, drives, nil
}

// Slots returns the cached slot list, ascending by address.
func (c *Cache) Slots() []*Slot {
	return c.slots
}

// Drives returns the cached drive list, ascending by address.
func (c *Cache) Drives() []*Drive {
	return c.drives
}

// DriveIndex converts a drive's element address into the 0-based
// relative index the changer robotics expect.
func (c *Cache) DriveIndex(d *Drive) int {
	return d.Address - c.drives[0].Address
}

// SlotIndex locates a tape's slot: either the slot it is racked in,
// or, if the tape is loaded, the slot its drive took it from.
// Returns the 0-based position within the ascending slot list.
func (c *Cache) SlotIndex(tape string) (int, error) {
	for i, s := range c.slots {
		if s.Volume == tape {
			return i, nil
		}
	}
	if d := c.loadedDrive(tape); d != nil {
		for i, s := range c.slots {
			if s.Address == d.SourceAddress {
				return i, nil
			}
		}
	}
	return 0, &TapeNotFoundError{Tape: tape}
}

// loadedDrive returns the drive currently holding tape, or nil.
func (c *Cache) loadedDrive(tape string) *Drive {
	for _, d := range c.drives {
		if d.Volume == tape {
			return d
		}
	}
	return nil
}

// FirstEmptyDrive returns the lowest-address drive that is empty and
// technology-compatible with the tape, or nil if none exists. The nil
// return is a recoverable condition, not an error: the caller decides
// whether to wait, pick another library or abort.
func (c *Cache) FirstEmptyDrive(tape string) *Drive {
	tapeGen := TapeGeneration(tape)
	for _, d := range c.drives {
		if d.Volume != "" {
			continue
		}
		if Compatible(DriveGeneration(d.Model), tapeGen) {
			return d
		}
	}
	return nil
}

// Load makes sure a tape is mounted in a drive and returns that
// drive. Loading is idempotent: a tape already in a drive is returned
// as-is with no robotics command issued.
func (c *Cache) Load(tape string) (*Drive, error) {
	if d := c.loadedDrive(tape); d != nil {
		debug.Printf("%s already loaded in drive %d", tape, d.Address)
		return d, nil
	}

	d := c.FirstEmptyDrive(tape)
	if d == nil {
		return nil, errors.Errorf("no free compatible drive for tape %q", tape)
	}

	slotIdx, err := c.SlotIndex(tape)
	if err != nil {
		return nil, err
	}
	slot := c.slots[slotIdx]

	// mtx convention: slots are addressed 1-based, drives 0-based
	audit.Logf("loading %s from slot %d into drive %d", tape, slot.Address, d.Address)
	if err := c.chgr.Load(slotIdx+1, c.DriveIndex(d)); err != nil {
		return nil, err
	}

	d.Volume = slot.Volume
	d.SourceAddress = slot.Address
	slot.Volume = ""
	return d, nil
}

// Unload returns a loaded tape to its originating slot. A tape that
// is not loaded is an error.
func (c *Cache) Unload(tape string) error {
	d := c.loadedDrive(tape)
	if d == nil {
		return &TapeNotFoundError{Tape: tape}
	}

	slotIdx := -1
	for i, s := range c.slots {
		if s.Address == d.SourceAddress {
			slotIdx = i
			break
		}
	}
	if slotIdx < 0 {
		return errors.Errorf("drive %d holds %s but its source slot %d is unknown",
			d.Address, tape, d.SourceAddress)
	}

	audit.Logf("unloading %s from drive %d into slot %d", tape, d.Address, d.SourceAddress)
	if err := c.chgr.Unload(slotIdx+1, c.DriveIndex(d)); err != nil {
		return err
	}

	c.slots[slotIdx].Volume = d.Volume
	d.Volume = ""
	d.SourceAddress = -1
	return nil
}

// UnloadAll refreshes the cache from a live scan and unloads every
// loaded tape, leaving the hardware in a clean state for the next
// session.
func (c *Cache) UnloadAll() error {
	if err := c.Reload(); err != nil {
		return err
	}
	for _, d := range c.drives {
		if d.Volume == "" {
			continue
		}
		if err := c.Unload(d.Volume); err != nil {
			return err
		}
	}
	return nil
}
