// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package changer

import (
	"sort"

	"github.com/pkg/errors"
)

// FakeChanger is an in-memory Changer for tests. It honors the mtx
// addressing convention: Load/Unload take a 1-based slot index and a
// 0-based drive index into the ascending-address element lists, the
// same way real changer robotics resolve them.
type FakeChanger struct {
	Elements []Element

	// Loads and Unloads count robotics commands actually issued.
	Loads   int
	Unloads int
}

// NewFake returns a FakeChanger over a copy of the given elements.
func NewFake(elements []Element) *FakeChanger {
	fc := &FakeChanger{Elements: append([]Element(nil), elements...)}
	return fc
}

func (f *FakeChanger) Status() ([]Element, error) {
	return append([]Element(nil), f.Elements...), nil
}

func (f *FakeChanger) Load(slot, drive int) error {
	f.Loads++

	s, err := f.slotAt(slot - 1)
	if err != nil {
		return err
	}
	d, err := f.driveAt(drive)
	if err != nil {
		return err
	}
	if s.Volume == "" {
		return errors.Errorf("load: slot %d is empty", slot)
	}
	if d.Volume != "" {
		return errors.Errorf("load: drive %d is full", drive)
	}

	d.Volume = s.Volume
	d.SourceAddress = s.Address
	s.Volume = ""
	return nil
}

func (f *FakeChanger) Unload(slot, drive int) error {
	f.Unloads++

	s, err := f.slotAt(slot - 1)
	if err != nil {
		return err
	}
	d, err := f.driveAt(drive)
	if err != nil {
		return err
	}
	if d.Volume == "" {
		return errors.Errorf("unload: drive %d is empty", drive)
	}
	if s.Volume != "" {
		return errors.Errorf("unload: slot %d is full", slot)
	}

	s.Volume = d.Volume
	d.Volume = ""
	d.SourceAddress = -1
	return nil
}

func (f *FakeChanger) slotAt(index int) (*Element, error) {
	slots := f.indexesOf(TypeSlot)
	if index < 0 || index >= len(slots) {
		return nil, errors.Errorf("no slot at index %d", index)
	}
	return &f.Elements[slots[index]], nil
}

func (f *FakeChanger) driveAt(index int) (*Element, error) {
	drives := f.indexesOf(TypeDrive)
	if index < 0 || index >= len(drives) {
		return nil, errors.Errorf("no drive at index %d", index)
	}
	return &f.Elements[drives[index]], nil
}

func (f *FakeChanger) indexesOf(t ElementType) []int {
	var idx []int
	for i := range f.Elements {
		if f.Elements[i].Type == t {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool {
		return f.Elements[idx[a]].Address < f.Elements[idx[b]].Address
	})
	return idx
}
