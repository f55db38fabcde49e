// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"gopkg.in/urfave/cli.v1"

	"github.com/cea-hpc/tapebench/library"
	"github.com/cea-hpc/tapebench/pkg/runner"
)

func init() {
	commands = append(commands, cli.Command{
		Name:   "drives",
		Usage:  "List the library's drives",
		Action: listDrives,
	}, cli.Command{
		Name:   "slots",
		Usage:  "List the library's slots",
		Action: listSlots,
	}, cli.Command{
		Name:   "unloadall",
		Usage:  "Return every loaded tape to its slot",
		Action: unloadAll,
	})
}

func openCache(c *cli.Context) (*library.Cache, error) {
	cfg, err := loadConfig(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	return newCache(cfg, runner.New())
}

func listDrives(c *cli.Context) error {
	cache, err := openCache(c)
	if err != nil {
		return err
	}

	for _, d := range cache.Drives() {
		volume := d.Volume
		if volume == "" {
			volume = "-"
		}
		fmt.Printf("%3d  %-20s %-12s %-12s gen %d  %s\n",
			cache.DriveIndex(d), d.Model, d.Serial, d.Device.ST,
			library.DriveGeneration(d.Model), volume)
	}
	return nil
}

func listSlots(c *cli.Context) error {
	cache, err := openCache(c)
	if err != nil {
		return err
	}

	for _, s := range cache.Slots() {
		volume := s.Volume
		if volume == "" {
			volume = "-"
		}
		fmt.Printf("%4d  %s\n", s.Address, volume)
	}
	return nil
}

func unloadAll(c *cli.Context) error {
	cache, err := openCache(c)
	if err != nil {
		return err
	}
	return cache.UnloadAll()
}
