// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/intel-hpdd/logging/alert"
	"github.com/pkg/errors"

	"gopkg.in/urfave/cli.v1"

	"github.com/cea-hpc/tapebench/backend"
	"github.com/cea-hpc/tapebench/bench"
	"github.com/cea-hpc/tapebench/changer"
	"github.com/cea-hpc/tapebench/library"
	"github.com/cea-hpc/tapebench/pkg/runner"
)

func init() {
	commands = append(commands, cli.Command{
		Name:      "bench",
		Usage:     "Run a benchmark script against a backend",
		ArgsUsage: "backend(dd|tar|ltfs|phobos) script-file",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "check",
				Usage: "Verify each put with an immediate read-back",
			},
			cli.BoolFlag{
				Name:  "init",
				Usage: "Wipe every referenced tape first (destructive)",
			},
		},
		Action: runBench,
	})
}

func runBench(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("usage: tbench bench <backend> <script-file>")
	}
	name := c.Args().Get(0)
	scriptPath := c.Args().Get(1)

	cfg, err := loadConfig(c.GlobalString("config"))
	if err != nil {
		return err
	}

	script, err := os.Open(scriptPath)
	if err != nil {
		return errors.Wrap(err, "opening script")
	}
	defer script.Close()

	actions, err := bench.ParseScript(script)
	if err != nil {
		return err
	}

	env, err := newEnv(name, cfg)
	if err != nil {
		return err
	}

	b, err := backend.New(name, env)
	if err != nil {
		return err
	}

	interruptHandler(func() {
		if err := b.Close(); err != nil {
			alert.Warnf("shutdown: %s", err)
		}
		os.Exit(1)
	})

	runErr := bench.NewDriver(b, bench.Options{
		Check:     c.Bool("check"),
		InitTapes: c.Bool("init"),
		OutputDir: cfg.OutputDir,
	}).Run(actions)

	if err := b.Close(); err != nil {
		alert.Warnf("shutdown: %s", err)
	}
	return runErr
}

// newEnv assembles the backend environment. The production-store
// backend has its own daemon and needs no library cache; everything
// else does.
func newEnv(name string, cfg *config) (*backend.Env, error) {
	env := &backend.Env{
		Run:       runner.New(),
		OutputDir: cfg.OutputDir,
		MountRoot: cfg.MountRoot,
	}
	if name == backend.Phobos {
		return env, nil
	}

	cache, err := newCache(cfg, env.Run)
	if err != nil {
		return nil, err
	}
	env.Cache = cache
	return env, nil
}

func newCache(cfg *config, run runner.Runner) (*library.Cache, error) {
	if cfg.ChangerDevice == "" {
		return nil, errors.New("no changer_device configured")
	}

	devices, err := cfg.deviceMap()
	if err != nil {
		return nil, err
	}

	return library.New(changer.NewMtx(cfg.ChangerDevice, run), devices)
}
