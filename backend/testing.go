// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backend

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/cea-hpc/tapebench/pkg/runner"
)

type (
	// simRecord is one tape file: the bytes written plus, for tar
	// records, the archived member name.
	simRecord struct {
		name string
		data []byte
	}

	// simTape models a single sequential medium. rec is the index
	// of the record under the head; atBegin distinguishes sitting
	// at the record's start from having drifted into it by
	// reading. File marks sit between records: crossing semantics
	// of fsf/bsfm follow the st driver.
	simTape struct {
		records []simRecord
		rec     int
		atBegin bool
	}

	// TapeSim is a runner.Runner that emulates the mt, dd and tar
	// command set against in-memory tapes, keyed by device node.
	// It exists so the positional drivers can be exercised end to
	// end, off-by-ones included, without hardware.
	TapeSim struct {
		Tapes map[string]*simTape
		Calls []runner.Call
	}
)

// NewTapeSim returns an empty simulator; tapes appear on first use.
func NewTapeSim() *TapeSim {
	return &TapeSim{Tapes: make(map[string]*simTape)}
}

// CommandLines renders every recorded invocation.
func (s *TapeSim) CommandLines() []string {
	var lines []string
	for _, c := range s.Calls {
		lines = append(lines, strings.Join(append([]string{c.Prog}, c.Args...), " "))
	}
	return lines
}

func (s *TapeSim) tape(device string) *simTape {
	t, ok := s.Tapes[device]
	if !ok {
		t = &simTape{atBegin: true}
		s.Tapes[device] = t
	}
	return t
}

func (s *TapeSim) Run(prog string, args ...string) (string, error) {
	s.Calls = append(s.Calls, runner.Call{Prog: prog, Args: args})

	switch prog {
	case "mt":
		return s.runMt(args)
	case "dd":
		return "", s.runDd(args)
	case "tar":
		return "", s.runTar(args)
	}
	return "", errors.Errorf("tape sim: unhandled program %q", prog)
}

func (s *TapeSim) runMt(args []string) (string, error) {
	if len(args) < 3 || args[0] != "-f" {
		return "", errors.Errorf("tape sim: bad mt invocation %v", args)
	}
	t := s.tape(args[1])
	op := args[2]

	count := 0
	if len(args) > 3 {
		var err error
		if count, err = strconv.Atoi(args[3]); err != nil {
			return "", errors.Wrap(err, "tape sim: bad mt count")
		}
	}

	switch op {
	case "rewind":
		t.rec, t.atBegin = 0, true
	case "erase":
		t.records = t.records[:t.rec]
	case "asf":
		if count < 0 || count > len(t.records) {
			return "", errors.Errorf("tape sim: asf %d out of range", count)
		}
		t.rec, t.atBegin = count, true
	case "eod":
		t.rec, t.atBegin = len(t.records), true
	case "fsf":
		if t.rec+count > len(t.records) {
			return "", errors.Errorf("tape sim: fsf %d past end of data", count)
		}
		t.rec, t.atBegin = t.rec+count, true
	case "bsfm":
		// backward past count marks, then forward over the last
		// one: lands at the start of record rec-count+1
		if count > t.rec {
			return "", errors.Errorf("tape sim: bsfm %d past beginning of tape", count)
		}
		t.rec, t.atBegin = t.rec-count+1, true
	case "status":
		// file number counts marks between BOT and the head;
		// drifting inside a record does not cross its mark
		return "File number=" + strconv.Itoa(t.rec) + ", block number=0, partition=0.\n", nil
	default:
		return "", errors.Errorf("tape sim: unhandled mt op %q", op)
	}
	return "", nil
}

func (s *TapeSim) runDd(args []string) error {
	var in, out string
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "if="):
			in = a[3:]
		case strings.HasPrefix(a, "of="):
			out = a[3:]
		}
	}

	if t, ok := s.Tapes[out]; ok || strings.HasPrefix(out, "/dev/") {
		t = s.tape(out)
		data, err := os.ReadFile(in)
		if err != nil {
			return errors.Wrap(err, "tape sim: dd source")
		}
		t.write(simRecord{data: data})
		return nil
	}

	t := s.tape(in)
	rec, err := t.read()
	if err != nil {
		return err
	}
	// a read that hits the file mark crosses it
	t.rec++
	t.atBegin = true
	return errors.Wrap(os.WriteFile(out, rec.data, 0644), "tape sim: dd destination")
}

func (s *TapeSim) runTar(args []string) error {
	if len(args) < 2 {
		return errors.Errorf("tape sim: bad tar invocation %v", args)
	}
	mode, device := args[0], args[1]

	dir := "."
	var member string
	for i := 2; i < len(args); i++ {
		if args[i] == "-C" && i+1 < len(args) {
			dir = args[i+1]
			i++
		} else {
			member = args[i]
		}
	}

	t := s.tape(device)
	switch mode {
	case "cf":
		data, err := os.ReadFile(filepath.Join(dir, member))
		if err != nil {
			return errors.Wrap(err, "tape sim: tar source")
		}
		t.write(simRecord{name: member, data: data})
		return nil
	case "xf":
		rec, err := t.read()
		if err != nil {
			return err
		}
		// tar stops at the archive trailer, short of the mark
		t.atBegin = false
		return errors.Wrap(
			os.WriteFile(filepath.Join(dir, rec.name), rec.data, 0644),
			"tape sim: tar destination")
	}
	return errors.Errorf("tape sim: unhandled tar mode %q", mode)
}

// write stores a record at the head and leaves the head after the
// newly written file mark. Writing mid-tape invalidates everything
// behind the head, as sequential media do.
func (t *simTape) write(rec simRecord) {
	t.records = append(t.records[:t.rec], rec)
	t.rec = len(t.records)
	t.atBegin = true
}

func (t *simTape) read() (simRecord, error) {
	if !t.atBegin {
		return simRecord{}, errors.Errorf(
			"tape sim: read at record %d without repositioning", t.rec)
	}
	if t.rec >= len(t.records) {
		return simRecord{}, errors.Errorf(
			"tape sim: read at record %d past end of data", t.rec)
	}
	return t.records[t.rec], nil
}
