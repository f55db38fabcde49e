// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package progress reports transfer progress for long-running tape
// copies.
package progress

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/intel-hpdd/logging/alert"
	"github.com/intel-hpdd/logging/debug"
)

type (
	// Func receives the byte count at the previous update and the
	// delta copied since.
	Func func(total uint64, delta uint64) error

	updater struct {
		done        chan struct{}
		bytesCopied uint64
	}

	// Reader wraps an io.Reader and periodically invokes the
	// supplied callback with progress updates.
	Reader struct {
		updater

		src io.Reader
	}
)

// startUpdates spawns a goroutine calling f every updateEvery until
// StopUpdates.
func (p *updater) startUpdates(updateEvery time.Duration, f Func) {
	p.done = make(chan struct{})

	if updateEvery > 0 && f != nil {
		var lastTotal uint64
		go func() {
			for {
				select {
				case <-time.After(updateEvery):
					copied := atomic.LoadUint64(&p.bytesCopied)
					if err := f(lastTotal, copied-lastTotal); err != nil {
						alert.Warnf("Error received from updater callback: %s", err)
					}
					lastTotal = copied
				case <-p.done:
					debug.Print("Shutting down updater goroutine")
					return
				}
			}
		}()
	}
}

// StopUpdates kills the updater goroutine.
func (p *updater) StopUpdates() {
	p.done <- struct{}{}
}

// Read forwards to the wrapped Reader and tracks the bytes read.
func (r *Reader) Read(p []byte) (n int, err error) {
	n, err = r.src.Read(p)
	atomic.AddUint64(&r.bytesCopied, uint64(n))
	return
}

// NewReader returns a Reader reporting through f every updateEvery.
func NewReader(src io.Reader, updateEvery time.Duration, f Func) *Reader {
	r := &Reader{
		src: src,
	}

	r.startUpdates(updateEvery, f)

	return r
}
