// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package progress_test

import (
	"bytes"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cea-hpc/tapebench/pkg/progress"
)

// slowReader trickles data so the updater has a chance to fire.
type slowReader struct {
	src   io.Reader
	delay time.Duration
}

func (r *slowReader) Read(p []byte) (int, error) {
	time.Sleep(r.delay)
	if len(p) > 16 {
		p = p[:16]
	}
	return r.src.Read(p)
}

func TestReaderReportsProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 256)

	var updates int64
	src := &slowReader{src: bytes.NewReader(payload), delay: time.Millisecond}
	reader := progress.NewReader(src, 5*time.Millisecond,
		func(total, delta uint64) error {
			atomic.AddInt64(&updates, 1)
			return nil
		})
	defer reader.StopUpdates()

	var dst bytes.Buffer
	if _, err := io.Copy(&dst, reader); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(dst.Bytes(), payload) {
		t.Fatal("payload corrupted by progress reader")
	}
	if atomic.LoadInt64(&updates) == 0 {
		t.Fatal("no progress updates delivered")
	}
}
