// Copyright (c) 2024 CEA/DAM. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package checksum verifies object data integrity across tape round
// trips.
package checksum

import (
	"bytes"
	"crypto/sha1"
	"hash"
	"io"
	"os"

	"github.com/pkg/errors"
)

type (
	// Writer wraps an io.Writer and updates a checksum with every
	// write.
	Writer interface {
		io.Writer
		Sum() []byte
	}

	// Sha1HashWriter implements Writer with SHA1.
	Sha1HashWriter struct {
		dest  io.Writer
		cksum hash.Hash
	}
)

// NewSha1HashWriter returns a new Sha1HashWriter.
func NewSha1HashWriter(dest io.Writer) Writer {
	return &Sha1HashWriter{
		dest:  dest,
		cksum: sha1.New(),
	}
}

// Write updates the checksum and forwards the bytes.
func (hw *Sha1HashWriter) Write(b []byte) (int, error) {
	_, err := hw.cksum.Write(b)
	if err != nil {
		return 0, errors.Wrap(err, "updating checksum failed")
	}
	return hw.dest.Write(b)
}

// Sum returns the checksum of everything written so far.
func (hw *Sha1HashWriter) Sum() []byte {
	return hw.cksum.Sum(nil)
}

// FileSha1Sum returns the SHA1 checksum of the file at path.
func FileSha1Sum(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s for checksum", path)
	}
	defer file.Close()

	h := sha1.New()
	if _, err = io.Copy(h, file); err != nil {
		return nil, errors.Wrapf(err, "failed to compute checksum for %s", path)
	}

	return h.Sum(nil), nil
}

// FilesEqual compares two files by checksum.
func FilesEqual(a, b string) (bool, error) {
	sumA, err := FileSha1Sum(a)
	if err != nil {
		return false, err
	}
	sumB, err := FileSha1Sum(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(sumA, sumB), nil
}
