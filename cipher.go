// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"io"
)

// cipherChunkSize is the encrypt-side scratch buffer size.
const cipherChunkSize = 8 * 1024

// cipherState is shared keystream and checksum bookkeeping for both directions.
type cipherState struct {
	rnd      *Random
	pos      uint64
	checksum uint32
	started  bool
}

// begin seeds checksum with one draw before the first processed byte.
func (c *cipherState) begin() {
	if c.started {
		return
	}

	c.checksum = c.rnd.Next()
	c.started = true
}

// decryptByte turns one cipher byte into plaintext and folds it into checksum.
func (c *cipherState) decryptByte(b byte) byte {
	b ^= keystreamByte(c.rnd, c.pos)
	c.checksum = checksumStep(c.checksum, b, c.pos)
	c.pos++
	return b
}

// encryptByte folds one plaintext byte into checksum and returns cipher byte.
func (c *cipherState) encryptByte(b byte) byte {
	c.checksum = checksumStep(c.checksum, b, c.pos)
	b ^= keystreamByte(c.rnd, c.pos)
	c.pos++
	return b
}

// decryptReader decrypts bytes from src and accumulates plaintext checksum.
// It implements io.ByteReader so flate decoders consume exactly what they need.
type decryptReader struct {
	src io.Reader
	cipherState
}

// newDecryptReader wraps src; rnd is advanced as bytes are read.
func newDecryptReader(src io.Reader, rnd *Random) *decryptReader {
	return &decryptReader{src: src, cipherState: cipherState{rnd: rnd}}
}

// Read decrypts up to len(p) bytes.
func (d *decryptReader) Read(p []byte) (int, error) {
	n, err := d.src.Read(p)
	if n > 0 {
		d.begin()
		for i := 0; i < n; i++ {
			p[i] = d.decryptByte(p[i])
		}
	}

	return n, err
}

// ReadByte decrypts one byte.
func (d *decryptReader) ReadByte() (byte, error) {
	var b byte
	if br, ok := d.src.(io.ByteReader); ok {
		v, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		b = v
	} else {
		var one [1]byte
		if _, err := io.ReadFull(d.src, one[:]); err != nil {
			return 0, err
		}
		b = one[0]
	}

	d.begin()
	return d.decryptByte(b), nil
}

// Checksum returns checksum accumulated so far.
func (d *decryptReader) Checksum() uint32 {
	return d.checksum
}

// Processed returns number of bytes decrypted so far.
func (d *decryptReader) Processed() uint64 {
	return d.pos
}

// encryptWriter encrypts bytes into dst and accumulates plaintext checksum.
type encryptWriter struct {
	dst io.Writer
	buf []byte
	cipherState
}

// newEncryptWriter wraps dst; rnd is advanced as bytes are written.
func newEncryptWriter(dst io.Writer, rnd *Random) *encryptWriter {
	return &encryptWriter{dst: dst, cipherState: cipherState{rnd: rnd}}
}

// Write encrypts p in chunks. The checksum seed is drawn on the first call
// even when p is empty.
func (e *encryptWriter) Write(p []byte) (int, error) {
	e.begin()
	if e.buf == nil {
		e.buf = make([]byte, cipherChunkSize)
	}

	written := 0
	for written < len(p) {
		chunk := min(len(p)-written, len(e.buf))
		for i := 0; i < chunk; i++ {
			e.buf[i] = e.encryptByte(p[written+i])
		}

		n, err := e.dst.Write(e.buf[:chunk])
		written += n
		if err != nil {
			return written, err
		}
		if n != chunk {
			return written, io.ErrShortWrite
		}
	}

	return written, nil
}

// Checksum returns checksum accumulated so far.
func (e *encryptWriter) Checksum() uint32 {
	return e.checksum
}
