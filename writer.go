// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// writerCopyBufferSize is per-writer temporary buffer used by source copy.
const writerCopyBufferSize = 64 * 1024

var (
	// writerCopyBufferPool reuses source copy buffers between writers.
	writerCopyBufferPool = sync.Pool{
		New: func() any {
			return new([writerCopyBufferSize]byte)
		},
	}
)

// Writer encodes SWZ entries sequentially into a stream.
//
// Global header is emitted together with first entry, so a Writer
// closed without entries produces no output. After any write error
// generator state no longer matches the output and the Writer must be discarded.
// A Writer is not safe for concurrent use.
type Writer struct {
	// dst is buffered container sink.
	dst *bufio.Writer
	// file is set when Writer owns an *os.File opened via Create.
	file *os.File
	// rnd is container generator; nil until header is written.
	rnd *Random
	// err is sticky failure that poisons further writes.
	err error
	// scratch holds encrypted payload of current entry until its size is known.
	scratch bytes.Buffer
	// opts holds compression and buffering settings.
	opts WriterOptions
	// written is number of container bytes emitted so far.
	written int64
	// entries is number of entries emitted so far.
	entries int
	// key is container key.
	key uint32
	// seed is per-container seed stored in header.
	seed uint32
	// closed reports whether Close was already called.
	closed bool
}

// Create creates or truncates SWZ file at path and returns Writer owning it.
func Create(path string, key uint32, seed uint32) (*Writer, error) {
	return CreateWithOptions(path, key, seed, WriterOptions{})
}

// CreateWithOptions creates SWZ file at path using explicit writer options.
func CreateWithOptions(path string, key uint32, seed uint32, opts WriterOptions) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create SWZ file: %w", err)
	}

	w, err := NewWriterWithOptions(f, key, seed, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	w.file = f
	return w, nil
}

// NewWriter returns Writer that encodes entries into dst with key and seed.
func NewWriter(dst io.Writer, key uint32, seed uint32) (*Writer, error) {
	return NewWriterWithOptions(dst, key, seed, WriterOptions{})
}

// NewWriterWithOptions returns Writer using explicit writer options.
func NewWriterWithOptions(dst io.Writer, key uint32, seed uint32, opts WriterOptions) (*Writer, error) {
	if dst == nil {
		return nil, ErrNilWriter
	}

	opts.applyDefaults()
	if !validCompressionLevel(opts.CompressionLevel) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompressionLevel, opts.CompressionLevel)
	}

	return &Writer{
		dst:  bufio.NewWriterSize(dst, opts.WriterBufferSize),
		opts: opts,
		key:  key,
		seed: seed,
	}, nil
}

// Seed returns per-container seed stored in header.
func (w *Writer) Seed() uint32 {
	return w.seed
}

// Entries returns number of entries written so far.
func (w *Writer) Entries() int {
	return w.entries
}

// Written returns number of container bytes emitted so far, including buffered bytes.
func (w *Writer) Written() int64 {
	return w.written
}

// WriteEntry compresses, encrypts, and appends data as one entry.
func (w *Writer) WriteEntry(data []byte) error {
	_, err := w.WriteEntryFrom(bytes.NewReader(data))
	return err
}

// WriteText appends UTF-8 text as one entry.
func (w *Writer) WriteText(text string) error {
	_, err := w.WriteEntryFrom(strings.NewReader(text))
	return err
}

// WriteEntryFrom reads src to end and appends its content as one entry.
func (w *Writer) WriteEntryFrom(src io.Reader) (EntryInfo, error) {
	if src == nil {
		return EntryInfo{}, ErrNilReader
	}
	if err := w.beginEntry(); err != nil {
		return EntryInfo{}, err
	}

	sizeMask, rawSizeMask := w.rnd.Next(), w.rnd.Next()

	w.scratch.Reset()
	enc := newEncryptWriter(&w.scratch, w.rnd)

	copyBuf, releaseCopyBuf := acquireWriterCopyBuffer()
	read, err := compressTo(enc, src, w.opts.CompressionLevel, copyBuf)
	releaseCopyBuf()
	if err != nil {
		return EntryInfo{}, w.fail(fmt.Errorf("compress entry %d: %w", w.entries, err))
	}

	if read > maxFieldValue {
		return EntryInfo{}, w.fail(fmt.Errorf("%w: entry %d size %d", ErrSizeOverflow, w.entries, read))
	}

	return w.emitEntry(sizeMask, rawSizeMask, uint32(read), enc.Checksum()) //nolint:gosec // bounded above
}

// writeCompressedEntry appends already zlib-compressed payload as one entry.
// Used by editor to re-encrypt kept entries without recompression.
func (w *Writer) writeCompressedEntry(compressed []byte, decompressedSize uint32) (EntryInfo, error) {
	if err := w.beginEntry(); err != nil {
		return EntryInfo{}, err
	}

	sizeMask, rawSizeMask := w.rnd.Next(), w.rnd.Next()

	w.scratch.Reset()
	enc := newEncryptWriter(&w.scratch, w.rnd)
	if len(compressed) > 0 {
		if _, err := enc.Write(compressed); err != nil {
			return EntryInfo{}, w.fail(fmt.Errorf("encrypt entry %d: %w", w.entries, err))
		}
	}

	return w.emitEntry(sizeMask, rawSizeMask, decompressedSize, enc.Checksum())
}

// WriteHeader emits global header now instead of with first entry.
// It is a no-op when header was already written.
func (w *Writer) WriteHeader() error {
	return w.beginEntry()
}

// Flush writes buffered container bytes to underlying sink.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}

	if err := w.dst.Flush(); err != nil {
		return w.fail(fmt.Errorf("flush SWZ: %w", err))
	}

	return nil
}

// Close flushes buffered bytes and closes the underlying file if writer owns one.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	flushErr := w.err
	if flushErr == nil {
		flushErr = w.Flush()
	}
	w.closed = true

	if w.file != nil {
		if err := w.file.Close(); err != nil && flushErr == nil {
			return fmt.Errorf("close SWZ file: %w", err)
		}
	}

	return flushErr
}

// beginEntry checks writer state and emits global header before first entry.
func (w *Writer) beginEntry() error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if w.rnd != nil {
		return nil
	}

	rnd := NewRandom(w.seed ^ w.key)
	var header [globalHeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], KeyChecksum(w.key, rnd))
	binary.BigEndian.PutUint32(header[4:8], w.seed)
	if _, err := w.dst.Write(header[:]); err != nil {
		return w.fail(fmt.Errorf("write header: %w", err))
	}

	w.rnd = rnd
	w.written += globalHeaderSize
	return nil
}

// emitEntry writes masked entry header followed by encrypted payload from scratch.
func (w *Writer) emitEntry(sizeMask, rawSizeMask, decompressedSize, checksum uint32) (EntryInfo, error) {
	if int64(w.scratch.Len()) > maxFieldValue {
		return EntryInfo{}, w.fail(fmt.Errorf("%w: entry %d compressed size %d", ErrSizeOverflow, w.entries, w.scratch.Len()))
	}

	compressedSize := uint32(w.scratch.Len()) //nolint:gosec // bounded above
	var header [entryHeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], compressedSize^sizeMask)
	binary.BigEndian.PutUint32(header[4:8], decompressedSize^rawSizeMask)
	binary.BigEndian.PutUint32(header[8:12], checksum)

	info := EntryInfo{
		Index:            w.entries,
		Offset:           w.written,
		CompressedSize:   compressedSize,
		DecompressedSize: decompressedSize,
		Checksum:         checksum,
	}

	if _, err := w.dst.Write(header[:]); err != nil {
		return EntryInfo{}, w.fail(fmt.Errorf("write entry %d header: %w", w.entries, err))
	}
	if _, err := w.scratch.WriteTo(w.dst); err != nil {
		return EntryInfo{}, w.fail(fmt.Errorf("write entry %d payload: %w", w.entries, err))
	}

	w.written += entryHeaderSize + int64(compressedSize)
	w.entries++

	return info, nil
}

// fail records sticky writer error.
func (w *Writer) fail(err error) error {
	w.err = err
	return err
}

// acquireWriterCopyBuffer returns reusable source copy buffer and release callback.
func acquireWriterCopyBuffer() ([]byte, func()) {
	arr := writerCopyBufferPool.Get().(*[writerCopyBufferSize]byte) //nolint:forcetypeassert // pool contains only fixed-size buffers
	return arr[:], func() {
		writerCopyBufferPool.Put(arr)
	}
}
