// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Reader decodes SWZ entries sequentially from a stream.
//
// Entries have no index, so they are produced strictly in container order.
// A Reader is not safe for concurrent use.
type Reader struct {
	// src is buffered container source positioned at next entry header.
	src *bufio.Reader
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// rnd is container generator positioned at next entry draw.
	rnd *Random
	// opts holds validation relaxations.
	opts ReaderOptions
	// offset is number of container bytes consumed so far.
	offset int64
	// index is number of entries consumed so far.
	index int
	// key is container key.
	key uint32
	// seed is per-container seed read from header.
	seed uint32
	// srcErr is sticky non-EOF source failure seen at entry boundary.
	srcErr error
	// closed reports whether Close was already called.
	closed bool
}

// Open opens SWZ file by path and verifies its header against key.
func Open(path string, key uint32) (*Reader, error) {
	return OpenWithOptions(path, key, ReaderOptions{})
}

// OpenWithOptions opens SWZ file by path using explicit reader options.
func OpenWithOptions(path string, key uint32, opts ReaderOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open SWZ: %w", err)
	}

	r, err := NewReaderWithOptions(f, key, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.file = f
	return r, nil
}

// NewReader reads SWZ header from src and verifies it against key.
func NewReader(src io.Reader, key uint32) (*Reader, error) {
	return NewReaderWithOptions(src, key, ReaderOptions{})
}

// NewReaderWithOptions reads SWZ header from src using explicit reader options.
func NewReaderWithOptions(src io.Reader, key uint32, opts ReaderOptions) (*Reader, error) {
	if src == nil {
		return nil, ErrNilReader
	}

	opts.applyDefaults()

	br, ok := src.(*bufio.Reader)
	if !ok || br.Size() < opts.ReadBufferSize {
		br = bufio.NewReaderSize(src, opts.ReadBufferSize)
	}

	seed, rnd, err := readGlobalHeader(br, key, opts)
	if err != nil {
		return nil, err
	}

	return &Reader{
		src:    br,
		rnd:    rnd,
		opts:   opts,
		offset: globalHeaderSize,
		key:    key,
		seed:   seed,
	}, nil
}

// readGlobalHeader parses global header and returns seed and generator positioned after key checksum rounds.
// Key checksum draws are consumed even when mismatch is ignored.
func readGlobalHeader(src io.Reader, key uint32, opts ReaderOptions) (uint32, *Random, error) {
	var header [globalHeaderSize]byte
	if _, err := io.ReadFull(src, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
		}

		return 0, nil, fmt.Errorf("read header: %w", err)
	}

	return verifyGlobalHeader(header[:], key, opts)
}

// verifyGlobalHeader checks stored key checksum against key.
func verifyGlobalHeader(header []byte, key uint32, opts ReaderOptions) (uint32, *Random, error) {
	stored := binary.BigEndian.Uint32(header[0:4])
	seed := binary.BigEndian.Uint32(header[4:8])

	rnd := NewRandom(seed ^ key)
	calculated := KeyChecksum(key, rnd)
	if calculated != stored && !opts.IgnoreKeyChecksum {
		return 0, nil, fmt.Errorf("%w: expected %d but got %d", ErrKeyChecksum, stored, calculated)
	}

	return seed, rnd, nil
}

// Seed returns per-container seed read from header.
func (r *Reader) Seed() uint32 {
	return r.seed
}

// Index returns number of entries consumed so far.
func (r *Reader) Index() int {
	return r.index
}

// HasNext reports whether another entry follows.
// It also reports true after a source failure, so next read returns that error.
func (r *Reader) HasNext() bool {
	if r == nil || r.closed {
		return false
	}

	return r.peekErr() != io.EOF
}

// peekErr returns nil when source has unread bytes, io.EOF at clean end,
// or source failure otherwise.
func (r *Reader) peekErr() error {
	if r.srcErr != nil {
		return r.srcErr
	}

	_, err := r.src.Peek(1)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return io.EOF
	default:
		r.srcErr = err
		return err
	}
}

// ReadEntryTo decodes next entry into dst and returns number of bytes written.
// It returns io.EOF when container has no more entries.
//
// With default options decoded bytes reach dst only after entry validated.
// A validation error leaves the reader positioned at next entry.
func (r *Reader) ReadEntryTo(dst io.Writer) (int64, error) {
	if dst == nil {
		return 0, ErrNilWriter
	}

	_, n, err := r.readEntry(dst, r.opts)
	return n, err
}

// ReadEntry decodes next entry into memory.
func (r *Reader) ReadEntry() ([]byte, error) {
	var buf bytes.Buffer

	// Local buffer is discarded on failure, so direct write is safe here.
	opts := r.opts
	opts.Unbuffered = true
	if _, _, err := r.readEntry(&buf, opts); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ReadText decodes next entry as UTF-8 text.
func (r *Reader) ReadText() (string, error) {
	data, err := r.ReadEntry()
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// SkipEntry advances past next entry without decompressing it.
// Generator draws are consumed exactly as a full decode would.
func (r *Reader) SkipEntry() (EntryInfo, error) {
	if r.closed {
		return EntryInfo{}, ErrClosed
	}

	info, hdr, err := r.nextHeader()
	if err != nil {
		return EntryInfo{}, err
	}

	size, err := checkedUint32ToInt(hdr.compressedSize)
	if err != nil {
		return info, fmt.Errorf("compressed size %d: %w", hdr.compressedSize, err)
	}

	discarded, err := r.src.Discard(size)
	r.offset += int64(discarded)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return info, fmt.Errorf("skip entry payload: %w", err)
	}

	r.rnd.Skip(payloadDraws(hdr.compressedSize))
	r.index++

	return info, nil
}

// ReadAll decodes every remaining entry as text in container order.
func (r *Reader) ReadAll(ctx context.Context) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var out []string
	for r.HasNext() {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		index := r.index
		text, err := r.ReadText()
		if err != nil {
			return out, fmt.Errorf("entry %d: %w", index, err)
		}

		out = append(out, text)
	}

	if r.closed {
		return out, ErrClosed
	}

	return out, nil
}

// Close closes the underlying file if reader owns one.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}

// nextHeader reads next entry header and describes it.
func (r *Reader) nextHeader() (EntryInfo, entryHeader, error) {
	if err := r.peekErr(); err != nil {
		if err == io.EOF {
			return EntryInfo{}, entryHeader{}, io.EOF
		}
		return EntryInfo{}, entryHeader{}, fmt.Errorf("read entry header: %w", err)
	}

	offset := r.offset
	hdr, err := readEntryHeader(r.src, r.rnd)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return EntryInfo{}, entryHeader{}, err
	}
	r.offset += entryHeaderSize

	return EntryInfo{
		Index:            r.index,
		Offset:           offset,
		CompressedSize:   hdr.compressedSize,
		DecompressedSize: hdr.decompressedSize,
		Checksum:         hdr.checksum,
	}, hdr, nil
}

// readEntry decodes next entry into dst with explicit options.
func (r *Reader) readEntry(dst io.Writer, opts ReaderOptions) (EntryInfo, int64, error) {
	if r.closed {
		return EntryInfo{}, 0, ErrClosed
	}

	info, hdr, err := r.nextHeader()
	if err != nil {
		return EntryInfo{}, 0, err
	}

	n, err := decodeEntryPayload(dst, r.src, r.rnd, hdr, opts)
	r.offset += int64(hdr.compressedSize)
	r.index++

	return info, n, err
}
