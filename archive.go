// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// archiveScanBufferSize is a sequential read buffer for entry header scan.
const archiveScanBufferSize = 64 * 1024

var (
	// archiveScanReaderPool reuses buffered readers for sequential header scan.
	archiveScanReaderPool = sync.Pool{
		New: func() any {
			return bufio.NewReaderSize(bytes.NewReader(nil), archiveScanBufferSize)
		},
	}
)

// Archive provides random access to entries of an SWZ file.
//
// Entries are indexed once at open. Each indexed entry carries its own
// generator snapshot, so entries can be decoded independently and in parallel.
type Archive struct {
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// file is set when Archive owns an *os.File opened via OpenArchive.
	file *os.File
	// entries stores indexed entry metadata in container order.
	entries []EntryInfo
	// opts holds validation relaxations.
	opts ReaderOptions
	// size is total source size in bytes.
	size int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// key is container key.
	key uint32
	// seed is per-container seed read from header.
	seed uint32
	// closed reports whether Close was already called.
	closed bool
}

// OpenArchive opens SWZ file by path and indexes its entries.
func OpenArchive(path string, key uint32) (*Archive, error) {
	return OpenArchiveWithOptions(path, key, ReaderOptions{})
}

// OpenArchiveWithOptions opens SWZ file by path and indexes its entries using explicit reader options.
func OpenArchiveWithOptions(path string, key uint32, opts ReaderOptions) (*Archive, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	a, err := NewArchiveFromReaderAtWithOptions(f, size, key, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	a.file = f
	return a, nil
}

// NewArchiveFromReaderAt indexes SWZ from existing ReaderAt and known size.
func NewArchiveFromReaderAt(ra io.ReaderAt, size int64, key uint32) (*Archive, error) {
	return NewArchiveFromReaderAtWithOptions(ra, size, key, ReaderOptions{})
}

// NewArchiveFromReaderAtWithOptions indexes SWZ from existing ReaderAt using explicit reader options.
func NewArchiveFromReaderAtWithOptions(ra io.ReaderAt, size int64, key uint32, opts ReaderOptions) (*Archive, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	opts.applyDefaults()

	a := &Archive{ra: ra, size: size, key: key, opts: opts}
	if err := a.scan(); err != nil {
		return nil, err
	}

	return a, nil
}

// Entries returns a copy of indexed entries.
func (a *Archive) Entries() []EntryInfo {
	if a == nil {
		return nil
	}

	entries := make([]EntryInfo, len(a.entries))
	copy(entries, a.entries)
	return entries
}

// Seed returns per-container seed read from header.
func (a *Archive) Seed() uint32 {
	return a.seed
}

// Size returns total container size in bytes.
func (a *Archive) Size() int64 {
	return a.size
}

// Close closes the underlying file if archive owns one.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	a.closed = true
	if a.file != nil {
		return a.file.Close()
	}

	return nil
}

// ReadEntry decodes entry content into memory.
func (a *Archive) ReadEntry(info EntryInfo) ([]byte, error) {
	entry, err := a.resolveEntry(info)
	if err != nil {
		return nil, err
	}

	outLen, err := checkedUint32ToInt(entry.DecompressedSize)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", entry.Index, err)
	}

	var buf bytes.Buffer
	buf.Grow(min(outLen, maxScratchGrow))

	opts := a.opts
	opts.Unbuffered = true
	if _, err := a.decodeEntry(&buf, entry, opts); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ReadText decodes entry content as UTF-8 text.
func (a *Archive) ReadText(info EntryInfo) (string, error) {
	data, err := a.ReadEntry(info)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// ReadEntryTo decodes entry content into dst and returns number of bytes written.
func (a *Archive) ReadEntryTo(info EntryInfo, dst io.Writer) (int64, error) {
	if dst == nil {
		return 0, ErrNilWriter
	}

	entry, err := a.resolveEntry(info)
	if err != nil {
		return 0, err
	}

	return a.decodeEntry(dst, entry, a.opts)
}

// ReadCompressed returns decrypted zlib payload of entry without decompressing it.
// Payload checksum is verified unless IgnoreEntryChecksum is set.
func (a *Archive) ReadCompressed(info EntryInfo) ([]byte, error) {
	entry, err := a.resolveEntry(info)
	if err != nil {
		return nil, err
	}

	size, err := checkedUint32ToInt(entry.CompressedSize)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", entry.Index, err)
	}

	buf := make([]byte, size)
	if _, err := a.ra.ReadAt(buf, entry.DataOffset()); err != nil && !(err == io.EOF && size == 0) {
		return nil, fmt.Errorf("read entry %d payload: %w", entry.Index, err)
	}

	cs := cipherState{rnd: entry.rnd.clone()}
	if size > 0 {
		cs.begin()
	}
	for i := range buf {
		buf[i] = cs.decryptByte(buf[i])
	}

	if !a.opts.IgnoreEntryChecksum && cs.checksum != entry.Checksum {
		return nil, fmt.Errorf("%w: entry %d expected %d but got %d", ErrEntryChecksum, entry.Index, entry.Checksum, cs.checksum)
	}

	return buf, nil
}

// ResolveNames returns indexed entries with Name set from decoded content.
// Entries whose name cannot be detected keep an empty Name.
func (a *Archive) ResolveNames(ctx context.Context) ([]EntryInfo, error) {
	entries := a.Entries()
	if err := a.resolveNames(ctx, entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// resolveNames sets Name of each entry in place.
func (a *Archive) resolveNames(ctx context.Context, entries []EntryInfo) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		name, err := a.detectEntryName(&entries[i])
		if err != nil {
			return err
		}

		entries[i].Name = name
	}

	return nil
}

// detectEntryName decodes bounded content prefix and detects entry name.
// It returns empty name without error when no pattern matches.
func (a *Archive) detectEntryName(entry *EntryInfo) (string, error) {
	prefix, err := a.readNamePrefix(entry)
	if err != nil {
		return "", err
	}
	if len(prefix) == 0 {
		return "", nil
	}

	name, err := detectNameBytes(prefix)
	if err != nil {
		return "", nil
	}

	return name, nil
}

// readNamePrefix decodes at most nameProbeSize bytes of entry content.
// A zlib stream cut short still yields the prefix decoded before the cut.
func (a *Archive) readNamePrefix(entry *EntryInfo) ([]byte, error) {
	compressed, err := a.ReadCompressed(*entry)
	if err != nil {
		return nil, err
	}
	if len(compressed) == 0 {
		return nil, nil
	}

	prefix, err := decompressLimited(bytes.NewReader(compressed), nameProbeSize)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: entry %d: %w", ErrCorruptEntry, entry.Index, err)
	}

	return prefix, nil
}

// resolveEntry maps caller-provided metadata to indexed entry with generator snapshot.
func (a *Archive) resolveEntry(info EntryInfo) (*EntryInfo, error) {
	if a == nil || a.ra == nil {
		return nil, ErrNilReader
	}

	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	if info.Index < 0 || info.Index >= len(a.entries) {
		return nil, fmt.Errorf("%w: index %d", ErrEntryNotFound, info.Index)
	}

	entry := &a.entries[info.Index]
	if info.Offset != 0 && info.Offset != entry.Offset {
		return nil, fmt.Errorf("%w: index %d at offset %d", ErrEntryNotFound, info.Index, info.Offset)
	}

	return entry, nil
}

// decodeEntry decodes one indexed entry with its own generator copy.
func (a *Archive) decodeEntry(dst io.Writer, entry *EntryInfo, opts ReaderOptions) (int64, error) {
	size := int64(entry.CompressedSize)
	sr := io.NewSectionReader(a.ra, entry.DataOffset(), size)
	br := bufio.NewReaderSize(sr, int(min(max(size, 16), int64(opts.ReadBufferSize))))

	hdr := entryHeader{
		compressedSize:   entry.CompressedSize,
		decompressedSize: entry.DecompressedSize,
		checksum:         entry.Checksum,
	}

	n, err := decodeEntryPayload(dst, br, entry.rnd.clone(), hdr, opts)
	if err != nil {
		return n, fmt.Errorf("entry %d: %w", entry.Index, err)
	}

	return n, nil
}

// scan reads global header and indexes entry headers, recording generator snapshot per entry.
func (a *Archive) scan() error {
	if a.size < globalHeaderSize {
		return fmt.Errorf("%w: size %d", ErrInvalidHeader, a.size)
	}

	sr := io.NewSectionReader(a.ra, 0, a.size)
	br := archiveScanReaderPool.Get().(*bufio.Reader) //nolint:forcetypeassert // pool contains only *bufio.Reader
	br.Reset(sr)
	defer func() {
		br.Reset(bytes.NewReader(nil))
		archiveScanReaderPool.Put(br)
	}()

	seed, rnd, err := readGlobalHeader(br, a.key, a.opts)
	if err != nil {
		return err
	}
	a.seed = seed

	off := int64(globalHeaderSize)
	a.entries = make([]EntryInfo, 0, estimateEntryCapacity(a.size-off))
	for off < a.size {
		if a.size-off < entryHeaderSize {
			return fmt.Errorf("%w: entry %d header truncated at offset %d", ErrInvalidEntryOffset, len(a.entries), off)
		}

		hdr, err := readEntryHeader(br, rnd)
		if err != nil {
			return fmt.Errorf("entry %d: %w", len(a.entries), err)
		}

		dataOffset := off + entryHeaderSize
		end := dataOffset + int64(hdr.compressedSize)
		if end > a.size {
			return fmt.Errorf("%w: entry %d payload [%d, %d) exceeds size %d", ErrInvalidEntryOffset, len(a.entries), dataOffset, end, a.size)
		}

		a.entries = append(a.entries, EntryInfo{
			Index:            len(a.entries),
			Offset:           off,
			CompressedSize:   hdr.compressedSize,
			DecompressedSize: hdr.decompressedSize,
			Checksum:         hdr.checksum,
			rnd:              rnd.clone(),
		})

		if _, err := br.Discard(int(hdr.compressedSize)); err != nil {
			return fmt.Errorf("skip entry %d payload: %w", len(a.entries)-1, err)
		}
		rnd.Skip(payloadDraws(hdr.compressedSize))
		off = end
	}

	return nil
}

// estimateEntryCapacity returns a conservative initial capacity for indexed entry metadata.
func estimateEntryCapacity(remainingBytes int64) int {
	if remainingBytes <= 0 {
		return 0
	}

	const (
		minCap = 16
		maxCap = 8192
		// remainingBytes includes payloads, so keep estimate intentionally conservative.
		avgEntryBytes = 2048
	)

	return int(min(max(remainingBytes/avgEntryBytes, minCap), maxCap))
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open SWZ: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
