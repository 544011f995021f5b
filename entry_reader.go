// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
)

// entryCopyBufferSize is per-entry temporary buffer used by decoded payload copy.
const entryCopyBufferSize = 32 * 1024

var (
	// entryScratchPool reuses validation scratch buffers between entry reads.
	entryScratchPool = sync.Pool{
		New: func() any {
			return new(bytes.Buffer)
		},
	}
	// entryCopyBufferPool reuses decoded payload copy buffers.
	entryCopyBufferPool = sync.Pool{
		New: func() any {
			return new([entryCopyBufferSize]byte)
		},
	}
	// errDecodedOverrun means decoded payload continues past declared size.
	errDecodedOverrun = errors.New("decoded payload exceeds declared size")
)

// entryHeader is unmasked entry framing.
type entryHeader struct {
	compressedSize   uint32
	decompressedSize uint32
	checksum         uint32
}

// destinationError marks failures of the caller-provided destination writer.
type destinationError struct {
	err error
}

func (e *destinationError) Error() string { return e.err.Error() }
func (e *destinationError) Unwrap() error { return e.err }

// parseEntryHeader unmasks raw 12-byte entry header.
// Compressed size mask is drawn before decompressed size mask.
func parseEntryHeader(raw []byte, rnd *Random) entryHeader {
	compressedSize := binary.BigEndian.Uint32(raw[0:4]) ^ rnd.Next()
	decompressedSize := binary.BigEndian.Uint32(raw[4:8]) ^ rnd.Next()

	return entryHeader{
		compressedSize:   compressedSize,
		decompressedSize: decompressedSize,
		checksum:         binary.BigEndian.Uint32(raw[8:12]),
	}
}

// readEntryHeader reads and unmasks one entry header from sequential source.
func readEntryHeader(src io.Reader, rnd *Random) (entryHeader, error) {
	var raw [entryHeaderSize]byte
	if _, err := io.ReadFull(src, raw[:]); err != nil {
		if err == io.EOF {
			return entryHeader{}, err
		}

		return entryHeader{}, fmt.Errorf("read entry header: %w", err)
	}

	return parseEntryHeader(raw[:], rnd), nil
}

// acquireEntryScratch returns pooled scratch buffer and release callback.
func acquireEntryScratch(sizeHint int) (*bytes.Buffer, func()) {
	buf := entryScratchPool.Get().(*bytes.Buffer) //nolint:forcetypeassert // pool contains only *bytes.Buffer
	buf.Reset()
	buf.Grow(min(sizeHint, maxScratchGrow))

	return buf, func() {
		buf.Reset()
		entryScratchPool.Put(buf)
	}
}

// acquireEntryCopyBuffer returns reusable copy buffer and release callback.
func acquireEntryCopyBuffer() ([]byte, func()) {
	arr := entryCopyBufferPool.Get().(*[entryCopyBufferSize]byte) //nolint:forcetypeassert // pool contains only fixed-size buffers
	return arr[:], func() {
		entryCopyBufferPool.Put(arr)
	}
}

// decodeEntryPayload reads one entry payload of hdr.compressedSize bytes from src,
// decrypts it with rnd, decompresses it into dst, and validates it per opts.
// On return src is positioned after the payload and rnd after its last draw,
// whether or not validation succeeded, so the caller may continue with next entry.
func decodeEntryPayload(dst io.Writer, src io.Reader, rnd *Random, hdr entryHeader, opts ReaderOptions) (int64, error) {
	outLen, err := checkedUint32ToInt(hdr.decompressedSize)
	if err != nil {
		return 0, fmt.Errorf("decompressed size %d: %w", hdr.decompressedSize, err)
	}
	if _, err := checkedUint32ToInt(hdr.compressedSize); err != nil {
		return 0, fmt.Errorf("compressed size %d: %w", hdr.compressedSize, err)
	}

	out := dst
	var scratch *bytes.Buffer
	if !opts.Unbuffered {
		var release func()
		scratch, release = acquireEntryScratch(outLen)
		defer release()
		out = scratch
	}

	section := newSectionReader(src, int64(hdr.compressedSize))
	dec := newDecryptReader(section, rnd)

	var (
		copied  int64
		copyErr error
	)
	if hdr.compressedSize > 0 {
		copyBuf, releaseCopyBuf := acquireEntryCopyBuffer()
		copied, copyErr = decompressEntry(out, dec, int64(outLen), copyBuf)
		releaseCopyBuf()
	}
	consumed := section.Consumed()

	// Remaining payload still passes through decryptor to keep draws aligned.
	if _, err := io.Copy(io.Discard, dec); err != nil {
		return 0, fmt.Errorf("read entry payload: %w", err)
	}

	var dstErr *destinationError
	if errors.As(copyErr, &dstErr) {
		return copied, fmt.Errorf("write entry: %w", dstErr.err)
	}

	// Payload corruption of any kind surfaces as checksum mismatch first.
	checksum := dec.Checksum()
	if !opts.IgnoreEntryChecksum && checksum != hdr.checksum {
		return copied, fmt.Errorf("%w: expected %d but got %d", ErrEntryChecksum, hdr.checksum, checksum)
	}

	overrun := errors.Is(copyErr, errDecodedOverrun)
	if copyErr != nil && !overrun {
		return copied, fmt.Errorf("%w: %w", ErrCorruptEntry, copyErr)
	}

	if !opts.SkipLengthCheck {
		if overrun {
			return copied, fmt.Errorf("%w: decoded data exceeds declared size %d", ErrSizeMismatch, outLen)
		}
		if copied != int64(outLen) {
			return copied, fmt.Errorf("%w: expected file size %d but it was only %d", ErrSizeMismatch, outLen, copied)
		}
		if consumed != int64(hdr.compressedSize) {
			return copied, fmt.Errorf("%w: expected compressed size %d but decoder consumed %d", ErrSizeMismatch, hdr.compressedSize, consumed)
		}
	}

	if scratch == nil {
		return copied, nil
	}

	written, err := scratch.WriteTo(dst)
	if err != nil {
		return written, fmt.Errorf("write entry: %w", err)
	}

	return written, nil
}

// decompressEntry inflates decrypted payload into dst, copying at most limit bytes.
// It probes one byte past limit so the decoder reaches stream end and
// payloads longer than declared are reported as errDecodedOverrun.
func decompressEntry(dst io.Writer, src io.Reader, limit int64, buf []byte) (int64, error) {
	zr, err := newDecompressor(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = zr.Close() }()

	var written int64
	for written < limit {
		chunk := len(buf)
		if remaining := limit - written; int64(chunk) > remaining {
			chunk = int(remaining)
		}

		n, readErr := zr.Read(buf[:chunk])
		if n > 0 {
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)
			if writeErr != nil {
				return written, &destinationError{err: writeErr}
			}
			if nw != n {
				return written, &destinationError{err: io.ErrShortWrite}
			}
		}

		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}

	var probe [1]byte
	n, err := io.ReadFull(zr, probe[:])
	if n > 0 {
		return written, errDecodedOverrun
	}
	if err != nil && err != io.EOF {
		return written, err
	}

	return written, nil
}

// checkedUint32ToInt converts uint32 to int with platform-safe overflow check.
func checkedUint32ToInt(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, ErrSizeOverflow
	}

	return int(v), nil
}
