// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// validCompressionLevel reports whether level is accepted by zlib writer.
func validCompressionLevel(level int) bool {
	return level == StoredCompressionLevel || level == zlib.HuffmanOnly ||
		(level >= zlib.DefaultCompression && level <= zlib.BestCompression)
}

// zlibLevel maps option level to zlib writer level.
func zlibLevel(level int) int {
	if level == StoredCompressionLevel {
		return zlib.NoCompression
	}

	return level
}

// compressTo writes zlib stream of src into dst and returns number of source bytes consumed.
func compressTo(dst io.Writer, src io.Reader, level int, copyBuf []byte) (int64, error) {
	zw, err := zlib.NewWriterLevel(dst, zlibLevel(level))
	if err != nil {
		return 0, fmt.Errorf("create zlib writer: %w", err)
	}

	read, err := io.CopyBuffer(zw, src, copyBuf)
	if err != nil {
		_ = zw.Close()
		return read, err
	}

	if err := zw.Close(); err != nil {
		return read, fmt.Errorf("finish zlib stream: %w", err)
	}

	return read, nil
}

// newDecompressor opens zlib stream over src.
// The returned reader consumes src byte-wise when src implements io.ByteReader.
func newDecompressor(src io.Reader) (io.ReadCloser, error) {
	return zlib.NewReader(src)
}

// decompressLimited decodes at most limit bytes from zlib payload held in memory.
func decompressLimited(compressed io.Reader, limit int64) ([]byte, error) {
	zr, err := newDecompressor(compressed)
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()

	return io.ReadAll(io.LimitReader(zr, limit))
}
