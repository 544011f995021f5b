// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// Header is the 8-byte SWZ global header.
type Header struct {
	// KeyChecksum is stored key verification value.
	KeyChecksum uint32 `json:"key_checksum" yaml:"key_checksum"`
	// Seed is per-container seed.
	Seed uint32 `json:"seed" yaml:"seed"`
}

// MatchesKey reports whether header was written with key.
func (h Header) MatchesKey(key uint32) bool {
	return KeyChecksum(key, NewRandom(h.Seed^key)) == h.KeyChecksum
}

// ReadHeader opens SWZ file and returns only its global header.
func ReadHeader(path string) (Header, error) {
	f, _, err := openFileWithSize(path)
	if err != nil {
		return Header{}, err
	}
	defer func() { _ = f.Close() }()

	return ReadHeaderFrom(f)
}

// ReadHeaderFrom reads SWZ global header from src.
func ReadHeaderFrom(src io.Reader) (Header, error) {
	if src == nil {
		return Header{}, ErrNilReader
	}

	var raw [globalHeaderSize]byte
	if _, err := io.ReadFull(src, raw[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
		}

		return Header{}, fmt.Errorf("read header: %w", err)
	}

	return Header{
		KeyChecksum: binary.BigEndian.Uint32(raw[0:4]),
		Seed:        binary.BigEndian.Uint32(raw[4:8]),
	}, nil
}

// ListEntries opens SWZ file and returns entry metadata with detected names.
func ListEntries(ctx context.Context, path string, key uint32) ([]EntryInfo, error) {
	return ListEntriesWithOptions(ctx, path, key, ListOptions{})
}

// ListEntriesWithOptions opens SWZ file and returns filtered entry metadata with detected names.
func ListEntriesWithOptions(ctx context.Context, path string, key uint32, opts ListOptions) ([]EntryInfo, error) {
	opts.applyDefaults()

	matcher, err := newIncludeMatcher(opts.Include, opts.IncludeMatcherOptions)
	if err != nil {
		return nil, err
	}

	a, err := OpenArchiveWithOptions(path, key, opts.Reader)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close() }()

	entries := a.Entries()
	if opts.SkipEmpty {
		entries = filterEmptyEntries(entries)
	}
	entries = filterEntriesBySize(entries, opts.MinDecompressedSize, opts.MinCompressedSize)

	if err := a.resolveNames(ctx, entries); err != nil {
		return nil, err
	}

	entries = filterEntriesByPrefix(entries, opts.NamePrefix)
	return filterEntriesByInclude(entries, matcher), nil
}
