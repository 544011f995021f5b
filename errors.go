// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import "errors"

// Sentinel errors for SWZ operations. Use errors.Is in callers.
var (
	// ErrInvalidHeader means the container is too short for the global header.
	ErrInvalidHeader = errors.New("invalid SWZ file: missing or short header")
	// ErrKeyChecksum means the global header checksum does not match the key.
	ErrKeyChecksum = errors.New("key checksum mismatch")
	// ErrEntryChecksum means the entry checksum does not match decrypted payload.
	ErrEntryChecksum = errors.New("entry checksum mismatch")
	// ErrSizeMismatch means decompressed or compressed length disagrees with entry header.
	ErrSizeMismatch = errors.New("entry size mismatch")
	// ErrSizeOverflow means a size exceeds the uint32 field or platform int range.
	ErrSizeOverflow = errors.New("size exceeds uint32 field range")
	// ErrCorruptEntry means the entry payload could not be decompressed.
	ErrCorruptEntry = errors.New("corrupt entry payload")
	// ErrUnsupportedOperation means a requested mode or input capability is not supported.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrNameDetection means no known file name pattern matched entry content.
	ErrNameDetection = errors.New("could not detect file name from content")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrClosed means the reader, writer, or resource is already closed.
	ErrClosed = errors.New("reader or resource already closed")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrEmptyInputs means no inputs provided for pack.
	ErrEmptyInputs = errors.New("no inputs provided for pack")
	// ErrInvalidEntryPath means one of input paths is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrDuplicateEntryPath means two inputs or entries resolve to the same name (case-insensitive).
	ErrDuplicateEntryPath = errors.New("duplicate entry path")
	// ErrInvalidExtractPath means entry name is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrInvalidIncludePattern means one or more include rules are invalid.
	ErrInvalidIncludePattern = errors.New("invalid include rules")
	// ErrInvalidEntryOffset means entry payload runs past the end of the container.
	ErrInvalidEntryOffset = errors.New("invalid entry offset")
	// ErrInvalidCompressionLevel means the zlib level is out of range.
	ErrInvalidCompressionLevel = errors.New("invalid compression level")
)
