// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"io"
	"time"

	"github.com/klauspost/compress/zlib"
	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	globalHeaderSize = 8                // key checksum + seed
	entryHeaderSize  = 12               // masked sizes + checksum
	maxFieldValue    = 1<<32 - 1        // max value of one u32 size field
	nameProbeSize    = 4 * 1024         // decoded prefix used for name detection
	maxScratchGrow   = 64 * 1024 * 1024 // cap for trusting header sizes when preallocating
)

// Default tuning values.
const (
	DefaultWriteBuffer      = 1024 * 1024
	DefaultReadBuffer       = 64 * 1024
	DefaultCompressionLevel = zlib.BestCompression
)

// StoredCompressionLevel selects zlib stored blocks (zlib.NoCompression).
// Zero CompressionLevel means DefaultCompressionLevel, so level 0 needs its own value.
const StoredCompressionLevel = -3

// EntryInfo describes a single parsed SWZ entry.
type EntryInfo struct {
	// Name is detected file name when known; empty otherwise.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Index is zero-based position of entry in container.
	Index int `json:"index" yaml:"index"`
	// Offset is byte offset of entry header.
	Offset int64 `json:"offset" yaml:"offset"`
	// CompressedSize is stored payload size in bytes.
	CompressedSize uint32 `json:"compressed_size" yaml:"compressed_size"`
	// DecompressedSize is decoded text size in bytes.
	DecompressedSize uint32 `json:"decompressed_size" yaml:"decompressed_size"`
	// Checksum is stored entry checksum.
	Checksum uint32 `json:"checksum" yaml:"checksum"`

	// rnd is generator snapshot positioned at first payload draw.
	rnd *Random
}

// DataOffset returns byte offset of entry payload.
func (e *EntryInfo) DataOffset() int64 {
	return e.Offset + entryHeaderSize
}

// payloadDraws returns generator draws consumed by payload decryption.
func payloadDraws(compressedSize uint32) uint64 {
	if compressedSize == 0 {
		return 0
	}

	// one lazy checksum seed plus one draw per byte
	return uint64(compressedSize) + 1
}

// Input describes one source stream to be packed into an SWZ entry.
type Input struct {
	// Open returns raw source stream for this entry.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Path orders inputs and is matched by include rules; it is not stored in container.
	Path string `json:"path" yaml:"path"`
	// SizeHint is expected size in bytes (zero when unknown).
	SizeHint int64 `json:"size_hint,omitempty" yaml:"size_hint,omitempty"`
}

// PackEntryProgress contains one completed entry write event from pack flow.
type PackEntryProgress struct {
	// Path is input path written to container.
	Path string `json:"path" yaml:"path"`
	// Index is zero-based entry position.
	Index int `json:"index" yaml:"index"`
	// CompressedSize is stored payload size in bytes.
	CompressedSize uint32 `json:"compressed_size" yaml:"compressed_size"`
	// DecompressedSize is source size in bytes.
	DecompressedSize uint32 `json:"decompressed_size" yaml:"decompressed_size"`
	// Checksum is written entry checksum.
	Checksum uint32 `json:"checksum" yaml:"checksum"`
}

// ReaderOptions configures validation relaxations and buffering.
// Toggles never change generator draw counts.
type ReaderOptions struct {
	// IgnoreKeyChecksum accepts containers whose header checksum does not match key.
	IgnoreKeyChecksum bool `json:"ignore_key_checksum,omitempty" yaml:"ignore_key_checksum,omitempty"`
	// IgnoreEntryChecksum accepts entries whose payload checksum does not match.
	IgnoreEntryChecksum bool `json:"ignore_entry_checksum,omitempty" yaml:"ignore_entry_checksum,omitempty"`
	// SkipLengthCheck accepts entries whose sizes disagree with header fields.
	SkipLengthCheck bool `json:"skip_length_check,omitempty" yaml:"skip_length_check,omitempty"`
	// Unbuffered writes decoded bytes to destination before validation completes.
	// A failed entry may leave partial output in destination.
	Unbuffered bool `json:"unbuffered,omitempty" yaml:"unbuffered,omitempty"`
	// ReadBufferSize is buffered source size in bytes.
	ReadBufferSize int `json:"read_buffer_size,omitempty" yaml:"read_buffer_size,omitempty"`
}

// ListOptions configures metadata listing.
type ListOptions struct {
	// Reader configures container validation.
	Reader ReaderOptions `json:"reader,omitzero" yaml:"reader,omitzero"`
	// NamePrefix keeps entries whose detected name starts with prefix.
	NamePrefix string `json:"name_prefix,omitempty" yaml:"name_prefix,omitempty"`
	// Include selects entries by detected name; empty rule set keeps everything.
	Include []pathrules.Rule `json:"include,omitempty" yaml:"include,omitempty"`
	// IncludeMatcherOptions control include rule matching.
	IncludeMatcherOptions pathrules.MatcherOptions `json:"include_matcher_options,omitzero" yaml:"include_matcher_options,omitzero"`
	// MinDecompressedSize drops entries with smaller decoded size.
	MinDecompressedSize uint32 `json:"min_decompressed_size,omitempty" yaml:"min_decompressed_size,omitempty"`
	// MinCompressedSize drops entries with smaller stored payload.
	MinCompressedSize uint32 `json:"min_compressed_size,omitempty" yaml:"min_compressed_size,omitempty"`
	// SkipEmpty drops entries without payload or decoded content.
	SkipEmpty bool `json:"skip_empty,omitempty" yaml:"skip_empty,omitempty"`
}

// WriterOptions configures writer behavior.
type WriterOptions struct {
	// CompressionLevel is zlib level; zero value means DefaultCompressionLevel.
	// Use StoredCompressionLevel for zlib.NoCompression.
	CompressionLevel int `json:"compression_level,omitempty" yaml:"compression_level,omitempty"`
	// WriterBufferSize is buffered sink size in bytes.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
}

// PackOptions configures pack behavior.
type PackOptions struct {
	// OnEntryDone is called after one entry is fully written.
	OnEntryDone func(entry PackEntryProgress) `json:"-" yaml:"-"`
	// Include selects inputs by path; empty rule set includes everything.
	Include []pathrules.Rule `json:"include,omitempty" yaml:"include,omitempty"`
	// IncludeMatcherOptions control include rule matching.
	IncludeMatcherOptions pathrules.MatcherOptions `json:"include_matcher_options,omitzero" yaml:"include_matcher_options,omitzero"`
	// Writer configures compression and buffering.
	Writer WriterOptions `json:"writer,omitzero" yaml:"writer,omitzero"`
	// Key is the container key.
	Key uint32 `json:"key" yaml:"key"`
	// Seed is the per-container seed stored in header.
	Seed uint32 `json:"seed" yaml:"seed"`
}

// PackResult contains pack output statistics.
type PackResult struct {
	// WrittenEntries is number of entries written to container.
	WrittenEntries int `json:"written_entries" yaml:"written_entries"`
	// SkippedInputs is number of inputs rejected by include rules.
	SkippedInputs int `json:"skipped_inputs,omitempty" yaml:"skipped_inputs,omitempty"`
	// DataSize is total bytes written including headers.
	DataSize int64 `json:"data_size" yaml:"data_size"`
	// RawBytes is total source bytes before compression.
	RawBytes int64 `json:"raw_bytes" yaml:"raw_bytes"`
	// CompressedBytes is total payload bytes after compression.
	CompressedBytes int64 `json:"compressed_bytes" yaml:"compressed_bytes"`
	// Duration is end-to-end pack core duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(entry EntryInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// Namer derives output name from decoded content; nil means DetectName.
	Namer func(content []byte) (string, error) `json:"-" yaml:"-"`
	// Include selects entries by resolved name; empty rule set extracts everything.
	Include []pathrules.Rule `json:"include,omitempty" yaml:"include,omitempty"`
	// IncludeMatcherOptions control include rule matching.
	IncludeMatcherOptions pathrules.MatcherOptions `json:"include_matcher_options,omitzero" yaml:"include_matcher_options,omitzero"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// Entries limits extraction to selected metadata list; nil means all entries.
	Entries []EntryInfo `json:"-" yaml:"-"`
	// MaxWorkers is number of decode workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// FallbackNames names undetectable entries "entry_NNNN.txt" instead of failing.
	FallbackNames bool `json:"fallback_names,omitempty" yaml:"fallback_names,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto first tries create-only, then falls back to truncate for existing files.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// valid reports whether mode is one of known extract file modes.
func (mode ExtractFileMode) valid() bool {
	switch mode {
	case ExtractFileModeAuto, ExtractFileModeTruncate, ExtractFileModeCreateOnly:
		return true
	default:
		return false
	}
}

// EditOptions configures file-based container edit flow.
type EditOptions struct {
	// Seed overrides source container seed when set.
	Seed *uint32 `json:"seed,omitempty" yaml:"seed,omitempty"`
	// Reader configures validation of source container.
	Reader ReaderOptions `json:"reader,omitzero" yaml:"reader,omitzero"`
	// Writer configures compression of added and replaced entries.
	Writer WriterOptions `json:"writer,omitzero" yaml:"writer,omitzero"`
	// BackupKeep controls how many backup generations are kept after successful commit.
	// 0 means remove backup, 1 keeps only `<archive>.bak`, N keeps `.bak` + `.bak.1..N-1`.
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
}

// applyDefaults fills zero-valued reader options with defaults.
func (opts *ReaderOptions) applyDefaults() {
	if opts.ReadBufferSize < 16 {
		opts.ReadBufferSize = DefaultReadBuffer
	}
}

// applyDefaults fills zero-valued list options with defaults.
func (opts *ListOptions) applyDefaults() {
	opts.Reader.applyDefaults()
	opts.IncludeMatcherOptions = defaultIncludeMatcherOptions(opts.IncludeMatcherOptions)
}

// applyDefaults fills zero-valued writer options with defaults.
func (opts *WriterOptions) applyDefaults() {
	if opts.CompressionLevel == 0 {
		opts.CompressionLevel = DefaultCompressionLevel
	}

	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}
}

// applyDefaults fills zero-valued pack options with defaults.
func (opts *PackOptions) applyDefaults() {
	opts.Writer.applyDefaults()
	opts.IncludeMatcherOptions = defaultIncludeMatcherOptions(opts.IncludeMatcherOptions)
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeAuto
	}

	if opts.Namer == nil {
		opts.Namer = detectNameBytes
	}

	opts.IncludeMatcherOptions = defaultIncludeMatcherOptions(opts.IncludeMatcherOptions)
}

// applyDefaults fills zero-valued edit options with defaults.
func (opts *EditOptions) applyDefaults() {
	opts.Reader.applyDefaults()
	opts.Writer.applyDefaults()

	if opts.BackupKeep < 0 {
		opts.BackupKeep = 0
	}
}

// defaultIncludeMatcherOptions fills zero-valued include matcher options.
// Include rules are case-insensitive and exclude unmatched paths by default.
func defaultIncludeMatcherOptions(opts pathrules.MatcherOptions) pathrules.MatcherOptions {
	if opts == (pathrules.MatcherOptions{}) {
		return pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.DefaultAction == pathrules.ActionUnknown {
		opts.DefaultAction = pathrules.ActionExclude
	}

	return opts
}
