// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Pack writes an SWZ container to out from the given inputs.
// Inputs are sorted by normalized path for deterministic output.
func Pack(ctx context.Context, out io.Writer, inputs []Input, opts PackOptions) (*PackResult, error) {
	startedAt := time.Now()

	if out == nil {
		return nil, ErrNilWriter
	}
	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	matcher, err := newIncludeMatcher(opts.Include, opts.IncludeMatcherOptions)
	if err != nil {
		return nil, err
	}

	plan, err := preparePackPlan(inputs)
	if err != nil {
		return nil, err
	}

	w, err := NewWriterWithOptions(out, opts.Key, opts.Seed, opts.Writer)
	if err != nil {
		return nil, err
	}

	// Container stays openable even when include rules skip every input.
	if err := w.WriteHeader(); err != nil {
		return nil, err
	}

	res := &PackResult{}
	for _, in := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !matcher.Match(in.Path) {
			res.SkippedInputs++
			continue
		}

		info, err := writePackInput(w, in)
		if err != nil {
			return nil, err
		}

		res.WrittenEntries++
		res.RawBytes += int64(info.DecompressedSize)
		res.CompressedBytes += int64(info.CompressedSize)

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(PackEntryProgress{
				Path:             in.Path,
				Index:            info.Index,
				CompressedSize:   info.CompressedSize,
				DecompressedSize: info.DecompressedSize,
				Checksum:         info.Checksum,
			})
		}
	}

	if err := w.Flush(); err != nil {
		return nil, err
	}

	res.DataSize = w.Written()
	res.Duration = time.Since(startedAt)
	return res, nil
}

// PackFile writes an SWZ container to outPath.
func PackFile(ctx context.Context, outPath string, inputs []Input, opts PackOptions) (*PackResult, error) {
	f, err := os.OpenFile(outPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create SWZ file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	res, err := Pack(ctx, f, inputs, opts)
	if err != nil {
		return nil, err
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync SWZ file: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close SWZ file: %w", err)
	}
	f = nil

	return res, nil
}

// PackDir writes every regular file under srcDir into SWZ container at outPath.
// Input paths are relative to srcDir and are matched by include rules.
func PackDir(ctx context.Context, outPath string, srcDir string, opts PackOptions) (*PackResult, error) {
	inputs, err := collectDirInputs(srcDir)
	if err != nil {
		return nil, err
	}

	return PackFile(ctx, outPath, inputs, opts)
}

// collectDirInputs walks srcDir and returns one input per regular file.
func collectDirInputs(srcDir string) ([]Input, error) {
	var inputs []Input
	err := filepath.WalkDir(srcDir, func(fullPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, fullPath)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		inputs = append(inputs, Input{
			Path:     filepath.ToSlash(rel),
			SizeHint: info.Size(),
			Open: func() (io.ReadCloser, error) {
				return os.Open(fullPath)
			},
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", srcDir, err)
	}

	return inputs, nil
}

// preparePackPlan normalizes and sorts pack inputs and rejects duplicate paths.
func preparePackPlan(inputs []Input) ([]Input, error) {
	sorted := make([]Input, len(inputs))
	copy(sorted, inputs)

	for i := range sorted {
		normalizedPath, err := normalizeInputPath(sorted[i].Path)
		if err != nil {
			return nil, err
		}

		sorted[i].Path = normalizedPath
		if sorted[i].SizeHint > maxFieldValue {
			return nil, fmt.Errorf("%w: input %s size %d", ErrSizeOverflow, normalizedPath, sorted[i].SizeHint)
		}
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	if err := validateUniqueInputPaths(sorted); err != nil {
		return nil, err
	}

	return sorted, nil
}

// writePackInput opens one input and writes it as one entry.
func writePackInput(w *Writer, in Input) (EntryInfo, error) {
	if in.Open == nil {
		return EntryInfo{}, fmt.Errorf("%w: input %s: Open is nil", ErrUnsupportedOperation, in.Path)
	}

	rc, err := in.Open()
	if err != nil {
		return EntryInfo{}, fmt.Errorf("open input %s: %w", in.Path, err)
	}

	info, writeErr := w.WriteEntryFrom(rc)
	closeErr := rc.Close()
	if writeErr != nil {
		return EntryInfo{}, fmt.Errorf("write input %s: %w", in.Path, writeErr)
	}
	if closeErr != nil {
		return EntryInfo{}, fmt.Errorf("close input %s: %w", in.Path, closeErr)
	}

	return info, nil
}

// validateUniqueInputPaths ensures there are no duplicate input paths (case-insensitive).
func validateUniqueInputPaths(inputs []Input) error {
	seen := make(map[string]string, len(inputs))
	for _, in := range inputs {
		key := nameKey(in.Path)
		if existing, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q conflicts with %q", ErrDuplicateEntryPath, in.Path, existing)
		}

		seen[key] = in.Path
	}

	return nil
}
