// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	relPath string
	relDir  string
	entry   *EntryInfo
}

// Extract writes selected entries to dstDir using names derived from content.
//
// Names are detected in parallel, then sanitized and made unique in entry order,
// so output names do not depend on worker scheduling. Files are written by
// MaxWorkers workers; on failure the first encountered error is returned.
func (a *Archive) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	if a == nil || a.ra == nil {
		return ErrNilReader
	}
	if ctx == nil {
		ctx = context.Background()
	}

	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return ErrClosed
	}

	opts.applyDefaults()
	if !opts.FileMode.valid() {
		return fmt.Errorf("%w: extract file mode %q", ErrUnsupportedOperation, opts.FileMode)
	}

	matcher, err := newIncludeMatcher(opts.Include, opts.IncludeMatcherOptions)
	if err != nil {
		return err
	}

	entries, err := a.selectExtractEntries(opts.Entries)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	workers := extractWorkers(opts.MaxWorkers)

	names := make([]string, len(entries))
	err = runWorkers(ctx, workers, len(entries), func(_ context.Context, i int) error {
		name, err := a.probeEntryName(entries[i], opts.Namer)
		if err == nil {
			names[i] = name
			return nil
		}
		if opts.FallbackNames && errors.Is(err, ErrNameDetection) {
			names[i] = fallbackEntryName(entries[i].Index)
			return nil
		}

		return fmt.Errorf("name entry %d: %w", entries[i].Index, err)
	})
	if err != nil {
		return err
	}

	workItems, err := prepareExtractWorkItems(entries, names, matcher)
	if err != nil {
		return err
	}
	if len(workItems) == 0 {
		return nil
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return err
	}

	return runWorkers(ctx, workers, len(workItems), func(_ context.Context, i int) error {
		return a.extractPreparedEntry(dstRootAbs, workItems[i], opts)
	})
}

// selectExtractEntries resolves caller selection to indexed entries.
func (a *Archive) selectExtractEntries(selected []EntryInfo) ([]*EntryInfo, error) {
	if selected == nil {
		out := make([]*EntryInfo, len(a.entries))
		for i := range a.entries {
			out[i] = &a.entries[i]
		}

		return out, nil
	}

	out := make([]*EntryInfo, 0, len(selected))
	for _, info := range selected {
		entry, err := a.resolveEntry(info)
		if err != nil {
			return nil, err
		}

		out = append(out, entry)
	}

	return out, nil
}

// probeEntryName decodes bounded content prefix and passes it to namer.
func (a *Archive) probeEntryName(entry *EntryInfo, namer func([]byte) (string, error)) (string, error) {
	prefix, err := a.readNamePrefix(entry)
	if err != nil {
		return "", err
	}

	return namer(prefix)
}

// extractWorkers resolves worker count from option value.
func extractWorkers(maxWorkers int) int {
	if maxWorkers > 0 {
		return maxWorkers
	}

	return max(runtime.GOMAXPROCS(0), 1)
}

// runWorkers calls fn for indexes [0, n) on a bounded worker pool and returns first error.
// Remaining work is cancelled after first failure.
func runWorkers(ctx context.Context, workers int, n int, fn func(ctx context.Context, i int) error) error {
	workers = min(max(workers, 1), n)
	if workers == 0 {
		return nil
	}

	taskCh := make(chan int)
	errCh := make(chan error, n)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Go(func() {
			for i := range taskCh {
				if err := ctx.Err(); err != nil {
					errCh <- err
					continue
				}

				if err := fn(ctx, i); err != nil {
					errCh <- err
					cancel()
				}
			}
		})
	}

	cancelled := false
	for i := 0; i < n && !cancelled; i++ {
		select {
		case <-ctx.Done():
			cancelled = true
		case taskCh <- i:
		}
	}

	close(taskCh)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	return ctx.Err()
}

// prepareExtractWorkItems sanitizes names, resolves collisions in entry order, and applies include rules.
func prepareExtractWorkItems(entries []*EntryInfo, names []string, matcher *includeMatcher) ([]extractWorkItem, error) {
	resolver := newNameResolver(len(entries))
	workItems := make([]extractWorkItem, 0, len(entries))
	for i, entry := range entries {
		if !matcher.Match(names[i]) {
			continue
		}

		resolved, err := resolver.Resolve(names[i])
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", entry.Index, err)
		}

		normalizedPath, err := normalizeExtractEntryPath(resolved)
		if err != nil {
			return nil, fmt.Errorf("normalize entry path %s: %w", resolved, err)
		}

		relPath := filepath.FromSlash(normalizedPath)
		relDir := filepath.Dir(relPath)
		if relDir == "." {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{
			entry:   entry,
			relPath: relPath,
			relDir:  relDir,
		})
	}

	return workItems, nil
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, task.relDir)
		key := strings.ToLower(dirPath)
		if _, exists := seen[key]; exists {
			continue
		}

		seen[key] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// extractPreparedEntry decodes one prepared work item into its output file.
func (a *Archive) extractPreparedEntry(dstRootAbs string, task extractWorkItem, opts ExtractOptions) error {
	outPath := filepath.Join(dstRootAbs, task.relPath)

	file, err := openExtractFile(outPath, opts.FileMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", task.relPath, err)
	}

	written, decodeErr := a.decodeEntry(file, task.entry, a.opts)
	closeErr := file.Close()
	if decodeErr != nil {
		return fmt.Errorf("write %s: %w", task.relPath, decodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", task.relPath, closeErr)
	}

	if opts.OnEntryDone != nil {
		entry := *task.entry
		entry.Name = filepath.ToSlash(task.relPath)
		opts.OnEntryDone(entry, written, outPath)
	}

	return nil
}

// openExtractFile opens output path according to selected extract file mode.
func openExtractFile(path string, mode ExtractFileMode) (*os.File, error) {
	switch mode {
	case ExtractFileModeAuto:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil || !os.IsExist(err) {
			return file, err
		}

		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeTruncate:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeCreateOnly:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	default:
		return nil, fmt.Errorf("%w: extract file mode %q", ErrUnsupportedOperation, mode)
	}
}

// normalizeExtractEntryPath normalizes entry path and rejects absolute/traversal inputs.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" || strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}
	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrInvalidExtractPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if hasWindowsAbsDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}
	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, `/`), nil
}

// hasWindowsAbsDrivePrefix reports whether path starts with drive-root prefix like C:/.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 3 {
		return false
	}

	return isASCIIAlpha(path[0]) && path[1] == ':' && path[2] == '/'
}

// isASCIIAlpha reports whether byte is ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
