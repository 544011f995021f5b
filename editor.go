// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Editor accumulates container edit operations and applies them on Commit.
//
// Entries are addressed by their detected content name (see DetectName).
// Kept entries preserve container order and are re-encrypted from their
// stored compressed bytes without recompression; added entries are appended.
type Editor struct {
	path string
	ops  []editOperation
	opts EditOptions
	key  uint32
}

// editOperation stores one staged editor operation.
type editOperation struct {
	inputs []Input
	names  []string
	kind   editOperationKind
}

// editOperationKind identifies staged edit action type.
type editOperationKind uint8

const (
	// editOperationAdd appends new entries and fails on existing name.
	editOperationAdd editOperationKind = iota + 1
	// editOperationReplace rewrites existing entries in place.
	editOperationReplace
	// editOperationDelete removes entries by name.
	editOperationDelete
)

// editItem is one entry of final write plan: either kept source entry or new input.
type editItem struct {
	source *EntryInfo
	input  *Input
	name   string
}

// OpenEditor creates staged editor for file-based container rewrite workflow.
func OpenEditor(path string, key uint32, opts EditOptions) (*Editor, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, ErrInvalidEntryPath
	}

	opts.applyDefaults()

	return &Editor{
		path: trimmedPath,
		key:  key,
		opts: opts,
		ops:  make([]editOperation, 0, 8),
	}, nil
}

// Add schedules appending new entries; Input.Path is the entry name.
// Commit fails when a name already exists.
func (e *Editor) Add(inputs ...Input) error {
	return e.stageInputs(editOperationAdd, inputs)
}

// Replace schedules replacing content of existing entries matched by Input.Path.
func (e *Editor) Replace(inputs ...Input) error {
	return e.stageInputs(editOperationReplace, inputs)
}

// Delete schedules removal of entries with given names.
func (e *Editor) Delete(names ...string) error {
	if e == nil {
		return ErrNilReader
	}

	normalized := make([]string, 0, len(names))
	for _, raw := range names {
		name, err := normalizeInputPath(raw)
		if err != nil {
			return err
		}

		normalized = append(normalized, name)
	}

	if len(normalized) == 0 {
		return nil
	}

	e.ops = append(e.ops, editOperation{
		kind:  editOperationDelete,
		names: normalized,
	})

	return nil
}

// Commit applies all staged operations in one rewrite transaction.
// The original file is moved to backup first and restored on failure.
func (e *Editor) Commit(ctx context.Context) (*PackResult, error) {
	if e == nil {
		return nil, ErrNilReader
	}

	if ctx == nil {
		ctx = context.Background()
	}

	backupPath := e.path + ".bak"
	if err := prepareBackupSlot(backupPath, e.opts.BackupKeep); err != nil {
		return nil, err
	}

	if err := os.Rename(e.path, backupPath); err != nil {
		return nil, fmt.Errorf("move archive to backup: %w", err)
	}

	res, err := e.commitFromBackup(ctx, backupPath)
	if err != nil {
		rollbackErr := rollbackFromBackup(e.path, backupPath)
		if rollbackErr != nil {
			return nil, fmt.Errorf("%w (rollback failed: %w)", err, rollbackErr)
		}

		return nil, err
	}

	if e.opts.BackupKeep == 0 {
		if err := removeIfExists(backupPath); err != nil {
			return nil, fmt.Errorf("remove backup: %w", err)
		}
	}

	return res, nil
}

// stageInputs validates inputs and appends one staged operation.
func (e *Editor) stageInputs(kind editOperationKind, inputs []Input) error {
	if e == nil {
		return ErrNilReader
	}

	normalized := make([]Input, 0, len(inputs))
	for i := range inputs {
		name, err := normalizeInputPath(inputs[i].Path)
		if err != nil {
			return err
		}
		if inputs[i].Open == nil {
			return fmt.Errorf("%w: input %s: Open is nil", ErrUnsupportedOperation, name)
		}

		item := inputs[i]
		item.Path = name
		normalized = append(normalized, item)
	}

	if len(normalized) == 0 {
		return nil
	}

	e.ops = append(e.ops, editOperation{
		kind:   kind,
		inputs: normalized,
	})

	return nil
}

// commitFromBackup writes edited container from backup source.
func (e *Editor) commitFromBackup(ctx context.Context, backupPath string) (*PackResult, error) {
	startedAt := time.Now()

	src, err := OpenArchiveWithOptions(backupPath, e.key, e.opts.Reader)
	if err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}
	defer func() { _ = src.Close() }()

	sourceEntries, err := src.ResolveNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve entry names: %w", err)
	}

	plan, err := buildEditPlan(sourceEntries, e.ops)
	if err != nil {
		return nil, err
	}

	seed := src.Seed()
	if e.opts.Seed != nil {
		seed = *e.opts.Seed
	}

	w, err := CreateWithOptions(e.path, e.key, seed, e.opts.Writer)
	if err != nil {
		return nil, fmt.Errorf("create destination archive: %w", err)
	}

	// Header keeps the file openable even when every entry was deleted.
	if err := w.WriteHeader(); err != nil {
		_ = w.Close()
		return nil, err
	}

	res, writeErr := writeEditPlan(ctx, w, src, plan)
	if writeErr != nil {
		_ = w.Close()
		return nil, writeErr
	}

	if err := w.Flush(); err != nil {
		_ = w.Close()
		return nil, err
	}

	if err := w.file.Sync(); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("sync destination archive: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close destination archive: %w", err)
	}

	res.DataSize = w.Written()
	res.Duration = time.Since(startedAt)
	return res, nil
}

// writeEditPlan writes plan items in order, re-encrypting kept entries.
func writeEditPlan(ctx context.Context, w *Writer, src *Archive, plan []editItem) (*PackResult, error) {
	res := &PackResult{}
	for _, item := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			info EntryInfo
			err  error
		)
		if item.source != nil {
			var compressed []byte
			compressed, err = src.ReadCompressed(*item.source)
			if err != nil {
				return nil, fmt.Errorf("read source entry %d: %w", item.source.Index, err)
			}

			info, err = w.writeCompressedEntry(compressed, item.source.DecompressedSize)
		} else {
			info, err = writePackInput(w, *item.input)
		}
		if err != nil {
			return nil, err
		}

		res.WrittenEntries++
		res.RawBytes += int64(info.DecompressedSize)
		res.CompressedBytes += int64(info.CompressedSize)
	}

	return res, nil
}

// buildEditPlan applies staged operations to source entries and builds final write plan.
func buildEditPlan(sourceEntries []EntryInfo, ops []editOperation) ([]editItem, error) {
	plan := make([]editItem, 0, len(sourceEntries))
	for i := range sourceEntries {
		plan = append(plan, editItem{
			name:   sourceEntries[i].Name,
			source: &sourceEntries[i],
		})
	}

	for _, op := range ops {
		var err error
		switch op.kind {
		case editOperationAdd:
			plan, err = applyEditAdd(plan, op.inputs)
		case editOperationReplace:
			err = applyEditReplace(plan, op.inputs)
		case editOperationDelete:
			plan = applyEditDelete(plan, op.names)
		default:
			err = fmt.Errorf("unknown edit operation kind: %d", op.kind)
		}
		if err != nil {
			return nil, err
		}
	}

	return plan, nil
}

// findEditItems returns plan positions whose name matches name case-insensitively.
func findEditItems(plan []editItem, name string) []int {
	key := nameKey(name)

	var found []int
	for i := range plan {
		if plan[i].name != "" && nameKey(plan[i].name) == key {
			found = append(found, i)
		}
	}

	return found
}

// applyEditAdd appends new entries and fails on existing names.
func applyEditAdd(plan []editItem, inputs []Input) ([]editItem, error) {
	for _, in := range inputs {
		if len(findEditItems(plan, in.Path)) > 0 {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntryPath, in.Path)
		}

		item := in
		plan = append(plan, editItem{name: item.Path, input: &item})
	}

	return plan, nil
}

// applyEditReplace swaps content of existing entries in place.
func applyEditReplace(plan []editItem, inputs []Input) error {
	for _, in := range inputs {
		found := findEditItems(plan, in.Path)
		switch len(found) {
		case 0:
			return fmt.Errorf("%w: %q", ErrEntryNotFound, in.Path)
		case 1:
		default:
			return fmt.Errorf("%w: %q matches %d entries", ErrDuplicateEntryPath, in.Path, len(found))
		}

		item := in
		plan[found[0]] = editItem{name: item.Path, input: &item}
	}

	return nil
}

// applyEditDelete removes every entry with matching name.
func applyEditDelete(plan []editItem, names []string) []editItem {
	for _, name := range names {
		key := nameKey(name)
		kept := plan[:0]
		for _, item := range plan {
			if item.name != "" && nameKey(item.name) == key {
				continue
			}

			kept = append(kept, item)
		}

		plan = kept
	}

	return plan
}

// prepareBackupSlot rotates or removes existing backup generations before new commit.
func prepareBackupSlot(backupPath string, keep int) error {
	if keep <= 1 {
		return removeIfExists(backupPath)
	}

	if err := removeIfExists(fmt.Sprintf("%s.%d", backupPath, keep-1)); err != nil {
		return err
	}

	for i := keep - 2; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", backupPath, i)
		to := fmt.Sprintf("%s.%d", backupPath, i+1)
		if err := renameIfExists(from, to); err != nil {
			return err
		}
	}

	return renameIfExists(backupPath, backupPath+".1")
}

// renameIfExists renames source to destination when source exists.
func renameIfExists(from string, to string) error {
	_, err := os.Stat(from)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", from, err)
	}

	if err := removeIfExists(to); err != nil {
		return err
	}

	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}

	return nil
}

// removeIfExists removes file when present.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("remove %s: %w", path, err)
}

// rollbackFromBackup restores backup on failed commit.
func rollbackFromBackup(path string, backupPath string) error {
	_ = os.Remove(path)

	if err := os.Rename(backupPath, path); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}

	return nil
}
