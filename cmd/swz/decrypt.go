// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
	"github.com/woozymasta/swz"
)

// decryptCommand extracts every entry of a container into a directory.
type decryptCommand struct {
	*pflag.FlagSet

	common     commonFlags
	reader     readerFlags
	include    []string
	mode       string
	workers    int
	fallback   bool
	unbuffered bool
}

func newDecryptCommand() *decryptCommand {
	cmd := &decryptCommand{
		FlagSet: pflag.NewFlagSet("decrypt", pflag.ContinueOnError),
	}

	cmd.common.register(cmd.FlagSet)
	cmd.reader.register(cmd.FlagSet)
	cmd.StringSliceVarP(&cmd.include, "include", "i", nil, "Include name pattern; prefix with ! to exclude")
	cmd.StringVarP(&cmd.mode, "mode", "m", string(swz.ExtractFileModeAuto), "Output file mode: auto, truncate, create_only")
	cmd.IntVarP(&cmd.workers, "workers", "j", 0, "Decode workers (0 means all CPUs)")
	cmd.BoolVar(&cmd.fallback, "fallback-names", true, "Name undetectable entries entry_NNNN.txt")
	cmd.BoolVar(&cmd.unbuffered, "unbuffered", false, "Write output before entry is validated")

	return cmd
}

func (cmd *decryptCommand) Usage() string {
	return "decrypt FILE.swz DIR Extract entries into DIR"
}

func (cmd *decryptCommand) Run(ctx context.Context) error {
	setupLogger(cmd.common.verbose)

	if cmd.NArg() != 2 {
		return errors.New("decrypt: expected container path and output directory")
	}

	key, err := cmd.common.resolveKey(cmd.FlagSet)
	if err != nil {
		return err
	}

	src, dst := cmd.Arg(0), cmd.Arg(1)
	opts := cmd.reader.options()
	opts.Unbuffered = cmd.unbuffered

	a, err := swz.OpenArchiveWithOptions(src, key, opts)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	slog.Info("decrypting", "path", src, "entries", len(a.Entries()), "seed", a.Seed(), "out", dst)

	startedAt := time.Now()
	var (
		files   atomic.Int64
		written atomic.Int64
	)
	err = a.Extract(ctx, dst, swz.ExtractOptions{
		Include:       includeRules(cmd.include),
		FileMode:      swz.ExtractFileMode(strings.ToLower(cmd.mode)),
		MaxWorkers:    cmd.workers,
		FallbackNames: cmd.fallback,
		OnEntryDone: func(entry swz.EntryInfo, n int64, outputPath string) {
			files.Add(1)
			written.Add(n)
			slog.Debug("entry extracted", "index", entry.Index, "name", entry.Name, "size", n, "file", filepath.Base(outputPath))
		},
	})
	if err != nil {
		return err
	}

	slog.Info("decrypted", "files", files.Load(), "bytes", written.Load(), "duration", time.Since(startedAt).Round(time.Millisecond).String())
	return nil
}
