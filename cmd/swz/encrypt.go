// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/pflag"
	"github.com/woozymasta/swz"
)

// encryptCommand packs files of a directory into a container.
type encryptCommand struct {
	*pflag.FlagSet

	common  commonFlags
	include []string
	seed    uint32
	level   int
}

func newEncryptCommand() *encryptCommand {
	cmd := &encryptCommand{
		FlagSet: pflag.NewFlagSet("encrypt", pflag.ContinueOnError),
	}

	cmd.common.register(cmd.FlagSet)
	cmd.StringSliceVarP(&cmd.include, "include", "i", nil, "Include path pattern; prefix with ! to exclude")
	cmd.Uint32VarP(&cmd.seed, "seed", "s", 0, "Container seed stored in header")
	cmd.IntVarP(&cmd.level, "level", "l", swz.DefaultCompressionLevel, "zlib compression level, 0 stores uncompressed")

	return cmd
}

func (cmd *encryptCommand) Usage() string {
	return "encrypt DIR FILE.swz Pack files of DIR into container"
}

func (cmd *encryptCommand) Run(ctx context.Context) error {
	setupLogger(cmd.common.verbose)

	if cmd.NArg() != 2 {
		return errors.New("encrypt: expected input directory and container path")
	}

	key, err := cmd.common.resolveKey(cmd.FlagSet)
	if err != nil {
		return err
	}

	// Explicit --level 0 asks for stored blocks, not library default.
	level := cmd.level
	if level == 0 {
		level = swz.StoredCompressionLevel
	}

	src, dst := cmd.Arg(0), cmd.Arg(1)
	slog.Info("encrypting", "dir", src, "out", dst, "seed", cmd.seed)

	res, err := swz.PackDir(ctx, dst, src, swz.PackOptions{
		Key:     key,
		Seed:    cmd.seed,
		Include: includeRules(cmd.include),
		Writer: swz.WriterOptions{
			CompressionLevel: level,
		},
		OnEntryDone: func(entry swz.PackEntryProgress) {
			slog.Debug("entry packed", "index", entry.Index, "path", entry.Path, "size", entry.DecompressedSize, "stored", entry.CompressedSize)
		},
	})
	if err != nil {
		return err
	}

	slog.Info("encrypted",
		"entries", res.WrittenEntries,
		"skipped", res.SkippedInputs,
		"raw_bytes", res.RawBytes,
		"stored_bytes", res.DataSize,
		"duration", res.Duration.String(),
	)
	return nil
}
