// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"github.com/woozymasta/swz"
)

// listCommand prints entry metadata and detected names.
type listCommand struct {
	*pflag.FlagSet

	common  commonFlags
	reader  readerFlags
	include []string
	prefix  string
	minSize uint32
	asJSON  bool
	noEmpty bool
}

func newListCommand() *listCommand {
	cmd := &listCommand{
		FlagSet: pflag.NewFlagSet("list", pflag.ContinueOnError),
	}

	cmd.common.register(cmd.FlagSet)
	cmd.reader.register(cmd.FlagSet)
	cmd.StringSliceVarP(&cmd.include, "include", "i", nil, "Include name pattern; prefix with ! to exclude")
	cmd.StringVarP(&cmd.prefix, "prefix", "p", "", "Only names starting with prefix")
	cmd.Uint32Var(&cmd.minSize, "min-size", 0, "Only entries with at least this decoded size")
	cmd.BoolVar(&cmd.noEmpty, "skip-empty", false, "Hide entries without content")
	cmd.BoolVar(&cmd.asJSON, "json", false, "Print JSON instead of table")

	return cmd
}

func (cmd *listCommand) Usage() string {
	return "list FILE.swz        List entries with detected names"
}

func (cmd *listCommand) Run(ctx context.Context) error {
	setupLogger(cmd.common.verbose)

	if cmd.NArg() != 1 {
		return errors.New("list: expected exactly one container path")
	}

	key, err := cmd.common.resolveKey(cmd.FlagSet)
	if err != nil {
		return err
	}

	path := cmd.Arg(0)
	slog.Debug("listing container", "path", path, "prefix", cmd.prefix, "include", cmd.include)

	entries, err := swz.ListEntriesWithOptions(ctx, path, key, swz.ListOptions{
		Reader:              cmd.reader.options(),
		NamePrefix:          cmd.prefix,
		Include:             includeRules(cmd.include),
		MinDecompressedSize: cmd.minSize,
		SkipEmpty:           cmd.noEmpty,
	})
	if err != nil {
		return err
	}

	if cmd.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "INDEX\tOFFSET\tSTORED\tSIZE\tCHECKSUM\t NAME")
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = "-"
		}

		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%08x\t %s\n", e.Index, e.Offset, e.CompressedSize, e.DecompressedSize, e.Checksum, name)
	}

	return tw.Flush()
}
