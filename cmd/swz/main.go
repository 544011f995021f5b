// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

// Command swz lists, decrypts, and encrypts SWZ containers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/woozymasta/pathrules"
	"github.com/woozymasta/swz"
)

// keyEnv names environment variable used when --key is not given.
const keyEnv = "SWZ_KEY"

// command is one swz subcommand with its own flag set.
type command interface {
	Parse(arguments []string) error
	Run(ctx context.Context) error
	Usage() string
}

// commonFlags holds options shared by every subcommand.
type commonFlags struct {
	key     uint32
	verbose bool
}

// register adds shared flags to fs.
func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.Uint32VarP(&c.key, "key", "k", 0, "Container key (default from $"+keyEnv+")")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "Log debug details")
}

// resolveKey returns --key when set, otherwise parses $SWZ_KEY.
func (c *commonFlags) resolveKey(fs *pflag.FlagSet) (uint32, error) {
	if fs.Changed("key") {
		return c.key, nil
	}

	raw := strings.TrimSpace(os.Getenv(keyEnv))
	if raw == "" {
		return 0, fmt.Errorf("--key: required parameter missing (or set $%s)", keyEnv)
	}

	key, err := strconv.ParseUint(raw, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("$%s: %w", keyEnv, err)
	}

	return uint32(key), nil
}

// readerFlags holds validation relaxations for reading subcommands.
type readerFlags struct {
	ignoreKeyChecksum   bool
	ignoreEntryChecksum bool
	skipLengthCheck     bool
}

// register adds reader flags to fs.
func (r *readerFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&r.ignoreKeyChecksum, "ignore-key-checksum", false, "Accept header checksum mismatch")
	fs.BoolVar(&r.ignoreEntryChecksum, "ignore-entry-checksum", false, "Accept entry checksum mismatch")
	fs.BoolVar(&r.skipLengthCheck, "skip-length-check", false, "Accept entry size mismatch")
}

// options converts flags into reader options.
func (r *readerFlags) options() swz.ReaderOptions {
	return swz.ReaderOptions{
		IgnoreKeyChecksum:   r.ignoreKeyChecksum,
		IgnoreEntryChecksum: r.ignoreEntryChecksum,
		SkipLengthCheck:     r.skipLengthCheck,
	}
}

// includeRules turns glob patterns into include rules; "!" prefix excludes.
// Leading exclude starts from everything included.
func includeRules(patterns []string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns)+1)
	if len(patterns) > 0 && strings.HasPrefix(patterns[0], "!") {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: "*"})
	}

	for _, pattern := range patterns {
		action := pathrules.ActionInclude
		if rest, ok := strings.CutPrefix(pattern, "!"); ok {
			action = pathrules.ActionExclude
			pattern = rest
		}

		rules = append(rules, pathrules.Rule{Action: action, Pattern: pattern})
	}

	return rules
}

// setupLogger installs text slog handler on stderr.
func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: swz <command> [options] ...\n\nCommands:\n")
	for _, cmd := range []command{newListCommand(), newDecryptCommand(), newEncryptCommand()} {
		fmt.Fprintf(os.Stderr, "  %s\n", cmd.Usage())
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}

	var cmd command
	switch args[0] {
	case "list", "ls":
		cmd = newListCommand()
	case "decrypt", "extract", "x":
		cmd = newDecryptCommand()
	case "encrypt", "pack":
		cmd = newEncryptCommand()
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	if err := cmd.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}

		return err
	}

	return cmd.Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	setupLogger(false)

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("swz failed", "err", err)
		stop()
		os.Exit(1)
	}
}
