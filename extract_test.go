// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
)

// extractTestTexts produce detectable, duplicate, and undetectable names.
var extractTestTexts = []string{
	`<LevelDesc AssetDir="Forest" LevelName="Level01">` + "\n</LevelDesc>\n",
	"<Weapons>\n  <Weapon id=\"sword\"/>\n</Weapons>\n",
	"Items\nsword,1\n",
	"plain text without a name",
	"<Weapons>\n  <Weapon id=\"bow\"/>\n</Weapons>\n",
	"",
}

func TestExtract_WritesDetectedNames(t *testing.T) {
	t.Parallel()

	path := writeTestContainer(t, t.TempDir(), "game.swz", testKey, testSeed, extractTestTexts...)
	a, err := OpenArchive(path, testKey)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer func() { _ = a.Close() }()

	var (
		mu   sync.Mutex
		done = map[string]int64{}
	)
	outDir := filepath.Join(t.TempDir(), "out")
	err = a.Extract(context.Background(), outDir, ExtractOptions{
		FallbackNames: true,
		OnEntryDone: func(entry EntryInfo, written int64, _ string) {
			mu.Lock()
			done[entry.Name] = written
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := map[string]string{
		"Level01.xml":    extractTestTexts[0],
		"Weapons.xml":    extractTestTexts[1],
		"Items.csv":      extractTestTexts[2],
		"entry_0003.txt": extractTestTexts[3],
		"Weapons~2.xml":  extractTestTexts[4],
		"entry_0005.txt": extractTestTexts[5],
	}

	got := readTree(t, outDir)
	if len(got) != len(want) {
		t.Fatalf("files=%v, want %d files", sortedKeys(got), len(want))
	}
	for name, content := range want {
		if got[name] != content {
			t.Fatalf("%s=%q, want %q", name, got[name], content)
		}
		if done[name] != int64(len(content)) {
			t.Fatalf("OnEntryDone[%s]=%d, want %d", name, done[name], len(content))
		}
	}
}

func TestExtract_DeterministicAcrossWorkers(t *testing.T) {
	t.Parallel()

	texts := make([]string, 0, 40)
	for i := range 40 {
		texts = append(texts, fmt.Sprintf("<Table%d>\n%s", i%7, strings.Repeat("row\n", i)))
	}
	path := writeTestContainer(t, t.TempDir(), "game.swz", testKey, testSeed, texts...)

	var trees []map[string]string
	for _, workers := range []int{1, 3, 16} {
		a, err := OpenArchive(path, testKey)
		if err != nil {
			t.Fatalf("OpenArchive: %v", err)
		}

		outDir := filepath.Join(t.TempDir(), fmt.Sprintf("w%d", workers))
		err = a.Extract(context.Background(), outDir, ExtractOptions{MaxWorkers: workers})
		_ = a.Close()
		if err != nil {
			t.Fatalf("Extract workers=%d: %v", workers, err)
		}

		trees = append(trees, readTree(t, outDir))
	}

	for i := 1; i < len(trees); i++ {
		if len(trees[i]) != len(trees[0]) {
			t.Fatalf("tree[%d] has %d files, want %d", i, len(trees[i]), len(trees[0]))
		}
		for name, content := range trees[0] {
			if trees[i][name] != content {
				t.Fatalf("tree[%d][%s] differs", i, name)
			}
		}
	}

	// Table0 appears at entries 0, 7, 14, ... and gets suffixes in entry order.
	if trees[0]["Table0~2.xml"] != texts[7] {
		t.Fatalf("Table0~2.xml=%q, want entry 7", trees[0]["Table0~2.xml"])
	}
}

func TestExtract_NameDetectionFailure(t *testing.T) {
	t.Parallel()

	path := writeTestContainer(t, t.TempDir(), "game.swz", testKey, testSeed, extractTestTexts...)
	a, err := OpenArchive(path, testKey)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer func() { _ = a.Close() }()

	err = a.Extract(context.Background(), t.TempDir(), ExtractOptions{})
	if !errors.Is(err, ErrNameDetection) {
		t.Fatalf("Extract err=%v, want %v", err, ErrNameDetection)
	}
}

func TestExtract_IncludeAndSelection(t *testing.T) {
	t.Parallel()

	path := writeTestContainer(t, t.TempDir(), "game.swz", testKey, testSeed, extractTestTexts...)
	a, err := OpenArchive(path, testKey)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer func() { _ = a.Close() }()

	t.Run("include", func(t *testing.T) {
		outDir := t.TempDir()
		err := a.Extract(context.Background(), outDir, ExtractOptions{
			FallbackNames: true,
			Include:       includeRules("weapons*.xml"),
		})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}

		got := sortedKeys(readTree(t, outDir))
		if strings.Join(got, ",") != "Weapons.xml,Weapons~2.xml" {
			t.Fatalf("files=%v, want Weapons.xml and Weapons~2.xml", got)
		}
	})

	t.Run("entries", func(t *testing.T) {
		outDir := t.TempDir()
		err := a.Extract(context.Background(), outDir, ExtractOptions{
			Entries: a.Entries()[2:3],
		})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}

		got := sortedKeys(readTree(t, outDir))
		if strings.Join(got, ",") != "Items.csv" {
			t.Fatalf("files=%v, want Items.csv", got)
		}
	})

	t.Run("unknown entry", func(t *testing.T) {
		err := a.Extract(context.Background(), t.TempDir(), ExtractOptions{
			Entries: []EntryInfo{{Index: 99}},
		})
		if !errors.Is(err, ErrEntryNotFound) {
			t.Fatalf("Extract err=%v, want %v", err, ErrEntryNotFound)
		}
	})
}

func TestExtract_CustomNamer(t *testing.T) {
	t.Parallel()

	path := writeTestContainer(t, t.TempDir(), "game.swz", testKey, testSeed, "one", "two")
	a, err := OpenArchive(path, testKey)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer func() { _ = a.Close() }()

	outDir := t.TempDir()
	err = a.Extract(context.Background(), outDir, ExtractOptions{
		Namer: func(content []byte) (string, error) {
			return "text/" + string(content) + ".txt", nil
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got := readTree(t, outDir)
	if got["text/one.txt"] != "one" || got["text/two.txt"] != "two" {
		t.Fatalf("files=%v, want text/one.txt and text/two.txt", sortedKeys(got))
	}
}

func TestExtract_FileModes(t *testing.T) {
	t.Parallel()

	path := writeTestContainer(t, t.TempDir(), "game.swz", testKey, testSeed, "<Weapons>\nnew\n")
	a, err := OpenArchive(path, testKey)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer func() { _ = a.Close() }()

	for _, mode := range []ExtractFileMode{ExtractFileModeAuto, ExtractFileModeTruncate, ExtractFileModeCreateOnly} {
		t.Run(string(mode), func(t *testing.T) {
			outDir := t.TempDir()
			existing := filepath.Join(outDir, "Weapons.xml")
			if err := os.WriteFile(existing, []byte("old content that is longer"), 0o600); err != nil {
				t.Fatalf("write existing: %v", err)
			}

			err := a.Extract(context.Background(), outDir, ExtractOptions{FileMode: mode})
			if mode == ExtractFileModeCreateOnly {
				if !errors.Is(err, fs.ErrExist) {
					t.Fatalf("Extract err=%v, want %v", err, fs.ErrExist)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}

			data, err := os.ReadFile(existing)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if string(data) != "<Weapons>\nnew\n" {
				t.Fatalf("content=%q, want rewritten entry", data)
			}
		})
	}

	bogusDir := filepath.Join(t.TempDir(), "out")
	if err := a.Extract(context.Background(), bogusDir, ExtractOptions{FileMode: "bogus"}); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("Extract with unknown file mode err=%v, want %v", err, ErrUnsupportedOperation)
	}
	if _, err := os.Stat(bogusDir); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("output dir stat err=%v, want %v", err, fs.ErrNotExist)
	}
	if _, err := openExtractFile(filepath.Join(t.TempDir(), "x"), "bogus"); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("openExtractFile err=%v, want %v", err, ErrUnsupportedOperation)
	}
}

func TestExtract_TamperedEntryFails(t *testing.T) {
	t.Parallel()

	data := buildContainer(t, testKey, testSeed, "<Good>\n", "<Bad>\n")
	infos := scanTestEntries(t, data, testKey)
	data[infos[1].DataOffset()+2] ^= 0x08

	path := filepath.Join(t.TempDir(), "game.swz")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write container: %v", err)
	}

	a, err := OpenArchive(path, testKey)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer func() { _ = a.Close() }()

	err = a.Extract(context.Background(), t.TempDir(), ExtractOptions{FallbackNames: true, MaxWorkers: 2})
	if !errors.Is(err, ErrEntryChecksum) {
		t.Fatalf("Extract err=%v, want %v", err, ErrEntryChecksum)
	}
}

func TestExtract_NamesMatchListingForTruncatedStream(t *testing.T) {
	t.Parallel()

	text := "<Weapons>\n  <Weapon id=\"bow\"/>\n</Weapons>\n"
	var compressed bytes.Buffer
	if _, err := compressTo(&compressed, strings.NewReader(text), DefaultCompressionLevel, nil); err != nil {
		t.Fatalf("compressTo: %v", err)
	}
	// Without adler-32 trailer the stream inflates fully, then ends early.
	truncated := compressed.Bytes()[:compressed.Len()-4]

	path := filepath.Join(t.TempDir(), "game.swz")
	w, err := Create(path, testKey, testSeed)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.writeCompressedEntry(truncated, uint32(len(text))); err != nil {
		t.Fatalf("writeCompressedEntry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	a, err := OpenArchive(path, testKey)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer func() { _ = a.Close() }()

	entries, err := a.ResolveNames(context.Background())
	if err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Weapons.xml" {
		t.Fatalf("ResolveNames=%+v, want one Weapons.xml entry", entries)
	}

	name, err := a.probeEntryName(&entries[0], detectNameBytes)
	if err != nil || name != "Weapons.xml" {
		t.Fatalf("probeEntryName=%q, %v, want Weapons.xml", name, err)
	}

	// Naming passes; full decode still reports the broken stream.
	err = a.Extract(context.Background(), t.TempDir(), ExtractOptions{})
	if !errors.Is(err, ErrCorruptEntry) {
		t.Fatalf("Extract err=%v, want %v", err, ErrCorruptEntry)
	}
	if !strings.Contains(err.Error(), "Weapons.xml") {
		t.Fatalf("Extract err=%q, want failure after naming", err)
	}
}

func TestExtract_ClosedAndCancelled(t *testing.T) {
	t.Parallel()

	path := writeTestContainer(t, t.TempDir(), "game.swz", testKey, testSeed, "<A>\n", "<B>\n")

	a, err := OpenArchive(path, testKey)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Extract(ctx, t.TempDir(), ExtractOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Extract(cancelled) err=%v, want %v", err, context.Canceled)
	}

	_ = a.Close()
	if err := a.Extract(context.Background(), t.TempDir(), ExtractOptions{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Extract(closed) err=%v, want %v", err, ErrClosed)
	}
}

func TestRunWorkers_StopsOnFirstError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	var (
		mu    sync.Mutex
		calls int
	)
	err := runWorkers(context.Background(), 2, 100, func(_ context.Context, i int) error {
		mu.Lock()
		calls++
		mu.Unlock()

		if i == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("runWorkers err=%v, want %v", err, boom)
	}
	if calls == 100 {
		t.Fatal("runWorkers did not stop after failure")
	}

	if err := runWorkers(context.Background(), 4, 0, nil); err != nil {
		t.Fatalf("runWorkers(n=0) err=%v, want nil", err)
	}
}

func TestNormalizeExtractEntryPath(t *testing.T) {
	t.Parallel()

	valid := map[string]string{
		"Level.xml":        "Level.xml",
		`levels\Level.xml`: "levels/Level.xml",
		"./a//b/./c.csv":   "a/b/c.csv",
	}
	for in, want := range valid {
		got, err := normalizeExtractEntryPath(in)
		if err != nil {
			t.Fatalf("normalizeExtractEntryPath(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("normalizeExtractEntryPath(%q)=%q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"", "/etc/passwd", `\x`, "C:/x", "../x", "a/../../x", "a\x00b"} {
		if _, err := normalizeExtractEntryPath(in); !errors.Is(err, ErrInvalidExtractPath) {
			t.Fatalf("normalizeExtractEntryPath(%q) err=%v, want %v", in, err, ErrInvalidExtractPath)
		}
	}
}

// readTree returns slash-separated relative file paths mapped to contents.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()

	out := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}

		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}

	return out
}

// sortedKeys returns sorted map keys.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}
