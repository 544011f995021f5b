// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
)

func TestValidCompressionLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level int
		want  bool
	}{
		{level: StoredCompressionLevel, want: true},
		{level: zlib.HuffmanOnly, want: true},
		{level: zlib.DefaultCompression, want: true},
		{level: zlib.NoCompression, want: true},
		{level: zlib.BestSpeed, want: true},
		{level: zlib.BestCompression, want: true},
		{level: zlib.BestCompression + 1, want: false},
		{level: -4, want: false},
	}

	for _, tc := range cases {
		if got := validCompressionLevel(tc.level); got != tc.want {
			t.Fatalf("validCompressionLevel(%d)=%v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestCompressToRoundTrip(t *testing.T) {
	t.Parallel()

	src := strings.Repeat("<Item Name=\"sword\"/>\n", 64)

	var compressed bytes.Buffer
	read, err := compressTo(&compressed, strings.NewReader(src), zlib.BestCompression, make([]byte, 16))
	if err != nil {
		t.Fatalf("compressTo: %v", err)
	}
	if read != int64(len(src)) {
		t.Fatalf("read=%d, want %d", read, len(src))
	}
	if compressed.Len() >= len(src) {
		t.Fatalf("compressed size=%d, want less than %d", compressed.Len(), len(src))
	}

	// zlib header: CM=8, FCHECK makes CMF*256+FLG divisible by 31.
	raw := compressed.Bytes()
	if raw[0]&0x0F != 8 || (uint16(raw[0])<<8|uint16(raw[1]))%31 != 0 {
		t.Fatalf("zlib header=%x, want RFC 1950 header", raw[:2])
	}

	got, err := decompressLimited(bytes.NewReader(raw), int64(len(src))+10)
	if err != nil {
		t.Fatalf("decompressLimited: %v", err)
	}
	if string(got) != src {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(src))
	}
}

func TestDecompressLimited(t *testing.T) {
	t.Parallel()

	var compressed bytes.Buffer
	if _, err := compressTo(&compressed, strings.NewReader("LevelTypes\nAlpha\n"), zlib.DefaultCompression, nil); err != nil {
		t.Fatalf("compressTo: %v", err)
	}

	got, err := decompressLimited(bytes.NewReader(compressed.Bytes()), 10)
	if err != nil {
		t.Fatalf("decompressLimited: %v", err)
	}
	if string(got) != "LevelTypes" {
		t.Fatalf("prefix=%q, want %q", got, "LevelTypes")
	}

	if _, err := decompressLimited(bytes.NewReader([]byte("not zlib")), 10); err == nil {
		t.Fatal("expected error for invalid zlib header")
	}
}
