// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"strings"
	"testing"
)

func TestSanitizePathSegment(t *testing.T) {
	t.Parallel()

	longName := strings.Repeat("a", 400)
	gotLong, err := sanitizePathSegment(longName)
	if err != nil {
		t.Fatalf("sanitizePathSegment(long): %v", err)
	}
	if len(gotLong) > maxSanitizedSegmentLen {
		t.Fatalf("len(long)=%d, want <= %d", len(gotLong), maxSanitizedSegmentLen)
	}
	if gotLong == longName {
		t.Fatal("long segment was not shortened")
	}

	testCases := []struct {
		in   string
		want string
	}{
		{in: "CON.txt", want: "_CON.txt"},
		{in: "  COM8.c  ", want: "_COM8.c"},
		{in: "a:b?.txt", want: "a_b_.txt"},
		{in: "name. ", want: "name"},
		{in: "AUX:", want: "AUX_"},
		{in: "CLOCK$.cfg", want: "_CLOCK$.cfg"},
		{in: "...", want: "_"},
		{in: "a\x1b[31m.txt", want: "a_[31m.txt"},
		{in: "name\u009b0m.txt", want: "name_0m.txt"},
		{in: "a\x7fb.txt", want: "a_b.txt"},
		{in: "a\u200fb.txt", want: "a_b.txt"},
		{in: "a\xffb.xml", want: "a_b.xml"},
		{in: "Уровень.xml", want: "Уровень.xml"},
	}

	for _, tc := range testCases {
		got, err := sanitizePathSegment(tc.in)
		if err != nil {
			t.Fatalf("sanitizePathSegment(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("sanitizePathSegment(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsReservedDeviceName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		want bool
	}{
		{name: "con", want: true},
		{name: "con.txt", want: true},
		{name: "CLOCK$", want: true},
		{name: "lpt9.log", want: true},
		{name: "normal.txt", want: false},
		{name: "_con.txt", want: false},
		{name: "console.xml", want: false},
	}

	for _, tc := range testCases {
		got := isReservedDeviceName(tc.name)
		if got != tc.want {
			t.Fatalf("isReservedDeviceName(%q)=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNameResolver_Collisions(t *testing.T) {
	t.Parallel()

	nr := newNameResolver(4)

	testCases := []struct {
		in   string
		want string
	}{
		{in: "a:b.txt", want: "a_b.txt"},
		{in: "a?b.txt", want: "a_b~2.txt"},
		{in: "A_B.txt", want: "A_B~3.txt"},
		{in: "Items.csv", want: "Items.csv"},
		{in: "items.CSV", want: "items~2.CSV"},
	}

	for _, tc := range testCases {
		got, err := nr.Resolve(tc.in)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Resolve(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNameResolver_FlattensUnsafePaths(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{in: `..\evil.txt`, want: "_/evil.txt"},
		{in: "/abs/Level.xml", want: "abs/Level.xml"},
		{in: `C:\Level.xml`, want: "C_/Level.xml"},
		{in: `\\\\\:\`, want: "_"},
	}

	for _, tc := range testCases {
		nr := newNameResolver(1)
		got, err := nr.Resolve(tc.in)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Resolve(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	got, err := SanitizePath(`levels\bad:name.xml`)
	if err != nil {
		t.Fatalf("SanitizePath: %v", err)
	}
	if got != "levels/bad_name.xml" {
		t.Fatalf("SanitizePath=%q, want levels/bad_name.xml", got)
	}

	got, err = SanitizePath("  ")
	if err != nil || got != "" {
		t.Fatalf("SanitizePath(blank)=%q, %v; want empty", got, err)
	}
}

func TestWithNumericSuffix(t *testing.T) {
	t.Parallel()

	if got := withNumericSuffix("Level.xml", 2); got != "Level~2.xml" {
		t.Fatalf("withNumericSuffix=%q, want Level~2.xml", got)
	}

	long := strings.Repeat("b", 300) + ".xml"
	got := withNumericSuffix(long, 12)
	if len(got) > maxSanitizedSegmentLen || !strings.HasSuffix(got, "~12.xml") {
		t.Fatalf("withNumericSuffix(long)=%q (len %d)", got, len(got))
	}
}
