// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"errors"
	"strings"
	"testing"
)

func TestDetectName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{name: "level desc", content: `<LevelDesc AssetDir="Desert" LevelName="Mission_02">` + "\n<Body/>", want: "Mission_02.xml"},
		{name: "level desc wins over root tag", content: `<LevelDesc AssetDir="a" LevelName="b">`, want: "b.xml"},
		{name: "xml root", content: "<LevelTypes>\n  <Type/>\n</LevelTypes>", want: "LevelTypes.xml"},
		{name: "csv first line", content: "Items\nsword,1\n", want: "Items.csv"},
		{name: "unicode level desc", content: `<LevelDesc AssetDir="Пустыня" LevelName="Миссия_02">`, want: "Миссия_02.xml"},
		{name: "unicode xml root", content: "<Données>\n</Données>", want: "Données.xml"},
		{name: "combining mark", content: "Cafe\u0301\nx\n", want: "Cafe\u0301.csv"},
		{name: "digits and connector", content: "Таблица_7\u203Fb\n", want: "Таблица_7\u203Fb.csv"},
		{name: "dash is not word", content: "Items-1\n", wantErr: true},
		{name: "symbol is not word", content: "<Root€>", wantErr: true},
		{name: "xml declaration", content: `<?xml version="1.0"?>` + "\n<Root/>", wantErr: true},
		{name: "root with attributes", content: `<Root id="1">`, wantErr: true},
		{name: "csv header with commas", content: "name,value\n", wantErr: true},
		{name: "leading space", content: " <Root>", wantErr: true},
		{name: "empty", content: "", wantErr: true},
		{name: "no newline", content: "Items", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DetectName(tt.content)
			if tt.wantErr {
				if !errors.Is(err, ErrNameDetection) {
					t.Fatalf("DetectName(%q) err=%v, want %v", tt.content, err, ErrNameDetection)
				}
				return
			}

			if err != nil {
				t.Fatalf("DetectName(%q): %v", tt.content, err)
			}
			if got != tt.want {
				t.Fatalf("DetectName(%q)=%q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestDetectNameBytes_UsesBoundedPrefix(t *testing.T) {
	t.Parallel()

	content := []byte("<Big>\n" + strings.Repeat("x", nameProbeSize*4))
	got, err := detectNameBytes(content)
	if err != nil {
		t.Fatalf("detectNameBytes: %v", err)
	}
	if got != "Big.xml" {
		t.Fatalf("detectNameBytes()=%q, want Big.xml", got)
	}
}

func TestDetectName_ErrorPreviewIsShort(t *testing.T) {
	t.Parallel()

	_, err := DetectName(strings.Repeat("ж", 100))
	if err == nil {
		t.Fatal("DetectName succeeded, want error")
	}
	if len(err.Error()) > 120 {
		t.Fatalf("error message length=%d, want short preview", len(err.Error()))
	}
}

func TestFallbackEntryName(t *testing.T) {
	t.Parallel()

	if got := fallbackEntryName(7); got != "entry_0007.txt" {
		t.Fatalf("fallbackEntryName(7)=%q, want entry_0007.txt", got)
	}
	if got := fallbackEntryName(12345); got != "entry_12345.txt" {
		t.Fatalf("fallbackEntryName(12345)=%q, want entry_12345.txt", got)
	}
}
