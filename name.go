// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// namePattern maps content prefix pattern to output file extension.
type namePattern struct {
	re  *regexp.Regexp
	ext string
}

// wordClass matches one Unicode word character: letters, nonspacing marks,
// decimal digits, and connector punctuation. RE2 \w is ASCII only.
const wordClass = `[\p{L}\p{Mn}\p{Nd}\p{Pc}]`

// namePatterns are tried in order; first submatch is file base name.
var namePatterns = []namePattern{
	{re: regexp.MustCompile(`^<LevelDesc AssetDir="` + wordClass + `+" LevelName="(` + wordClass + `+)">`), ext: ".xml"},
	{re: regexp.MustCompile(`^<(` + wordClass + `+)>`), ext: ".xml"},
	{re: regexp.MustCompile(`^(` + wordClass + `+)\n`), ext: ".csv"},
}

// DetectName derives file name from decoded entry content.
// Level descriptors are named by level, XML documents by root element,
// and CSV tables by first line.
func DetectName(content string) (string, error) {
	for _, p := range namePatterns {
		m := p.re.FindStringSubmatch(content)
		if m == nil {
			continue
		}

		return m[1] + p.ext, nil
	}

	return "", fmt.Errorf("%w: %q", ErrNameDetection, namePreview(content))
}

// detectNameBytes is DetectName over a bounded content prefix.
func detectNameBytes(content []byte) (string, error) {
	if len(content) > nameProbeSize {
		content = content[:nameProbeSize]
	}

	return DetectName(string(content))
}

// fallbackEntryName returns synthetic name for entries without detectable name.
func fallbackEntryName(index int) string {
	return fmt.Sprintf("entry_%04d.txt", index)
}

// namePreview returns short printable content prefix for error messages.
func namePreview(content string) string {
	const maxPreview = 32
	if len(content) <= maxPreview {
		return content
	}

	cut := maxPreview
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}

	return content[:cut] + "..."
}
