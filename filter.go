// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import "strings"

// filterEntriesBySize keeps entries that satisfy min decompressed and compressed size thresholds.
func filterEntriesBySize(entries []EntryInfo, minDecompressedSize uint32, minCompressedSize uint32) []EntryInfo {
	if minDecompressedSize == 0 && minCompressedSize == 0 {
		return entries
	}

	out := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.DecompressedSize < minDecompressedSize {
			continue
		}

		if entry.CompressedSize < minCompressedSize {
			continue
		}

		out = append(out, entry)
	}

	return out
}

// filterEntriesByPrefix keeps entries whose detected name starts with prefix (case-insensitive).
// Entries without detected name never match a non-empty prefix.
func filterEntriesByPrefix(entries []EntryInfo, prefix string) []EntryInfo {
	prefix = strings.ToLower(NormalizePath(prefix))
	if prefix == "" {
		return entries
	}

	out := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.Name == "" {
			continue
		}

		if strings.HasPrefix(nameKey(entry.Name), prefix) {
			out = append(out, entry)
		}
	}

	return out
}

// filterEntriesByInclude keeps entries whose detected name passes include rules.
func filterEntriesByInclude(entries []EntryInfo, matcher *includeMatcher) []EntryInfo {
	if matcher == nil {
		return entries
	}

	out := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.Name == "" || !matcher.Match(entry.Name) {
			continue
		}

		out = append(out, entry)
	}

	return out
}

// filterEmptyEntries removes entries without payload or decoded content.
func filterEmptyEntries(entries []EntryInfo) []EntryInfo {
	if len(entries) == 0 {
		return entries
	}

	filtered := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.CompressedSize == 0 || entry.DecompressedSize == 0 {
			continue
		}

		filtered = append(filtered, entry)
	}

	return filtered
}
