// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

/*
Package swz provides read, extract, pack, and edit operations for SWZ
containers: encrypted, zlib-compressed bundles of UTF-8 text assets.

A container is an 8-byte header followed by entries until end of file:

	Container    := GlobalHeader Entry*
	GlobalHeader := key_checksum:u32 seed:u32
	Entry        := compressed_size:u32 decompressed_size:u32 checksum:u32 payload

All integers are big-endian. Both size fields are masked with generator
draws, and payload is zlib data XORed with generator keystream. The
generator is seeded with seed^key, so every entry depends on every
previous one: entries are decoded strictly in order unless the
container is indexed first (see Archive).

Key checksum and entry checksums are validated by default. ReaderOptions
relaxes each check individually; relaxed checks still consume the same
generator draws, so later entries stay decodable.

# Reading

Stream entries in container order:

	r, err := swz.Open("Game.swz", key)
	if err != nil {
	    return err
	}
	defer r.Close()
	for r.HasNext() {
	    text, err := r.ReadText()
	    if err != nil {
	        return err
	    }
	    // use text
	}

Index once for random access and parallel decoding:

	a, err := swz.OpenArchive("Game.swz", key)
	if err != nil {
	    return err
	}
	defer a.Close()
	entries, err := a.ResolveNames(ctx)
	if err != nil {
	    return err
	}
	data, err := a.ReadEntry(entries[3])

Entries carry no stored names. Names are detected from content by
DetectName: level descriptors are named after their level, XML documents
after their root element, and CSV tables after their first line.

For metadata-only scans, use helpers without keeping an archive open:

	hdr, err := swz.ReadHeader("Game.swz")
	if err != nil {
	    return err
	}
	if !hdr.MatchesKey(key) {
	    return swz.ErrKeyChecksum
	}
	entries, err := swz.ListEntriesWithOptions(ctx, "Game.swz", key, swz.ListOptions{
	    NamePrefix: "Level",
	    SkipEmpty:  true,
	})

# Extracting

	err = a.Extract(ctx, "out", swz.ExtractOptions{
	    MaxWorkers:    4,
	    FallbackNames: true,
	    Include: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "*.xml"},
	    },
	})

Output names are sanitized and deduplicated in entry order with "~N"
suffixes, so results are deterministic for any worker count.

# Writing

	w, err := swz.Create("Game.swz", key, seed)
	if err != nil {
	    return err
	}
	if err := w.WriteText(text); err != nil {
	    _ = w.Close()
	    return err
	}
	return w.Close()

Pack whole directory, optionally selecting files with include rules:

	res, err := swz.PackDir(ctx, "Game.swz", "src", swz.PackOptions{
	    Key:  key,
	    Seed: seed,
	})

# Editing

	ed, err := swz.OpenEditor("Game.swz", key, swz.EditOptions{BackupKeep: 1})
	if err != nil {
	    return err
	}
	_ = ed.Delete("OldLevel.xml")
	_ = ed.Replace(swz.Input{Path: "LevelTypes.xml", Open: openFn})
	res, err := ed.Commit(ctx)

Commit re-encrypts kept entries from their compressed bytes, so their
payload is byte-identical after decryption. The source seed is kept unless
EditOptions.Seed is set.
*/
package swz
