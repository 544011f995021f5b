// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import "math/bits"

const (
	// keyChecksumInit is the starting accumulator for key verification rounds.
	keyChecksumInit = 0x2DF4A1CD
	// keyChecksumRoundsMod and keyChecksumRoundsBase define round count as key%mod+base.
	keyChecksumRoundsMod  = 31
	keyChecksumRoundsBase = 5
)

// KeyChecksumRounds returns number of generator draws consumed by key verification.
func KeyChecksumRounds(key uint32) uint32 {
	return key%keyChecksumRoundsMod + keyChecksumRoundsBase
}

// KeyChecksum computes global header key checksum, drawing KeyChecksumRounds(key) words from rnd.
func KeyChecksum(key uint32, rnd *Random) uint32 {
	checksum := uint32(keyChecksumInit)
	rounds := KeyChecksumRounds(key)
	for i := uint32(0); i < rounds; i++ {
		checksum ^= rnd.Next()
	}

	return checksum
}

// checksumStep folds one plaintext byte at stream position pos into checksum.
func checksumStep(checksum uint32, b byte, pos uint64) uint32 {
	return uint32(b) ^ bits.RotateLeft32(checksum, -int(pos%7+1))
}

// keystreamByte draws one word and returns keystream byte for stream position pos.
func keystreamByte(rnd *Random, pos uint64) byte {
	return byte(rnd.Next() >> (pos % 16))
}

// BufferChecksum folds whole buffer into checksum starting from init at position zero.
func BufferChecksum(buf []byte, init uint32) uint32 {
	checksum := init
	for i, b := range buf {
		checksum = checksumStep(checksum, b, uint64(i))
	}

	return checksum
}

// CipherBuffer applies keystream to buf in place starting at position zero.
// The transform is its own inverse for generators in the same state.
func CipherBuffer(buf []byte, rnd *Random) {
	for i := range buf {
		buf[i] ^= keystreamByte(rnd, uint64(i))
	}
}
