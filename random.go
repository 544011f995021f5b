// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

const (
	// randomStateSize is the number of 32-bit words in generator state.
	randomStateSize = 16
	// randomInitMultiplier is the state expansion multiplier used at seeding.
	randomInitMultiplier = 0x6C078965
	// randomTemperMask is the tempering mask applied in every draw.
	randomTemperMask = 0xDA442D24
)

// Random is the deterministic word generator that drives SWZ keystream,
// size masks, and checksum seeds.
//
// A Random value is not safe for concurrent use. Copying a Random value
// yields an independent generator continuing from the same position.
type Random struct {
	state [randomStateSize]uint32
	index int
}

// NewRandom returns a generator seeded with seed.
func NewRandom(seed uint32) *Random {
	r := &Random{}
	r.Reset(seed)
	return r
}

// Reset re-seeds generator in place.
func (r *Random) Reset(seed uint32) {
	r.index = 0
	r.state[0] = seed
	for i := uint32(1); i < randomStateSize; i++ {
		prev := r.state[i-1]
		r.state[i] = i + randomInitMultiplier*(prev^(prev>>30))
	}
}

// Next advances generator and returns next 32-bit word.
func (r *Random) Next() uint32 {
	s := &r.state
	idx := r.index

	a := s[idx]
	b := s[(idx+13)%randomStateSize]
	c := a ^ (a << 16) ^ b ^ (b << 15)
	b = s[(idx+9)%randomStateSize]
	b ^= b >> 11
	s[idx] = b ^ c
	a = s[idx]
	d := a ^ ((a << 5) & randomTemperMask)

	idx = (idx + randomStateSize - 1) % randomStateSize
	a = s[idx]
	s[idx] = a ^ (a << 2) ^ (b << 28) ^ c ^ (c << 18) ^ d
	r.index = idx

	return s[idx]
}

// Skip performs n draws and discards results.
func (r *Random) Skip(n uint64) {
	for ; n > 0; n-- {
		r.Next()
	}
}

// clone returns an independent copy of generator state.
func (r *Random) clone() *Random {
	c := *r
	return &c
}
