// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"io"
)

// sectionReader exposes only the next n bytes of a borrowed source.
// It never reads past its budget, so payload consumers cannot observe
// bytes that belong to the next entry.
type sectionReader struct {
	src  io.Reader
	size int64
	read int64
}

// newSectionReader borrows src for exactly size bytes.
func newSectionReader(src io.Reader, size int64) *sectionReader {
	return &sectionReader{src: src, size: size}
}

// Read reads up to remaining budget.
func (s *sectionReader) Read(p []byte) (int, error) {
	remaining := s.size - s.read
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := s.src.Read(p)
	s.read += int64(n)
	if err == io.EOF && s.read < s.size {
		err = io.ErrUnexpectedEOF
	}

	return n, err
}

// ReadByte reads one byte within budget.
func (s *sectionReader) ReadByte() (byte, error) {
	if s.read >= s.size {
		return 0, io.EOF
	}

	if br, ok := s.src.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}

		s.read++
		return b, nil
	}

	var one [1]byte
	if _, err := io.ReadFull(s.src, one[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}

	s.read++
	return one[0], nil
}

// Consumed returns bytes read from section so far.
func (s *sectionReader) Consumed() int64 {
	return s.read
}

// Remaining returns unread budget.
func (s *sectionReader) Remaining() int64 {
	return s.size - s.read
}

// Size returns section budget.
func (s *sectionReader) Size() int64 {
	return s.size
}
