package core

// readers.go holds the io.Reader wrappers the loader applies before parsing:
//
//   - BOMSkippingReader drops a leading UTF-8 byte order mark
//   - StreamingUTF8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - CountingReader records how many bytes were consumed
//
// They operate on the stream so a file is never copied just to clean it.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader removes the UTF-8 BOM that Excel and other Windows tools
// prepend to exported CSV files. Without it the first header name would carry
// three invisible bytes and never match a requested column.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		} else if err != nil && err != io.EOF && len(head) == 0 {
			return 0, err
		}
	}
	return r.br.Read(p)
}

// StreamingUTF8Sanitizer replaces each invalid UTF-8 byte with '?'.
//
// A single-byte replacement keeps the output no longer than the input, so
// sanitizing can happen in the caller's buffer. Multi-byte sequences split
// across reads are carried over to the next call.
type StreamingUTF8Sanitizer struct {
	reader  io.Reader
	carry   [utf8.UTFMax]byte
	ncarry  int
	readErr error
}

// NewStreamingUTF8Sanitizer wraps r.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{reader: r}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.readErr != nil && s.ncarry == 0 {
		return 0, s.readErr
	}

	n := copy(p, s.carry[:s.ncarry])
	s.ncarry = 0

	if s.readErr == nil && n < len(p) {
		m, err := s.reader.Read(p[n:])
		n += m
		s.readErr = err
	}
	atEOF := s.readErr != nil

	out := s.sanitizeInPlace(p[:n], atEOF)
	if out == 0 && s.readErr == nil {
		// Only a partial rune so far; ask the caller to read again.
		return 0, nil
	}
	if s.ncarry > 0 {
		return out, nil
	}
	return out, s.readErr
}

// sanitizeInPlace rewrites data so it is valid UTF-8 and returns the new
// length. Unless atEOF, a trailing incomplete sequence is moved to s.carry.
func (s *StreamingUTF8Sanitizer) sanitizeInPlace(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		b := data[read]
		if b < utf8.RuneSelf {
			data[write] = b
			write++
			read++
			continue
		}

		if !atEOF && !utf8.FullRune(data[read:]) {
			s.ncarry = copy(s.carry[:], data[read:])
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// CountingReader tracks the number of bytes read through it.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.BytesRead += int64(n)
	return n, err
}
