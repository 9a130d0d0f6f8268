// Package bytecursor provides a bounds-checked read cursor over an immutable
// byte slice. It never copies or owns the underlying memory.
//
// Seeking clamps instead of failing: a target before the start lands on the
// start, a target past the end lands on the end. Reads return short counts
// at the end of the buffer.
//
//	c := bytecursor.New(buf)
//	c.Seek(512, io.SeekStart)
//	n, _ := c.Read(sector)
package bytecursor

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Cursor is a read position inside buf[start:end].
// Invariant: start <= pos <= end.
type Cursor struct {
	buf   []byte
	start int
	pos   int
	end   int
}

// New returns a cursor positioned at the beginning of buf.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf, end: len(buf)}
}

// Window returns a cursor restricted to buf[off:off+n], both clamped to the
// buffer bounds.
func Window(buf []byte, off, n int) *Cursor {
	off = clamp(off, 0, len(buf))
	end := off + n
	if n < 0 || end > len(buf) {
		end = len(buf)
	}
	return &Cursor{buf: buf, start: off, pos: off, end: end}
}

// Seek moves the cursor relative to whence (io.SeekStart, io.SeekCurrent,
// io.SeekEnd) and returns the new position relative to the window start.
// Out-of-range targets are clamped; only an unknown whence is an error.
func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = int64(c.start)
	case io.SeekCurrent:
		base = int64(c.pos)
	case io.SeekEnd:
		base = int64(c.end)
	default:
		return c.Tell(), fmt.Errorf("bytecursor: invalid whence %d", whence)
	}
	target := base + offset
	switch {
	case target < int64(c.start):
		target = int64(c.start)
	case target > int64(c.end):
		target = int64(c.end)
	}
	c.pos = int(target)
	return c.Tell(), nil
}

// Read copies up to len(p) bytes and advances the cursor. It returns io.EOF
// only when nothing could be read.
func (c *Cursor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if c.pos >= c.end {
		return 0, io.EOF
	}
	n := copy(p, c.buf[c.pos:c.end])
	c.pos += n
	return n, nil
}

// Next returns a view of the next n bytes (fewer at the end) and advances.
func (c *Cursor) Next(n int) []byte {
	if n < 0 {
		n = 0
	}
	stop := c.pos + n
	if stop > c.end || stop < c.pos {
		stop = c.end
	}
	b := c.buf[c.pos:stop]
	c.pos = stop
	return b
}

// Tell returns the position relative to the window start.
func (c *Cursor) Tell() int64 { return int64(c.pos - c.start) }

// EOF reports whether the cursor sits at the end of its window.
func (c *Cursor) EOF() bool { return c.pos >= c.end }

// Len returns the window length.
func (c *Cursor) Len() int { return c.end - c.start }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return c.end - c.pos }

// Uint16 reads a little-endian uint16 at the cursor. ok is false when fewer
// than two bytes remain; the cursor does not move in that case.
func (c *Cursor) Uint16() (v uint16, ok bool) {
	if c.Remaining() < 2 {
		return 0, false
	}
	v = binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, true
}

// Uint32 reads a little-endian uint32 at the cursor.
func (c *Cursor) Uint32() (v uint32, ok bool) {
	if c.Remaining() < 4 {
		return 0, false
	}
	v = binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, true
}

// Int32 reads a little-endian int32 at the cursor.
func (c *Cursor) Int32() (int32, bool) {
	v, ok := c.Uint32()
	return int32(v), ok
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
