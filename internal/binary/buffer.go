package binary

import (
	"errors"
	"io"
)

// errNegativeOffset is returned for reads or writes before the start of a buffer.
var errNegativeOffset = errors.New("binary: negative offset")

// Buffer is a growable in-memory byte store implementing io.WriterAt and
// io.ReaderAt. Writes past the end extend the buffer, zero-filling any gap.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a Buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity)}
}

// WriteAt implements io.WriterAt.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	end := int(off) + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, end, max(end, 2*cap(b.buf)))
			copy(grown, b.buf)
			b.buf = grown
		} else {
			old := len(b.buf)
			b.buf = b.buf[:end]
			clear(b.buf[old:])
		}
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// ReadAt implements io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	if off >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Len returns the number of bytes written so far (the highest written offset).
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Bytes returns the buffer contents. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Truncate shrinks or zero-extends the buffer to exactly n bytes.
func (b *Buffer) Truncate(n int) {
	if n <= len(b.buf) {
		b.buf = b.buf[:n]
		return
	}
	_, _ = b.WriteAt(make([]byte, n-len(b.buf)), int64(len(b.buf)))
}
