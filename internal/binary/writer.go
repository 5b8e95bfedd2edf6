package binary

import (
	"encoding/binary"
	"io"
)

// Writer encodes values into an io.WriterAt at a moving cursor.
type Writer struct {
	dst io.WriterAt
	cfg Config
	pos int64
}

// NewWriter returns a Writer positioned at offset zero.
func NewWriter(w io.WriterAt, cfg Config) *Writer {
	return &Writer{dst: w, cfg: cfg}
}

// At returns an independent Writer over the same destination positioned at offset.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{dst: w.dst, cfg: w.cfg, pos: offset}
}

// Pos returns the current cursor position.
func (w *Writer) Pos() int64 { return w.pos }

// WriteBytes writes p at the cursor.
func (w *Writer) WriteBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := w.dst.WriteAt(p, w.pos)
	w.pos += int64(n)
	return err
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

func (w *Writer) WriteUint8(v uint8) error   { return w.WriteUintN(uint64(v), 1) }
func (w *Writer) WriteUint16(v uint16) error { return w.WriteUintN(uint64(v), 2) }
func (w *Writer) WriteUint32(v uint32) error { return w.WriteUintN(uint64(v), 4) }
func (w *Writer) WriteUint64(v uint64) error { return w.WriteUintN(v, 8) }

// WriteUintN writes v as an n-byte unsigned integer in the configured byte order.
func (w *Writer) WriteUintN(v uint64, n int) error {
	buf := make([]byte, n)
	switch n {
	case 1:
		buf[0] = uint8(v)
	case 2:
		w.cfg.ByteOrder.PutUint16(buf, uint16(v))
	case 4:
		w.cfg.ByteOrder.PutUint32(buf, uint32(v))
	case 8:
		w.cfg.ByteOrder.PutUint64(buf, v)
	default:
		for i := range buf {
			buf[i] = byte(v >> (8 * i))
		}
	}
	return w.WriteBytes(buf)
}

// WriteOffset writes a file address.
func (w *Writer) WriteOffset(v uint64) error { return w.WriteUintN(v, w.cfg.OffsetSize) }

// WriteLength writes a size value.
func (w *Writer) WriteLength(v uint64) error { return w.WriteUintN(v, w.cfg.LengthSize) }

// UndefinedOffset is the all-ones address used for "not allocated".
func (w *Writer) UndefinedOffset() uint64 { return undefined(w.cfg.OffsetSize) }

func (w *Writer) OffsetSize() int {
	return w.cfg.OffsetSize
}

func (w *Writer) LengthSize() int {
	return w.cfg.LengthSize
}

func (w *Writer) ByteOrder() binary.ByteOrder {
	return w.cfg.ByteOrder
}
