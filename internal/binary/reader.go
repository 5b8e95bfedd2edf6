// Package binary implements the fixed and variable width integer codecs used
// by the HDF5 on-disk format, plus the lookup3 checksum and an in-memory
// buffer that backs file images.
package binary

import (
	"encoding/binary"
	"io"
)

// Config describes how sizes and addresses are encoded in a file.
// OffsetSize and LengthSize are 2, 4 or 8.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// DefaultConfig is little-endian with 8-byte offsets and lengths, the layout
// written by this module and the one needed to bootstrap superblock parsing.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
}

// Reader decodes values from an io.ReaderAt at a moving cursor.
type Reader struct {
	src io.ReaderAt
	cfg Config
	pos int64
}

// NewReader returns a Reader positioned at offset zero.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{src: r, cfg: cfg}
}

// At returns an independent Reader over the same source positioned at offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{src: r.src, cfg: r.cfg, pos: offset}
}

// Config returns the encoding configuration of r.
func (r *Reader) Config() Config { return r.cfg }

// Pos returns the current cursor position.
func (r *Reader) Pos() int64 { return r.pos }

// Skip moves the cursor forward by n bytes.
func (r *Reader) Skip(n int64) { r.pos += n }

// Peek reads n bytes without moving the cursor.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.src.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf, err := r.Peek(n)
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.ReadUintN(1)
	return uint8(v), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.ReadUintN(2)
	return uint16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.ReadUintN(4)
	return uint32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	return r.ReadUintN(8)
}

// ReadUintN reads an n-byte unsigned integer in the configured byte order.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return decodeUint(r.cfg.ByteOrder, buf), nil
}

// ReadOffset reads a file address.
func (r *Reader) ReadOffset() (uint64, error) { return r.ReadUintN(r.cfg.OffsetSize) }

// ReadLength reads a size value.
func (r *Reader) ReadLength() (uint64, error) { return r.ReadUintN(r.cfg.LengthSize) }

// IsUndefinedOffset reports whether v is the all-ones "undefined address".
func (r *Reader) IsUndefinedOffset(v uint64) bool {
	return v == undefined(r.cfg.OffsetSize)
}

func (r *Reader) OffsetSize() int {
	return r.cfg.OffsetSize
}

func (r *Reader) LengthSize() int {
	return r.cfg.LengthSize
}

func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.cfg.ByteOrder
}

func decodeUint(order binary.ByteOrder, buf []byte) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	case 8:
		return order.Uint64(buf)
	}
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

func undefined(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return uint64(1)<<(8*size) - 1
}
