package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-nexus/internal/binary"
)

// Signature opens every HDF5 superblock.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock")
)

// Superblock is a decoded version 2 or 3 superblock.
type Superblock struct {
	Version                    uint8
	OffsetSize                 uint8
	LengthSize                 uint8
	FileConsistencyFlags       uint8
	BaseAddress                uint64
	SuperblockExtensionAddress uint64
	EOFAddress                 uint64
	RootGroupAddress           uint64

	// FileOffset is where the signature was found.
	FileOffset int64
}

// NewSuperblock returns a version 3 superblock with 8-byte offsets and lengths.
func NewSuperblock() *Superblock {
	return &Superblock{Version: 3, OffsetSize: 8, LengthSize: 8}
}

// ReaderConfig returns the binary configuration the superblock describes.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Size is the encoded size, checksum included.
func (sb *Superblock) Size() int {
	return 12 + 4*int(sb.OffsetSize) + 4
}

// Read locates and decodes the superblock.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, len(Signature)+1)
	for _, off := range searchOffsets {
		if _, err := r.ReadAt(sig, off); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig[:8], Signature) {
			continue
		}
		if v := sig[8]; v != 2 && v != 3 {
			return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, v)
		}
		return decode(r, off)
	}
	return nil, ErrNotHDF5
}

func decode(r io.ReaderAt, off int64) (*Superblock, error) {
	head := make([]byte, 12)
	if _, err := r.ReadAt(head, off); err != nil {
		return nil, err
	}
	sb := &Superblock{
		Version:              head[8],
		OffsetSize:           head[9],
		LengthSize:           head[10],
		FileConsistencyFlags: head[11],
		FileOffset:           off,
	}
	for _, s := range []uint8{sb.OffsetSize, sb.LengthSize} {
		if s != 2 && s != 4 && s != 8 {
			return nil, fmt.Errorf("%w: field size %d", ErrInvalidSuperblock, s)
		}
	}

	raw := make([]byte, sb.Size())
	if _, err := r.ReadAt(raw, off); err != nil {
		return nil, err
	}
	body := raw[:len(raw)-4]
	if !binpkg.VerifyLookup3(body, binary.LittleEndian.Uint32(raw[len(body):])) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}

	br := binpkg.NewReader(bytes.NewReader(body), sb.ReaderConfig()).At(12)
	for _, dst := range []*uint64{&sb.BaseAddress, &sb.SuperblockExtensionAddress, &sb.EOFAddress, &sb.RootGroupAddress} {
		v, err := br.ReadOffset()
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	return sb, nil
}

// Write encodes the superblock at w's position. An unset extension address
// is written as undefined.
func (sb *Superblock) Write(w *binpkg.Writer) (int64, error) {
	buf := binpkg.NewBuffer(sb.Size())
	bw := binpkg.NewWriter(buf, sb.ReaderConfig())

	if err := bw.WriteBytes(Signature); err != nil {
		return 0, err
	}
	for _, b := range []uint8{max(sb.Version, 2), sb.OffsetSize, sb.LengthSize, sb.FileConsistencyFlags} {
		if err := bw.WriteUint8(b); err != nil {
			return 0, err
		}
	}
	ext := sb.SuperblockExtensionAddress
	if ext == 0 {
		ext = bw.UndefinedOffset()
	}
	for _, addr := range []uint64{sb.BaseAddress, ext, sb.EOFAddress, sb.RootGroupAddress} {
		if err := bw.WriteOffset(addr); err != nil {
			return 0, err
		}
	}
	if err := bw.WriteUint32(binpkg.Lookup3Checksum(buf.Bytes())); err != nil {
		return 0, err
	}
	if err := w.WriteBytes(buf.Bytes()); err != nil {
		return 0, err
	}
	return int64(buf.Len()), nil
}
