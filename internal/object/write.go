package object

import (
	"fmt"

	"github.com/robert-malhotra/go-nexus/internal/binary"
	"github.com/robert-malhotra/go-nexus/internal/message"
)

// MinGroupChunkSize is the chunk size h5py reserves for a new group, so that
// small groups written here have the same footprint.
const MinGroupChunkSize = 120

// nilPrefix is the size of a message prefix without creation order.
const nilPrefix = 4

// WriteHeader writes a single-chunk header at w's position and returns its size.
func WriteHeader(w *binary.Writer, messages []message.Serializable) (int64, error) {
	return WriteHeaderWithMinChunk(w, messages, 0)
}

// WriteHeaderWithMinChunk writes a header whose chunk is padded with a NIL
// message to at least minChunk bytes. The chunk size field counts message
// bytes only; the checksum follows the chunk.
func WriteHeaderWithMinChunk(w *binary.Writer, messages []message.Serializable, minChunk int) (int64, error) {
	body, pad, err := chunkLayout(w, messages, minChunk)
	if err != nil {
		return 0, err
	}
	chunk := body + pad
	width := sizeFieldWidth(chunk)

	buf := binary.NewBuffer(6 + width + chunk + 4)
	bw := binary.NewWriter(buf, binary.Config{
		ByteOrder:  w.ByteOrder(),
		OffsetSize: w.OffsetSize(),
		LengthSize: w.LengthSize(),
	})
	if err := bw.WriteBytes(signatureHeader); err != nil {
		return 0, err
	}
	if err := bw.WriteUint8(2); err != nil {
		return 0, err
	}
	if err := bw.WriteUint8(widthFlag(width)); err != nil {
		return 0, err
	}
	if err := bw.WriteUintN(uint64(chunk), width); err != nil {
		return 0, err
	}
	for _, m := range messages {
		if err := writeMessage(bw, m.Type(), m.SerializedSize(bw), m.Serialize); err != nil {
			return 0, err
		}
	}
	if pad > 0 {
		zeros := func(w *binary.Writer) error { return w.WriteZeros(pad - nilPrefix) }
		if err := writeMessage(bw, message.TypeNIL, pad-nilPrefix, zeros); err != nil {
			return 0, err
		}
	}
	if err := bw.WriteUint32(binary.Lookup3Checksum(buf.Bytes())); err != nil {
		return 0, err
	}
	if err := w.WriteBytes(buf.Bytes()); err != nil {
		return 0, err
	}
	return int64(buf.Len()), nil
}

// HeaderSize returns the bytes WriteHeader would write.
func HeaderSize(w *binary.Writer, messages []message.Serializable) int {
	return HeaderSizeWithMinChunk(w, messages, 0)
}

// HeaderSizeWithMinChunk returns the bytes WriteHeaderWithMinChunk would write.
func HeaderSizeWithMinChunk(w *binary.Writer, messages []message.Serializable, minChunk int) int {
	body, pad, err := chunkLayout(w, messages, minChunk)
	if err != nil {
		return 0
	}
	return 6 + sizeFieldWidth(body+pad) + body + pad + 4
}

// chunkLayout returns the message bytes and the NIL padding needed to reach
// minChunk. Padding is never smaller than a NIL message prefix.
func chunkLayout(w *binary.Writer, messages []message.Serializable, minChunk int) (body, pad int, err error) {
	for _, m := range messages {
		n := m.SerializedSize(w)
		if n > 0xffff {
			return 0, 0, fmt.Errorf("%w: message type %d has %d bytes", ErrInvalidHeader, m.Type(), n)
		}
		body += nilPrefix + n
	}
	if body < minChunk {
		pad = max(minChunk-body, nilPrefix)
	}
	return body, pad, nil
}

func writeMessage(w *binary.Writer, typ message.Type, size int, body func(*binary.Writer) error) error {
	if err := w.WriteUint8(uint8(typ)); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(size)); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	start := w.Pos()
	if err := body(w); err != nil {
		return err
	}
	if got := int(w.Pos() - start); got != size {
		return fmt.Errorf("%w: message type %d wrote %d bytes, sized %d", ErrInvalidHeader, typ, got, size)
	}
	return nil
}

func sizeFieldWidth(n int) int {
	switch {
	case n <= 0xff:
		return 1
	case n <= 0xffff:
		return 2
	case uint64(n) <= 0xffffffff:
		return 4
	}
	return 8
}

func widthFlag(width int) uint8 {
	switch width {
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	}
	return 0
}

// NewGroupHeader returns the messages of a group holding links in header order.
func NewGroupHeader(links []*message.Link) []message.Serializable {
	msgs := make([]message.Serializable, 0, len(links)+2)
	msgs = append(msgs, message.NewLinkInfo(), message.NewGroupInfo(len(links)))
	for _, l := range links {
		msgs = append(msgs, l)
	}
	return msgs
}

// NewDatasetHeader returns the messages of a dataset.
func NewDatasetHeader(ds *message.Dataspace, dt *message.Datatype, layout *message.DataLayout) []message.Serializable {
	return []message.Serializable{ds, dt, layout}
}
