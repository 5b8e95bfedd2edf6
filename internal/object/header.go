package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-nexus/internal/binary"
	"github.com/robert-malhotra/go-nexus/internal/message"
)

var (
	signatureHeader       = []byte("OHDR")
	signatureContinuation = []byte("OCHK")
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
)

const (
	flagSizeMask     = 0x03
	flagTrackOrder   = 0x04
	flagPhaseChange  = 0x10
	flagTimes        = 0x20
	maxContinuations = 1024
)

// Header is a decoded object header.
type Header struct {
	Address  uint64
	Flags    uint8
	Messages []message.Message
}

// Read decodes the object header at addr, verifying its checksum.
func Read(r *binary.Reader, addr uint64) (*Header, error) {
	hr := r.At(int64(addr))
	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}
	if string(sig) != string(signatureHeader) {
		if sig[0] == 1 {
			return nil, fmt.Errorf("%w: version 1 at %d", ErrUnsupportedVersion, addr)
		}
		return nil, fmt.Errorf("%w: bad signature at %d", ErrInvalidHeader, addr)
	}
	prefix, err := hr.ReadBytes(2)
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}
	if prefix[0] != 2 {
		return nil, fmt.Errorf("%w: version %d at %d", ErrUnsupportedVersion, prefix[0], addr)
	}
	h := &Header{Address: addr, Flags: prefix[1]}

	if h.Flags&flagTimes != 0 {
		hr.Skip(16)
	}
	if h.Flags&flagPhaseChange != 0 {
		hr.Skip(4)
	}
	size, err := hr.ReadUintN(1 << (h.Flags & flagSizeMask))
	if err != nil {
		return nil, fmt.Errorf("object header at %d: chunk size: %w", addr, err)
	}
	end := hr.Pos() + int64(size)
	if err := verifyChecksum(r, int64(addr), end); err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}

	pending, err := h.readMessages(hr, end)
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}
	for i := 0; len(pending) > 0; i++ {
		if i == maxContinuations {
			return nil, fmt.Errorf("%w: too many continuation blocks at %d", ErrInvalidHeader, addr)
		}
		c := pending[0]
		pending = pending[1:]
		more, err := h.readContinuation(r, c)
		if err != nil {
			return nil, fmt.Errorf("object header at %d: %w", addr, err)
		}
		pending = append(pending, more...)
	}
	return h, nil
}

func (h *Header) readContinuation(r *binary.Reader, c *message.Continuation) ([]*message.Continuation, error) {
	cr := r.At(int64(c.Offset))
	sig, err := cr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("continuation at %d: %w", c.Offset, err)
	}
	if string(sig) != string(signatureContinuation) {
		return nil, fmt.Errorf("%w: bad continuation signature at %d", ErrInvalidHeader, c.Offset)
	}
	end := int64(c.Offset + c.Length - 4)
	if err := verifyChecksum(r, int64(c.Offset), end); err != nil {
		return nil, fmt.Errorf("continuation at %d: %w", c.Offset, err)
	}
	return h.readMessages(cr, end)
}

// readMessages decodes messages until end and returns any continuations found.
func (h *Header) readMessages(r *binary.Reader, end int64) ([]*message.Continuation, error) {
	var conts []*message.Continuation
	prefix := 4
	if h.Flags&flagTrackOrder != 0 {
		prefix += 2
	}
	for end-r.Pos() >= int64(prefix) {
		typ, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		size, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		flags, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		if h.Flags&flagTrackOrder != 0 {
			r.Skip(2)
		}
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("message type %d: %w", typ, err)
		}
		if message.Type(typ) == message.TypeNIL {
			continue
		}
		msg, err := message.Parse(message.Type(typ), body, flags, r)
		if err != nil {
			return nil, err
		}
		if c, ok := msg.(*message.Continuation); ok {
			conts = append(conts, c)
			continue
		}
		h.Messages = append(h.Messages, msg)
	}
	return conts, nil
}

func verifyChecksum(r *binary.Reader, start, end int64) error {
	if end < start {
		return fmt.Errorf("%w: negative chunk length", ErrInvalidHeader)
	}
	data, err := r.At(start).ReadBytes(int(end - start))
	if err != nil {
		return err
	}
	stored, err := r.At(end).ReadUint32()
	if err != nil {
		return err
	}
	if !binary.VerifyLookup3(data, stored) {
		return ErrChecksumMismatch
	}
	return nil
}

// GetMessage returns the first message of type typ, or nil.
func (h *Header) GetMessage(typ message.Type) message.Message {
	for _, m := range h.Messages {
		if m.Type() == typ {
			return m
		}
	}
	return nil
}

// GetMessages returns every message of type typ in header order.
func (h *Header) GetMessages(typ message.Type) []message.Message {
	var out []message.Message
	for _, m := range h.Messages {
		if m.Type() == typ {
			out = append(out, m)
		}
	}
	return out
}

// Dataspace returns the dataspace message, or nil for groups.
func (h *Header) Dataspace() *message.Dataspace {
	ds, _ := h.GetMessage(message.TypeDataspace).(*message.Dataspace)
	return ds
}

// Datatype returns the datatype message, or nil for groups.
func (h *Header) Datatype() *message.Datatype {
	dt, _ := h.GetMessage(message.TypeDatatype).(*message.Datatype)
	return dt
}

// DataLayout returns the layout message, or nil for groups.
func (h *Header) DataLayout() *message.DataLayout {
	l, _ := h.GetMessage(message.TypeDataLayout).(*message.DataLayout)
	return l
}

// LinkInfo returns the link info message, or nil.
func (h *Header) LinkInfo() *message.LinkInfo {
	li, _ := h.GetMessage(message.TypeLinkInfo).(*message.LinkInfo)
	return li
}

// Links returns the link messages in header order.
func (h *Header) Links() []*message.Link {
	var out []*message.Link
	for _, m := range h.GetMessages(message.TypeLink) {
		out = append(out, m.(*message.Link))
	}
	return out
}

// Attributes returns the attribute messages in header order.
func (h *Header) Attributes() []*message.Attribute {
	var out []*message.Attribute
	for _, m := range h.GetMessages(message.TypeAttribute) {
		out = append(out, m.(*message.Attribute))
	}
	return out
}

// IsGroup reports whether the header describes a group.
func (h *Header) IsGroup() bool {
	return h.GetMessage(message.TypeLinkInfo) != nil ||
		h.GetMessage(message.TypeSymbolTable) != nil ||
		(h.Dataspace() == nil && h.GetMessage(message.TypeLink) != nil)
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.Dataspace() != nil && h.DataLayout() != nil
}
