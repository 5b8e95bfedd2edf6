package message

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-nexus/internal/binary"
)

// Type is an HDF5 header message type.
type Type uint16

const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeDataLayout               Type = 0x0008
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
	TypeAttributeInfo            Type = 0x0015
)

// UndefinedAddress is the all-ones address HDF5 uses for "not allocated".
const UndefinedAddress = ^uint64(0)

// Message is implemented by every decoded header message.
type Message interface {
	Type() Type
}

// Serializable is a message that can be written into an object header.
type Serializable interface {
	Message
	Serialize(w *binary.Writer) error
	SerializedSize(w *binary.Writer) int
}

// Parse decodes a message body. Types this package does not model are
// returned as *Unknown.
func Parse(typ Type, data []byte, flags uint8, r *binary.Reader) (Message, error) {
	var (
		msg Message
		err error
	)
	switch typ {
	case TypeDataspace:
		msg, err = parseDataspace(data, r)
	case TypeDatatype:
		msg, err = parseDatatype(data, r)
	case TypeDataLayout:
		msg, err = parseDataLayout(data, r)
	case TypeAttribute:
		msg, err = parseAttribute(data, r)
	case TypeLink:
		msg, err = parseLink(data, r)
	case TypeLinkInfo:
		msg, err = parseLinkInfo(data, r)
	case TypeObjectHeaderContinuation:
		msg, err = ParseContinuation(data, r)
	default:
		return &Unknown{typ: typ, flags: flags, data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("message 0x%04x: %w", uint16(typ), err)
	}
	return msg, nil
}

// Unknown holds the raw body of a message type this package does not decode.
type Unknown struct {
	typ   Type
	flags uint8
	data  []byte
}

func (m *Unknown) Type() Type { return m.typ }

// Data returns the undecoded message body.
func (m *Unknown) Data() []byte { return m.data }

// Continuation points at the next chunk of an object header.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

// ParseContinuation decodes a continuation message.
func ParseContinuation(data []byte, r *binary.Reader) (*Continuation, error) {
	br := within(data, r)
	off, err := br.ReadOffset()
	if err != nil {
		return nil, fmt.Errorf("continuation offset: %w", err)
	}
	length, err := br.ReadLength()
	if err != nil {
		return nil, fmt.Errorf("continuation length: %w", err)
	}
	return &Continuation{Offset: off, Length: length}, nil
}

// within returns a Reader over a message body that shares r's sizes.
func within(data []byte, r *binary.Reader) *binary.Reader {
	return binary.NewReader(bytes.NewReader(data), r.Config())
}

// nameLenWidth returns the flag bits and byte width used to store a name length.
func nameLenWidth(n int) (bits uint8, width int) {
	switch {
	case n <= 0xff:
		return 0, 1
	case n <= 0xffff:
		return 1, 2
	case uint64(n) <= 0xffffffff:
		return 2, 4
	default:
		return 3, 8
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
