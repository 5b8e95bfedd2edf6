package message

import (
	"fmt"

	"github.com/robert-malhotra/go-nexus/internal/binary"
)

// DatatypeClass is the class nibble of a datatype message.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

func (c DatatypeClass) String() string {
	names := [...]string{"fixed-point", "float", "time", "string", "bitfield",
		"opaque", "compound", "reference", "enum", "variable-length", "array"}
	if int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ByteOrder of numeric types.
type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

// StringPadding is how unused bytes of a fixed-length string are filled.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

// CharacterSet of a string datatype.
type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Datatype describes the element type of a dataset or attribute (type 0x0003).
type Datatype struct {
	Class     DatatypeClass
	Version   uint8
	ClassBits uint32
	Size      uint32

	ByteOrder ByteOrder

	// Fixed-point.
	Signed       bool
	BitOffset    uint16
	BitPrecision uint16

	// String.
	StringPadding StringPadding
	CharSet       CharacterSet

	// Enum.
	Base       *Datatype
	EnumNames  []string
	EnumValues [][]byte

	// Float properties, or the raw properties of classes not decoded here.
	Properties []byte
}

func (m *Datatype) Type() Type { return TypeDatatype }

func (m *Datatype) IsInteger() bool { return m.Class == ClassFixedPoint }
func (m *Datatype) IsFloat() bool   { return m.Class == ClassFloatPoint }
func (m *Datatype) IsString() bool  { return m.Class == ClassString }

// IsBool reports whether m is the FALSE/TRUE enum over a one-byte integer.
func (m *Datatype) IsBool() bool {
	return m.Class == ClassEnum && m.Size == 1 && len(m.EnumNames) == 2 &&
		m.EnumNames[0] == "FALSE" && m.EnumNames[1] == "TRUE"
}

// NewFixedPointDatatype returns an integer datatype of size bytes.
func NewFixedPointDatatype(size uint32, signed bool, order ByteOrder) *Datatype {
	bits := uint32(order)
	if signed {
		bits |= 0x08
	}
	return &Datatype{
		Class:        ClassFixedPoint,
		Version:      1,
		ClassBits:    bits,
		Size:         size,
		ByteOrder:    order,
		Signed:       signed,
		BitPrecision: uint16(size * 8),
	}
}

// NewFloatDatatype returns an IEEE 754 datatype of 4 or 8 bytes.
func NewFloatDatatype(size uint32, order ByteOrder) *Datatype {
	// bit offset, precision, exponent location, exponent size,
	// mantissa location, mantissa size, exponent bias
	props := []byte{0, 0, 64, 0, 52, 11, 0, 52, 0xff, 0x03, 0, 0}
	sign := uint32(63)
	if size == 4 {
		props = []byte{0, 0, 32, 0, 23, 8, 0, 23, 127, 0, 0, 0}
		sign = 31
	}
	// Bit 5 marks an implied leading mantissa bit; byte 1 is the sign position.
	return &Datatype{
		Class:      ClassFloatPoint,
		Version:    1,
		ClassBits:  uint32(order) | 1<<5 | sign<<8,
		Size:       size,
		ByteOrder:  order,
		Properties: props,
	}
}

// NewStringDatatype returns a fixed-length string datatype of size bytes.
func NewStringDatatype(size uint32, padding StringPadding, charset CharacterSet) *Datatype {
	return &Datatype{
		Class:         ClassString,
		Version:       1,
		ClassBits:     uint32(padding) | uint32(charset)<<4,
		Size:          size,
		StringPadding: padding,
		CharSet:       charset,
	}
}

// NewBoolDatatype returns the enum that h5py and NumPy read back as bool.
func NewBoolDatatype() *Datatype {
	return &Datatype{
		Class:      ClassEnum,
		Version:    1,
		ClassBits:  2,
		Size:       1,
		Base:       NewFixedPointDatatype(1, true, OrderLE),
		EnumNames:  []string{"FALSE", "TRUE"},
		EnumValues: [][]byte{{0}, {1}},
	}
}

// Serialize writes the datatype. Only the classes this package constructs
// are supported.
func (m *Datatype) Serialize(w *binary.Writer) error {
	version := m.Version
	if version == 0 {
		version = 1
	}
	if err := w.WriteUint8(uint8(m.Class) | version<<4); err != nil {
		return err
	}
	if err := w.WriteUintN(uint64(m.ClassBits), 3); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Size); err != nil {
		return err
	}

	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		if err := w.WriteUint16(m.BitOffset); err != nil {
			return err
		}
		return w.WriteUint16(m.BitPrecision)
	case ClassFloatPoint:
		if len(m.Properties) != 12 {
			return fmt.Errorf("float datatype: %d property bytes, want 12", len(m.Properties))
		}
		return w.WriteBytes(m.Properties)
	case ClassString:
		return nil
	case ClassEnum:
		if err := m.Base.Serialize(w); err != nil {
			return err
		}
		for _, name := range m.EnumNames {
			if err := w.WriteBytes(padName(name)); err != nil {
				return err
			}
		}
		for _, v := range m.EnumValues {
			if err := w.WriteBytes(v); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("datatype: cannot serialize %s", m.Class)
}

// SerializedSize returns the encoded size in bytes.
func (m *Datatype) SerializedSize(w *binary.Writer) int {
	size := 8
	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		size += 4
	case ClassFloatPoint:
		size += 12
	case ClassEnum:
		size += m.Base.SerializedSize(w)
		for _, name := range m.EnumNames {
			size += len(padName(name))
		}
		size += len(m.EnumValues) * int(m.Base.Size)
	}
	return size
}

// padName null-terminates name and pads it to a multiple of eight bytes.
func padName(name string) []byte {
	n := (len(name) + 8) &^ 7
	buf := make([]byte, n)
	copy(buf, name)
	return buf
}

func parseDatatype(data []byte, r *binary.Reader) (*Datatype, error) {
	br := within(data, r)
	dt, err := decodeDatatype(br)
	if err != nil {
		return nil, err
	}
	if dt.Properties == nil && !dt.decoded() && len(data) > 8 {
		dt.Properties = append([]byte(nil), data[8:]...)
	}
	return dt, nil
}

// decoded reports whether the class properties were consumed by decodeDatatype.
func (m *Datatype) decoded() bool {
	switch m.Class {
	case ClassFixedPoint, ClassBitfield, ClassFloatPoint, ClassString, ClassEnum, ClassReference:
		return true
	}
	return false
}

// decodeDatatype reads one datatype at the cursor. For classes whose
// properties it does not understand it stops after the 8-byte header.
func decodeDatatype(br *binary.Reader) (*Datatype, error) {
	head, err := br.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("datatype header: %w", err)
	}
	dt := &Datatype{
		Class:     DatatypeClass(head[0] & 0x0f),
		Version:   head[0] >> 4,
		ClassBits: uint32(head[1]) | uint32(head[2])<<8 | uint32(head[3])<<16,
		Size:      uint32(head[4]) | uint32(head[5])<<8 | uint32(head[6])<<16 | uint32(head[7])<<24,
	}

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
		dt.Signed = dt.ClassBits&0x08 != 0
		if dt.BitOffset, err = br.ReadUint16(); err != nil {
			return nil, fmt.Errorf("datatype bit offset: %w", err)
		}
		if dt.BitPrecision, err = br.ReadUint16(); err != nil {
			return nil, fmt.Errorf("datatype bit precision: %w", err)
		}
	case ClassFloatPoint:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
		if dt.Properties, err = br.ReadBytes(12); err != nil {
			return nil, fmt.Errorf("float properties: %w", err)
		}
	case ClassString:
		dt.StringPadding = StringPadding(dt.ClassBits & 0x0f)
		dt.CharSet = CharacterSet(dt.ClassBits >> 4 & 0x0f)
	case ClassEnum:
		if err := decodeEnum(br, dt); err != nil {
			return nil, err
		}
	}
	return dt, nil
}

func decodeEnum(br *binary.Reader, dt *Datatype) error {
	base, err := decodeDatatype(br)
	if err != nil {
		return fmt.Errorf("enum base: %w", err)
	}
	dt.Base = base
	count := int(dt.ClassBits & 0xffff)
	dt.EnumNames = make([]string, count)
	for i := range dt.EnumNames {
		var name []byte
		for {
			chunk, err := br.ReadBytes(1)
			if err != nil {
				return fmt.Errorf("enum name %d: %w", i, err)
			}
			if chunk[0] == 0 {
				break
			}
			name = append(name, chunk[0])
		}
		dt.EnumNames[i] = string(name)
		// Versions 1 and 2 pad each terminated name to eight bytes.
		if dt.Version < 3 {
			if rem := (len(name) + 1) % 8; rem != 0 {
				br.Skip(int64(8 - rem))
			}
		}
	}
	dt.EnumValues = make([][]byte, count)
	for i := range dt.EnumValues {
		if dt.EnumValues[i], err = br.ReadBytes(int(base.Size)); err != nil {
			return fmt.Errorf("enum value %d: %w", i, err)
		}
	}
	return nil
}
