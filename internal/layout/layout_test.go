package layout

import (
	"bytes"
	"errors"
	"testing"

	"github.com/robert-malhotra/go-nexus/internal/binary"
	"github.com/robert-malhotra/go-nexus/internal/message"
)

func TestCompact(t *testing.T) {
	ds := message.NewDataspace([]uint64{2}, nil)
	dt := message.NewFixedPointDatatype(2, false, message.OrderLE)

	l, err := New(message.NewCompactLayout([]byte{1, 0, 2, 0}), ds, dt, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Class() != message.LayoutCompact {
		t.Errorf("Class: got %v, want compact", l.Class())
	}

	data, err := l.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := []byte{1, 0, 2, 0}; !bytes.Equal(data, want) {
		t.Errorf("Read: got %v, want %v", data, want)
	}

	short, err := New(message.NewCompactLayout([]byte{1}), ds, dt, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := short.Read(); err == nil {
		t.Error("Read of truncated compact data succeeded")
	}
}

func TestContiguous(t *testing.T) {
	buf := binary.NewBuffer(0)
	if _, err := buf.WriteAt([]byte{9, 8, 7, 6}, 100); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	r := binary.NewReader(buf, binary.DefaultConfig())

	ds := message.NewDataspace([]uint64{4}, nil)
	dt := message.NewFixedPointDatatype(1, false, message.OrderLE)

	l, err := New(message.NewContiguousLayout(100, 4), ds, dt, r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := l.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := []byte{9, 8, 7, 6}; !bytes.Equal(data, want) {
		t.Errorf("Read: got %v, want %v", data, want)
	}

	c := l.(*Contiguous)
	if c.Address() != 100 || c.Size() != 4 {
		t.Errorf("got address %d size %d, want 100 and 4", c.Address(), c.Size())
	}

	// Unallocated data reads as zeros sized by the dataspace.
	unalloc, err := New(message.NewContiguousLayout(message.UndefinedAddress, 0), ds, dt, r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err = unalloc.Read()
	if err != nil {
		t.Fatalf("Read unallocated: %v", err)
	}
	if want := make([]byte, 4); !bytes.Equal(data, want) {
		t.Errorf("Read unallocated: got %v, want %v", data, want)
	}

	past, err := New(message.NewContiguousLayout(1000, 4), ds, dt, r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := past.Read(); err == nil {
		t.Error("Read past the end of file succeeded")
	}
}

func TestChunkedUnsupported(t *testing.T) {
	_, err := New(&message.DataLayout{Version: 4, Class: message.LayoutChunked}, nil, nil, nil)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("chunked: got error %v, want ErrUnsupported", err)
	}

	_, err = New(nil, nil, nil, nil)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("nil layout: got error %v, want ErrUnsupported", err)
	}
}
