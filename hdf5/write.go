package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/go-nexus/internal/message"
	"github.com/robert-malhotra/go-nexus/internal/object"
)

func (f *File) checkWritable() error {
	switch {
	case f.closed:
		return ErrClosed
	case !f.writable || f.image != nil:
		return ErrReadOnly
	}
	return nil
}

// Bytes finalizes the file and returns its encoded image. Object headers are
// written children first so every hard link knows its target address; the
// superblock is written last. After Bytes the file can still be read but no
// longer modified. Repeated calls return the same image.
func (f *File) Bytes() ([]byte, error) {
	if f.image != nil {
		return f.image, nil
	}
	if f.closed {
		return nil, ErrClosed
	}
	if !f.writable {
		return nil, ErrReadOnly
	}

	if err := f.writeGroup(f.root); err != nil {
		return nil, err
	}
	if err := f.allocator.Validate(); err != nil {
		return nil, fmt.Errorf("finalizing: %w", err)
	}

	f.superblock.RootGroupAddress = f.root.addr
	f.superblock.EOFAddress = f.allocator.EOFAddr()
	f.buf.Truncate(int(f.superblock.EOFAddress))
	if _, err := f.superblock.Write(f.writer.At(0)); err != nil {
		return nil, fmt.Errorf("writing superblock: %w", err)
	}
	f.image = f.buf.Bytes()
	return f.image, nil
}

func (f *File) writeGroup(g *Group) error {
	links := make([]*message.Link, 0, len(g.members))
	for _, m := range g.members {
		switch {
		case m.group != nil:
			if err := f.writeGroup(m.group); err != nil {
				return err
			}
			links = append(links, message.NewHardLink(m.name, m.group.addr))
		case m.dataset != nil:
			if err := f.writeDataset(m.dataset); err != nil {
				return err
			}
			links = append(links, message.NewHardLink(m.name, m.dataset.addr))
		case m.soft:
			links = append(links, message.NewSoftLink(m.name, m.target))
		default:
			links = append(links, message.NewHardLink(m.name, m.addr))
		}
	}

	msgs := object.NewGroupHeader(links)
	for _, a := range g.attrs {
		msgs = append(msgs, a)
	}
	addr, err := f.writeHeader(g.path, msgs, object.MinGroupChunkSize)
	if err != nil {
		return err
	}
	g.addr = addr
	return nil
}

func (f *File) writeDataset(d *Dataset) error {
	msgs := object.NewDatasetHeader(d.dataspace, d.datatype, d.storage)
	for _, a := range d.attrs {
		msgs = append(msgs, a)
	}
	addr, err := f.writeHeader(d.path, msgs, 0)
	if err != nil {
		return err
	}
	d.addr = addr
	return nil
}

func (f *File) writeHeader(path string, msgs []message.Serializable, minChunk int) (uint64, error) {
	size := object.HeaderSizeWithMinChunk(f.writer, msgs, minChunk)
	addr := f.allocator.AllocTagged(uint64(size), path)
	if _, err := object.WriteHeaderWithMinChunk(f.writer.At(int64(addr)), msgs, minChunk); err != nil {
		return 0, fmt.Errorf("writing header of %s: %w", path, err)
	}
	return addr, nil
}
