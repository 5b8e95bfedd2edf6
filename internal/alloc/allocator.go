package alloc

import (
	"fmt"
	"sync"
)

// Allocator assigns non-overlapping regions of a file, growing it at the end.
type Allocator struct {
	mu sync.Mutex

	eofAddr  uint64
	baseAddr uint64

	allocations []Allocation
	stats       Stats
}

// Allocation records a single region handed out by the allocator.
type Allocation struct {
	Addr uint64
	Size uint64
	Tag  string
}

// Stats contains allocation statistics.
type Stats struct {
	TotalAllocations uint64
	TotalBytesAlloc  uint64
	LargestAlloc     uint64
}

// New creates an Allocator whose first region starts at baseAddr.
func New(baseAddr uint64) *Allocator {
	return &Allocator{eofAddr: baseAddr, baseAddr: baseAddr}
}

// Alloc reserves size bytes at the end of the file and returns their address.
// A zero size returns the current end without reserving anything.
func (a *Allocator) Alloc(size uint64) uint64 {
	return a.AllocTagged(size, "")
}

// AllocTagged is Alloc with a label attached to the region.
func (a *Allocator) AllocTagged(size uint64, tag string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.eofAddr
	if size == 0 {
		return addr
	}
	a.eofAddr += size
	a.allocations = append(a.allocations, Allocation{Addr: addr, Size: size, Tag: tag})
	a.stats.TotalAllocations++
	a.stats.TotalBytesAlloc += size
	a.stats.LargestAlloc = max(a.stats.LargestAlloc, size)
	return addr
}

// AllocAligned reserves size bytes starting on a multiple of align.
// The skipped bytes are not recorded as an allocation.
func (a *Allocator) AllocAligned(size, align uint64, tag string) uint64 {
	if align > 1 {
		a.mu.Lock()
		if rem := a.eofAddr % align; rem != 0 {
			a.eofAddr += align - rem
		}
		a.mu.Unlock()
	}
	return a.AllocTagged(size, tag)
}

// EOFAddr returns the address one past the last allocated byte.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eofAddr
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Allocations returns a copy of every region handed out so far.
func (a *Allocator) Allocations() []Allocation {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Allocation, len(a.allocations))
	copy(out, a.allocations)
	return out
}

// Validate checks that all regions lie in [base, eof) and do not overlap.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range a.allocations {
		if r.Addr < a.baseAddr {
			return fmt.Errorf("alloc: %q at 0x%x is before base 0x%x", r.Tag, r.Addr, a.baseAddr)
		}
		if r.Addr+r.Size > a.eofAddr {
			return fmt.Errorf("alloc: %q at 0x%x size %d extends past EOF 0x%x", r.Tag, r.Addr, r.Size, a.eofAddr)
		}
	}
	// Regions are appended in address order, so neighbours suffice.
	for i := 1; i < len(a.allocations); i++ {
		prev, cur := a.allocations[i-1], a.allocations[i]
		if cur.Addr < prev.Addr+prev.Size {
			return fmt.Errorf("alloc: %q [0x%x,+%d] overlaps %q [0x%x,+%d]",
				cur.Tag, cur.Addr, cur.Size, prev.Tag, prev.Addr, prev.Size)
		}
	}
	return nil
}
