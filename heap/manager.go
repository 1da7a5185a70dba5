package heap

import (
	"github.com/joshuapare/brkalloc/internal/block"
	"github.com/joshuapare/brkalloc/internal/sysmem"
)

// growthSlop is the extra bytes requested from the kernel on top of a bare
// miss. The request is carved from the front of the new region, and the
// unused remainder is then the topmost block, which insertFree trims
// straight back off the break; the heap does not stay grown by growthSlop
// between misses, so every miss moves the break again.
const growthSlop = 4096

// state holds everything the allocator core mutates: the cached heap
// boundaries and the single free list. It carries no lock of its own —
// Allocator.mu serializes every method below.
type state struct {
	heapBase uintptr
	heapTop  uintptr // cached program break
	free     freeList
}

// inBounds reports whether addr falls within [heapBase, heapTop).
func (s *state) inBounds(addr uintptr) bool {
	return addr >= s.heapBase && addr < s.heapTop
}

// extend grows the heap by at least need bytes (plus growthSlop) and
// returns a header for a single free block spanning the entire new region,
// already linked into the free list.
func (s *state) extend(need int32) (*block.Header, error) {
	delta := uintptr(need) + growthSlop
	start, err := sysmem.Grow(delta)
	if err != nil {
		return nil, ErrOutOfMemory
	}

	h := block.At(start)
	h.SetSize(int32(delta) - block.HeaderSize)
	h.ClearLinks()
	s.heapTop = start + delta
	s.free.insert(h)
	return h, nil
}

// trim shrinks the program break back down past h, which must be the
// topmost block in the heap and must already be unlinked from the free
// list. On failure to move the break, the caller is responsible for
// reinserting h into the free list instead.
func (s *state) trim(h *block.Header) error {
	if err := sysmem.Shrink(h.Addr()); err != nil {
		return err
	}
	s.heapTop = h.Addr()
	return nil
}

// isTopmost reports whether h's End() is exactly the current program
// break, i.e. nothing physically follows it in the heap.
func (s *state) isTopmost(h *block.Header) bool {
	return h.End() == s.heapTop
}

// findPhysicalPredecessor walks the heap from its base looking for the
// block whose End() equals h's own address. Headers carry no back-pointer
// to their physical predecessor (only free-list links, which are
// meaningless once a block is allocated), so this is an O(heap) scan — the
// price of backward coalescing with a 16-byte header, same tradeoff
// documented for the free-list membership check in freeList.contains.
// Returns nil if h is the first block in the heap.
func (s *state) findPhysicalPredecessor(h *block.Header) *block.Header {
	if h.Addr() == s.heapBase {
		return nil
	}
	cur := block.At(s.heapBase)
	for {
		if cur.End() == h.Addr() {
			return cur
		}
		cur = cur.NextPhysical()
	}
}
