package heap

import (
	"github.com/joshuapare/brkalloc/internal/block"
)

// freeList is a single, unsorted, intrusive doubly-linked list of free
// blocks, threaded through each block.Header's own PrevFree/NextFree links.
// Insertion order is the only order — there is no size-class segregation
// and no address sort — multiple size classes are out of scope here.
type freeList struct {
	base uintptr // heap base; link fields are offsets relative to this
	head *block.Header
}

// insert pushes h onto the head of the list in O(1). h must be free and
// currently unlinked.
func (fl *freeList) insert(h *block.Header) {
	h.SetPrevFree(fl.base, nil)
	h.SetNextFree(fl.base, fl.head)
	if fl.head != nil {
		fl.head.SetPrevFree(fl.base, h)
	}
	fl.head = h
}

// remove unlinks h from the list in O(1). h must currently be linked.
func (fl *freeList) remove(h *block.Header) {
	prev := h.PrevFree(fl.base)
	next := h.NextFree(fl.base)

	if prev != nil {
		prev.SetNextFree(fl.base, next)
	} else {
		fl.head = next
	}
	if next != nil {
		next.SetPrevFree(fl.base, prev)
	}

	h.SetPrevFree(fl.base, nil)
	h.SetNextFree(fl.base, nil)
}

// findFit scans the list for the first block whose size is at least need,
// ignoring alignment. Returns nil if the scan exhausts the list.
func (fl *freeList) findFit(need int32) *block.Header {
	for n := fl.head; n != nil; n = n.NextFree(fl.base) {
		if n.Size() >= need {
			return n
		}
	}
	return nil
}

// fit describes a free block found by findFitAligned: the block itself,
// how much leading padding (if any) must be split off before it to meet
// the requested alignment, and the payload capacity available to the
// caller after that split.
type fit struct {
	header  *block.Header
	leadPad int32
	avail   int32
}

// findFitAligned scans the list for the first block that can satisfy need
// bytes at the given alignment. A block fits if either its payload is
// already aligned (leadPad == 0), or the leading slack is large enough to
// become its own valid block (leadPad >= block.HeaderSize+block.MinPayload)
// — anything in between would leave an unowned gap, which the heap's
// invariants forbid. Rather than reject the whole block the first time the
// nearest boundary lands in that gap, this advances to each successive
// alignment boundary inside the block (leadPad, leadPad+align,
// leadPad+2*align, ...) until one clears the gap or the block's capacity is
// exhausted, so a block is only skipped once none of its boundaries work.
func (fl *freeList) findFitAligned(need int32, align uintptr) *fit {
	for n := fl.head; n != nil; n = n.NextFree(fl.base) {
		aligned := alignUp(n.User(), align)
		leadPad := int32(aligned - n.User())
		for leadPad != 0 && leadPad < block.HeaderSize+block.MinPayload {
			aligned += align
			leadPad = int32(aligned - n.User())
		}
		avail := n.Size() - leadPad
		if avail >= need {
			return &fit{header: n, leadPad: leadPad, avail: avail}
		}
	}
	return nil
}

// contains reports whether addr names a header currently linked into the
// free list. Used by the heap manager's coalescing to tell, for an
// arbitrary physically-adjacent block, whether it is free — see
// state.findPhysicalPredecessor for why this walk, not a stored flag, is
// the mechanism.
func (fl *freeList) contains(addr uintptr) bool {
	for n := fl.head; n != nil; n = n.NextFree(fl.base) {
		if n.Addr() == addr {
			return true
		}
	}
	return false
}

// alignUp rounds addr up to the next multiple of align, which must be a
// power of two.
func alignUp(addr, align uintptr) uintptr {
	if align <= 1 {
		return addr
	}
	mask := align - 1
	return (addr + mask) &^ mask
}
