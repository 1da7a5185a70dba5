package heap

import (
	"sync"
	"unsafe"

	"github.com/joshuapare/brkalloc/internal/block"
	"github.com/joshuapare/brkalloc/internal/sysmem"
)

// Config holds the allocator's tunable construction-time parameters. The
// zero value is DefaultConfig.
type Config struct {
	// Reserved for future tuning knobs; kept as a struct rather than a bare
	// New() so callers have a stable place to add fields without breaking
	// the constructor signature.
}

// DefaultConfig is the Config used by the package-level facade functions.
var DefaultConfig = Config{}

// Allocator is a single brk-backed heap together with the free list and
// lock that manage it. Construct with New; no heap state is set up until
// the first call that needs it.
type Allocator struct {
	mu    sysmem.Mutex
	st    state
	cfg   Config
	ready bool
}

// New returns an Allocator that has not yet touched the program break.
// Initialization happens lazily, under the lock, on first use — see
// ensureInit — rather than here, so constructing an Allocator can never
// race with code that runs before main.
func New(cfg Config) *Allocator {
	return &Allocator{cfg: cfg}
}

// ensureInit performs one-time setup. The caller must already hold a.mu.
func (a *Allocator) ensureInit() error {
	if a.ready {
		return nil
	}

	base, err := sysmem.CurrentBreak()
	if err != nil {
		return ErrOutOfMemory
	}

	aligned := alignUp(base, block.Alignment)
	if aligned != base {
		if _, err := sysmem.Grow(aligned - base); err != nil {
			return ErrOutOfMemory
		}
	}

	a.st.heapBase = aligned
	a.st.heapTop = aligned
	a.st.free = freeList{base: aligned}
	a.ready = true
	return nil
}

// Allocate returns size bytes aligned to align, growing the heap if no
// free block is large enough. align must be zero (meaning the baseline
// block.Alignment) or a power of two.
func (a *Allocator) Allocate(size int64, align int64) (unsafe.Pointer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ensureInit(); err != nil {
		return nil, err
	}
	return a.allocateLocked(size, align)
}

func (a *Allocator) allocateLocked(size int64, align int64) (unsafe.Pointer, error) {
	if align == 0 {
		align = block.Alignment
	}
	if !block.IsPowerOfTwo(align) {
		return nil, ErrUnsupportedAlign
	}

	need, err := block.RoundRequest(size, align)
	if err != nil {
		return nil, err
	}

	alignU := uintptr(align)
	if alignU < block.Alignment {
		alignU = block.Alignment
	}

	f := a.st.free.findFitAligned(need, alignU)
	if f == nil {
		trace("grow: need=%d align=%d", need, alignU)
		if _, err := a.st.extend(need + int32(alignU)); err != nil {
			return nil, err
		}
		f = a.st.free.findFitAligned(need, alignU)
		if f == nil {
			return nil, ErrOutOfMemory
		}
	}

	h := a.applyFit(f, need)
	trace("allocate: size=%d align=%d -> addr=%#x usable=%d", size, align, h.User(), h.Size())
	return unsafe.Pointer(h.User()), nil
}

// applyFit removes f's block from the free list, splitting off a leading
// padding block (when f.leadPad != 0) and a trailing remainder (when large
// enough), and returns the header ready to hand to the caller.
func (a *Allocator) applyFit(f *fit, need int32) *block.Header {
	h := f.header
	a.st.free.remove(h)

	if f.leadPad != 0 {
		origSize := h.Size()
		h.SetSize(f.leadPad - block.HeaderSize)
		h.ClearLinks()
		a.st.free.insert(h)

		h = block.At(h.Addr() + uintptr(f.leadPad))
		h.SetSize(origSize - f.leadPad)
	}

	a.carveTrailing(h, need)
	h.ClearLinks()
	return h
}

// carveTrailing splits h into a need-sized block plus a free trailing
// remainder, but only when the remainder is large enough to stand on its
// own as a block; otherwise the whole of h is handed out, accepting the
// extra bytes as internal fragmentation. The tail goes through insertFree,
// so a tail that ends at the program break is trimmed off the heap rather
// than kept in the free list.
//
// The new tail is forward-coalesced before being reinserted: when this is
// called from the Reallocate shrink path, h is an allocated block whose
// physical successor may already be a free block, and inserting the tail
// without checking would leave two free blocks physically adjacent. The
// allocate path (applyFit) carves from a block that was itself free, whose
// successor is non-free by the no-adjacent-free-blocks invariant, so the
// coalesce check there is a no-op — safe and cheap to run unconditionally.
func (a *Allocator) carveTrailing(h *block.Header, need int32) {
	extra := h.Size() - need
	if extra < block.HeaderSize+block.MinPayload {
		return
	}

	h.SetSize(need)
	tail := h.NextPhysical()
	tail.SetSize(extra - block.HeaderSize)
	tail.ClearLinks()

	tail = a.forwardCoalesce(tail)
	a.insertFree(tail)
}

// forwardCoalesce merges h with its physical successor when that successor
// is currently in the free list, returning the (possibly grown) header.
func (a *Allocator) forwardCoalesce(h *block.Header) *block.Header {
	if !a.st.isTopmost(h) {
		next := h.NextPhysical()
		if a.st.free.contains(next.Addr()) {
			a.st.free.remove(next)
			h.SetSize(h.Size() + block.HeaderSize + next.Size())
		}
	}
	return h
}

// insertFree trims the program break when h is now the topmost block in
// the heap, falling back to inserting h into the free list when trimming
// is impossible or inapplicable.
func (a *Allocator) insertFree(h *block.Header) {
	if a.st.isTopmost(h) {
		if err := a.st.trim(h); err == nil {
			trace("trim: addr=%#x", h.Addr())
			return
		}
		// The kernel refused to move the break back; keep the block as an
		// ordinary free block instead of losing track of it.
	}

	trace("deallocate: addr=%#x size=%d", h.Addr(), h.Size())
	h.ClearLinks()
	a.st.free.insert(h)
}

// Deallocate returns ptr's block to the heap, coalescing with physically
// adjacent free neighbors and trimming the program break when the
// resulting block is now topmost. ptr == nil is a no-op, matching free(NULL).
func (a *Allocator) Deallocate(ptr unsafe.Pointer) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ptr == nil {
		return nil
	}
	if err := a.ensureInit(); err != nil {
		return err
	}

	addr := uintptr(ptr)
	if !a.st.inBounds(addr) {
		return ErrBadPointer
	}
	a.deallocateLocked(block.HeaderOf(addr))
	return nil
}

func (a *Allocator) deallocateLocked(h *block.Header) {
	h = a.forwardCoalesce(h)

	if prev := a.st.findPhysicalPredecessor(h); prev != nil && a.st.free.contains(prev.Addr()) {
		a.st.free.remove(prev)
		prev.SetSize(prev.Size() + block.HeaderSize + h.Size())
		h = prev
	}

	a.insertFree(h)
}

// UsableSize returns the payload capacity of ptr's block, which may exceed
// the size originally requested due to rounding or splitting slack. Returns
// 0 for a nil or out-of-bounds pointer.
func (a *Allocator) UsableSize(ptr unsafe.Pointer) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ptr == nil {
		return 0
	}
	addr := uintptr(ptr)
	if !a.ready || !a.st.inBounds(addr) {
		return 0
	}
	return int64(block.HeaderOf(addr).Size())
}

// Reallocate resizes ptr's block to newSize, growing in place when
// possible (absorbing a free physical successor, or moving the program
// break up when the block is the topmost one) and otherwise allocating,
// copying, and freeing the original. ptr == nil behaves as Allocate;
// newSize == 0 behaves as Deallocate and returns a nil pointer.
func (a *Allocator) Reallocate(ptr unsafe.Pointer, newSize int64) (unsafe.Pointer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ensureInit(); err != nil {
		return nil, err
	}

	if ptr == nil {
		return a.allocateLocked(newSize, 0)
	}
	if newSize == 0 {
		addr := uintptr(ptr)
		if !a.st.inBounds(addr) {
			return nil, ErrBadPointer
		}
		a.deallocateLocked(block.HeaderOf(addr))
		return nil, nil
	}

	addr := uintptr(ptr)
	if !a.st.inBounds(addr) {
		return nil, ErrBadPointer
	}
	h := block.HeaderOf(addr)

	need, err := block.RoundRequest(newSize, block.Alignment)
	if err != nil {
		return nil, err
	}

	if h.Size() >= need {
		a.carveTrailing(h, need)
		return unsafe.Pointer(h.User()), nil
	}

	if !a.st.isTopmost(h) {
		next := h.NextPhysical()
		if a.st.free.contains(next.Addr()) && h.Size()+block.HeaderSize+next.Size() >= need {
			a.st.free.remove(next)
			h.SetSize(h.Size() + block.HeaderSize + next.Size())
			a.carveTrailing(h, need)
			return unsafe.Pointer(h.User()), nil
		}
	} else {
		// h ends at the program break: grow the break under it in place.
		delta := uintptr(need - h.Size())
		if start, err := sysmem.Grow(delta); err == nil {
			if start == a.st.heapTop {
				a.st.heapTop += delta
				h.SetSize(need)
				return unsafe.Pointer(h.User()), nil
			}
			_ = sysmem.Shrink(start)
		}
	}

	oldSize := h.Size()
	newPtr, err := a.allocateLocked(newSize, 0)
	if err != nil {
		return nil, err
	}
	copyBytes(newPtr, unsafe.Pointer(h.User()), oldSize)
	a.deallocateLocked(h)
	return newPtr, nil
}

// Tune accepts a POSIX mallopt-style (param, value) pair. Every parameter
// this core recognizes is ambient tuning for the multi-arena / size-class
// machinery it deliberately does not implement, so there is nothing to do
// except report success, matching mallopt's historical behavior of
// returning nonzero for parameters a given malloc implementation ignores.
func (a *Allocator) Tune(_ int, _ int) int {
	return 1
}

func copyBytes(dst, src unsafe.Pointer, n int32) {
	if n <= 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}

var defaultOnce sync.Once
var defaultAllocator *Allocator

func defaultInstance() *Allocator {
	defaultOnce.Do(func() {
		defaultAllocator = New(DefaultConfig)
	})
	return defaultAllocator
}

// Allocate calls Allocate on the package-level default Allocator.
func Allocate(size, align int64) (unsafe.Pointer, error) {
	return defaultInstance().Allocate(size, align)
}

// Reallocate calls Reallocate on the package-level default Allocator.
func Reallocate(ptr unsafe.Pointer, newSize int64) (unsafe.Pointer, error) {
	return defaultInstance().Reallocate(ptr, newSize)
}

// Deallocate calls Deallocate on the package-level default Allocator.
func Deallocate(ptr unsafe.Pointer) error {
	return defaultInstance().Deallocate(ptr)
}

// UsableSize calls UsableSize on the package-level default Allocator.
func UsableSize(ptr unsafe.Pointer) int64 {
	return defaultInstance().UsableSize(ptr)
}

// Tune calls Tune on the package-level default Allocator.
func Tune(param, value int) int {
	return defaultInstance().Tune(param, value)
}
