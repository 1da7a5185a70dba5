package heap

import "errors"

var (
	// ErrOutOfMemory indicates no free block large enough was found and
	// growing the heap against the kernel failed.
	ErrOutOfMemory = errors.New("heap: out of memory")

	// ErrBadPointer indicates a pointer outside the heap's current bounds
	// was passed to Deallocate or Reallocate (UsableSize reports 0 for such
	// a pointer instead of an error). The allocator
	// cannot distinguish "never returned by this allocator" from "returned,
	// then the heap grew or shrank around it" beyond this cheap bounds
	// check — double frees and mid-block pointers within valid bounds are
	// not detected.
	ErrBadPointer = errors.New("heap: pointer out of heap bounds")

	// ErrUnsupportedAlign indicates the requested alignment was not a
	// power of two.
	ErrUnsupportedAlign = errors.New("heap: alignment must be a power of two")
)
