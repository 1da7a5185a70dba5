// Package heap implements the allocator core: a single contiguous heap
// segment grown against the Linux program break, an intrusive free list
// threading every currently-free block, and the four public entry points
// (Allocate, Reallocate, Deallocate, UsableSize) a POSIX malloc/calloc/
// realloc/free shim would call.
//
// # Design
//
// Every block is a block.Header followed by its payload; there is no
// separate bookkeeping structure mirroring the heap's contents — free
// blocks are threaded in-band through their own headers rather than
// tracked in a shadow structure, and allocated blocks are not linked at all. The free list is single, unsorted,
// and scanned first-fit; there is no segregation by size class.
//
// # Concurrency
//
// A single sysmem.Mutex guards all heap state: the free list, every header,
// and the cached program-break value. Allocate, Reallocate, Deallocate and
// UsableSize acquire it on entry and release it on every return path,
// including error paths; Tune touches no heap state and takes no lock. There
// is no finer-grained locking and no lock-free fast path — see DESIGN.md
// for why that tradeoff is deliberate here.
//
// # Allocation policy
//
// Allocate finds the first free block at least as large as the rounded
// request (first-fit), splitting off a trailing remainder when it is large
// enough to form its own minimum-size block. When alignment coarser than
// the block package's baseline is requested, a leading padding block may
// also be split off before the returned block. A miss grows the heap by
// the bytes needed plus the alignment and a fixed slop (growthSlop), carves
// the new block from the front of the fresh region, and trims the unused
// remainder straight back off the program break.
//
// Deallocate coalesces with both physical neighbors before either
// reinserting the result into the free list or, if it is now the topmost
// block in the heap, trimming the program break back down.
package heap
