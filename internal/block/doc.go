// Package block defines the in-band block header the heap allocator places
// immediately before every payload, and the pointer arithmetic used to walk
// from one block to the next, split a block, and round a request up to a
// storable size.
//
// A Header is reinterpreted directly out of raw process memory via
// unsafe.Pointer — there is no byte-slice or file backing it. Nothing here
// takes a lock or allocates; callers (package heap) own all synchronization.
package block
