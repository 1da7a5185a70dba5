//go:build linux

package sysmem

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ErrOutOfMemory indicates the kernel refused to move the program break as
// far as requested.
var ErrOutOfMemory = errors.New("sysmem: brk: out of memory")

// CurrentBreak returns the current program break without moving it, by
// issuing brk(0). There is no typed wrapper for brk in golang.org/x/sys/unix
// (unlike mmap, msync, ...), so this reaches for the raw syscall directly.
func CurrentBreak() (uintptr, error) {
	r, _, errno := unix.Syscall(unix.SYS_BRK, 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return r, nil
}

// SetBreak requests the kernel move the program break to addr and returns
// the break the kernel actually settled on. brk(2) does not fail in the
// conventional errno sense when it cannot satisfy the request — it simply
// leaves the break where it was, so callers must compare the returned value
// against the requested one.
func SetBreak(addr uintptr) (uintptr, error) {
	r, _, errno := unix.Syscall(unix.SYS_BRK, addr, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return r, nil
}

// Grow moves the program break up by delta bytes and returns the address the
// break had before the move — the start of the freshly extended region.
func Grow(delta uintptr) (uintptr, error) {
	cur, err := CurrentBreak()
	if err != nil {
		return 0, err
	}
	want := cur + delta
	got, err := SetBreak(want)
	if err != nil {
		return 0, err
	}
	if got < want {
		return 0, ErrOutOfMemory
	}
	return cur, nil
}

// Shrink moves the program break down to addr. addr must not exceed the
// current break.
func Shrink(addr uintptr) error {
	got, err := SetBreak(addr)
	if err != nil {
		return err
	}
	if got > addr {
		return ErrOutOfMemory
	}
	return nil
}
