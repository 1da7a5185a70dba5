//go:build linux

package sysmem

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	mutexUnlocked  int32 = 0
	mutexLocked    int32 = 1
	mutexContended int32 = 2
)

// Linux futex(2) operation codes. golang.org/x/sys/unix does not export
// these (they are kernel ABI constants, not syscall numbers), so they are
// defined here directly; the values are part of the stable Linux syscall
// ABI and do not vary by architecture.
const (
	futexOpWait = 0
	futexOpWake = 1
)

// Mutex is the single process-wide lock the allocator core serializes every
// public entry point through. It is built directly on the Linux futex
// syscall rather than sync.Mutex so the core never takes a dependency on
// anything the Go runtime's own allocator might touch: an uncontended
// Lock/Unlock pair never leaves user space, and the contended path parks in
// the kernel instead of spinning or recursing into runtime scheduling
// primitives.
//
// The zero value is an unlocked Mutex.
type Mutex struct {
	state int32
}

// Lock acquires the mutex, blocking until it is available.
func (m *Mutex) Lock() {
	if atomic.CompareAndSwapInt32(&m.state, mutexUnlocked, mutexLocked) {
		return
	}
	for {
		if atomic.SwapInt32(&m.state, mutexContended) == mutexUnlocked {
			return
		}
		futexWait(&m.state, mutexContended)
	}
}

// Unlock releases the mutex. Unlock on an already-unlocked Mutex is
// undefined, same as sync.Mutex.
func (m *Mutex) Unlock() {
	if atomic.SwapInt32(&m.state, mutexUnlocked) == mutexContended {
		futexWake(&m.state, 1)
	}
}

func futexWait(addr *int32, val int32) {
	for atomic.LoadInt32(addr) == val {
		_, _, errno := unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			uintptr(futexOpWait),
			uintptr(val),
			0, 0, 0,
		)
		// EAGAIN: addr's value changed before we parked, re-check the loop
		// condition. EINTR: a signal interrupted the wait, retry.
		if errno != 0 && errno != unix.EAGAIN && errno != unix.EINTR {
			return
		}
	}
}

func futexWake(addr *int32, n int32) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexOpWake),
		uintptr(n),
		0, 0, 0,
	)
}
