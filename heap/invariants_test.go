//go:build linux

package heap

import (
	"testing"

	"github.com/joshuapare/brkalloc/internal/block"
	"github.com/stretchr/testify/require"
)

// checkInvariants walks a's heap from its base to the program break and
// asserts the universal invariants every mutation must preserve: gapless
// coverage of the heap by blocks, each block's size and address meeting
// the minimum-payload/alignment rules, free-list membership agreeing
// exactly with the physical walk's free/allocated classification, no two
// physically adjacent blocks both free, and a free list whose prev/next
// links are mutually consistent and acyclic.
func checkInvariants(t *testing.T, a *Allocator) {
	t.Helper()

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready {
		return
	}

	freeSet := make(map[uintptr]bool)
	for n := a.st.free.head; n != nil; n = n.NextFree(a.st.heapBase) {
		freeSet[n.Addr()] = true
	}
	freeCount := len(freeSet)

	type span struct {
		addr   uintptr
		isFree bool
	}
	var spans []span

	addr := a.st.heapBase
	matched := 0
	for addr < a.st.heapTop {
		h := block.At(addr)
		require.GreaterOrEqual(t, h.Size(), int32(block.MinPayload),
			"block at %#x below minimum payload", addr)
		require.Zero(t, int64(h.Size())%block.Alignment,
			"block at %#x size not a multiple of the alignment", addr)
		require.Zero(t, int64(addr)%block.Alignment,
			"block at %#x not aligned", addr)

		isFree := freeSet[addr]
		if isFree {
			matched++
		}
		spans = append(spans, span{addr: addr, isFree: isFree})
		addr = h.End()
	}
	require.Equal(t, a.st.heapTop, addr,
		"heap must be covered gaplessly: walk must land exactly on the program break")
	require.Equal(t, freeCount, matched,
		"every free-list node must correspond to a block found by the physical walk, and vice versa")

	for i := 1; i < len(spans); i++ {
		require.False(t, spans[i-1].isFree && spans[i].isFree,
			"adjacent free blocks at %#x and %#x", spans[i-1].addr, spans[i].addr)
	}

	var prev *block.Header
	count := 0
	for n := a.st.free.head; n != nil; n = n.NextFree(a.st.heapBase) {
		if prev == nil {
			require.False(t, n.HasPrevFree(), "free list head must not have a prev link")
		} else {
			require.Equal(t, prev.Addr(), n.PrevFree(a.st.heapBase).Addr(),
				"free list prev/next links must agree at %#x", n.Addr())
		}
		prev = n
		count++
		require.LessOrEqualf(t, count, len(spans)+1, "free list traversal exceeded block count; likely a cycle")
	}
	if prev != nil {
		require.False(t, prev.HasNextFree(), "free list tail must not have a next link")
	}

	var freeBytes int64
	for _, s := range spans {
		if s.isFree {
			freeBytes += int64(block.At(s.addr).Size()) + block.HeaderSize
		}
	}
	require.LessOrEqual(t, freeBytes, int64(a.st.heapTop-a.st.heapBase),
		"sum of free bytes cannot exceed the heap's total size")
}
