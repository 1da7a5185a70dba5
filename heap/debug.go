package heap

import (
	"fmt"
	"os"
)

// debugAlloc is a compile-time switch for verbose per-call tracing. It is
// always false in this tree; flipping it to true and rebuilding is the
// intended way to get line-by-line tracing during local debugging. Keeping
// the gate a constant (rather than only the env var below) lets the
// compiler dead-code eliminate every trace call in normal builds.
const debugAlloc = false

// logAlloc additionally gates tracing on an environment variable so a
// debugAlloc=true build can still be run quietly. A real structured
// logger is deliberately not used here: slog/zap/zerolog all allocate,
// and this trace fires from inside Allocate/Deallocate/Reallocate
// themselves, which must not recursively depend on another allocator.
var logAlloc = os.Getenv("BRKALLOC_LOG_ALLOC") != ""

func trace(format string, args ...any) {
	if !debugAlloc || !logAlloc {
		return
	}
	fmt.Fprintf(os.Stderr, "brkalloc: "+format+"\n", args...)
}
