//go:build !linux

package sysmem

import "sync"

// Mutex falls back to sync.Mutex outside Linux. See ErrUnsupportedPlatform
// in brk_other.go: no platform other than Linux is a target for this
// allocator, so this exists only to let the module type-check elsewhere.
type Mutex struct {
	mu sync.Mutex
}

func (m *Mutex) Lock()   { m.mu.Lock() }
func (m *Mutex) Unlock() { m.mu.Unlock() }
