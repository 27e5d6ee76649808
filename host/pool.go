package host

import (
	"log/slog"
	"sync"

	"github.com/caffeineduck/ngxmod/abi"
)

const (
	poolConfig  = "config"
	poolRequest = "request"
)

// arena tracks the lifetime of objects handed out against a pool. Memory
// itself is managed by the Go runtime: the arena keeps allocations reachable
// until it is destroyed and enforces a byte budget.
type arena struct {
	mu        sync.Mutex
	kind      string
	limit     int64
	used      int64
	objects   []any
	cleanups  []func()
	destroyed bool
}

func (h *Host) newPool(kind string, limit int64, log *slog.Logger) *abi.Pool {
	return &abi.Pool{
		Host:    h,
		Log:     log,
		HostCtx: &arena{kind: kind, limit: limit},
	}
}

func arenaOf(p *abi.Pool) *arena {
	if p == nil {
		return nil
	}
	a, _ := p.HostCtx.(*arena)
	return a
}

func (h *Host) PAlloc(p *abi.Pool, size uintptr, obj any) bool {
	a := arenaOf(p)
	if a == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed || (a.limit > 0 && a.used+int64(size) > a.limit) {
		h.metrics.allocFailure(a.kind)
		return false
	}
	a.used += int64(size)
	a.objects = append(a.objects, obj)
	return true
}

func (h *Host) PoolCleanupAdd(p *abi.Pool, fn func()) bool {
	a := arenaOf(p)
	if a == nil || fn == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return false
	}
	a.cleanups = append(a.cleanups, fn)
	return true
}

func (h *Host) PoolAlive(p *abi.Pool) bool {
	a := arenaOf(p)
	if a == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.destroyed
}

// destroyPool runs cleanups in reverse order and releases every object.
// Destroying a pool twice is a no-op.
func (h *Host) destroyPool(p *abi.Pool) {
	a := arenaOf(p)
	if a == nil {
		return
	}
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.destroyed = true
	cleanups := a.cleanups
	used := a.used
	a.cleanups = nil
	a.objects = nil
	a.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		h.runCleanup(p, cleanups[i])
	}
	h.metrics.poolDestroyed(a.kind, used)
}

func (h *Host) runCleanup(p *abi.Pool, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log := p.Log
			if log == nil {
				log = h.log
			}
			log.Error("pool cleanup panicked", "panic", r)
		}
	}()
	fn()
}
