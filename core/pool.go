package core

import (
	"unsafe"

	"github.com/caffeineduck/ngxmod/abi"
)

// Pool is a non-owning handle to a host arena. It is valid only while the
// callback that produced it runs; do not store it.
type Pool struct {
	p *abi.Pool
}

// PoolFromNative wraps a host arena without validation.
func PoolFromNative(p *abi.Pool) Pool {
	return Pool{p: p}
}

func (p Pool) Native() *abi.Pool {
	return p.p
}

// Alive reports whether the arena's scope is still active.
func (p Pool) Alive() bool {
	return p.p != nil && p.p.Host.PoolAlive(p.p)
}

// Allocate copies v into a value owned by the arena and returns a reference
// that stays valid as long as the arena does. There is no way to free it.
//
// Allocation failure is fatal: Allocate panics with *AllocationError, which
// the lifecycle adapters and the handler trampoline recover.
func Allocate[T any](p Pool, v T) *T {
	ptr := new(T)
	*ptr = v
	p.retain(unsafe.Sizeof(v), ptr)
	return ptr
}

// AllocateSlice allocates n zero elements in the arena.
func AllocateSlice[T any](p Pool, n int) []T {
	s := make([]T, n)
	var zero T
	p.retain(unsafe.Sizeof(zero)*uintptr(n), &s)
	return s
}

// AddCleanup registers fn to run when the arena is destroyed. Cleanups run
// in reverse registration order.
func (p Pool) AddCleanup(fn func()) {
	if p.p == nil || !p.p.Host.PoolCleanupAdd(p.p, fn) {
		panic(&AllocationError{Err: p.failure()})
	}
}

// Buffer allocates a body buffer holding a copy of data.
func (p Pool) Buffer(data []byte, last bool) *abi.Buf {
	b := Allocate(p, abi.Buf{LastBuf: last})
	b.Data = AllocateSlice[byte](p, len(data))
	copy(b.Data, data)
	return b
}

// Chain allocates a chain over bufs in order.
func (p Pool) Chain(bufs ...*abi.Buf) *abi.Chain {
	var head *abi.Chain
	for i := len(bufs) - 1; i >= 0; i-- {
		head = Allocate(p, abi.Chain{Buf: bufs[i], Next: head})
	}
	return head
}

func (p Pool) retain(size uintptr, obj any) {
	if p.p == nil || !p.p.Host.PAlloc(p.p, size, obj) {
		panic(&AllocationError{Size: size, Err: p.failure()})
	}
}

func (p Pool) failure() error {
	if p.p == nil || !p.p.Host.PoolAlive(p.p) {
		return ErrPoolDestroyed
	}
	return nil
}
