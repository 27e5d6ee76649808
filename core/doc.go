// Package core holds the host-independent building blocks of the facade:
// arena handles, status codes, string views and unset-aware configuration
// fields.
//
// # Arenas
//
// A [Pool] borrows an arena owned by the host. [Allocate] places a value in
// it; the value lives exactly as long as the arena and is never freed
// explicitly:
//
//	conf := core.Allocate(pool, LocConf{})
//
// When the arena is exhausted the allocation panics with *AllocationError.
// The adapters in package ngxhttp recover it at the host boundary and fail
// the configuration cycle or request that owns the arena.
//
// # Configuration fields
//
// [Value] records whether a field was set, which is what merging needs:
//
//	type LocConf struct {
//	    Timeout core.Msec
//	}
//
//	func (c *LocConf) Merge(prev *LocConf) error {
//	    c.Timeout.Merge(prev.Timeout, 60*time.Second)
//	    return nil
//	}
package core
