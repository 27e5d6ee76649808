// Package abi describes the native extension ABI of the host HTTP server.
//
// Everything in this package mirrors a structure or function the host
// publishes: integer result conventions, the opaque objects the host owns
// (requests, connections, arenas, configuration contexts, module
// descriptors) and the function-pointer slots the host invokes by address.
//
// # Ownership
//
// Every object reachable from this package is owned and mutated by the host.
// Extension code only borrows them for the duration of the callback that
// handed them out and must not retain them afterwards. Fields marked as
// host-private are never read or written by extension code.
//
// # Function table
//
// A C host exposes its helper routines as linked symbols. Here they are the
// methods of [Host], reachable from every object the host hands out
// (Conf.Host, Request.Host, Pool.Host), so no process-wide state is needed
// to call back into the host.
//
// Extension authors normally use the safe facades in the core and ngxhttp
// packages instead of this package.
package abi
