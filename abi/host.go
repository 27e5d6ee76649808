package abi

// Host is the set of routines the host server exports to extension modules.
type Host interface {
	// PAlloc accounts size bytes to p and keeps obj alive until p is
	// destroyed. It reports false when the arena cannot satisfy the request.
	PAlloc(p *Pool, size uintptr, obj any) bool
	// PoolCleanupAdd registers fn to run when p is destroyed.
	PoolCleanupAdd(p *Pool, fn func()) bool
	// PoolAlive reports whether p has not been destroyed yet.
	PoolAlive(p *Pool) bool

	HTTPCompileComplexValue(cf *Conf, source string) (*ComplexValue, error)
	HTTPAddPhaseHandler(cf *Conf, phase Phase, h Handler) Int
	HTTPSetContentHandler(cf *Conf, h Handler) Int

	// HTTPComplexValue evaluates cv for r. The returned bytes live in the
	// request pool.
	HTTPComplexValue(r *Request, cv *ComplexValue) ([]byte, Int)
	HTTPDiscardRequestBody(r *Request) Int
	HTTPSendHeader(r *Request) Int
	HTTPOutputFilter(r *Request, in *Chain) Int
	HTTPSubrequest(r *Request, uri, args string) (*Request, Int)
}
