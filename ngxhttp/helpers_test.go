package ngxhttp

import (
	"github.com/caffeineduck/ngxmod/abi"
)

// fakeHost implements the parts of abi.Host the facade calls. allocLimit
// bounds the number of arena allocations; negative means unlimited.
type fakeHost struct {
	abi.Host

	allocLimit int
	allocs     int

	phases  map[abi.Phase][]abi.Handler
	content abi.Handler

	body   []byte
	last   bool
	values map[string]string
}

func newFakeHost() *fakeHost {
	return &fakeHost{allocLimit: -1, phases: make(map[abi.Phase][]abi.Handler)}
}

func (h *fakeHost) PAlloc(p *abi.Pool, size uintptr, obj any) bool {
	if h.allocLimit >= 0 && h.allocs >= h.allocLimit {
		return false
	}
	h.allocs++
	return true
}

func (h *fakeHost) PoolAlive(*abi.Pool) bool { return true }
func (h *fakeHost) PoolCleanupAdd(*abi.Pool, func()) bool { return true }
func (h *fakeHost) HTTPDiscardRequestBody(*abi.Request) abi.Int { return abi.OK }

func (h *fakeHost) HTTPAddPhaseHandler(cf *abi.Conf, phase abi.Phase, fn abi.Handler) abi.Int {
	if phase >= abi.PhaseCount {
		return abi.Error
	}
	h.phases[phase] = append(h.phases[phase], fn)
	return abi.OK
}

func (h *fakeHost) HTTPSetContentHandler(cf *abi.Conf, fn abi.Handler) abi.Int {
	h.content = fn
	return abi.OK
}

func (h *fakeHost) HTTPCompileComplexValue(cf *abi.Conf, source string) (*abi.ComplexValue, error) {
	return &abi.ComplexValue{Source: source}, nil
}

func (h *fakeHost) HTTPComplexValue(r *abi.Request, cv *abi.ComplexValue) ([]byte, abi.Int) {
	v, ok := h.values[cv.Source]
	if !ok {
		return nil, abi.Error
	}
	return []byte(v), abi.OK
}

func (h *fakeHost) HTTPSendHeader(r *abi.Request) abi.Int {
	if r.HeaderSent {
		return abi.Error
	}
	r.HeaderSent = true
	r.HeaderOnly = r.Method == "HEAD"
	return abi.OK
}

func (h *fakeHost) HTTPOutputFilter(r *abi.Request, in *abi.Chain) abi.Int {
	for cl := in; cl != nil; cl = cl.Next {
		h.body = append(h.body, cl.Buf.Data...)
		h.last = h.last || cl.Buf.LastBuf
	}
	return abi.OK
}

func (h *fakeHost) HTTPSubrequest(r *abi.Request, uri, args string) (*abi.Request, abi.Int) {
	sr := &abi.Request{Host: h, Main: r.Main, Parent: r, Pool: r.Pool, Connection: r.Connection, URI: uri, Args: args}
	return sr, abi.OK
}

func newConf(h *fakeHost) *abi.Conf {
	return &abi.Conf{
		Host: h,
		Pool: &abi.Pool{Host: h},
		Ctx: &abi.HTTPConfCtx{
			MainConf: make([]abi.ConfPtr, 1),
			SrvConf:  make([]abi.ConfPtr, 1),
			LocConf:  make([]abi.ConfPtr, 1),
		},
	}
}

func newRequest(h *fakeHost) *abi.Request {
	r := &abi.Request{
		Host:       h,
		Pool:       &abi.Pool{Host: h},
		Connection: &abi.Connection{Number: 1},
		Method:     "GET",
		URI:        "/",
		HeadersOut: abi.HeadersOut{ContentLengthN: -1},
	}
	r.Main = r
	return r
}
