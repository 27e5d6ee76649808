package ngxhttp

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/core"
)

// Request is a safe view of an in-flight request owned by the host. It is
// valid only during the handler invocation that received it.
type Request struct {
	r *abi.Request
}

// RequestFromNative wraps a raw request handle. The handle must be valid for
// as long as the returned Request is used; Trampoline is the only caller
// that can guarantee that.
func RequestFromNative(r *abi.Request) *Request {
	return &Request{r: r}
}

func (r *Request) Native() *abi.Request {
	return r.r
}

// IsMain reports whether r is the client's request rather than a
// subrequest.
func (r *Request) IsMain() bool {
	return r.r.Main == r.r
}

// Pool returns the arena scoped to this request.
func (r *Request) Pool() core.Pool {
	return core.PoolFromNative(r.r.Pool)
}

func (r *Request) Connection() core.Connection {
	return core.ConnectionFromNative(r.r.Connection)
}

func (r *Request) Log() *slog.Logger {
	return r.Connection().Log()
}

// GetModuleLocConf returns the location record of module m for this
// request. The caller must convert it to m's own location record type;
// Module.RequestLocConf does that safely.
func (r *Request) GetModuleLocConf(m *abi.Module) abi.ConfPtr {
	return r.r.LocConf[m.CtxIndex]
}

// GetComplexValue evaluates cv against this request. It reports false when
// the host fails to evaluate it. The result lives in the request arena.
func (r *Request) GetComplexValue(cv *ComplexValue) (core.Str, bool) {
	if cv == nil || cv.native == nil {
		return nil, false
	}
	v, rc := r.r.Host.HTTPComplexValue(r.r, cv.native)
	if rc != abi.OK {
		return nil, false
	}
	return core.Str(v), true
}

// DiscardRequestBody asks the host to read and drop any request body. Call
// it before responding when the body is not otherwise consumed.
func (r *Request) DiscardRequestBody() core.Status {
	return core.StatusFromNative(r.r.Host.HTTPDiscardRequestBody(r.r))
}

// UserAgent returns the User-Agent header. It reports false when the
// request carried none.
func (r *Request) UserAgent() (core.Str, bool) {
	ua := r.r.HeadersIn.UserAgent
	if ua == nil {
		return nil, false
	}
	return core.Str(ua.Value), true
}

// Header returns the first request header named name (case-insensitive).
func (r *Request) Header(name string) (core.Str, bool) {
	for _, h := range r.r.HeadersIn.Headers {
		if strings.EqualFold(h.Key, name) {
			return core.Str(h.Value), true
		}
	}
	return nil, false
}

func (r *Request) Method() string {
	return r.r.Method
}

func (r *Request) URI() string {
	return r.r.URI
}

func (r *Request) Args() string {
	return r.r.Args
}

// SetStatus sets the response status. It has no effect once headers are
// sent.
func (r *Request) SetStatus(status HTTPStatus) {
	r.r.HeadersOut.Status = status.Native()
}

// Status returns the response status recorded so far.
func (r *Request) Status() HTTPStatus {
	return HTTPStatus(r.r.HeadersOut.Status)
}

// SetContentLengthN sets the response Content-Length. It has no effect once
// headers are sent.
func (r *Request) SetContentLengthN(n int) {
	r.r.HeadersOut.ContentLengthN = int64(n)
}

func (r *Request) SetContentType(v string) {
	r.r.HeadersOut.ContentType = v
}

func (r *Request) ContentType() string {
	return r.r.HeadersOut.ContentType
}

// SetHeader replaces or adds a response header.
func (r *Request) SetHeader(name, value string) {
	for _, h := range r.r.HeadersOut.Headers {
		if strings.EqualFold(h.Key, name) {
			h.Value = value
			return
		}
	}
	h := core.Allocate(r.Pool(), abi.TableElt{Key: name, Value: value})
	r.r.HeadersOut.Headers = append(r.r.HeadersOut.Headers, h)
}

// SendHeader commits the response headers.
func (r *Request) SendHeader() core.Status {
	return core.StatusFromNative(r.r.Host.HTTPSendHeader(r.r))
}

// HeaderOnly reports whether the host decided the response has no body,
// for example for HEAD requests or 304 responses. It is meaningful after
// SendHeader.
func (r *Request) HeaderOnly() bool {
	return r.r.HeaderOnly
}

// OutputFilter passes a chain of body buffers to the host's output filter
// chain. It may be called repeatedly to stream a body. A non-OK status is
// not necessarily fatal: Again means the host buffered the data and will
// continue on its own.
func (r *Request) OutputFilter(body *abi.Chain) core.Status {
	return core.StatusFromNative(r.r.Host.HTTPOutputFilter(r.r, body))
}

// Write sends data as a single body buffer, marked last when last is true.
func (r *Request) Write(data []byte, last bool) core.Status {
	pool := r.Pool()
	b := pool.Buffer(data, last && r.IsMain())
	if !r.IsMain() {
		b.LastInChain = last
	}
	return r.OutputFilter(pool.Chain(b))
}

// Subrequest runs uri through the host's location handlers as a
// subrequest of r. Its output is inserted into r's response. The returned
// request is finished and only its response metadata may be inspected.
func (r *Request) Subrequest(uri, args string) (*Request, core.Status) {
	sr, rc := r.r.Host.HTTPSubrequest(r.r, uri, args)
	if sr == nil {
		return nil, core.StatusFromNative(rc)
	}
	return RequestFromNative(sr), core.StatusFromNative(rc)
}

// ContentLength returns the Content-Length of the request, or -1.
func (r *Request) ContentLength() int64 {
	v, ok := r.Header("Content-Length")
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(v.String(), 10, 64)
	if err != nil {
		return -1
	}
	return n
}
