package host

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/caffeineduck/ngxmod/abi"
)

// requestState is the host-private part of a request or subrequest.
type requestState struct {
	cfg   *Config
	srv   *server
	loc   *location
	main  *mainState
	depth int
}

// mainState is shared by a main request and all its subrequests.
type mainState struct {
	hr *http.Request
	w  http.ResponseWriter

	// pending holds body data produced before the main header was written.
	pending       [][]byte
	headerWritten bool
	lastSent      bool
	bodyDiscarded bool
	requestID     string
	status        int
}

func stateOf(r *abi.Request) *requestState {
	if r == nil {
		return nil
	}
	st, _ := r.HostCtx.(*requestState)
	return st
}

func (h *Host) HTTPAddPhaseHandler(cf *abi.Conf, phase abi.Phase, fn abi.Handler) abi.Int {
	if cf == nil || cf.Ctx == nil || fn == nil || phase >= abi.PhaseCount {
		return abi.Error
	}
	cmcf := coreMain(cf.Ctx)
	cmcf.phases[phase] = append(cmcf.phases[phase], fn)
	return abi.OK
}

func (h *Host) HTTPSetContentHandler(cf *abi.Conf, fn abi.Handler) abi.Int {
	if cf == nil || cf.Ctx == nil || fn == nil {
		return abi.Error
	}
	coreLoc(cf.Ctx).handler = fn
	return abi.OK
}

func (h *Host) HTTPDiscardRequestBody(r *abi.Request) abi.Int {
	st := stateOf(r)
	if st == nil {
		return abi.Error
	}
	m := st.main
	if r != r.Main || m.bodyDiscarded || m.hr == nil || m.hr.Body == nil {
		return abi.OK
	}
	m.bodyDiscarded = true
	if _, err := io.Copy(io.Discard, m.hr.Body); err != nil {
		r.Connection.Log.Info("client sent invalid body", "error", err)
		return abi.Int(abi.HTTPBadRequest)
	}
	return abi.OK
}

func (h *Host) HTTPSendHeader(r *abi.Request) abi.Int {
	st := stateOf(r)
	if st == nil {
		return abi.Error
	}
	if r.HeaderSent {
		r.Connection.Log.Error("header already sent", "uri", r.URI)
		return abi.Error
	}
	if r != r.Main {
		r.HeaderSent = true
		r.HeaderOnly = r.Main.HeaderOnly
		return abi.OK
	}

	out := &r.HeadersOut
	if out.Status == 0 {
		out.Status = abi.HTTPOK
	}
	if !validStatus(out.Status) {
		r.Connection.Log.Error("invalid response status", "uri", r.URI, "status", out.Status)
		return abi.Error
	}
	r.HeaderSent = true
	status := int(out.Status)
	if r.Method == http.MethodHead || status == http.StatusNoContent || status == http.StatusNotModified || status < 200 {
		r.HeaderOnly = true
	}

	m := st.main
	hdr := m.w.Header()
	for _, e := range out.Headers {
		hdr.Set(e.Key, e.Value)
	}
	if out.ContentType != "" {
		hdr.Set("Content-Type", out.ContentType)
	}
	if out.ContentLengthN >= 0 && status != http.StatusNoContent && status != http.StatusNotModified {
		hdr.Set("Content-Length", strconv.FormatInt(out.ContentLengthN, 10))
	}
	if coreLoc(st.loc.ctx).ServerTokens.Get() {
		hdr.Set("Server", h.opts.serverSoftware)
	}
	m.w.WriteHeader(status)
	m.headerWritten = true
	m.status = status

	if !r.HeaderOnly {
		for _, p := range m.pending {
			if _, err := m.w.Write(p); err != nil {
				return abi.Error
			}
		}
	}
	m.pending = nil
	return abi.OK
}

func (h *Host) HTTPOutputFilter(r *abi.Request, in *abi.Chain) abi.Int {
	st := stateOf(r)
	if st == nil {
		return abi.Error
	}
	m := st.main
	if !r.HeaderSent {
		r.Connection.Log.Error("output before header was sent", "uri", r.URI)
		return abi.Error
	}
	if m.lastSent {
		r.Connection.Log.Error("output after the last buffer", "uri", r.URI)
		return abi.Error
	}

	for cl := in; cl != nil; cl = cl.Next {
		b := cl.Buf
		if b == nil {
			continue
		}
		if len(b.Data) > 0 && !r.Main.HeaderOnly {
			if !m.headerWritten {
				m.pending = append(m.pending, b.Data)
			} else if _, err := m.w.Write(b.Data); err != nil {
				return abi.Error
			}
		}
		if b.Flush && m.headerWritten {
			if f, ok := m.w.(http.Flusher); ok {
				f.Flush()
			}
		}
		if b.LastBuf && r == r.Main {
			m.lastSent = true
			break
		}
	}
	return abi.OK
}

func (h *Host) HTTPSubrequest(r *abi.Request, uri, args string) (*abi.Request, abi.Int) {
	st := stateOf(r)
	if st == nil {
		return nil, abi.Error
	}
	if st.depth >= abi.MaxSubrequestDepth {
		r.Connection.Log.Error("subrequests cycle while processing", "uri", uri)
		return nil, abi.Error
	}

	sr := &abi.Request{
		Host:       h,
		Main:       r.Main,
		Parent:     r,
		Pool:       r.Pool,
		Connection: r.Connection,
		MainConf:   r.MainConf,
		SrvConf:    r.SrvConf,
		Method:     http.MethodGet,
		URI:        uri,
		Args:       args,
		RequestURI: r.Main.RequestURI,
		HeadersIn:  r.Main.HeadersIn,
		HeadersOut: abi.HeadersOut{ContentLengthN: -1},
	}
	loc := st.srv.find(uri)
	sr.LocConf = loc.ctx.LocConf
	sr.HostCtx = &requestState{cfg: st.cfg, srv: st.srv, loc: loc, main: st.main, depth: st.depth + 1}
	h.metrics.subrequest()

	rc := h.runContent(sr, loc)
	switch {
	case rc > 0 && !sr.HeaderSent:
		sr.HeadersOut.Status = abi.Uint(rc)
	case (rc == abi.Error || rc == abi.Abort) && !sr.HeaderSent:
		sr.HeadersOut.Status = abi.HTTPInternalServerError
	}
	return sr, abi.OK
}

// run drives a main request through its phases and finalizes it.
func (h *Host) run(r *abi.Request) {
	st := stateOf(r)
	cmcf := coreMain(st.cfg.http)

	rc := h.runPhase(r, cmcf.phases[abi.PhasePostRead], false)
	if rc == abi.OK || rc == abi.Declined {
		rc = h.runPhase(r, cmcf.phases[abi.PhaseAccess], true)
	}
	if rc == abi.OK || rc == abi.Declined {
		rc = h.runContent(r, st.loc)
	}
	h.finalize(r, rc)

	for _, fn := range cmcf.phases[abi.PhaseLog] {
		h.call(r, fn)
	}
}

// runPhase runs handlers until one returns something other than DECLINED
// (or OK in the access phase, where every handler must agree). It returns
// DECLINED when the phase completed normally.
func (h *Host) runPhase(r *abi.Request, handlers []abi.Handler, access bool) abi.Int {
	if access && r != r.Main {
		return abi.Declined
	}
	for _, fn := range handlers {
		rc := h.call(r, fn)
		switch {
		case rc == abi.Declined:
			continue
		case rc == abi.OK:
			if access {
				continue
			}
			return abi.OK
		default:
			return rc
		}
	}
	return abi.Declined
}

func (h *Host) runContent(r *abi.Request, loc *location) abi.Int {
	if fn := coreLoc(loc.ctx).handler; fn != nil {
		if rc := h.call(r, fn); rc != abi.Declined {
			return rc
		}
	}
	cmcf := coreMain(stateOf(r).cfg.http)
	for _, fn := range cmcf.phases[abi.PhaseContent] {
		if rc := h.call(r, fn); rc != abi.Declined {
			return rc
		}
	}
	return abi.Int(abi.HTTPNotFound)
}

// call invokes a module handler. Handlers built with ngxhttp.Trampoline
// never panic; raw native handlers might.
func (h *Host) call(r *abi.Request, fn abi.Handler) (rc abi.Int) {
	defer func() {
		if v := recover(); v != nil {
			r.Connection.Log.Error("handler panicked", "uri", r.URI, "panic", v)
			rc = abi.Int(abi.HTTPInternalServerError)
		}
	}()
	return fn(r)
}

func (h *Host) finalize(r *abi.Request, rc abi.Int) {
	switch {
	case rc == abi.OK || rc == abi.Done || rc == abi.Again || rc == abi.Declined:
		if !r.HeaderSent {
			h.HTTPSendHeader(r)
		}
	case rc == abi.Error || rc == abi.Abort || rc == abi.Busy:
		if r.HeaderSent {
			r.Connection.Log.Error("request failed after header was sent", "uri", r.URI, "rc", rc)
			return
		}
		h.specialResponse(r, abi.HTTPInternalServerError)
	case rc > 0 && !validStatus(abi.Uint(rc)):
		if r.HeaderSent {
			r.Connection.Log.Error("invalid status returned after header was sent", "uri", r.URI, "status", rc)
			return
		}
		r.Connection.Log.Error("handler returned an invalid status", "uri", r.URI, "status", rc)
		h.specialResponse(r, abi.HTTPInternalServerError)
	case rc > 0:
		if r.HeaderSent {
			if rc >= abi.Int(abi.HTTPSpecialResponse) {
				r.Connection.Log.Error("status returned after header was sent", "uri", r.URI, "status", rc)
			}
			return
		}
		status := abi.Uint(rc)
		if status >= abi.HTTPSpecialResponse || status == abi.HTTPCreated || status == abi.HTTPNoContent {
			h.specialResponse(r, status)
			return
		}
		r.HeadersOut.Status = status
		h.HTTPSendHeader(r)
	default:
		if !r.HeaderSent {
			h.specialResponse(r, abi.HTTPInternalServerError)
		}
	}
}

// validStatus reports whether status fits the three-digit status line.
func validStatus(status abi.Uint) bool {
	return status >= abi.HTTPContinue && status <= 999
}

const errorPage = "<html>\r\n<head><title>%d %s</title></head>\r\n<body>\r\n<center><h1>%d %s</h1></center>\r\n%s</body>\r\n</html>\r\n"

// specialResponse replaces whatever the module set up with a built-in
// response for status.
func (h *Host) specialResponse(r *abi.Request, status abi.Uint) {
	r.HeadersOut = abi.HeadersOut{Status: status, ContentLengthN: -1}
	code := int(status)
	var body []byte
	if status >= abi.HTTPBadRequest || (status >= abi.HTTPSpecialResponse && status != abi.HTTPNotModified) {
		footer := ""
		if coreLoc(stateOf(r).loc.ctx).ServerTokens.Get() {
			footer = "<hr><center>" + h.opts.serverSoftware + "</center>\r\n"
		}
		text := http.StatusText(code)
		body = fmt.Appendf(nil, errorPage, code, text, code, text, footer)
		r.HeadersOut.ContentType = "text/html"
	}
	r.HeadersOut.ContentLengthN = int64(len(body))
	if h.HTTPSendHeader(r) != abi.OK || r.HeaderOnly || len(body) == 0 {
		return
	}
	h.HTTPOutputFilter(r, &abi.Chain{Buf: &abi.Buf{Data: body, LastBuf: true}})
}
