package wasm

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero"

	"github.com/caffeineduck/ngxmod/core"
	"github.com/caffeineduck/ngxmod/ngxhttp"
)

func handler(r *ngxhttp.Request) core.Status {
	if rc := r.DiscardRequestBody(); !rc.IsOK() {
		return rc
	}

	lcf := module.RequestLocConf(r)
	rt := lcf.main.runtime

	ctx, cancel := context.WithTimeout(context.Background(), lcf.Timeout.Get())
	defer cancel()
	call := &guestCall{req: r, kv: lcf.main.kv, status: ngxhttp.HTTPOK}
	ctx = context.WithValue(ctx, callKey{}, call)

	// Anonymous instances may coexist, one per in-flight request.
	cfg := wazero.NewModuleConfig().WithName("").WithStartFunctions("_initialize")
	mod, err := rt.InstantiateModule(ctx, lcf.compiled, cfg)
	if err != nil {
		r.Log().Error("wasm instantiate failed", "uri", r.URI(), "error", err)
		return ngxhttp.HTTPInternalServerError.Status()
	}
	defer mod.Close(context.Background())

	fn := mod.ExportedFunction(lcf.Export.Get())
	if fn == nil {
		return ngxhttp.HTTPInternalServerError.Status()
	}
	res, err := fn.Call(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.Log().Error("wasm guest timed out", "uri", r.URI(), "timeout", lcf.Timeout.Get())
			return ngxhttp.HTTPGatewayTimeOut.Status()
		}
		r.Log().Error("wasm guest failed", "uri", r.URI(), "error", err)
		return ngxhttp.HTTPInternalServerError.Status()
	}

	if len(res) > 0 {
		if rc := core.Status(int32(uint32(res[0]))); rc != core.OK {
			return rc
		}
	}

	r.SetStatus(call.status)
	r.SetContentLengthN(len(call.body))
	if r.ContentType() == "" {
		r.SetContentType("text/plain")
	}
	rc := r.SendHeader()
	if rc == core.Error || rc.IsHTTP() || r.HeaderOnly() {
		return rc
	}
	return r.Write(call.body, true)
}
