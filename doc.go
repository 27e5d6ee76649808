// Package ngxmod lets HTTP server modules be written in Go against an
// nginx-style module ABI, without touching raw handles.
//
// # Overview
//
// The [abi] package mirrors the host's C-level structures and callbacks.
// [core] and [ngxhttp] wrap them: arena handles, statuses, typed
// configuration records with create/init/merge, a request view and the
// handler trampoline. The [host] package is a reference server that drives
// modules through the same lifecycle a real host would, and serves them over
// net/http.
//
// # Basic Usage
//
//	h, _ := host.New([]*abi.Module{echo.Module(), uablock.Module()})
//	root, _ := host.LoadFile("ngxmod.hcl")
//	cfg, _ := h.Load(root)
//	defer cfg.Close()
//
//	http.ListenAndServe(":8080", cfg)
//
// # Writing a Module
//
//	type LocConf struct {
//	    Greeting core.Text
//	}
//
//	func (c *LocConf) Merge(prev *LocConf) error {
//	    c.Greeting.Merge(prev.Greeting, "hello")
//	    return nil
//	}
//
//	var module = ngxhttp.NewModule[ngxhttp.NoConf, ngxhttp.NoConf, LocConf]("ngx_http_greet_module")
//
// See [ngxhttp] for directives and hooks, and the packages under modules/
// for complete examples: echo (content), uablock (access phase), dispatch
// (named handlers) and wasm (WebAssembly content handlers).
package ngxmod
