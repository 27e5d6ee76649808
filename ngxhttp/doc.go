// Package ngxhttp is the HTTP side of the facade: modules with three-tier
// configuration, directives, the request view and the handler trampoline.
//
// # Modules
//
// A module names its main, server and location record types. Each record
// type's zero value is its default and its pointer type implements
// Merge(prev) error:
//
//	type LocConf struct {
//	    Enable core.Flag
//	}
//
//	func (c *LocConf) Merge(prev *LocConf) error {
//	    c.Enable.Merge(prev.Enable, false)
//	    return nil
//	}
//
//	var module = ngxhttp.NewModule[ngxhttp.NoConf, ngxhttp.NoConf, LocConf]("ngx_http_foo_module")
//
//	func init() {
//	    module.Directives(module.LocDirective("foo",
//	        abi.HTTPAnyConf|abi.ConfFlag,
//	        ngxhttp.FlagSlot(func(c *LocConf) *core.Flag { return &c.Enable })))
//	    module.SetHooks(ngxhttp.Hooks[ngxhttp.NoConf]{Postconfiguration: postconfiguration})
//	}
//
//	func Module() *abi.Module { return module.Native() }
//
// The host calls, in order: preconfiguration, create (main once, server and
// location once per block), directive handlers, init main, merge (outer
// scopes before inner ones) and postconfiguration. Records are allocated in
// the configuration arena and never freed by the module.
//
// # Handlers
//
// Handlers receive a [Request] and return a core.Status. [Trampoline] turns
// a handler into the native entry point the host calls; [Conf] registers
// trampolines as phase or content handlers:
//
//	func postconfiguration(cf *ngxhttp.Conf) error {
//	    return cf.AddPhaseHandler(abi.PhaseAccess, accessHandler)
//	}
//
//	func accessHandler(r *ngxhttp.Request) core.Status {
//	    if !module.RequestLocConf(r).Enable.Get() {
//	        return core.Declined
//	    }
//	    return ngxhttp.HTTPForbidden.Status()
//	}
package ngxhttp
