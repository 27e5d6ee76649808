package host

import (
	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/core"
	"github.com/caffeineduck/ngxmod/ngxhttp"
)

// CoreModuleName is the name of the built-in module that owns the server
// and location structure.
const CoreModuleName = "ngx_http_core_module"

type coreMainConf struct {
	phases [abi.PhaseCount][]abi.Handler
}

func (c *coreMainConf) Merge(*coreMainConf) error { return nil }

type coreSrvConf struct {
	Listen      core.Text
	ServerNames core.Value[[]string]
}

func (c *coreSrvConf) Merge(prev *coreSrvConf) error {
	c.Listen.Inherit(prev.Listen)
	c.ServerNames.Inherit(prev.ServerNames)
	return nil
}

type coreLocConf struct {
	ServerTokens core.Flag

	// handler is set per location and not inherited by nested locations.
	handler abi.Handler
}

func (c *coreLocConf) Merge(prev *coreLocConf) error {
	c.ServerTokens.Merge(prev.ServerTokens, true)
	return nil
}

var coreModule = ngxhttp.NewModule[coreMainConf, coreSrvConf, coreLocConf](CoreModuleName)

func init() {
	coreModule.Directives(
		coreModule.SrvDirective("listen", abi.HTTPSrvConf|abi.ConfTake1,
			ngxhttp.TextSlot(func(c *coreSrvConf) *core.Text { return &c.Listen })),
		coreModule.SrvDirective("server_name", abi.HTTPSrvConf|abi.Conf1More,
			ngxhttp.TextListSlot(func(c *coreSrvConf) *core.Value[[]string] { return &c.ServerNames })),
		coreModule.LocDirective("server_tokens", abi.HTTPAnyConf|abi.ConfFlag,
			ngxhttp.FlagSlot(func(c *coreLocConf) *core.Flag { return &c.ServerTokens })),
	)
	assignIndex(coreModule.Native())
}

func coreMain(ctx *abi.HTTPConfCtx) *coreMainConf {
	return (*coreMainConf)(ctx.MainConf[coreModule.Native().CtxIndex])
}

func coreSrv(ctx *abi.HTTPConfCtx) *coreSrvConf {
	return (*coreSrvConf)(ctx.SrvConf[coreModule.Native().CtxIndex])
}

func coreLoc(ctx *abi.HTTPConfCtx) *coreLocConf {
	return (*coreLocConf)(ctx.LocConf[coreModule.Native().CtxIndex])
}
