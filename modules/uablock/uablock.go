// Package uablock denies requests whose User-Agent contains a configured
// pattern. It registers an access-phase handler:
//
//	location "/" {
//	  ua_block         = true
//	  ua_block_pattern = ["curl", "wget"]
//	}
package uablock

import (
	"bytes"

	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/core"
	"github.com/caffeineduck/ngxmod/ngxhttp"
)

const Name = "ngx_http_uablock_module"

// DefaultPattern is blocked when ua_block is on and no pattern is given.
const DefaultPattern = "curl"

type LocConf struct {
	Enable   core.Flag
	Patterns core.Value[[]string]
}

func (c *LocConf) Merge(prev *LocConf) error {
	c.Enable.Merge(prev.Enable, false)
	c.Patterns.Merge(prev.Patterns, []string{DefaultPattern})
	return nil
}

var module = ngxhttp.NewModule[ngxhttp.NoConf, ngxhttp.NoConf, LocConf](Name)

func init() {
	module.Directives(
		module.LocDirective("ua_block", abi.HTTPAnyConf|abi.ConfFlag,
			ngxhttp.FlagSlot(func(c *LocConf) *core.Flag { return &c.Enable })),
		module.LocDirective("ua_block_pattern", abi.HTTPAnyConf|abi.Conf1More,
			ngxhttp.TextListSlot(func(c *LocConf) *core.Value[[]string] { return &c.Patterns })),
	)
	module.SetHooks(ngxhttp.Hooks[ngxhttp.NoConf]{Postconfiguration: postconfiguration})
}

func Module() *abi.Module {
	return module.Native()
}

func postconfiguration(cf *ngxhttp.Conf) error {
	return cf.AddPhaseHandler(abi.PhaseAccess, accessHandler)
}

func accessHandler(r *ngxhttp.Request) core.Status {
	if !r.IsMain() {
		return core.Declined
	}
	lcf := module.RequestLocConf(r)
	if !lcf.Enable.Get() {
		return core.Declined
	}
	ua, ok := r.UserAgent()
	if !ok {
		return core.Declined
	}

	agent := bytes.ToLower(ua.Bytes())
	for _, p := range lcf.Patterns.Get() {
		if bytes.Contains(agent, bytes.ToLower([]byte(p))) {
			r.Log().Info("user agent blocked", "uri", r.URI(), "pattern", p)
			return ngxhttp.HTTPForbidden.Status()
		}
	}
	return core.Declined
}
