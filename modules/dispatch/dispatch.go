// Package dispatch binds handlers registered by the embedding program to
// locations by name:
//
//	dispatch.MustRegister("health", func(r *ngxhttp.Request) core.Status { ... })
//
//	location "/healthz" {
//	  handler = "health"
//	}
//
// Handlers must be registered before the configuration is loaded. The first
// load freezes the table.
package dispatch

import (
	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/core"
	"github.com/caffeineduck/ngxmod/ngxhttp"
)

const Name = "ngx_http_dispatch_module"

var table = ngxhttp.NewHandlerTable()

// Table returns the process-wide handler table.
func Table() *ngxhttp.HandlerTable {
	return table
}

func Register(name string, fn ngxhttp.HandlerFunc) error {
	return table.Register(name, fn)
}

func MustRegister(name string, fn ngxhttp.HandlerFunc) {
	table.MustRegister(name, fn)
}

type LocConf struct {
	Handler core.Text
}

func (c *LocConf) Merge(*LocConf) error { return nil }

var module = ngxhttp.NewModule[ngxhttp.NoConf, ngxhttp.NoConf, LocConf](Name)

func init() {
	module.Directives(module.LocDirective("handler", abi.HTTPLocConf|abi.ConfTake1, setHandler))
}

func Module() *abi.Module {
	return module.Native()
}

func setHandler(cf *ngxhttp.Conf, conf *LocConf) error {
	name := cf.Arg(0)
	if err := conf.Handler.Set(name); err != nil {
		return cf.Errorf("%v", err)
	}
	entry, err := table.Entry(name)
	if err != nil {
		return cf.Errorf("%v", err)
	}
	return cf.SetNativeContentHandler(entry)
}
