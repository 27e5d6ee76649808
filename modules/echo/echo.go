// Package echo is a content module that answers with a configured complex
// value. It uses all three configuration scopes:
//
//	http {
//	  echo_default_type = "text/plain"      # main
//	  server {
//	    echo_server_tag = "edge-1"          # server, sent as X-Server-Tag
//	    location "/hello" {
//	      echo         = "hello $arg_name\n"
//	      echo_status  = 200
//	      echo_expires = "1h"
//	    }
//	  }
//	}
package echo

import (
	"errors"
	"fmt"
	"time"

	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/core"
	"github.com/caffeineduck/ngxmod/ngxhttp"
)

const Name = "ngx_http_echo_module"

var ErrInvalidStatus = errors.New("echo_status must be between 200 and 599")

type MainConf struct {
	DefaultType core.Text
}

func (c *MainConf) Merge(*MainConf) error { return nil }

type SrvConf struct {
	ServerTag core.Text
}

func (c *SrvConf) Merge(prev *SrvConf) error {
	c.ServerTag.Inherit(prev.ServerTag)
	return nil
}

type LocConf struct {
	Text    core.Value[*ngxhttp.ComplexValue]
	Status  core.Num
	Expires core.Msec
}

func (c *LocConf) Merge(prev *LocConf) error {
	c.Text.Inherit(prev.Text)
	c.Status.Merge(prev.Status, int(abi.HTTPOK))
	c.Expires.Merge(prev.Expires, 0)
	if s := c.Status.Get(); s < 200 || s > 599 {
		return fmt.Errorf("%w, got %d", ErrInvalidStatus, s)
	}
	return nil
}

var module = ngxhttp.NewModule[MainConf, SrvConf, LocConf](Name)

func init() {
	module.Directives(
		module.MainDirective("echo_default_type", abi.HTTPMainConf|abi.ConfTake1,
			ngxhttp.TextSlot(func(c *MainConf) *core.Text { return &c.DefaultType })),
		module.SrvDirective("echo_server_tag", abi.HTTPMainConf|abi.HTTPSrvConf|abi.ConfTake1,
			ngxhttp.TextSlot(func(c *SrvConf) *core.Text { return &c.ServerTag })),
		module.LocDirective("echo", abi.HTTPLocConf|abi.ConfTake1, setEcho),
		module.LocDirective("echo_status", abi.HTTPAnyConf|abi.ConfTake1,
			ngxhttp.NumSlot(func(c *LocConf) *core.Num { return &c.Status })),
		module.LocDirective("echo_expires", abi.HTTPAnyConf|abi.ConfTake1,
			ngxhttp.SecSlot(func(c *LocConf) *core.Msec { return &c.Expires })),
	)
	module.SetHooks(ngxhttp.Hooks[MainConf]{InitMainConf: initMainConf})
}

// Module returns the module descriptor to register with the host.
func Module() *abi.Module {
	return module.Native()
}

var textSlot = ngxhttp.ComplexValueSlot(func(c *LocConf) *core.Value[*ngxhttp.ComplexValue] { return &c.Text })

func setEcho(cf *ngxhttp.Conf, conf *LocConf) error {
	if err := textSlot(cf, conf); err != nil {
		return err
	}
	return cf.SetContentHandler(handler)
}

func initMainConf(cf *ngxhttp.Conf, conf *MainConf) error {
	if !conf.DefaultType.IsSet() {
		conf.DefaultType = core.Of("text/plain")
	}
	return nil
}

func handler(r *ngxhttp.Request) core.Status {
	if rc := r.DiscardRequestBody(); !rc.IsOK() {
		return rc
	}

	lcf := module.RequestLocConf(r)
	body, ok := r.GetComplexValue(lcf.Text.Get())
	if !ok {
		return core.Error
	}

	r.SetStatus(ngxhttp.HTTPStatus(lcf.Status.Get()))
	r.SetContentLengthN(body.Len())
	r.SetContentType(module.RequestMainConf(r).DefaultType.Get())
	if tag, ok := module.RequestSrvConf(r).ServerTag.Lookup(); ok {
		r.SetHeader("X-Server-Tag", tag)
	}
	if d := lcf.Expires.Get(); d > 0 {
		r.SetHeader("Cache-Control", fmt.Sprintf("max-age=%d", int64(d/time.Second)))
	}

	rc := r.SendHeader()
	if rc == core.Error || rc.IsHTTP() || r.HeaderOnly() {
		return rc
	}
	return r.Write(body.Bytes(), true)
}
