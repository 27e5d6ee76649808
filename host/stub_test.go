package host

import (
	"fmt"

	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/core"
	"github.com/caffeineduck/ngxmod/ngxhttp"
)

// stub is a module used to drive requests through the host.
type stubLoc struct {
	Reply  core.Value[*ngxhttp.ComplexValue]
	Status core.Num
	Sub    core.Text
	Deny   core.Flag
}

func (c *stubLoc) Merge(prev *stubLoc) error {
	c.Status.Merge(prev.Status, 200)
	c.Deny.Merge(prev.Deny, false)
	return nil
}

var (
	stub = ngxhttp.NewModule[ngxhttp.NoConf, ngxhttp.NoConf, stubLoc]("ngx_http_stub_module")

	loopCalls int
	logCalls  int
)

func init() {
	replySlot := ngxhttp.ComplexValueSlot(func(c *stubLoc) *core.Value[*ngxhttp.ComplexValue] { return &c.Reply })
	subSlot := ngxhttp.TextSlot(func(c *stubLoc) *core.Text { return &c.Sub })

	stub.Directives(
		stub.LocDirective("stub_reply", abi.HTTPLocConf|abi.ConfTake1, func(cf *ngxhttp.Conf, c *stubLoc) error {
			if err := replySlot(cf, c); err != nil {
				return err
			}
			return cf.SetContentHandler(replyHandler)
		}),
		stub.LocDirective("stub_status", abi.HTTPAnyConf|abi.ConfTake1,
			ngxhttp.NumSlot(func(c *stubLoc) *core.Num { return &c.Status })),
		stub.LocDirective("stub_return", abi.HTTPLocConf|abi.ConfTake1, func(cf *ngxhttp.Conf, c *stubLoc) error {
			var n int
			if _, err := fmt.Sscan(cf.Arg(0), &n); err != nil {
				return cf.Errorf("invalid status %q", cf.Arg(0))
			}
			return cf.SetContentHandler(func(*ngxhttp.Request) core.Status { return core.Status(n) })
		}),
		stub.LocDirective("stub_sub", abi.HTTPLocConf|abi.ConfTake1, func(cf *ngxhttp.Conf, c *stubLoc) error {
			if err := subSlot(cf, c); err != nil {
				return err
			}
			return cf.SetContentHandler(subHandler)
		}),
		stub.LocDirective("stub_loop", abi.HTTPLocConf|abi.ConfNoArgs, func(cf *ngxhttp.Conf, c *stubLoc) error {
			return cf.SetContentHandler(loopHandler)
		}),
		stub.LocDirective("stub_panic", abi.HTTPLocConf|abi.ConfNoArgs, func(cf *ngxhttp.Conf, c *stubLoc) error {
			return cf.SetNativeContentHandler(func(*abi.Request) abi.Int { panic("raw handler") })
		}),
		stub.LocDirective("stub_alloc", abi.HTTPLocConf|abi.ConfNoArgs, func(cf *ngxhttp.Conf, c *stubLoc) error {
			return cf.SetContentHandler(func(r *ngxhttp.Request) core.Status {
				core.AllocateSlice[byte](r.Pool(), 8<<20)
				return core.OK
			})
		}),
		stub.LocDirective("stub_double_header", abi.HTTPLocConf|abi.ConfNoArgs, func(cf *ngxhttp.Conf, c *stubLoc) error {
			return cf.SetContentHandler(func(r *ngxhttp.Request) core.Status {
				r.SendHeader()
				return r.SendHeader()
			})
		}),
		stub.LocDirective("stub_deny", abi.HTTPAnyConf|abi.ConfFlag,
			ngxhttp.FlagSlot(func(c *stubLoc) *core.Flag { return &c.Deny })),
	)
	stub.SetHooks(ngxhttp.Hooks[ngxhttp.NoConf]{
		Postconfiguration: func(cf *ngxhttp.Conf) error {
			if err := cf.AddPhaseHandler(abi.PhaseAccess, denyHandler); err != nil {
				return err
			}
			return cf.AddPhaseHandler(abi.PhaseLog, func(*ngxhttp.Request) core.Status {
				logCalls++
				return core.OK
			})
		},
	})
}

func replyHandler(r *ngxhttp.Request) core.Status {
	lcf := stub.RequestLocConf(r)
	body, ok := r.GetComplexValue(lcf.Reply.Get())
	if !ok {
		return core.Error
	}
	r.SetStatus(ngxhttp.HTTPStatus(lcf.Status.Get()))
	r.SetContentLengthN(body.Len())
	r.SetContentType("text/plain")
	r.SetHeader("X-Stub", "reply")
	if rc := r.SendHeader(); rc == core.Error || rc.IsHTTP() || r.HeaderOnly() {
		return rc
	}
	return r.Write(body.Bytes(), true)
}

func subHandler(r *ngxhttp.Request) core.Status {
	if rc := r.SendHeader(); rc != core.OK {
		return rc
	}
	sr, rc := r.Subrequest(stub.RequestLocConf(r).Sub.Get(), "from=main")
	if rc != core.OK {
		return rc
	}
	tail := fmt.Sprintf("|main sub=%d main=%v", sr.Status(), sr.IsMain())
	return r.Write([]byte(tail), true)
}

func loopHandler(r *ngxhttp.Request) core.Status {
	loopCalls++
	if r.IsMain() {
		r.SendHeader()
	}
	if _, rc := r.Subrequest(r.URI(), ""); rc != core.OK {
		return core.Done
	}
	return core.OK
}

func denyHandler(r *ngxhttp.Request) core.Status {
	if stub.RequestLocConf(r).Deny.Get() {
		return ngxhttp.HTTPForbidden.Status()
	}
	return core.Declined
}
