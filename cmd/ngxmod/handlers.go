package main

import (
	"fmt"
	"strings"

	"github.com/caffeineduck/ngxmod/core"
	"github.com/caffeineduck/ngxmod/modules/dispatch"
	"github.com/caffeineduck/ngxmod/ngxhttp"
)

// Handlers available to the "handler" directive.
func init() {
	dispatch.MustRegister("health", healthHandler)
	dispatch.MustRegister("whoami", whoamiHandler)
}

func healthHandler(r *ngxhttp.Request) core.Status {
	return reply(r, "text/plain", "ok\n")
}

// whoamiHandler describes the request as the server saw it.
func whoamiHandler(r *ngxhttp.Request) core.Status {
	var b strings.Builder
	fmt.Fprintf(&b, "method: %s\n", r.Method())
	fmt.Fprintf(&b, "uri: %s\n", r.URI())
	if args := r.Args(); args != "" {
		fmt.Fprintf(&b, "args: %s\n", args)
	}
	if ua, ok := r.UserAgent(); ok {
		fmt.Fprintf(&b, "user-agent: %s\n", ua)
	}
	fmt.Fprintf(&b, "remote: %s\n", r.Connection().RemoteAddr())
	return reply(r, "text/plain", b.String())
}

func reply(r *ngxhttp.Request, contentType, body string) core.Status {
	if rc := r.DiscardRequestBody(); !rc.IsOK() {
		return rc
	}
	r.SetStatus(ngxhttp.HTTPOK)
	r.SetContentLengthN(len(body))
	r.SetContentType(contentType)
	rc := r.SendHeader()
	if rc == core.Error || rc.IsHTTP() || r.HeaderOnly() {
		return rc
	}
	return r.Write([]byte(body), true)
}
