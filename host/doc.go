// Package host is a reference implementation of the server side of the
// module ABI, written in Go on top of net/http.
//
// It exists so extension modules can be loaded, configured and exercised
// without a native server: it drives the configuration lifecycle from a
// configuration file, keeps arenas scoped to the configuration and to each
// request, dispatches request phases and turns the module's responses into
// net/http writes.
//
// # Quick Start
//
//	h, err := host.New([]*abi.Module{echo.Module()})
//	if err != nil {
//	    return err
//	}
//	root, err := host.LoadFile("ngxmod.hcl")
//	if err != nil {
//	    return err
//	}
//	cfg, err := h.Load(root)
//	if err != nil {
//	    return err
//	}
//	defer cfg.Close()
//	return cfg.ListenAndServe(ctx)
//
// # Configuration Files
//
// HCL and YAML files describe the same block tree. Attributes are
// directives; lists expand into directive arguments:
//
//	http {
//	  echo_default_type = "text/plain"
//
//	  server {
//	    listen      = "127.0.0.1:8080"
//	    server_name = ["example.com", "www.example.com"]
//
//	    location "/hello" {
//	      echo = "hello from $host\n"
//	    }
//	  }
//	}
//
// HCL reads "${...}" as an interpolation; write variables as "$name" or
// escape them as "$${name}".
//
// # Lifecycle
//
// Load creates every module's http-level records, runs preconfiguration,
// parses directives (creating server and location records as their blocks
// are entered), runs init_main_conf, merges records from outer to inner
// scopes and finally runs postconfiguration. The first failure aborts the
// load and is returned as a *ConfigError.
//
// # Requests
//
// Each request gets its own arena. The phases post-read, access, content and
// log run in order with the host's usual checker rules: access handlers are
// skipped for subrequests, a location's content handler replaces the
// content-phase handlers, and an HTTP status returned before the header is
// sent produces a built-in error page. The host is synchronous: a handler
// returning AGAIN or DONE is treated as having finished the request.
package host
