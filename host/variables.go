package host

import (
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/caffeineduck/ngxmod/abi"
)

type segment struct {
	literal string
	get     variable
}

type variable func(r *abi.Request) string

var variables = map[string]variable{
	"uri":            func(r *abi.Request) string { return r.URI },
	"args":           func(r *abi.Request) string { return r.Args },
	"query_string":   func(r *abi.Request) string { return r.Args },
	"request_uri":    func(r *abi.Request) string { return r.Main.RequestURI },
	"request_method": func(r *abi.Request) string { return r.Main.Method },
	"host":           hostVariable,
	"remote_addr":    remoteAddrVariable,
	"server_name":    serverNameVariable,
	"scheme":         schemeVariable,
	"request_id":     requestIDVariable,
	"status":         func(r *abi.Request) string { return fmt.Sprint(r.Main.HeadersOut.Status) },
}

func lookupVariable(name string) (variable, bool) {
	if v, ok := variables[name]; ok {
		return v, true
	}
	if h, ok := strings.CutPrefix(name, "http_"); ok && h != "" {
		header := strings.ReplaceAll(h, "_", "-")
		return func(r *abi.Request) string {
			for _, e := range r.HeadersIn.Headers {
				if strings.EqualFold(e.Key, header) {
					return e.Value
				}
			}
			return ""
		}, true
	}
	if a, ok := strings.CutPrefix(name, "arg_"); ok && a != "" {
		return func(r *abi.Request) string {
			return argValue(r.Args, a)
		}, true
	}
	return nil, false
}

// argValue returns the raw, undecoded value of the first argument named
// name.
func argValue(args, name string) string {
	for args != "" {
		var pair string
		pair, args, _ = strings.Cut(args, "&")
		k, v, _ := strings.Cut(pair, "=")
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func hostVariable(r *abi.Request) string {
	if h := r.Main.HeadersIn.Host; h != nil && h.Value != "" {
		host := h.Value
		if hp, _, err := net.SplitHostPort(host); err == nil {
			host = hp
		}
		return strings.ToLower(host)
	}
	return serverNameVariable(r)
}

func remoteAddrVariable(r *abi.Request) string {
	if r.Connection == nil {
		return ""
	}
	if h, _, err := net.SplitHostPort(r.Connection.RemoteAddr); err == nil {
		return h
	}
	return r.Connection.RemoteAddr
}

func serverNameVariable(r *abi.Request) string {
	st := stateOf(r)
	if st == nil || len(st.srv.names) == 0 {
		return ""
	}
	return st.srv.names[0]
}

func schemeVariable(r *abi.Request) string {
	st := stateOf(r)
	if st != nil && st.main.hr != nil && st.main.hr.TLS != nil {
		return "https"
	}
	return "http"
}

func requestIDVariable(r *abi.Request) string {
	st := stateOf(r)
	if st == nil {
		return ""
	}
	m := st.main
	if m.requestID == "" {
		id := uuid.New()
		m.requestID = strings.ReplaceAll(id.String(), "-", "")
	}
	return m.requestID
}

// HTTPCompileComplexValue splits source into literal text and variable
// references. Variables are written $name or ${name}; "$$" is not special.
func (h *Host) HTTPCompileComplexValue(cf *abi.Conf, source string) (*abi.ComplexValue, error) {
	var segs []segment
	rest := source
	for rest != "" {
		i := strings.IndexByte(rest, '$')
		if i < 0 {
			segs = append(segs, segment{literal: rest})
			break
		}
		if i > 0 {
			segs = append(segs, segment{literal: rest[:i]})
		}
		rest = rest[i+1:]

		var name string
		if strings.HasPrefix(rest, "{") {
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				return nil, fmt.Errorf("the closing bracket in %q variable is missing", rest[1:])
			}
			name, rest = rest[1:end], rest[end+1:]
		} else {
			n := 0
			for n < len(rest) && isVariableChar(rest[n]) {
				n++
			}
			name, rest = rest[:n], rest[n:]
		}
		if name == "" {
			return nil, fmt.Errorf("invalid variable name in %q", source)
		}

		get, ok := lookupVariable(strings.ToLower(name))
		if !ok {
			return nil, fmt.Errorf("unknown %q variable", name)
		}
		segs = append(segs, segment{get: get})
	}
	return &abi.ComplexValue{Source: source, HostCtx: segs}, nil
}

func isVariableChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// HTTPComplexValue evaluates cv for r into the request arena.
func (h *Host) HTTPComplexValue(r *abi.Request, cv *abi.ComplexValue) ([]byte, abi.Int) {
	segs, ok := cv.HostCtx.([]segment)
	if !ok && cv.HostCtx != nil {
		return nil, abi.Error
	}
	var b strings.Builder
	for _, s := range segs {
		if s.get == nil {
			b.WriteString(s.literal)
			continue
		}
		b.WriteString(s.get(r))
	}
	out := make([]byte, b.Len())
	copy(out, b.String())
	if !h.PAlloc(r.Pool, uintptr(len(out)), &out) {
		return nil, abi.Error
	}
	return out, abi.OK
}
