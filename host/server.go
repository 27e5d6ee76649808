package host

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caffeineduck/ngxmod/abi"
)

type connKey struct{}

// ServeHTTP serves r with the server whose server_name matches the Host
// header, falling back to the first server.
func (c *Config) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, c.servers)
}

func (c *Config) serve(w http.ResponseWriter, hr *http.Request, servers []*server) {
	h := c.host
	start := time.Now()

	conn, _ := hr.Context().Value(connKey{}).(*abi.Connection)
	if conn == nil {
		conn = h.newConnection(hr.RemoteAddr)
	}
	atomic.AddUint64(&conn.Requests, 1)

	srv := findServer(servers, hr.Host)
	loc := srv.find(hr.URL.Path)

	pool := h.newPool(poolRequest, h.opts.requestPoolLimit, conn.Log)
	defer h.destroyPool(pool)

	requestURI := hr.RequestURI
	if requestURI == "" {
		requestURI = hr.URL.RequestURI()
	}
	r := &abi.Request{
		Host:       h,
		Pool:       pool,
		Connection: conn,
		MainConf:   c.http.MainConf,
		SrvConf:    srv.ctx.SrvConf,
		LocConf:    loc.ctx.LocConf,
		Method:     hr.Method,
		URI:        hr.URL.Path,
		Args:       hr.URL.RawQuery,
		RequestURI: requestURI,
		HeadersIn:  headersIn(hr),
		HeadersOut: abi.HeadersOut{ContentLengthN: -1},
	}
	r.Main = r
	st := &requestState{cfg: c, srv: srv, loc: loc, main: &mainState{hr: hr, w: w}}
	r.HostCtx = st

	h.run(r)

	h.metrics.request(st.main.status, time.Since(start).Seconds())
	conn.Log.Debug("request finished", "method", hr.Method, "uri", hr.URL.Path, "status", st.main.status)
}

func headersIn(hr *http.Request) abi.HeadersIn {
	var in abi.HeadersIn
	if hr.Host != "" {
		in.Host = &abi.TableElt{Key: "Host", Value: hr.Host}
		in.Headers = append(in.Headers, in.Host)
	}
	keys := make([]string, 0, len(hr.Header))
	for k := range hr.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range hr.Header[k] {
			e := &abi.TableElt{Key: k, Value: v}
			in.Headers = append(in.Headers, e)
			if in.UserAgent == nil && k == "User-Agent" {
				in.UserAgent = e
			}
		}
	}
	return in
}

func (h *Host) newConnection(remote string) *abi.Connection {
	n := h.connections.Add(1)
	return &abi.Connection{
		Number:     n,
		RemoteAddr: remote,
		Log:        h.log.With("conn", n),
	}
}

func findServer(servers []*server, host string) *server {
	if hp, _, err := net.SplitHostPort(host); err == nil {
		host = hp
	}
	host = strings.ToLower(host)
	for _, s := range servers {
		for _, name := range s.names {
			if name == host {
				return s
			}
		}
	}
	return servers[0]
}

// find returns the location with the longest prefix matching uri,
// descending into nested locations. The server itself is the fallback.
func (s *server) find(uri string) *location {
	loc := s.root
	for {
		var best *location
		for _, l := range loc.locations {
			if strings.HasPrefix(uri, l.prefix) && (best == nil || len(l.prefix) > len(best.prefix)) {
				best = l
			}
		}
		if best == nil {
			return loc
		}
		loc = best
	}
}

// Listeners returns the distinct listen addresses in configuration order.
func (c *Config) Listeners() []string {
	var addrs []string
	seen := make(map[string]bool)
	for _, s := range c.servers {
		if !seen[s.listen] {
			seen[s.listen] = true
			addrs = append(addrs, s.listen)
		}
	}
	return addrs
}

// Handler returns the handler for the servers listening on addr.
func (c *Config) Handler(addr string) http.Handler {
	var servers []*server
	for _, s := range c.servers {
		if s.listen == addr {
			servers = append(servers, s)
		}
	}
	if len(servers) == 0 {
		return http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.serve(w, r, servers)
	})
}

// ListenAndServe starts one http.Server per listen address and shuts them
// down gracefully when ctx is cancelled.
func (c *Config) ListenAndServe(ctx context.Context) error {
	addrs := c.Listeners()
	servers := make([]*http.Server, 0, len(addrs))
	for _, addr := range addrs {
		servers = append(servers, &http.Server{
			Addr:              addr,
			Handler:           c.Handler(addr),
			ReadHeaderTimeout: 10 * time.Second,
			ConnContext: func(ctx context.Context, nc net.Conn) context.Context {
				return context.WithValue(ctx, connKey{}, c.host.newConnection(nc.RemoteAddr().String()))
			},
		})
	}

	errc := make(chan error, len(servers))
	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.log.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		srv.Shutdown(shutdownCtx)
	}
	wg.Wait()
	return err
}
