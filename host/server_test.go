package host

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/ngxmod/abi"
)

const stubConfig = `
http {
  server {
    server_name = ["example.com"]
    listen = "127.0.0.1:8081"

    location "/" {
      stub_reply = "root"
    }
    location "/vars" {
      stub_reply = "$uri|$arg_name|$http_x_stub|$request_method|$host|$server_name"
    }
    location "/api" {
      stub_reply = "api"
      location "/api/v2" {
        stub_reply = "v2"
      }
    }
    location "/deny" {
      stub_deny = true
      stub_reply = "secret"
    }
    location "/forbidden" {
      stub_return = 403
    }
    location "/empty" {
    }
    location "/panic" {
      stub_panic = []
    }
    location "/alloc" {
      stub_alloc = []
    }
    location "/twice" {
      stub_double_header = []
    }
    location "/outer" {
      stub_sub = "/inner"
    }
    location "/inner" {
      stub_reply = "inner:$arg_from"
    }
    location "/loop" {
      stub_loop = []
    }
    location "/huge" {
      stub_return = 1000
    }
    location "/huge-set" {
      stub_reply = "never sent"
      stub_status = 1000
    }
    location "/quiet" {
      server_tokens = false
      stub_return = 404
    }
  }
  server {
    server_name = ["other.test"]
    listen = "127.0.0.1:8082"

    location "/" {
      stub_reply = "other"
    }
  }
}
`

func newStubConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	h, err := New([]*abi.Module{stub.Native()}, opts...)
	require.NoError(t, err)
	return mustLoadHCL(t, h, stubConfig)
}

func serve(h http.Handler, method, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		if header[i] == "Host" {
			req.Host = header[i+1]
			continue
		}
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeContentHandler(t *testing.T) {
	cfg := newStubConfig(t)

	rec := serve(cfg, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "root", rec.Body.String())
	assert.Equal(t, "4", rec.Header().Get("Content-Length"))
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "reply", rec.Header().Get("X-Stub"))
	assert.Equal(t, "ngxmod", rec.Header().Get("Server"))
}

func TestServeHeadIsHeaderOnly(t *testing.T) {
	cfg := newStubConfig(t)

	rec := serve(cfg, http.MethodHead, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "4", rec.Header().Get("Content-Length"))
}

func TestServeSelectsServerByHost(t *testing.T) {
	cfg := newStubConfig(t)

	tests := []struct {
		host string
		want string
	}{
		{"example.com", "root"},
		{"other.test", "other"},
		{"Other.Test:8080", "other"},
		{"unknown.test", "root"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			rec := serve(cfg, http.MethodGet, "/", "Host", tt.host)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestServeLongestPrefixLocation(t *testing.T) {
	cfg := newStubConfig(t)

	tests := []struct {
		path string
		want string
	}{
		{"/api", "api"},
		{"/api/v1/users", "api"},
		{"/api/v2/users", "v2"},
		{"/elsewhere", "root"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(cfg, http.MethodGet, tt.path).Body.String())
		})
	}
}

func TestServeVariables(t *testing.T) {
	cfg := newStubConfig(t)

	rec := serve(cfg, http.MethodGet, "/vars?name=bob&x=1", "X-Stub", "yes")
	assert.Equal(t, "/vars|bob|yes|GET|example.com|example.com", rec.Body.String())
}

func TestUnknownVariableFailsLoad(t *testing.T) {
	h := newTestHost(t, stub.Native())

	_, err := loadHCL(t, h, `
http {
  server {
    location "/" {
      stub_reply = "$nope"
    }
  }
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown "nope" variable`)
}

func TestServeSpecialResponses(t *testing.T) {
	cfg := newStubConfig(t)

	tests := []struct {
		name   string
		path   string
		status int
		footer bool
	}{
		{"access denied", "/deny", http.StatusForbidden, true},
		{"handler status", "/forbidden", http.StatusForbidden, true},
		{"no content handler", "/empty", http.StatusNotFound, true},
		{"raw handler panic", "/panic", http.StatusInternalServerError, true},
		{"arena exhausted", "/alloc", http.StatusInternalServerError, true},
		{"server tokens off", "/quiet", http.StatusNotFound, false},
		{"returned status out of range", "/huge", http.StatusInternalServerError, true},
		{"set status out of range", "/huge-set", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(cfg, http.MethodGet, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
			body := rec.Body.String()
			assert.Contains(t, body, fmt.Sprintf("<h1>%d %s</h1>", tt.status, http.StatusText(tt.status)))
			assert.Equal(t, tt.footer, strings.Contains(body, "<center>ngxmod</center>"))
			assert.Equal(t, tt.footer, rec.Header().Get("Server") == "ngxmod")
			assert.NotContains(t, body, "secret")
			assert.NotContains(t, body, "never sent")
		})
	}
}

func TestServeArenaLimit(t *testing.T) {
	cfg := newStubConfig(t, WithRequestPoolLimit(16<<20))

	assert.Equal(t, http.StatusOK, serve(cfg, http.MethodGet, "/alloc").Code)
}

func TestServeDoubleSendHeader(t *testing.T) {
	cfg := newStubConfig(t)

	rec := serve(cfg, http.MethodGet, "/twice")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestServeSubrequest(t *testing.T) {
	cfg := newStubConfig(t)

	rec := serve(cfg, http.MethodGet, "/outer")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inner:main|main sub=200 main=false", rec.Body.String())
}

func TestServeSubrequestDepthLimit(t *testing.T) {
	cfg := newStubConfig(t)
	loopCalls = 0

	rec := serve(cfg, http.MethodGet, "/loop")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, abi.MaxSubrequestDepth+1, loopCalls)
}

func TestServeRunsLogPhase(t *testing.T) {
	cfg := newStubConfig(t)
	logCalls = 0

	serve(cfg, http.MethodGet, "/")
	serve(cfg, http.MethodGet, "/deny")
	serve(cfg, http.MethodGet, "/outer")
	assert.Equal(t, 3, logCalls)
}

func TestHandlerByListenAddress(t *testing.T) {
	cfg := newStubConfig(t)

	assert.Equal(t, []string{"127.0.0.1:8081", "127.0.0.1:8082"}, cfg.Listeners())
	assert.Equal(t, "other", serve(cfg.Handler("127.0.0.1:8082"), http.MethodGet, "/").Body.String())
	assert.Equal(t, http.StatusNotFound, serve(cfg.Handler("127.0.0.1:9"), http.MethodGet, "/").Code)
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	cfg := newStubConfig(t, WithMetrics(m))

	serve(cfg, http.MethodGet, "/")
	serve(cfg, http.MethodGet, "/forbidden")
	serve(cfg, http.MethodGet, "/outer")
	serve(cfg, http.MethodGet, "/alloc")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("403")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("500")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubrequestsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllocFailuresTotal.WithLabelValues("request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigLoadsTotal.WithLabelValues("ok")))
}
