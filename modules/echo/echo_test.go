package echo_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/host"
	"github.com/caffeineduck/ngxmod/modules/echo"
)

const config = `
http {
  echo_default_type = "text/markdown"
  echo_server_tag   = "edge"
  echo_expires      = "1h"

  server {
    server_name = ["a.test"]

    location "/hello" {
      echo = "hello $arg_name"
    }
    location "/created" {
      echo         = "made"
      echo_status  = 201
      echo_expires = 0
    }
    location "/bare" {
      echo         = "bare"
      echo_expires = 90
    }
    location "/silent" {
    }
  }
  server {
    server_name     = ["b.test"]
    echo_server_tag = "origin"

    location "/" {
      echo = "$request_method $uri"
    }
  }
}
`

func load(t *testing.T, src string) (*host.Config, error) {
	t.Helper()
	h, err := host.New([]*abi.Module{echo.Module()},
		host.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	root, err := host.ParseHCL("echo.hcl", []byte(src))
	require.NoError(t, err)
	cfg, err := h.Load(root)
	if err == nil {
		t.Cleanup(func() { cfg.Close() })
	}
	return cfg, err
}

func do(h http.Handler, method, target, hostname string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Host = hostname
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEchoUsesAllScopes(t *testing.T) {
	cfg, err := load(t, config)
	require.NoError(t, err)

	rec := do(cfg, http.MethodGet, "/hello?name=world", "a.test", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
	assert.Equal(t, "11", rec.Header().Get("Content-Length"))
	assert.Equal(t, "text/markdown", rec.Header().Get("Content-Type"))
	assert.Equal(t, "edge", rec.Header().Get("X-Server-Tag"))
	assert.Equal(t, "max-age=3600", rec.Header().Get("Cache-Control"))

	rec = do(cfg, http.MethodGet, "/anything", "b.test", nil)
	assert.Equal(t, "GET /anything", rec.Body.String())
	assert.Equal(t, "origin", rec.Header().Get("X-Server-Tag"))
}

func TestEchoStatusAndExpiresOverride(t *testing.T) {
	cfg, err := load(t, config)
	require.NoError(t, err)

	rec := do(cfg, http.MethodPost, "/created", "a.test", strings.NewReader("ignored body"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "made", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestEchoExpiresBareNumberIsSeconds(t *testing.T) {
	cfg, err := load(t, config)
	require.NoError(t, err)

	rec := do(cfg, http.MethodGet, "/bare", "a.test", nil)
	assert.Equal(t, "max-age=90", rec.Header().Get("Cache-Control"))
}

func TestEchoHead(t *testing.T) {
	cfg, err := load(t, config)
	require.NoError(t, err)

	rec := do(cfg, http.MethodHead, "/hello?name=x", "a.test", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "7", rec.Header().Get("Content-Length"))
}

func TestEchoContentHandlerIsPerLocation(t *testing.T) {
	cfg, err := load(t, config)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, do(cfg, http.MethodGet, "/silent", "a.test", nil).Code)
}

func TestEchoDefaultType(t *testing.T) {
	cfg, err := load(t, `
http {
  server {
    location "/" {
      echo = "plain"
    }
  }
}
`)
	require.NoError(t, err)

	rec := do(cfg, http.MethodGet, "/", "localhost", nil)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("X-Server-Tag"))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestEchoInvalidStatus(t *testing.T) {
	_, err := load(t, `
http {
  echo_status = 700
  server {
    location "/" {
      echo = "x"
    }
  }
}
`)
	require.ErrorIs(t, err, echo.ErrInvalidStatus)

	var cerr *host.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, echo.Name, cerr.Module)
}

func TestEchoDirectiveErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"echo at server level",
			"http {\nserver {\necho = \"a\"\n}\n}\n",
			`"echo" directive is not allowed here`,
		},
		{
			"bad expires",
			"http {\necho_expires = \"soon\"\nserver {\n}\n}\n",
			`invalid time "soon"`,
		},
		{
			"sub-second expires",
			"http {\necho_expires = \"500ms\"\nserver {\n}\n}\n",
			`invalid time "500ms"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := host.New([]*abi.Module{echo.Module()},
				host.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
			require.NoError(t, err)
			root, err := host.ParseHCL("echo.hcl", []byte(tt.src))
			require.NoError(t, err)
			_, err = h.Load(root)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
