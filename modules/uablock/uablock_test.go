package uablock_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/host"
	"github.com/caffeineduck/ngxmod/modules/echo"
	"github.com/caffeineduck/ngxmod/modules/uablock"
)

const config = `
http {
  ua_block = true

  server {
    location "/" {
      echo = "ok"
    }
    location "/bots" {
      ua_block_pattern = ["Googlebot", "WGET"]
      echo = "ok"
    }
    location "/open" {
      ua_block = false
      echo = "ok"
    }
  }
}
`

func newConfig(t *testing.T) *host.Config {
	t.Helper()
	h, err := host.New([]*abi.Module{uablock.Module(), echo.Module()},
		host.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	root, err := host.ParseHCL("uablock.hcl", []byte(config))
	require.NoError(t, err)
	cfg, err := h.Load(root)
	require.NoError(t, err)
	t.Cleanup(func() { cfg.Close() })
	return cfg
}

func TestAccessHandler(t *testing.T) {
	cfg := newConfig(t)

	tests := []struct {
		name string
		path string
		ua   string
		want int
	}{
		{"default pattern", "/", "curl/8.5.0", http.StatusForbidden},
		{"default pattern any case", "/", "CURL/7", http.StatusForbidden},
		{"browser", "/", "Mozilla/5.0 (X11; Linux x86_64)", http.StatusOK},
		{"no user agent", "/", "", http.StatusOK},
		{"custom pattern", "/bots", "Wget/1.21", http.StatusForbidden},
		{"custom pattern replaces default", "/bots", "curl/8.5.0", http.StatusOK},
		{"second custom pattern", "/bots", "Mozilla/5.0 (compatible; Googlebot/2.1)", http.StatusForbidden},
		{"disabled", "/open", "curl/8.5.0", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.ua != "" {
				req.Header.Set("User-Agent", tt.ua)
			}
			rec := httptest.NewRecorder()
			cfg.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "ok", rec.Body.String())
			} else {
				assert.NotContains(t, rec.Body.String(), "ok")
			}
		})
	}
}

func TestYAMLConfig(t *testing.T) {
	h, err := host.New([]*abi.Module{uablock.Module(), echo.Module()},
		host.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	root, err := host.ParseYAML("uablock.yaml", []byte(`
http:
  server:
    location:
      /:
        ua_block: on
        ua_block_pattern: [python]
        echo: ok
`))
	require.NoError(t, err)
	cfg, err := h.Load(root)
	require.NoError(t, err)
	defer cfg.Close()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "python-requests/2.31")
	rec := httptest.NewRecorder()
	cfg.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
