package host

import (
	"log/slog"
)

type hostConfig struct {
	logger            *slog.Logger
	configPoolLimit   int64
	requestPoolLimit  int64
	metrics           *Metrics
	serverSoftware    string
	defaultListenAddr string
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		configPoolLimit:   64 << 20,
		requestPoolLimit:  4 << 20,
		serverSoftware:    "ngxmod",
		defaultListenAddr: "127.0.0.1:8080",
	}
}

type Option func(*hostConfig)

// WithLogger sets the logger handed to modules. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *hostConfig) {
		c.logger = l
	}
}

// WithConfigPoolLimit bounds the bytes a configuration arena may hold.
// Zero or negative means unlimited.
func WithConfigPoolLimit(n int64) Option {
	return func(c *hostConfig) {
		c.configPoolLimit = n
	}
}

// WithRequestPoolLimit bounds the bytes a request arena may hold. Zero or
// negative means unlimited.
func WithRequestPoolLimit(n int64) Option {
	return func(c *hostConfig) {
		c.requestPoolLimit = n
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *hostConfig) {
		c.metrics = m
	}
}

// WithServerSoftware sets the name sent in the Server header and on error
// pages.
func WithServerSoftware(name string) Option {
	return func(c *hostConfig) {
		c.serverSoftware = name
	}
}

// WithDefaultListen sets the address used by servers without a listen
// directive.
func WithDefaultListen(addr string) Option {
	return func(c *hostConfig) {
		c.defaultListenAddr = addr
	}
}
