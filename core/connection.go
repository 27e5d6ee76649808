package core

import (
	"log/slog"

	"github.com/caffeineduck/ngxmod/abi"
)

// Connection is a non-owning handle to the client connection of a request.
type Connection struct {
	c *abi.Connection
}

func ConnectionFromNative(c *abi.Connection) Connection {
	return Connection{c: c}
}

func (c Connection) Native() *abi.Connection {
	return c.c
}

func (c Connection) Number() uint64 {
	if c.c == nil {
		return 0
	}
	return c.c.Number
}

func (c Connection) RemoteAddr() string {
	if c.c == nil {
		return ""
	}
	return c.c.RemoteAddr
}

// Log returns the connection logger, or slog's default when the host
// provided none.
func (c Connection) Log() *slog.Logger {
	if c.c == nil || c.c.Log == nil {
		return slog.Default()
	}
	return c.c.Log
}
