package abi

import (
	"log/slog"
	"unsafe"
)

// ConfPtr is an opaque reference to a module configuration record. The host
// stores it in per-scope arrays indexed by Module.CtxIndex and never looks
// inside.
type ConfPtr = unsafe.Pointer

// Handler is the native signature of a request handler slot.
type Handler func(r *Request) Int

// Pool is a host-managed arena. Allocations live until the host destroys
// the pool at the end of its configuration cycle or request.
type Pool struct {
	Host Host
	Log  *slog.Logger

	// HostCtx is host-private.
	HostCtx any
}

// Connection is the client connection a request arrived on.
type Connection struct {
	Number     uint64
	RemoteAddr string
	Requests   uint64
	Log        *slog.Logger
}

// TableElt is one header line.
type TableElt struct {
	Key   string
	Value string
}

// HeadersIn holds the parsed request headers. Well-known headers are also
// linked from dedicated fields; a nil field means the header was absent.
type HeadersIn struct {
	Headers   []*TableElt
	Host      *TableElt
	UserAgent *TableElt
}

// HeadersOut holds the response metadata the host emits on send_header.
// ContentLengthN is -1 when unknown.
type HeadersOut struct {
	Status         Uint
	ContentLengthN int64
	ContentType    string
	Headers        []*TableElt
}

// Request is an in-flight HTTP request.
type Request struct {
	Host       Host
	Main       *Request
	Parent     *Request
	Pool       *Pool
	Connection *Connection

	MainConf []ConfPtr
	SrvConf  []ConfPtr
	LocConf  []ConfPtr

	Method     string
	URI        string
	Args       string
	RequestURI string

	HeadersIn  HeadersIn
	HeadersOut HeadersOut

	HeaderOnly bool
	HeaderSent bool

	// HostCtx is host-private.
	HostCtx any
}

// Buf is a chunk of response body.
type Buf struct {
	Data []byte

	// LastBuf marks the final buffer of the response; LastInChain the final
	// buffer of a subrequest's output.
	LastBuf     bool
	LastInChain bool
	Flush       bool
}

// Chain links buffers passed to the output filter.
type Chain struct {
	Buf  *Buf
	Next *Chain
}

// ComplexValue is an expression compiled by the host at configuration time
// and evaluated per request.
type ComplexValue struct {
	Source string

	// HostCtx is host-private.
	HostCtx any
}

// HTTPConfCtx holds the configuration record arrays of one scope, indexed
// by Module.CtxIndex. Server and location scopes share MainConf with their
// enclosing http block.
type HTTPConfCtx struct {
	MainConf []ConfPtr
	SrvConf  []ConfPtr
	LocConf  []ConfPtr
}

// Conf is the configuration parsing context handed to lifecycle callbacks
// and directive handlers.
type Conf struct {
	Host Host
	Pool *Pool
	Ctx  *HTTPConfCtx
	Log  *slog.Logger

	// Args holds the directive being processed, name first.
	Args []string
	File string
	Line int
}

// Command declares a configuration directive.
type Command struct {
	Name string
	Type Uint
	Conf ConfOffset
	Set  func(cf *Conf, cmd *Command, conf ConfPtr) error
}

// HTTPModule is the lifecycle slot table of an HTTP module. Nil slots are
// skipped by the host. Configuration callbacks report failure with a nil
// record or a non-nil error.
type HTTPModule struct {
	Preconfiguration  func(cf *Conf) Int
	Postconfiguration func(cf *Conf) Int

	CreateMainConf func(cf *Conf) ConfPtr
	InitMainConf   func(cf *Conf, conf ConfPtr) error

	CreateSrvConf func(cf *Conf) ConfPtr
	MergeSrvConf  func(cf *Conf, prev, conf ConfPtr) error

	CreateLocConf func(cf *Conf) ConfPtr
	MergeLocConf  func(cf *Conf, prev, conf ConfPtr) error
}

// Module is a module descriptor. Index and CtxIndex are assigned by the host
// once at startup and read-only afterwards.
type Module struct {
	Name     string
	Index    Uint
	CtxIndex Uint
	Ctx      *HTTPModule
	Commands []Command
}
