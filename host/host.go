package host

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/caffeineduck/ngxmod/abi"
)

var (
	ErrNilModule          = errors.New("nil module")
	ErrNotHTTPModule      = errors.New("module has no http context")
	ErrDuplicateModule    = errors.New("duplicate module")
	ErrDuplicateDirective = errors.New("duplicate directive")
	ErrUnknownDirective   = errors.New("unknown directive")
)

// Index assignment is process-wide: a descriptor gets its index the first
// time any host sees it and keeps it for the life of the process, so
// descriptors shared by several hosts stay consistent.
var (
	indexMu   sync.Mutex
	indexed   = map[*abi.Module]bool{}
	nextIndex abi.Uint
)

func assignIndex(m *abi.Module) {
	indexMu.Lock()
	defer indexMu.Unlock()
	if indexed[m] {
		return
	}
	m.Index = nextIndex
	m.CtxIndex = nextIndex
	indexed[m] = true
	nextIndex++
}

type command struct {
	module *abi.Module
	cmd    *abi.Command
}

// Host is the reference server. Its module registry is fixed by New; each
// Load produces an independent Config.
type Host struct {
	modules  []*abi.Module
	commands map[string]command
	ctxLen   int

	opts    hostConfig
	log     *slog.Logger
	metrics *Metrics

	connections atomic.Uint64
}

var _ abi.Host = (*Host)(nil)

// New registers modules after the built-in core module. Module and
// directive names must be unique.
func New(modules []*abi.Module, opts ...Option) (*Host, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	h := &Host{
		commands: make(map[string]command),
		opts:     cfg,
		log:      cfg.logger,
		metrics:  cfg.metrics,
	}

	names := make(map[string]bool)
	all := append([]*abi.Module{coreModule.Native()}, modules...)
	for _, m := range all {
		if m == nil {
			return nil, ErrNilModule
		}
		if m.Ctx == nil {
			return nil, fmt.Errorf("%s: %w", m.Name, ErrNotHTTPModule)
		}
		if names[m.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModule, m.Name)
		}
		names[m.Name] = true

		for i := range m.Commands {
			c := &m.Commands[i]
			if prev, ok := h.commands[c.Name]; ok {
				return nil, fmt.Errorf("%w %q in %s and %s", ErrDuplicateDirective, c.Name, prev.module.Name, m.Name)
			}
			h.commands[c.Name] = command{module: m, cmd: c}
		}

		assignIndex(m)
		if n := int(m.CtxIndex) + 1; n > h.ctxLen {
			h.ctxLen = n
		}
		h.modules = append(h.modules, m)
	}
	return h, nil
}

// Modules returns the registered modules in registration order, core first.
func (h *Host) Modules() []*abi.Module {
	return append([]*abi.Module(nil), h.modules...)
}

// Directives returns the directive names each module declares.
func (h *Host) Directives(m *abi.Module) []string {
	names := make([]string, 0, len(m.Commands))
	for _, c := range m.Commands {
		names = append(names, c.Name)
	}
	return names
}

func (h *Host) Logger() *slog.Logger {
	return h.log
}

func (h *Host) newCtx() *abi.HTTPConfCtx {
	return &abi.HTTPConfCtx{
		MainConf: make([]abi.ConfPtr, h.ctxLen),
		SrvConf:  make([]abi.ConfPtr, h.ctxLen),
		LocConf:  make([]abi.ConfPtr, h.ctxLen),
	}
}
