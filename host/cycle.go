package host

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/caffeineduck/ngxmod/abi"
)

// ConfigError reports a failed configuration step.
type ConfigError struct {
	Module string
	Phase  string
	File   string
	Line   int
	Err    error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	if e.Module != "" {
		b.WriteString(e.Module)
		b.WriteString(": ")
	}
	if e.Phase != "" && e.Phase != "directive" {
		b.WriteString(e.Phase)
		b.WriteString(" failed: ")
	}
	b.WriteString(e.Err.Error())
	switch {
	case e.File != "" && e.Line > 0:
		fmt.Fprintf(&b, " in %s:%d", e.File, e.Line)
	case e.File != "":
		b.WriteString(" in ")
		b.WriteString(e.File)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	ErrCreateFailed = errors.New("could not create configuration record")
	ErrHookFailed   = errors.New("hook returned an error status")
	ErrBadBlock     = errors.New("invalid block")
)

// Config is a loaded configuration. It is safe for concurrent use by
// requests until Close.
type Config struct {
	host    *Host
	pool    *abi.Pool
	http    *abi.HTTPConfCtx
	servers []*server
	log     *slog.Logger

	closeOnce sync.Once
}

type server struct {
	ctx    *abi.HTTPConfCtx
	listen string
	names  []string

	// root holds the server-level location record and the top-level
	// locations.
	root *location
}

type location struct {
	prefix    string
	ctx       *abi.HTTPConfCtx
	file      string
	line      int
	locations []*location
}

// Load runs the configuration lifecycle over root and returns the
// resulting configuration. On failure every record allocated so far is
// released.
func (h *Host) Load(root *Block) (cfg *Config, err error) {
	defer func() { h.metrics.configLoad(err) }()

	httpBlock, err := findHTTP(root)
	if err != nil {
		return nil, err
	}

	log := h.log.With("component", "config")
	pool := h.newPool(poolConfig, h.opts.configPoolLimit, log)
	defer func() {
		if err != nil {
			h.destroyPool(pool)
		}
	}()

	l := &loader{host: h, pool: pool, log: log}
	cfg = &Config{host: h, pool: pool, http: h.newCtx(), log: log}

	for _, m := range h.modules {
		if err := l.create(m, cfg.http, httpBlock, true, true, true); err != nil {
			return nil, err
		}
	}

	for _, m := range h.modules {
		if m.Ctx.Preconfiguration == nil {
			continue
		}
		if rc := m.Ctx.Preconfiguration(l.conf(cfg.http, httpBlock.File, httpBlock.Line)); rc != abi.OK {
			return nil, &ConfigError{Module: m.Name, Phase: "preconfiguration", File: httpBlock.File, Line: httpBlock.Line, Err: ErrHookFailed}
		}
	}

	if err := l.block(cfg, cfg.http, httpBlock, abi.HTTPMainConf, nil, nil); err != nil {
		return nil, err
	}

	for _, m := range h.modules {
		if m.Ctx.InitMainConf == nil {
			continue
		}
		cf := l.conf(cfg.http, httpBlock.File, httpBlock.Line)
		if err := m.Ctx.InitMainConf(cf, cfg.http.MainConf[m.CtxIndex]); err != nil {
			return nil, &ConfigError{Module: m.Name, Phase: "init_main_conf", File: httpBlock.File, Line: httpBlock.Line, Err: err}
		}
	}

	for _, m := range h.modules {
		if err := l.merge(m, cfg); err != nil {
			return nil, err
		}
	}

	for _, m := range h.modules {
		if m.Ctx.Postconfiguration == nil {
			continue
		}
		if rc := m.Ctx.Postconfiguration(l.conf(cfg.http, httpBlock.File, httpBlock.Line)); rc != abi.OK {
			return nil, &ConfigError{Module: m.Name, Phase: "postconfiguration", File: httpBlock.File, Line: httpBlock.Line, Err: ErrHookFailed}
		}
	}

	if len(cfg.servers) == 0 {
		return nil, &ConfigError{Phase: "load", File: httpBlock.File, Line: httpBlock.Line, Err: fmt.Errorf("%w: no server block", ErrBadBlock)}
	}
	for _, s := range cfg.servers {
		scf := coreSrv(s.ctx)
		s.listen = scf.Listen.GetOr(h.opts.defaultListenAddr)
		for _, name := range scf.ServerNames.Get() {
			s.names = append(s.names, strings.ToLower(name))
		}
	}

	log.Info("configuration loaded", "servers", len(cfg.servers), "modules", len(h.modules))
	return cfg, nil
}

func findHTTP(root *Block) (*Block, error) {
	if root == nil {
		return nil, &ConfigError{Phase: "load", Err: fmt.Errorf("%w: empty configuration", ErrBadBlock)}
	}
	if len(root.Directives) > 0 {
		d := root.Directives[0]
		return nil, &ConfigError{Phase: "directive", File: d.File, Line: d.Line, Err: fmt.Errorf("%w %q", ErrUnknownDirective, d.Name)}
	}
	var found *Block
	for _, b := range root.Blocks {
		if b.Type != "http" {
			return nil, &ConfigError{Phase: "load", File: b.File, Line: b.Line, Err: fmt.Errorf("%w: %q is not allowed here", ErrBadBlock, b.Type)}
		}
		if found != nil {
			return nil, &ConfigError{Phase: "load", File: b.File, Line: b.Line, Err: fmt.Errorf("%w: \"http\" is duplicate", ErrBadBlock)}
		}
		found = b
	}
	if found == nil {
		return nil, &ConfigError{Phase: "load", File: root.File, Err: fmt.Errorf("%w: no \"http\" block", ErrBadBlock)}
	}
	return found, nil
}

type loader struct {
	host *Host
	pool *abi.Pool
	log  *slog.Logger
}

func (l *loader) conf(ctx *abi.HTTPConfCtx, file string, line int) *abi.Conf {
	return &abi.Conf{
		Host: l.host,
		Pool: l.pool,
		Ctx:  ctx,
		Log:  l.log,
		File: file,
		Line: line,
	}
}

// create fills the selected record slots of ctx for module m.
func (l *loader) create(m *abi.Module, ctx *abi.HTTPConfCtx, b *Block, main, srv, loc bool) error {
	cf := l.conf(ctx, b.File, b.Line)
	slots := []struct {
		want  bool
		phase string
		fn    func(*abi.Conf) abi.ConfPtr
		dst   []abi.ConfPtr
	}{
		{main, "create_main_conf", m.Ctx.CreateMainConf, ctx.MainConf},
		{srv, "create_srv_conf", m.Ctx.CreateSrvConf, ctx.SrvConf},
		{loc, "create_loc_conf", m.Ctx.CreateLocConf, ctx.LocConf},
	}
	for _, s := range slots {
		if !s.want || s.fn == nil {
			continue
		}
		conf := s.fn(cf)
		if conf == nil {
			return &ConfigError{Module: m.Name, Phase: s.phase, File: b.File, Line: b.Line, Err: ErrCreateFailed}
		}
		s.dst[m.CtxIndex] = conf
	}
	return nil
}

// block processes the directives and child blocks of b in scope ctx.
// srv is set inside a server block, parent inside a location.
func (l *loader) block(cfg *Config, ctx *abi.HTTPConfCtx, b *Block, scope abi.Uint, srv *server, parent *location) error {
	for _, d := range b.Directives {
		if err := l.directive(ctx, scope, d); err != nil {
			return err
		}
	}

	for _, child := range b.Blocks {
		switch {
		case child.Type == "server" && scope == abi.HTTPMainConf:
			if child.Label != "" {
				return &ConfigError{Phase: "load", File: child.File, Line: child.Line, Err: fmt.Errorf("%w: \"server\" takes no label", ErrBadBlock)}
			}
			sctx := &abi.HTTPConfCtx{
				MainConf: ctx.MainConf,
				SrvConf:  make([]abi.ConfPtr, l.host.ctxLen),
				LocConf:  make([]abi.ConfPtr, l.host.ctxLen),
			}
			for _, m := range l.host.modules {
				if err := l.create(m, sctx, child, false, true, true); err != nil {
					return err
				}
			}
			s := &server{ctx: sctx, root: &location{ctx: sctx, file: child.File, line: child.Line}}
			cfg.servers = append(cfg.servers, s)
			if err := l.block(cfg, sctx, child, abi.HTTPSrvConf, s, s.root); err != nil {
				return err
			}

		case child.Type == "location" && (scope == abi.HTTPSrvConf || scope == abi.HTTPLocConf):
			if child.Label == "" {
				return &ConfigError{Phase: "load", File: child.File, Line: child.Line, Err: fmt.Errorf("%w: \"location\" needs a prefix", ErrBadBlock)}
			}
			if parent.prefix != "" && !strings.HasPrefix(child.Label, parent.prefix) {
				return &ConfigError{Phase: "load", File: child.File, Line: child.Line,
					Err: fmt.Errorf("%w: location %q is outside location %q", ErrBadBlock, child.Label, parent.prefix)}
			}
			lctx := &abi.HTTPConfCtx{
				MainConf: ctx.MainConf,
				SrvConf:  ctx.SrvConf,
				LocConf:  make([]abi.ConfPtr, l.host.ctxLen),
			}
			for _, m := range l.host.modules {
				if err := l.create(m, lctx, child, false, false, true); err != nil {
					return err
				}
			}
			loc := &location{prefix: child.Label, ctx: lctx, file: child.File, line: child.Line}
			parent.locations = append(parent.locations, loc)
			if err := l.block(cfg, lctx, child, abi.HTTPLocConf, srv, loc); err != nil {
				return err
			}

		default:
			return &ConfigError{Phase: "load", File: child.File, Line: child.Line, Err: fmt.Errorf("%w: %q is not allowed here", ErrBadBlock, child.Type)}
		}
	}
	return nil
}

// argumentNumber maps an argument count to the flag that allows it.
var argumentNumber = []abi.Uint{
	abi.ConfNoArgs,
	abi.ConfTake1,
	abi.ConfTake2,
	abi.ConfTake3,
}

func (l *loader) directive(ctx *abi.HTTPConfCtx, scope abi.Uint, d Directive) error {
	c, ok := l.host.commands[d.Name]
	if !ok {
		return &ConfigError{Phase: "directive", File: d.File, Line: d.Line, Err: fmt.Errorf("%w %q", ErrUnknownDirective, d.Name)}
	}
	fail := func(err error) error {
		return &ConfigError{Module: c.module.Name, Phase: "directive", File: d.File, Line: d.Line, Err: err}
	}

	if c.cmd.Type&scope == 0 {
		return fail(fmt.Errorf("%q directive is not allowed here", d.Name))
	}
	if !argsValid(c.cmd.Type, len(d.Args)) {
		return fail(fmt.Errorf("invalid number of arguments in %q directive", d.Name))
	}

	var confs []abi.ConfPtr
	switch c.cmd.Conf {
	case abi.HTTPMainConfOffset:
		confs = ctx.MainConf
	case abi.HTTPSrvConfOffset:
		confs = ctx.SrvConf
	default:
		confs = ctx.LocConf
	}

	cf := l.conf(ctx, d.File, d.Line)
	cf.Args = append([]string{d.Name}, d.Args...)
	if err := c.cmd.Set(cf, c.cmd, confs[c.module.CtxIndex]); err != nil {
		return fail(err)
	}
	return nil
}

func argsValid(flags abi.Uint, n int) bool {
	switch {
	case flags&abi.ConfFlag != 0:
		return n == 1
	case flags&abi.Conf1More != 0:
		return n >= 1
	case flags&abi.Conf2More != 0:
		return n >= 2
	case n < len(argumentNumber):
		return flags&argumentNumber[n] != 0
	}
	return false
}

// merge merges m's server and location records outer to inner: each
// server from the http level, then each location from its enclosing scope.
func (l *loader) merge(m *abi.Module, cfg *Config) error {
	for _, s := range cfg.servers {
		if m.Ctx.MergeSrvConf != nil {
			cf := l.conf(s.ctx, s.root.file, s.root.line)
			if err := m.Ctx.MergeSrvConf(cf, cfg.http.SrvConf[m.CtxIndex], s.ctx.SrvConf[m.CtxIndex]); err != nil {
				return &ConfigError{Module: m.Name, Phase: "merge_srv_conf", File: s.root.file, Line: s.root.line, Err: err}
			}
		}
		if m.Ctx.MergeLocConf == nil {
			continue
		}
		cf := l.conf(s.ctx, s.root.file, s.root.line)
		if err := m.Ctx.MergeLocConf(cf, cfg.http.LocConf[m.CtxIndex], s.ctx.LocConf[m.CtxIndex]); err != nil {
			return &ConfigError{Module: m.Name, Phase: "merge_loc_conf", File: s.root.file, Line: s.root.line, Err: err}
		}
		if err := l.mergeLocations(m, s.root); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) mergeLocations(m *abi.Module, parent *location) error {
	for _, loc := range parent.locations {
		cf := l.conf(loc.ctx, loc.file, loc.line)
		if err := m.Ctx.MergeLocConf(cf, parent.ctx.LocConf[m.CtxIndex], loc.ctx.LocConf[m.CtxIndex]); err != nil {
			return &ConfigError{Module: m.Name, Phase: "merge_loc_conf", File: loc.file, Line: loc.line, Err: err}
		}
		if err := l.mergeLocations(m, loc); err != nil {
			return err
		}
	}
	return nil
}

// Close destroys the configuration arena and runs its cleanups. Requests
// must not be served afterwards.
func (c *Config) Close() error {
	c.closeOnce.Do(func() {
		c.host.destroyPool(c.pool)
	})
	return nil
}
