package ngxhttp

import (
	"fmt"
	"sync"

	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/core"
)

// Hooks are the optional lifecycle callbacks of a module. Nil hooks are
// no-ops that succeed.
type Hooks[M any] struct {
	// Preconfiguration runs before any directive of the http block is parsed.
	Preconfiguration func(cf *Conf) error
	// InitMainConf runs after parsing, before merging.
	InitMainConf func(cf *Conf, conf *M) error
	// Postconfiguration runs after all records are merged. Phase handlers
	// are registered here.
	Postconfiguration func(cf *Conf) error
}

// Module generates the native lifecycle slot table for an HTTP module whose
// main, server and location records are M, S and L.
//
// The descriptor returned by Native is what the host registers. Records of
// this module are only ever reached through the module's own context index,
// so the typed accessors below are the checked form of the host's
// unchecked per-index downcast.
type Module[M, S, L any, PM Merger[M], PS Merger[S], PL Merger[L]] struct {
	name  string
	hooks Hooks[M]
	cmds  []abi.Command

	once   sync.Once
	native *abi.Module
}

// NewModule declares a module. Type arguments name the three record types:
//
//	var module = ngxhttp.NewModule[ngxhttp.NoConf, ngxhttp.NoConf, LocConf]("ngx_http_foo_module")
func NewModule[M, S, L any, PM Merger[M], PS Merger[S], PL Merger[L]](name string) *Module[M, S, L, PM, PS, PL] {
	return &Module[M, S, L, PM, PS, PL]{name: name}
}

func (m *Module[M, S, L, PM, PS, PL]) Name() string {
	return m.name
}

// SetHooks installs lifecycle hooks. It panics once the module is registered.
func (m *Module[M, S, L, PM, PS, PL]) SetHooks(h Hooks[M]) {
	m.mustBeOpen()
	m.hooks = h
}

// Directives appends directive declarations. It panics once the module is
// registered.
func (m *Module[M, S, L, PM, PS, PL]) Directives(cmds ...abi.Command) {
	m.mustBeOpen()
	m.cmds = append(m.cmds, cmds...)
}

// Native returns the module descriptor, building it on first use. After
// that the module is frozen.
func (m *Module[M, S, L, PM, PS, PL]) Native() *abi.Module {
	m.once.Do(func() {
		m.native = &abi.Module{
			Name:     m.name,
			Commands: m.cmds,
			Ctx: &abi.HTTPModule{
				Preconfiguration:  m.preconfiguration,
				Postconfiguration: m.postconfiguration,
				CreateMainConf:    createConf[M],
				InitMainConf:      m.initMainConf,
				CreateSrvConf:     createConf[S],
				MergeSrvConf:      mergeConf[S, PS],
				CreateLocConf:     createConf[L],
				MergeLocConf:      mergeConf[L, PL],
			},
		}
	})
	return m.native
}

func (m *Module[M, S, L, PM, PS, PL]) mustBeOpen() {
	if m.native != nil {
		panic(fmt.Sprintf("ngxhttp: module %s is already registered", m.name))
	}
}

// MainDirective declares a directive that writes the module's main record.
func (m *Module[M, S, L, PM, PS, PL]) MainDirective(name string, flags abi.Uint, set func(cf *Conf, conf *M) error) abi.Command {
	return directive(name, flags, abi.HTTPMainConfOffset, set)
}

// SrvDirective declares a directive that writes the module's server record.
func (m *Module[M, S, L, PM, PS, PL]) SrvDirective(name string, flags abi.Uint, set func(cf *Conf, conf *S) error) abi.Command {
	return directive(name, flags, abi.HTTPSrvConfOffset, set)
}

// LocDirective declares a directive that writes the module's location record.
func (m *Module[M, S, L, PM, PS, PL]) LocDirective(name string, flags abi.Uint, set func(cf *Conf, conf *L) error) abi.Command {
	return directive(name, flags, abi.HTTPLocConfOffset, set)
}

func (m *Module[M, S, L, PM, PS, PL]) MainConf(cf *Conf) *M {
	return (*M)(cf.cf.Ctx.MainConf[m.Native().CtxIndex])
}

func (m *Module[M, S, L, PM, PS, PL]) SrvConf(cf *Conf) *S {
	return (*S)(cf.cf.Ctx.SrvConf[m.Native().CtxIndex])
}

func (m *Module[M, S, L, PM, PS, PL]) LocConf(cf *Conf) *L {
	return (*L)(cf.cf.Ctx.LocConf[m.Native().CtxIndex])
}

func (m *Module[M, S, L, PM, PS, PL]) RequestMainConf(r *Request) *M {
	return (*M)(r.r.MainConf[m.Native().CtxIndex])
}

func (m *Module[M, S, L, PM, PS, PL]) RequestSrvConf(r *Request) *S {
	return (*S)(r.r.SrvConf[m.Native().CtxIndex])
}

func (m *Module[M, S, L, PM, PS, PL]) RequestLocConf(r *Request) *L {
	return (*L)(r.GetModuleLocConf(m.Native()))
}

func (m *Module[M, S, L, PM, PS, PL]) preconfiguration(cf *abi.Conf) abi.Int {
	return runHook(cf, "preconfiguration", m.hooks.Preconfiguration)
}

func (m *Module[M, S, L, PM, PS, PL]) postconfiguration(cf *abi.Conf) abi.Int {
	return runHook(cf, "postconfiguration", m.hooks.Postconfiguration)
}

func (m *Module[M, S, L, PM, PS, PL]) initMainConf(cf *abi.Conf, conf abi.ConfPtr) (err error) {
	if m.hooks.InitMainConf == nil {
		return nil
	}
	defer recoverConf(&err)
	return m.hooks.InitMainConf(ConfFromNative(cf), (*M)(conf))
}

func runHook(cf *abi.Conf, name string, hook func(*Conf) error) (rc abi.Int) {
	if hook == nil {
		return abi.OK
	}
	var err error
	func() {
		defer recoverConf(&err)
		err = hook(ConfFromNative(cf))
	}()
	if err != nil {
		if cf.Log != nil {
			cf.Log.Error(name+" failed", "error", err)
		}
		return abi.Error
	}
	return abi.OK
}

// createConf allocates a default record in the configuration arena. A nil
// result tells the host the allocation failed.
func createConf[T any](cf *abi.Conf) (conf abi.ConfPtr) {
	defer func() {
		if r := recover(); r != nil {
			if cf.Log != nil {
				cf.Log.Error("create conf failed", "error", panicError(r))
			}
			conf = nil
		}
	}()
	var zero T
	return abi.ConfPtr(core.Allocate(core.PoolFromNative(cf.Pool), zero))
}

func mergeConf[T any, PT Merger[T]](cf *abi.Conf, prev, conf abi.ConfPtr) (err error) {
	defer recoverConf(&err)
	return PT((*T)(conf)).Merge((*T)(prev))
}

func directive[T any](name string, flags abi.Uint, offset abi.ConfOffset, set func(*Conf, *T) error) abi.Command {
	return abi.Command{
		Name: name,
		Type: flags,
		Conf: offset,
		Set: func(cf *abi.Conf, _ *abi.Command, conf abi.ConfPtr) (err error) {
			defer recoverConf(&err)
			return set(ConfFromNative(cf), (*T)(conf))
		},
	}
}

func recoverConf(errp *error) {
	if r := recover(); r != nil {
		*errp = panicError(r)
	}
}

func panicError(r any) error {
	if err, ok := r.(*core.AllocationError); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
