package wasm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"

	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/core"
	"github.com/caffeineduck/ngxmod/ngxhttp"
)

const Name = "ngx_http_wasm_module"

const (
	DefaultExport  = "handle"
	DefaultTimeout = 5 * time.Second

	maxMemoryPages = 65536
)

var (
	ErrNoRuntime     = errors.New("wasm runtime is not initialized")
	ErrMissingExport = errors.New("guest does not export function")
)

type MainConf struct {
	MemoryLimit  core.Num
	CacheDir     core.Text
	KVMaxEntries core.Num

	runtime  wazero.Runtime
	kv       *kvStore
	mu       sync.Mutex
	compiled map[string]wazero.CompiledModule
}

func (c *MainConf) Merge(*MainConf) error { return nil }

// compile returns the compiled module for path, compiling it on first use.
func (c *MainConf) compile(path string) (wazero.CompiledModule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.compiled[path]; ok {
		return m, nil
	}
	if c.runtime == nil {
		return nil, ErrNoRuntime
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read guest: %w", err)
	}
	m, err := c.runtime.CompileModule(context.Background(), code)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	c.compiled[path] = m
	return m, nil
}

type LocConf struct {
	Path    core.Text
	Export  core.Text
	Timeout core.Msec

	main     *MainConf
	compiled wazero.CompiledModule
}

// Merge compiles the location's guest. The guest path is per location and
// not inherited.
func (c *LocConf) Merge(prev *LocConf) error {
	c.Export.Merge(prev.Export, DefaultExport)
	c.Timeout.Merge(prev.Timeout, DefaultTimeout)

	path, ok := c.Path.Lookup()
	if !ok || c.compiled != nil {
		return nil
	}
	if c.main == nil {
		return ErrNoRuntime
	}
	compiled, err := c.main.compile(path)
	if err != nil {
		return err
	}
	if _, ok := compiled.ExportedFunctions()[c.Export.Get()]; !ok {
		return fmt.Errorf("%w %q", ErrMissingExport, c.Export.Get())
	}
	c.compiled = compiled
	return nil
}

var module = ngxhttp.NewModule[MainConf, ngxhttp.NoConf, LocConf](Name)

func init() {
	module.Directives(
		module.MainDirective("wasm_memory_limit", abi.HTTPMainConf|abi.ConfTake1,
			ngxhttp.NumSlot(func(c *MainConf) *core.Num { return &c.MemoryLimit })),
		module.MainDirective("wasm_cache_dir", abi.HTTPMainConf|abi.ConfTake1,
			ngxhttp.TextSlot(func(c *MainConf) *core.Text { return &c.CacheDir })),
		module.MainDirective("wasm_kv_max_entries", abi.HTTPMainConf|abi.ConfTake1,
			ngxhttp.NumSlot(func(c *MainConf) *core.Num { return &c.KVMaxEntries })),
		module.LocDirective("wasm_handler", abi.HTTPLocConf|abi.ConfTake1, setHandler),
		module.LocDirective("wasm_export", abi.HTTPAnyConf|abi.ConfTake1,
			ngxhttp.TextSlot(func(c *LocConf) *core.Text { return &c.Export })),
		module.LocDirective("wasm_timeout", abi.HTTPAnyConf|abi.ConfTake1,
			ngxhttp.MsecSlot(func(c *LocConf) *core.Msec { return &c.Timeout })),
	)
	module.SetHooks(ngxhttp.Hooks[MainConf]{InitMainConf: initMainConf})
}

func Module() *abi.Module {
	return module.Native()
}

func setHandler(cf *ngxhttp.Conf, conf *LocConf) error {
	path := cf.Arg(0)
	if !filepath.IsAbs(path) && cf.File() != "" {
		path = filepath.Join(filepath.Dir(cf.File()), path)
	}
	if err := conf.Path.Set(path); err != nil {
		return cf.Errorf("%v", err)
	}
	conf.main = module.MainConf(cf)
	return cf.SetContentHandler(handler)
}

func initMainConf(cf *ngxhttp.Conf, conf *MainConf) error {
	pages := conf.MemoryLimit.Get()
	if pages > maxMemoryPages {
		return fmt.Errorf("wasm_memory_limit must not exceed %d pages", maxMemoryPages)
	}

	rt, closeFn, err := newRuntime(uint32(pages), conf.CacheDir.Get())
	if err != nil {
		return err
	}
	cf.Pool().AddCleanup(closeFn)

	conf.runtime = rt
	conf.compiled = make(map[string]wazero.CompiledModule)
	conf.kv = newKVStore(conf.KVMaxEntries.GetOr(DefaultKVMaxEntries))
	cf.Log().Debug("wasm runtime ready", "memory_limit_pages", pages)
	return nil
}
