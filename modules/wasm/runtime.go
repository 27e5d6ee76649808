package wasm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/caffeineduck/ngxmod/ngxhttp"
)

const hostModuleName = "ngx"

// newRuntime creates a runtime with WASI and the "ngx" host module. The
// returned function releases it.
func newRuntime(memoryLimitPages uint32, cacheDir string) (wazero.Runtime, func(), error) {
	ctx := context.Background()

	var cache wazero.CompilationCache
	if cacheDir != "" {
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, nil, fmt.Errorf("create compilation cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	closeFn := func() {
		rt.Close(ctx)
		if cache != nil {
			cache.Close(ctx)
		}
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("instantiate WASI: %w", err)
	}
	if err := instantiateHostModule(ctx, rt); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("instantiate host module: %w", err)
	}
	return rt, closeFn, nil
}

type callKey struct{}

// guestCall is the per-request state host functions operate on.
type guestCall struct {
	req    *ngxhttp.Request
	kv     *kvStore
	status ngxhttp.HTTPStatus
	body   []byte
}

func callFrom(ctx context.Context) *guestCall {
	c, ok := ctx.Value(callKey{}).(*guestCall)
	if !ok {
		panic("ngx host function called outside a request")
	}
	return c
}

func read(m api.Module, ptr, n uint32) []byte {
	b, ok := m.Memory().Read(ptr, n)
	if !ok {
		panic(fmt.Sprintf("out of range memory access at %d+%d", ptr, n))
	}
	return b
}

func instantiateHostModule(ctx context.Context, rt wazero.Runtime) error {
	_, err := rt.NewHostModuleBuilder(hostModuleName).
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context) uint32 {
			if callFrom(ctx).req.IsMain() {
				return 1
			}
			return 0
		}).
		Export("is_main").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, capacity uint32) int32 {
			ua, ok := callFrom(ctx).req.UserAgent()
			if !ok {
				return -1
			}
			n := uint32(ua.Len())
			if n > capacity {
				n = capacity
			}
			if !m.Memory().Write(ptr, ua.Bytes()[:n]) {
				panic("out of range memory access in user_agent")
			}
			return int32(ua.Len())
		}).
		Export("user_agent").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, status uint32) {
			callFrom(ctx).status = ngxhttp.HTTPStatus(status)
		}).
		Export("set_status").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, kptr, klen, vptr, vlen uint32) {
			c := callFrom(ctx)
			key := string(read(m, kptr, klen))
			value := string(read(m, vptr, vlen))
			if strings.EqualFold(key, "Content-Type") {
				c.req.SetContentType(value)
				return
			}
			c.req.SetHeader(key, value)
		}).
		Export("set_header").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, n uint32) {
			c := callFrom(ctx)
			c.body = append(c.body, read(m, ptr, n)...)
		}).
		Export("write").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, n uint32) {
			c := callFrom(ctx)
			c.req.Log().Info(string(read(m, ptr, n)), "component", "wasm", "uri", c.req.URI())
		}).
		Export("log").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, kptr, klen, vptr, capacity uint32) int32 {
			v, ok := callFrom(ctx).kv.get(string(read(m, kptr, klen)))
			if !ok {
				return -1
			}
			n := uint32(len(v))
			if n > capacity {
				n = capacity
			}
			if !m.Memory().Write(vptr, v[:n]) {
				panic("out of range memory access in kv_get")
			}
			return int32(len(v))
		}).
		Export("kv_get").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, kptr, klen, vptr, vlen uint32) int32 {
			c := callFrom(ctx)
			if err := c.kv.set(string(read(m, kptr, klen)), read(m, vptr, vlen)); err != nil {
				c.req.Log().Warn("wasm kv_set failed", "uri", c.req.URI(), "error", err)
				return -1
			}
			return 0
		}).
		Export("kv_set").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, kptr, klen uint32) {
			callFrom(ctx).kv.delete(string(read(m, kptr, klen)))
		}).
		Export("kv_delete").
		Instantiate(ctx)
	return err
}
