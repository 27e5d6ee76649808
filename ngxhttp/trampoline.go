package ngxhttp

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/core"
)

// HandlerFunc is request-processing logic written against the facade.
type HandlerFunc func(r *Request) core.Status

// Trampoline returns the native entry point for fn: it wraps the raw handle
// in a Request, runs fn and hands the status back in the host's encoding.
//
// A panic in fn never reaches the host. Allocation failures and other panics
// end the request with 500.
func Trampoline(fn HandlerFunc) abi.Handler {
	return func(r *abi.Request) abi.Int {
		return invoke(fn, RequestFromNative(r))
	}
}

func invoke(fn HandlerFunc, r *Request) (rc abi.Int) {
	defer func() {
		if v := recover(); v != nil {
			r.Log().Error("handler failed", "uri", r.URI(), "error", panicError(v))
			rc = abi.Int(abi.HTTPInternalServerError)
		}
	}()
	return fn(r).Native()
}

var (
	ErrHandlerExists  = errors.New("handler already registered")
	ErrUnknownHandler = errors.New("unknown handler")
	ErrTableFrozen    = errors.New("handler table is frozen")
)

// HandlerTable maps stable handler names to handler functions. The host
// only ever sees one adapter per slot; the adapter resolves the function
// through the table on each call.
//
// The table is populated at startup and frozen by the first Entry call, so
// lookups afterwards never observe a changing set.
type HandlerTable struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	frozen   bool
}

func NewHandlerTable() *HandlerTable {
	return &HandlerTable{handlers: make(map[string]HandlerFunc)}
}

func (t *HandlerTable) Register(name string, fn HandlerFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return fmt.Errorf("register %q: %w", name, ErrTableFrozen)
	}
	if _, ok := t.handlers[name]; ok {
		return fmt.Errorf("register %q: %w", name, ErrHandlerExists)
	}
	t.handlers[name] = fn
	return nil
}

// MustRegister is Register that panics, for package-level setup.
func (t *HandlerTable) MustRegister(name string, fn HandlerFunc) {
	if err := t.Register(name, fn); err != nil {
		panic(err)
	}
}

func (t *HandlerTable) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

func (t *HandlerTable) Get(name string) (HandlerFunc, bool) {
	t.mu.RLock()
	fn, ok := t.handlers[name]
	t.mu.RUnlock()
	return fn, ok
}

func (t *HandlerTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entry freezes the table and returns the native entry point for name.
func (t *HandlerTable) Entry(name string) (abi.Handler, error) {
	t.Freeze()
	if _, ok := t.Get(name); !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownHandler, name)
	}
	return func(r *abi.Request) abi.Int {
		return t.dispatch(name, r)
	}, nil
}

func (t *HandlerTable) dispatch(name string, raw *abi.Request) abi.Int {
	fn, ok := t.Get(name)
	if !ok {
		return abi.Int(abi.HTTPInternalServerError)
	}
	return invoke(fn, RequestFromNative(raw))
}
