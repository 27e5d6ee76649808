package ngxhttp

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/core"
)

// Conf is a view of the host's configuration context during a lifecycle
// callback or directive handler. It must not be retained.
type Conf struct {
	cf *abi.Conf
}

// ConfFromNative wraps a host configuration context without validation.
func ConfFromNative(cf *abi.Conf) *Conf {
	return &Conf{cf: cf}
}

func (c *Conf) Native() *abi.Conf {
	return c.cf
}

// Pool returns the configuration arena. It lives as long as the loaded
// configuration.
func (c *Conf) Pool() core.Pool {
	return core.PoolFromNative(c.cf.Pool)
}

// Directive returns the name of the directive being processed, if any.
func (c *Conf) Directive() string {
	if len(c.cf.Args) == 0 {
		return ""
	}
	return c.cf.Args[0]
}

// Args returns the arguments of the directive being processed.
func (c *Conf) Args() []string {
	if len(c.cf.Args) < 2 {
		return nil
	}
	return c.cf.Args[1:]
}

// Arg returns the i-th directive argument or "".
func (c *Conf) Arg(i int) string {
	args := c.Args()
	if i < 0 || i >= len(args) {
		return ""
	}
	return args[i]
}

func (c *Conf) File() string {
	return c.cf.File
}

func (c *Conf) Line() int {
	return c.cf.Line
}

func (c *Conf) Log() *slog.Logger {
	if c.cf.Log == nil {
		return slog.Default()
	}
	return c.cf.Log
}

// Errorf builds a directive error in the host's wording.
func (c *Conf) Errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if name := c.Directive(); name != "" {
		return fmt.Errorf("%q directive %s", name, msg)
	}
	return errors.New(msg)
}

// CompileComplexValue compiles source (text with $variables) once so it can
// be evaluated cheaply per request.
func (c *Conf) CompileComplexValue(source string) (*ComplexValue, error) {
	cv, err := c.cf.Host.HTTPCompileComplexValue(c.cf, source)
	if err != nil {
		return nil, err
	}
	return core.Allocate(c.Pool(), ComplexValue{native: cv}), nil
}

// AddPhaseHandler appends fn to the handlers of phase. Call it from
// postconfiguration.
func (c *Conf) AddPhaseHandler(phase abi.Phase, fn HandlerFunc) error {
	return c.AddNativePhaseHandler(phase, Trampoline(fn))
}

func (c *Conf) AddNativePhaseHandler(phase abi.Phase, h abi.Handler) error {
	rc := c.cf.Host.HTTPAddPhaseHandler(c.cf, phase, h)
	if rc != abi.OK {
		return &core.StatusError{Op: "add " + phase.String() + " phase handler", Status: core.StatusFromNative(rc)}
	}
	return nil
}

// SetContentHandler makes fn the content handler of the location being
// configured. Call it from a location directive.
func (c *Conf) SetContentHandler(fn HandlerFunc) error {
	return c.SetNativeContentHandler(Trampoline(fn))
}

func (c *Conf) SetNativeContentHandler(h abi.Handler) error {
	rc := c.cf.Host.HTTPSetContentHandler(c.cf, h)
	if rc != abi.OK {
		return &core.StatusError{Op: "set content handler", Status: core.StatusFromNative(rc)}
	}
	return nil
}

// ComplexValue is an expression compiled at configuration time.
type ComplexValue struct {
	native *abi.ComplexValue
}

func (cv *ComplexValue) Native() *abi.ComplexValue {
	return cv.native
}

func (cv *ComplexValue) Source() string {
	if cv == nil || cv.native == nil {
		return ""
	}
	return cv.native.Source
}
