package host

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/ngxmod/abi"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recConf is the record of a recorder module at any scope.
type recConf struct {
	label  string
	parent *recConf
}

// recorder builds raw modules that log every lifecycle call. failAt names
// a call that should fail.
type recorder struct {
	calls  []string
	failAt string
}

func (rec *recorder) hit(name, ev string) bool {
	rec.calls = append(rec.calls, name+":"+ev)
	return name+":"+ev == rec.failAt
}

func (rec *recorder) module(name string) *abi.Module {
	create := func(ev string) func(*abi.Conf) abi.ConfPtr {
		return func(cf *abi.Conf) abi.ConfPtr {
			if rec.hit(name, ev) {
				return nil
			}
			return abi.ConfPtr(&recConf{})
		}
	}
	merge := func(ev string) func(*abi.Conf, abi.ConfPtr, abi.ConfPtr) error {
		return func(cf *abi.Conf, prev, conf abi.ConfPtr) error {
			p, c := (*recConf)(prev), (*recConf)(conf)
			c.parent = p
			if rec.hit(name, fmt.Sprintf("%s(%s<-%s)", ev, c.label, p.label)) {
				return fmt.Errorf("%s failed", ev)
			}
			return nil
		}
	}
	hook := func(ev string) func(*abi.Conf) abi.Int {
		return func(cf *abi.Conf) abi.Int {
			if rec.hit(name, ev) {
				return abi.Error
			}
			return abi.OK
		}
	}

	return &abi.Module{
		Name: name,
		Ctx: &abi.HTTPModule{
			Preconfiguration:  hook("pre"),
			Postconfiguration: hook("post"),
			CreateMainConf:    create("create_main"),
			CreateSrvConf:     create("create_srv"),
			CreateLocConf:     create("create_loc"),
			InitMainConf: func(cf *abi.Conf, conf abi.ConfPtr) error {
				if rec.hit(name, "init_main") {
					return fmt.Errorf("init failed")
				}
				return nil
			},
			MergeSrvConf: merge("merge_srv"),
			MergeLocConf: merge("merge_loc"),
		},
		Commands: []abi.Command{
			{
				Name: name + "_label",
				Type: abi.HTTPAnyConf | abi.ConfTake1,
				Conf: abi.HTTPLocConfOffset,
				Set: func(cf *abi.Conf, cmd *abi.Command, conf abi.ConfPtr) error {
					(*recConf)(conf).label = cf.Args[1]
					rec.hit(name, "directive("+cf.Args[1]+")")
					return nil
				},
			},
		},
	}
}

func newTestHost(t *testing.T, modules ...*abi.Module) *Host {
	t.Helper()
	h, err := New(modules, WithLogger(quietLogger()))
	require.NoError(t, err)
	return h
}

func loadHCL(t *testing.T, h *Host, src string) (*Config, error) {
	t.Helper()
	root, err := ParseHCL("test.hcl", []byte(src))
	require.NoError(t, err)
	return h.Load(root)
}

func mustLoadHCL(t *testing.T, h *Host, src string) *Config {
	t.Helper()
	cfg, err := loadHCL(t, h, src)
	require.NoError(t, err)
	t.Cleanup(func() { cfg.Close() })
	return cfg
}
