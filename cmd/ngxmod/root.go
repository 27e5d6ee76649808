package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/host"
	"github.com/caffeineduck/ngxmod/internal/logging"
	"github.com/caffeineduck/ngxmod/modules/dispatch"
	"github.com/caffeineduck/ngxmod/modules/echo"
	"github.com/caffeineduck/ngxmod/modules/uablock"
	"github.com/caffeineduck/ngxmod/modules/wasm"
)

var rootCmd = &cobra.Command{
	Use:   "ngxmod",
	Short: "HTTP server built from nginx-style modules",
	Long: `ngxmod - Serve HTTP with modules written against an nginx-style module ABI.

Modules declare directives, keep main, server and location configuration
records, and register phase or content handlers. The configuration file is
HCL (.hcl) or YAML (.yaml, .yml) with http, server and location blocks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "ngxmod.hcl", "Configuration file (.hcl, .yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON")
}

func setupLogging(cmd *cobra.Command) error {
	levelFlag, _ := cmd.Flags().GetString("log-level")
	asJSON, _ := cmd.Flags().GetBool("log-json")

	level, err := logging.ParseLevel(levelFlag)
	if err != nil {
		return err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.JSON = asJSON
	cfg.Output = cmd.ErrOrStderr()
	logging.SetDefault(logging.New(cfg))
	return nil
}

// builtinModules are the modules compiled into the binary, in registration
// order.
func builtinModules() []*abi.Module {
	return []*abi.Module{
		uablock.Module(),
		echo.Module(),
		dispatch.Module(),
		wasm.Module(),
	}
}

func newHost(opts ...host.Option) (*host.Host, error) {
	opts = append([]host.Option{host.WithLogger(logging.WithComponent("host").Logger)}, opts...)
	return host.New(builtinModules(), opts...)
}

// loadConfig parses the file named by --config and loads it into h.
func loadConfig(cmd *cobra.Command, h *host.Host) (*host.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	root, err := host.LoadFile(path)
	if err != nil {
		return nil, path, err
	}
	cfg, err := h.Load(root)
	if err != nil {
		return nil, path, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, path, nil
}
