package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test the configuration file and exit",
	Long: `Parse the configuration file and run every module's configuration
lifecycle: record creation, directives, init, merge and postconfiguration.
Nothing is served.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	h, err := newHost()
	if err != nil {
		return err
	}
	cfg, path, err := loadConfig(cmd, h)
	if err != nil {
		return err
	}
	defer cfg.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "configuration file %s syntax is ok\n", path)
	for _, addr := range cfg.Listeners() {
		fmt.Fprintf(out, "listen %s\n", addr)
	}
	fmt.Fprintf(out, "configuration file %s test is successful\n", path)
	return nil
}
