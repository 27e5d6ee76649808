package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/ngxmod/modules/dispatch"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List compiled-in modules and their directives",
	Args:  cobra.NoArgs,
	RunE:  runModules,
}

func init() {
	modulesCmd.Flags().Bool("handlers", false, "Also list handlers for the \"handler\" directive")
	rootCmd.AddCommand(modulesCmd)
}

func runModules(cmd *cobra.Command, args []string) error {
	showHandlers, _ := cmd.Flags().GetBool("handlers")

	h, err := newHost()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, m := range h.Modules() {
		directives := h.Directives(m)
		if len(directives) == 0 {
			fmt.Fprintln(out, m.Name)
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", m.Name, strings.Join(directives, ", "))
	}

	if showHandlers {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "handlers:")
		for _, name := range dispatch.Table().Names() {
			fmt.Fprintf(out, "  %s\n", name)
		}
	}
	return nil
}
