package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/sshmcp/internal/config"
	"github.com/michaelbrown/sshmcp/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools this server advertises",
	Args:  cobra.NoArgs,
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Printf("Target: %s (port %d)\n\n", cfg.SSH.Target(), cfg.SSH.Port)
	for _, t := range tools.Catalog(cfg.SSH) {
		fmt.Printf("\033[33m%s\033[0m(%s)\n", t.Name, strings.Join(t.InputSchema.Required, ", "))
		fmt.Printf("  %s\n", t.Description)
	}
	return nil
}
