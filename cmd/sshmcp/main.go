package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "sshmcp",
	Short: "sshmcp - MCP server for a remote host over SSH",
	Long: `sshmcp exposes a fixed set of tools (exec, sudo exec, read, write, list)
that run on one remote host through the system ssh client.

Run without a subcommand it serves MCP over stdio, which is how MCP
clients launch it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runStdio,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ./sshmcp.yaml or ~/.sshmcp/sshmcp.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
