package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/sshmcp/internal/tools"
)

// initTimeout bounds the child's startup and MCP handshake.
const initTimeout = 15 * time.Second

var callCmd = &cobra.Command{
	Use:   "call <tool> [key=value...]",
	Short: "Call one tool through a child MCP server",
	Long: `Launch sshmcp as a child stdio MCP server, call one tool and print
its text. The exit status is 1 when the tool reports an error.

A value of the form @file is replaced by the contents of file.

Examples:
  sshmcp call ssh_exec command="uptime"
  sshmcp call ssh_read_file path=/etc/hostname
  sshmcp call ssh_write_file path=/etc/motd content=@motd.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	toolArgs, err := parseToolArgs(args[1:])
	if err != nil {
		return err
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	initCtx, cancel := context.WithTimeout(context.Background(), initTimeout)
	conn, err := tools.Dial(initCtx, self, os.Environ(), childArgs(configFlag)...)
	cancel()
	if err != nil {
		return err
	}

	ctx := context.Background()

	text, isError, err := conn.CallTool(ctx, args[0], toolArgs)
	conn.Close()
	if err != nil {
		return err
	}

	fmt.Println(text)
	if isError {
		os.Exit(1)
	}
	return nil
}

// childArgs runs the bare root command, which serves stdio even when
// http.addr is configured.
func childArgs(configPath string) []string {
	if configPath == "" {
		return nil
	}
	return []string{"--config", configPath}
}

// parseToolArgs turns key=value pairs into tool arguments. Values are
// always strings.
func parseToolArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q (want key=value)", p)
		}
		if strings.HasPrefix(value, "@") {
			data, err := os.ReadFile(value[1:])
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", key, err)
			}
			value = string(data)
		}
		args[key] = value
	}
	return args, nil
}
