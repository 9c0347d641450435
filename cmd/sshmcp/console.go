package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/sshmcp/internal/tools"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run commands on the remote host interactively",
	Long: `Start an interactive console against an in-process MCP server.

A plain line runs through ssh_exec. Calls are audited like any other
client's when audit.enabled is set.

Examples:
  sshmcp console
  sshmcp console --config ./staging.yaml`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

type consoleAction int

const (
	actionCall consoleAction = iota
	actionHelp
	actionTools
	actionQuit
)

type consoleRequest struct {
	action consoleAction
	tool   string
	args   map[string]any
}

// parseConsoleLine maps one input line onto a tool call or a console command.
func parseConsoleLine(input string) (consoleRequest, error) {
	if !strings.HasPrefix(input, "/") {
		return consoleRequest{action: actionCall, tool: tools.ToolExec, args: map[string]any{"command": input}}, nil
	}

	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "/quit", "/exit", "/q":
		return consoleRequest{action: actionQuit}, nil
	case "/help":
		return consoleRequest{action: actionHelp}, nil
	case "/tools":
		return consoleRequest{action: actionTools}, nil
	case "/sudo":
		if rest == "" {
			return consoleRequest{}, fmt.Errorf("usage: %s <command>", name)
		}
		return consoleRequest{action: actionCall, tool: tools.ToolExecSudo, args: map[string]any{"command": rest}}, nil
	case "/cat":
		if rest == "" {
			return consoleRequest{}, fmt.Errorf("usage: %s <path>", name)
		}
		return consoleRequest{action: actionCall, tool: tools.ToolReadFile, args: map[string]any{"path": rest}}, nil
	case "/ls":
		if rest == "" {
			rest = "."
		}
		return consoleRequest{action: actionCall, tool: tools.ToolListDir, args: map[string]any{"path": rest}}, nil
	default:
		return consoleRequest{}, fmt.Errorf("unknown command: %s (try /help)", name)
	}
}

func runConsole(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	conn, err := tools.Connect(context.Background(), a.gateway.InProcessClient())
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("sshmcp console - %s\n", a.cfg.SSH.Target())
	fmt.Printf("Type /help for commands, /quit to exit\n\n")

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".sshmcp")
		if err := os.MkdirAll(dir, 0o755); err == nil {
			historyFile = filepath.Join(dir, "history")
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36m" + a.cfg.SSH.Target() + ">\033[0m ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	for {
		input, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		req, err := parseConsoleLine(input)
		if err != nil {
			fmt.Printf("%s\n\n", err)
			continue
		}

		switch req.action {
		case actionQuit:
			fmt.Println("Goodbye!")
			return nil
		case actionHelp:
			printConsoleHelp()
			continue
		case actionTools:
			for _, t := range conn.Tools() {
				fmt.Printf("  %-16s %s\n", t.Name, t.Description)
			}
			fmt.Println()
			continue
		}

		// Ctrl+C during a call cancels only that call.
		reqCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		text, isError, err := conn.CallTool(reqCtx, req.tool, req.args)
		interrupted := reqCtx.Err() != nil
		stop()

		switch {
		case interrupted:
			fmt.Println("(interrupted)")
		case err != nil:
			fmt.Printf("\033[31merror: %s\033[0m\n", err)
		case isError:
			fmt.Printf("\033[31m%s\033[0m\n", text)
		default:
			fmt.Println(text)
		}
		fmt.Println()
	}
}

func printConsoleHelp() {
	fmt.Println("Commands:")
	fmt.Println("  <command>      - Run command on the remote host")
	fmt.Println("  /sudo <cmd>    - Run command with sudo")
	fmt.Println("  /cat <path>    - Read a file (falls back to sudo)")
	fmt.Println("  /ls [path]     - List a directory")
	fmt.Println("  /tools         - Show available tools")
	fmt.Println("  /help          - Show this help")
	fmt.Println("  /quit          - Exit")
	fmt.Println()
}
