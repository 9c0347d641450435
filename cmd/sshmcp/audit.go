package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/sshmcp/internal/audit"
	"github.com/michaelbrown/sshmcp/internal/audit/sqlite"
	"github.com/michaelbrown/sshmcp/internal/config"
)

var (
	toolFilter    string
	errorsOnly    bool
	limitFlag     int
	exportFormat  string
	exportOutput  string
	olderThanFlag time.Duration
)

var auditCmd = &cobra.Command{
	Use:     "audit",
	Aliases: []string{"a"},
	Short:   "Inspect the tool invocation log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded invocations",
	Args:  cobra.NoArgs,
	RunE:  runAuditList,
}

var auditShowCmd = &cobra.Command{
	Use:   "show <invocation-id>",
	Short: "Show one invocation in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditShow,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export invocations as markdown, JSON or YAML",
	Args:  cobra.NoArgs,
	RunE:  runAuditExport,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old invocations",
	Args:  cobra.NoArgs,
	RunE:  runAuditPrune,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd, auditShowCmd, auditExportCmd, auditPruneCmd)

	for _, c := range []*cobra.Command{auditListCmd, auditExportCmd} {
		c.Flags().StringVar(&toolFilter, "tool", "", "Only invocations of this tool")
		c.Flags().BoolVar(&errorsOnly, "errors", false, "Only failed invocations")
		c.Flags().IntVar(&limitFlag, "limit", 20, "Max invocations")
	}

	auditExportCmd.Flags().StringVar(&exportFormat, "format", "md", "Export format: md, json or yaml")
	auditExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	auditPruneCmd.Flags().DurationVar(&olderThanFlag, "older-than", 30*24*time.Hour, "Delete invocations older than this")
}

func openStore() (audit.Store, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return sqlite.Open(cfg.Audit.DBPath)
}

func listOptions() audit.ListOptions {
	return audit.ListOptions{
		Tool:       toolFilter,
		ErrorsOnly: errorsOnly,
		Limit:      limitFlag,
	}
}

func runAuditList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background(), listOptions())
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No invocations found.")
		return nil
	}

	fmt.Printf("%-10s %-16s %-6s %-40s %-8s %s\n", "ID", "TOOL", "ERROR", "ARGUMENTS", "TOOK", "WHEN")
	fmt.Println(strings.Repeat("─", 95))

	for _, e := range entries {
		status := ""
		if e.IsError {
			status = "yes"
		}
		fmt.Printf("%-10s %-16s %-6s %-40s %-8s %s\n",
			shortID(e.ID), e.Tool, status, truncate(summarizeArgs(e.Arguments), 38),
			fmt.Sprintf("%dms", e.DurationMS), timeAgo(e.StartedAt))
	}

	return nil
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Invocation: %s\n", e.ID)
	fmt.Printf("Tool:       %s\n", e.Tool)
	fmt.Printf("Started:    %s\n", e.StartedAt.Format(time.RFC3339))
	fmt.Printf("Duration:   %dms\n", e.DurationMS)
	fmt.Printf("Error:      %v\n", e.IsError)

	if len(e.Arguments) > 0 {
		data, err := json.MarshalIndent(e.Arguments, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("\nArguments:\n%s\n", data)
	}

	fmt.Printf("\nResult:\n")
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println(e.Result)
	return nil
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background(), listOptions())
	if err != nil {
		return err
	}

	var output string
	switch exportFormat {
	case "json":
		data, err := audit.ExportJSON(entries)
		if err != nil {
			return err
		}
		output = string(data)
	case "yaml", "yml":
		data, err := audit.ExportYAML(entries)
		if err != nil {
			return err
		}
		output = string(data)
	case "md", "markdown":
		output = audit.ExportMarkdown(entries)
	default:
		return fmt.Errorf("unknown export format %q (want md, json or yaml)", exportFormat)
	}

	if exportOutput != "" {
		return os.WriteFile(exportOutput, []byte(output), 0o644)
	}

	fmt.Print(output)
	return nil
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Prune(context.Background(), time.Now().Add(-olderThanFlag))
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d invocation(s)\n", n)
	return nil
}

// summarizeArgs renders arguments as key=value pairs in key order, single line.
func summarizeArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.ReplaceAll(fmt.Sprint(args[k]), "\n", `\n`)
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return s[:maxLen] + ".."
	}
	return s
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
