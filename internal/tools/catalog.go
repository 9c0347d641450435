package tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/michaelbrown/sshmcp/internal/config"
)

const (
	ToolExec      = "ssh_exec"
	ToolExecSudo  = "ssh_exec_sudo"
	ToolReadFile  = "ssh_read_file"
	ToolWriteFile = "ssh_write_file"
	ToolListDir   = "ssh_list_dir"
)

// Catalog returns the five tools served for the configured host.
func Catalog(cfg config.SSHConfig) []mcp.Tool {
	target := cfg.Target()

	return []mcp.Tool{
		{
			Name:        ToolExec,
			Description: fmt.Sprintf("Execute a command on Bastion server (%s)", target),
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "The command to execute on the remote server",
					},
				},
				Required: []string{"command"},
			},
		},
		{
			Name:        ToolExecSudo,
			Description: fmt.Sprintf("Execute a command with sudo on Bastion server (%s)", target),
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "The command to execute with sudo on the remote server",
					},
				},
				Required: []string{"command"},
			},
		},
		{
			Name:        ToolReadFile,
			Description: "Read a file from the Bastion server",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "The absolute path to the file",
					},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        ToolWriteFile,
			Description: "Write content to a file on the Bastion server (requires sudo)",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "The absolute path to the file",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "The content to write",
					},
				},
				Required: []string{"path", "content"},
			},
		},
		{
			Name:        ToolListDir,
			Description: "List directory contents on the Bastion server",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "The directory path to list",
					},
				},
				Required: []string{"path"},
			},
		},
	}
}
