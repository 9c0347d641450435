package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/michaelbrown/sshmcp/internal/remote"
)

// ErrUnknownTool is returned for names outside the catalog.
var ErrUnknownTool = errors.New("Unknown tool")

const heredocDelimiter = "SSHMCP_EOF"

type handlerFunc func(ctx context.Context, args map[string]any) (string, error)

// Dispatcher maps tool names onto remote commands. It holds no per-call
// state, so concurrent invocations are safe.
type Dispatcher struct {
	runner   remote.Runner
	handlers map[string]handlerFunc
}

// NewDispatcher creates a dispatcher backed by runner.
func NewDispatcher(runner remote.Runner) *Dispatcher {
	d := &Dispatcher{runner: runner}
	d.handlers = map[string]handlerFunc{
		ToolExec:      d.exec(false),
		ToolExecSudo:  d.exec(true),
		ToolReadFile:  d.readFile,
		ToolWriteFile: d.writeFile,
		ToolListDir:   d.listDir,
	}
	return d
}

// Invoke runs the named tool. Errors are returned inside the Outcome.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) Outcome {
	h, ok := d.handlers[name]
	if !ok {
		return failure(fmt.Errorf("%w: %s", ErrUnknownTool, name))
	}

	text, err := h(ctx, args)
	if err != nil {
		return failure(err)
	}
	return success(text)
}

// Handle is the mcp-go tool handler. It never returns a Go error; failures
// travel as IsError results.
func (d *Dispatcher) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return d.Invoke(ctx, request.Params.Name, request.GetArguments()).CallToolResult(), nil
}

func (d *Dispatcher) exec(sudo bool) handlerFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		command, err := stringArg(args, "command")
		if err != nil {
			return "", err
		}
		res, err := d.runner.Run(ctx, remote.Invocation{Command: command, Sudo: sudo})
		if err != nil {
			return "", err
		}
		return FormatResult(res), nil
	}
}

// readFile tries an unprivileged cat first and falls back to sudo once.
func (d *Dispatcher) readFile(ctx context.Context, args map[string]any) (string, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}

	command := `cat "` + path + `"`

	res, err := d.runner.Run(ctx, remote.Invocation{Command: command})
	if err != nil {
		return "", err
	}
	if res.ExitCode == 0 {
		return res.Stdout, nil
	}

	res, err = d.runner.Run(ctx, remote.Invocation{Command: command, Sudo: true})
	if err != nil {
		return "", err
	}
	if res.ExitCode == 0 {
		return res.Stdout, nil
	}
	return FormatResult(res), nil
}

func (d *Dispatcher) writeFile(ctx context.Context, args map[string]any) (string, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	content, err := stringArg(args, "content")
	if err != nil {
		return "", err
	}

	res, err := d.runner.Run(ctx, remote.Invocation{Command: WriteFileCommand(path, content), Sudo: true})
	if err != nil {
		return "", err
	}
	if res.ExitCode == 0 {
		return "File written successfully: " + path, nil
	}
	return FormatResult(res), nil
}

func (d *Dispatcher) listDir(ctx context.Context, args map[string]any) (string, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	res, err := d.runner.Run(ctx, remote.Invocation{Command: `ls -la "` + path + `"`})
	if err != nil {
		return "", err
	}
	return FormatResult(res), nil
}

// WriteFileCommand builds a here-document that writes content verbatim to
// path. tee opens the file, so a sudo prefix applies to the write itself.
// The quoted delimiter disables expansion inside the body.
func WriteFileCommand(path, content string) string {
	delim := heredocDelimiter
	for strings.Contains(content, delim) {
		delim = heredocDelimiter + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	return `tee "` + path + `" > /dev/null << '` + delim + "'\n" + content + "\n" + delim
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required argument %q not found", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}
