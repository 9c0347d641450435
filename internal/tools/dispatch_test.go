package tools

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/michaelbrown/sshmcp/internal/remote"
)

// fakeRunner records invocations and answers from a script of results.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []remote.Invocation
	results []*remote.Result
	err     error
}

func (f *fakeRunner) Run(_ context.Context, inv remote.Invocation) (*remote.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inv)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return &remote.Result{}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func TestInvokeUnknownTool(t *testing.T) {
	d := NewDispatcher(&fakeRunner{})

	out := d.Invoke(context.Background(), "ssh_reboot", nil)
	if !out.IsError() {
		t.Fatal("unknown tool should be an error")
	}
	if !errors.Is(out.Err, ErrUnknownTool) {
		t.Errorf("err = %v, want ErrUnknownTool", out.Err)
	}
	if out.Message() != "Error: Unknown tool: ssh_reboot" {
		t.Errorf("message = %q", out.Message())
	}
}

func TestExecAndExecSudoDifferOnlyInPrefix(t *testing.T) {
	r := &fakeRunner{results: []*remote.Result{{Stdout: "up 3 days"}, {Stdout: "up 3 days"}}}
	d := NewDispatcher(r)
	args := map[string]any{"command": "uptime"}

	plain := d.Invoke(context.Background(), ToolExec, args)
	sudo := d.Invoke(context.Background(), ToolExecSudo, args)

	if plain.Message() != "up 3 days" || sudo.Message() != "up 3 days" {
		t.Errorf("outputs: %q / %q", plain.Message(), sudo.Message())
	}
	if len(r.calls) != 2 {
		t.Fatalf("got %d runner calls, want 2", len(r.calls))
	}
	if got := r.calls[0].RemoteCommand(); got != "uptime" {
		t.Errorf("ssh_exec sent %q, want no sudo prefix", got)
	}
	if got := r.calls[1].RemoteCommand(); got != "sudo uptime" {
		t.Errorf("ssh_exec_sudo sent %q, want sudo prefix", got)
	}
}

func TestExecFormatsNonZeroExit(t *testing.T) {
	r := &fakeRunner{results: []*remote.Result{{ExitCode: 127, Stderr: "nope: command not found"}}}
	d := NewDispatcher(r)

	out := d.Invoke(context.Background(), ToolExec, map[string]any{"command": "nope"})
	if out.IsError() {
		t.Fatalf("non-zero exit should not flag an error: %v", out.Err)
	}
	want := "[STDERR]\nnope: command not found\n\n[Exit code: 127]"
	if out.Message() != want {
		t.Errorf("message = %q, want %q", out.Message(), want)
	}
}

func TestReadFileFallsBackToSudo(t *testing.T) {
	r := &fakeRunner{results: []*remote.Result{
		{ExitCode: 1, Stderr: "cat: /etc/shadow: Permission denied"},
		{Stdout: "root:*:19000:0:99999:7:::"},
	}}
	d := NewDispatcher(r)

	out := d.Invoke(context.Background(), ToolReadFile, map[string]any{"path": "/etc/shadow"})
	if out.IsError() {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Message() != "root:*:19000:0:99999:7:::" {
		t.Errorf("message = %q, want raw privileged stdout", out.Message())
	}
	if len(r.calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(r.calls))
	}
	if r.calls[0].Sudo || r.calls[0].Command != `cat "/etc/shadow"` {
		t.Errorf("first call = %+v", r.calls[0])
	}
	if !r.calls[1].Sudo || r.calls[1].Command != `cat "/etc/shadow"` {
		t.Errorf("second call = %+v", r.calls[1])
	}
}

func TestReadFileNoFallbackOnSuccess(t *testing.T) {
	r := &fakeRunner{results: []*remote.Result{{Stdout: "hello", Stderr: "ignored warning"}}}
	d := NewDispatcher(r)

	out := d.Invoke(context.Background(), ToolReadFile, map[string]any{"path": "/tmp/x"})
	if out.Message() != "hello" {
		t.Errorf("message = %q, want raw stdout", out.Message())
	}
	if len(r.calls) != 1 {
		t.Errorf("got %d calls, want 1", len(r.calls))
	}
}

func TestReadFileBothAttemptsFail(t *testing.T) {
	r := &fakeRunner{results: []*remote.Result{
		{ExitCode: 1, Stderr: "first"},
		{ExitCode: 1, Stderr: "cat: /nope: No such file or directory"},
	}}
	d := NewDispatcher(r)

	out := d.Invoke(context.Background(), ToolReadFile, map[string]any{"path": "/nope"})
	want := "[STDERR]\ncat: /nope: No such file or directory\n\n[Exit code: 1]"
	if out.Message() != want {
		t.Errorf("message = %q, want %q", out.Message(), want)
	}
}

func TestWriteFilePreservesContent(t *testing.T) {
	r := &fakeRunner{results: []*remote.Result{{}}}
	d := NewDispatcher(r)
	content := "it's a line\nand $HOME `stays` literal"

	out := d.Invoke(context.Background(), ToolWriteFile, map[string]any{
		"path":    "/etc/motd",
		"content": content,
	})
	if out.Message() != "File written successfully: /etc/motd" {
		t.Errorf("message = %q", out.Message())
	}

	if len(r.calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(r.calls))
	}
	call := r.calls[0]
	if !call.Sudo {
		t.Error("write should always use sudo")
	}
	want := "tee \"/etc/motd\" > /dev/null << 'SSHMCP_EOF'\n" + content + "\nSSHMCP_EOF"
	if call.Command != want {
		t.Errorf("command = %q, want %q", call.Command, want)
	}
}

func TestWriteFileFailure(t *testing.T) {
	r := &fakeRunner{results: []*remote.Result{{ExitCode: 1, Stderr: "sudo: a password is required"}}}
	d := NewDispatcher(r)

	out := d.Invoke(context.Background(), ToolWriteFile, map[string]any{"path": "/x", "content": "y"})
	if out.IsError() {
		t.Fatalf("remote failure is data, got error %v", out.Err)
	}
	if !strings.Contains(out.Message(), "[Exit code: 1]") {
		t.Errorf("message = %q", out.Message())
	}
}

func TestWriteFileCommandDelimiterCollision(t *testing.T) {
	content := "before\nSSHMCP_EOF\nafter"
	cmd := WriteFileCommand("/tmp/f", content)

	header, rest, ok := strings.Cut(cmd, "\n")
	if !ok {
		t.Fatalf("no body in %q", cmd)
	}
	start := strings.Index(header, "<< '") + len("<< '")
	delim := strings.TrimSuffix(header[start:], "'")
	if delim == "SSHMCP_EOF" || !strings.HasPrefix(delim, "SSHMCP_EOF_") {
		t.Fatalf("delimiter %q should be unique", delim)
	}
	if rest != content+"\n"+delim {
		t.Errorf("body = %q", rest)
	}
}

func TestListDir(t *testing.T) {
	r := &fakeRunner{results: []*remote.Result{{Stdout: "total 0"}}}
	d := NewDispatcher(r)

	out := d.Invoke(context.Background(), ToolListDir, map[string]any{"path": "/var/log"})
	if out.Message() != "total 0" {
		t.Errorf("message = %q", out.Message())
	}
	if r.calls[0].Command != `ls -la "/var/log"` || r.calls[0].Sudo {
		t.Errorf("call = %+v", r.calls[0])
	}
}

func TestMissingArgument(t *testing.T) {
	r := &fakeRunner{}
	d := NewDispatcher(r)

	out := d.Invoke(context.Background(), ToolWriteFile, map[string]any{"path": "/x"})
	if !out.IsError() {
		t.Fatal("missing content should fail")
	}
	if !strings.HasPrefix(out.Message(), "Error: ") || !strings.Contains(out.Message(), `"content"`) {
		t.Errorf("message = %q", out.Message())
	}
	if len(r.calls) != 0 {
		t.Errorf("runner should not be called, got %d calls", len(r.calls))
	}

	out = d.Invoke(context.Background(), ToolExec, map[string]any{"command": 42})
	if !out.IsError() {
		t.Error("non-string command should fail")
	}
}

func TestRunnerErrorBecomesOutcome(t *testing.T) {
	r := &fakeRunner{err: remote.ErrTimeout}
	d := NewDispatcher(r)

	out := d.Invoke(context.Background(), ToolListDir, map[string]any{"path": "/"})
	if !errors.Is(out.Err, remote.ErrTimeout) {
		t.Fatalf("err = %v", out.Err)
	}

	res := out.CallToolResult()
	if !res.IsError {
		t.Error("IsError should be set")
	}
	if len(res.Content) != 1 {
		t.Fatalf("got %d content blocks, want 1", len(res.Content))
	}
}
