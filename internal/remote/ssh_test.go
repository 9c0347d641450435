package remote

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/michaelbrown/sshmcp/internal/config"
)

// fakeSSH stands in for the ssh client. It records its argv, one per line,
// and behaves according to FAKE_SSH_MODE.
const fakeSSH = `#!/bin/sh
for a in "$@"; do printf '%s\n' "$a"; done > "$FAKE_SSH_ARGS"
eval last=\${$#}
case "$FAKE_SSH_MODE" in
echo)
	printf '  %s  \n' "$last"
	;;
fail)
	echo "partial"
	echo "boom" >&2
	exit 3
	;;
hang)
	echo $$ > "$FAKE_SSH_PID"
	exec sleep 30
	;;
esac
`

func installFakeSSH(t *testing.T, mode string) (argsFile, pidFile string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ssh"), []byte(fakeSSH), 0o755); err != nil {
		t.Fatal(err)
	}
	argsFile = filepath.Join(dir, "args")
	pidFile = filepath.Join(dir, "pid")
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("FAKE_SSH_MODE", mode)
	t.Setenv("FAKE_SSH_ARGS", argsFile)
	t.Setenv("FAKE_SSH_PID", pidFile)
	return argsFile, pidFile
}

func readArgs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading recorded args: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func testConfig() config.SSHConfig {
	return config.SSHConfig{Host: "10.0.0.1", User: "ops", Port: 2222}
}

func TestArgs(t *testing.T) {
	r := NewSSHRunner(testConfig())
	got := r.Args(Invocation{Command: "uptime"})
	want := []string{
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=10",
		"-o", "StrictHostKeyChecking=accept-new",
		"-p", "2222",
		"ops@10.0.0.1", "uptime",
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestArgsWithKeyAndSudo(t *testing.T) {
	cfg := testConfig()
	cfg.KeyPath = "/keys/id_ed25519"
	r := NewSSHRunner(cfg)

	got := r.Args(Invocation{Command: "systemctl restart nginx", Sudo: true})
	n := len(got)
	if got[n-4] != "-i" || got[n-3] != "/keys/id_ed25519" {
		t.Errorf("identity flag missing: %q", got)
	}
	if got[n-1] != "sudo systemctl restart nginx" {
		t.Errorf("command = %q, want sudo prefix", got[n-1])
	}
}

func TestRemoteCommand(t *testing.T) {
	if got := (Invocation{Command: "id"}).RemoteCommand(); got != "id" {
		t.Errorf("unprivileged = %q", got)
	}
	if got := (Invocation{Command: "id", Sudo: true}).RemoteCommand(); got != "sudo id" {
		t.Errorf("privileged = %q", got)
	}
}

func TestRunCapturesOutput(t *testing.T) {
	argsFile, _ := installFakeSSH(t, "echo")
	r := NewSSHRunner(testConfig())

	res, err := r.Run(context.Background(), Invocation{Command: "hostname"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", res.ExitCode)
	}
	if res.Stdout != "hostname" {
		t.Errorf("stdout = %q, want trimmed %q", res.Stdout, "hostname")
	}
	if res.Stderr != "" {
		t.Errorf("stderr = %q, want empty", res.Stderr)
	}

	args := readArgs(t, argsFile)
	if args[len(args)-2] != "ops@10.0.0.1" {
		t.Errorf("target = %q", args[len(args)-2])
	}
}

func TestRunNonZeroExitIsData(t *testing.T) {
	installFakeSSH(t, "fail")
	r := NewSSHRunner(testConfig())

	res, err := r.Run(context.Background(), Invocation{Command: "false"})
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
	if res.Stdout != "partial" || res.Stderr != "boom" {
		t.Errorf("stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
}

func TestRunMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	r := NewSSHRunner(testConfig())

	_, err := r.Run(context.Background(), Invocation{Command: "true"})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("expected cause exec.ErrNotFound, got %v", execErr.Err)
	}
}

func TestRunTimeoutKillsChild(t *testing.T) {
	_, pidFile := installFakeSSH(t, "hang")
	r := NewSSHRunner(testConfig())
	r.timeout = 500 * time.Millisecond

	start := time.Now()
	_, err := r.Run(context.Background(), Invocation{Command: "sleep forever"})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed < r.timeout {
		t.Errorf("timed out after %s, before the %s watchdog", elapsed, r.timeout)
	}
	if elapsed > r.timeout+waitDelay+2*time.Second {
		t.Errorf("timeout took too long: %s", elapsed)
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("fake ssh never started: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("bad pid file: %v", err)
	}
	if err := syscall.Kill(pid, 0); !errors.Is(err, syscall.ESRCH) {
		t.Errorf("child %d still alive after timeout (kill -0: %v)", pid, err)
	}
}

func TestRunCallerCancel(t *testing.T) {
	installFakeSSH(t, "hang")
	r := NewSSHRunner(testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, Invocation{Command: "sleep forever"})
	if errors.Is(err, ErrTimeout) {
		t.Fatal("caller deadline should not be reported as the watchdog timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestTimeoutMessage(t *testing.T) {
	installFakeSSH(t, "hang")
	r := NewSSHRunner(testConfig())
	r.timeout = 1 * time.Second

	_, err := r.Run(context.Background(), Invocation{Command: "x"})
	if err == nil || err.Error() != "SSH command timed out after 1 seconds" {
		t.Errorf("error = %v", err)
	}
}

func TestExitStatusCleanExitAtDeadline(t *testing.T) {
	r := NewSSHRunner(testConfig())

	runCtx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-runCtx.Done()

	code, err := r.exitStatus(context.Background(), runCtx, nil)
	if err != nil || code != 0 {
		t.Errorf("clean exit after the deadline: code=%d err=%v, want 0 and nil", code, err)
	}

	code, err = r.exitStatus(context.Background(), runCtx, errors.New("signal: killed"))
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("killed by the watchdog: code=%d err=%v, want ErrTimeout", code, err)
	}
}
