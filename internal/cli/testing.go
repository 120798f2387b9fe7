package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CLI runs treadmill commands in-process for tests. Every run gets
// "--cwd Dir" prepended, and HOME points below Dir so no user config or
// history file is picked up.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI returns a CLI rooted at a fresh temp directory.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	dir := t.TempDir()

	return &CLI{t: t, Dir: dir, Env: map[string]string{"HOME": filepath.Join(dir, "home")}}
}

// Run executes args with empty stdin and returns stdout, stderr and the exit code.
func (r *CLI) Run(args ...string) (string, string, int) {
	return r.RunWithInput("", args...)
}

// RunWithInput executes args with stdin as the process input. A repl run this
// way executes stdin as a script.
func (r *CLI) RunWithInput(stdin string, args ...string) (string, string, int) {
	var stdout, stderr bytes.Buffer

	argv := append([]string{"treadmill", "--cwd", r.Dir}, args...)
	code := Run(strings.NewReader(stdin), &stdout, &stderr, argv, r.Env, nil)

	return stdout.String(), stderr.String(), code
}

// MustRun fails the test unless the command exits 0, and returns trimmed stdout.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("treadmill %s: exit code %d\nstderr:\n%s", strings.Join(args, " "), code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail fails the test unless the command exits non-zero with nothing on
// stdout, and returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)

	switch {
	case code == 0:
		r.t.Fatalf("treadmill %s: expected failure, got exit 0\nstdout:\n%s", strings.Join(args, " "), stdout)
	case stdout != "":
		r.t.Fatalf("treadmill %s: failed but wrote to stdout:\n%s", strings.Join(args, " "), stdout)
	}

	return strings.TrimSpace(stderr)
}

// WriteFile creates name, and any missing parent directories, under Dir.
func (r *CLI) WriteFile(name, content string) {
	r.t.Helper()

	path := filepath.Join(r.Dir, name)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		r.t.Fatalf("mkdir for %s: %v", name, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		r.t.Fatalf("write %s: %v", name, err)
	}
}

// ReadFile returns the content of name under Dir.
func (r *CLI) ReadFile(name string) string {
	r.t.Helper()

	content, err := os.ReadFile(filepath.Join(r.Dir, name))
	if err != nil {
		r.t.Fatalf("read %s: %v", name, err)
	}

	return string(content)
}

// AssertContains reports an error if content lacks substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("missing %q in:\n%s", substr, content)
	}
}

// AssertNotContains reports an error if content has substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("unexpected %q in:\n%s", substr, content)
	}
}
