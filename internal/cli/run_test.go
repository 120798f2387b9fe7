package cli_test

import (
	"strings"
	"testing"

	"github.com/calvinalkan/treadmill/internal/cli"
)

func Test_No_Args_Prints_Usage_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun()

	cli.AssertContains(t, stdout, "Usage: treadmill [options] <command> [args]")
	cli.AssertContains(t, stdout, "run <scenario> [flags]")
	cli.AssertContains(t, stdout, "repl [flags]")
	cli.AssertContains(t, stdout, "print-config")
}

func Test_Help_Flag_Prints_Usage_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	for _, flag := range []string{"-h", "--help"} {
		stdout := c.MustRun(flag)
		cli.AssertContains(t, stdout, "Commands:")
	}
}

func Test_Command_Help_Prints_Flags_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("run", "--help")

	cli.AssertContains(t, stdout, "Usage: treadmill run <scenario> [flags]")
	cli.AssertContains(t, stdout, "--steps")
	cli.AssertContains(t, stdout, "--report")
	cli.AssertContains(t, stdout, "Examples:\n  treadmill run churn --steps 5000 --live 200")
}

func Test_Unknown_Command_Fails_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("frobnicate")

	cli.AssertContains(t, stderr, "error: unknown command: frobnicate")
	cli.AssertContains(t, stderr, "Commands:")
}

func Test_Unknown_Global_Flag_Fails_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("--bogus", "print-config")

	cli.AssertContains(t, stderr, "invalid global flag")
}

func Test_Unknown_Command_Flag_Fails_With_Help_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.Run("run", "--bogus", "churn")

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}

	cli.AssertContains(t, stderr, "error: unknown flag: --bogus")
	cli.AssertContains(t, stdout, "Usage: treadmill run")
}

func Test_Invalid_Heap_Override_Fails_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("--scan-threshold", "1.5", "run", "churn")

	cli.AssertContains(t, stderr, "invalid config")
	cli.AssertContains(t, stderr, "scan_threshold")
}

func Test_Log_Level_Debug_Writes_Heap_Events_To_Stderr_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	_, stderr, code := c.Run("--log-level", "debug", "--initial-size", "10", "run", "churn", "--steps", "50", "--live", "3")

	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	cli.AssertContains(t, stderr, "level=DEBUG")
	cli.AssertContains(t, stderr, "scenario finished")

	if strings.Contains(stderr, "error:") {
		t.Errorf("unexpected error output:\n%s", stderr)
	}
}
