package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/treadmill/internal/config"
)

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. The first signal on it cancels the running command.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals, err := parseGlobalFlags(args[min(1, len(args)):])
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, nil)

		return 1
	}

	cmdArgs := globals.flags.Args()

	if globals.help || len(cmdArgs) == 0 {
		printUsage(out, nil)

		return 0
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: globals.workDir,
		ConfigPath:      globals.configPath,
		Overrides:       globals.overrides(),
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	log := cfg.Logger(errOut)

	commands := []*Command{
		RunCmd(&cfg, log),
		ReplCmd(&cfg, log, in, env),
		PrintConfigCmd(&cfg),
	}

	name := cmdArgs[0]

	for _, cmd := range commands {
		if cmd.Name() != name {
			continue
		}

		ctx, cancel := signalContext(sigCh)
		defer cancel()

		return cmd.Run(ctx, NewIO(out, errOut), cmdArgs[1:])
	}

	fprintln(errOut, "error: unknown command:", name)
	printUsage(errOut, commands)

	return 1
}

type globalFlags struct {
	flags *flag.FlagSet

	help       bool
	workDir    string
	configPath string

	initialSize   int
	expandSize    int
	scanStepSize  int
	scanThreshold float64
	logLevel      string
}

var errFlagParse = errors.New("invalid global flag")

func parseGlobalFlags(args []string) (*globalFlags, error) {
	g := &globalFlags{flags: flag.NewFlagSet("treadmill", flag.ContinueOnError)}

	fs := g.flags
	fs.SetOutput(&strings.Builder{})
	// Everything after the command name belongs to the command.
	fs.SetInterspersed(false)

	fs.BoolVarP(&g.help, "help", "h", false, "Show help")
	fs.StringVarP(&g.workDir, "cwd", "C", "", "Run as if started in `dir`")
	fs.StringVarP(&g.configPath, "config", "c", "", "Use specified config `file`")
	fs.IntVar(&g.initialSize, "initial-size", 0, "Initial number of heap cells")
	fs.IntVar(&g.expandSize, "expand-size", 0, "Cells added per heap expansion")
	fs.IntVar(&g.scanStepSize, "scan-step-size", 0, "Grey cells traced per allocation")
	fs.Float64Var(&g.scanThreshold, "scan-threshold", 0, "Free fraction that starts a collection, in (0, 1]")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	err := fs.Parse(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFlagParse, err)
	}

	return g, nil
}

// overrides returns only the heap and logging flags the user actually set.
func (g *globalFlags) overrides() config.Overrides {
	var o config.Overrides

	if g.flags.Changed("initial-size") {
		o.InitialSize = &g.initialSize
	}

	if g.flags.Changed("expand-size") {
		o.ExpandSize = &g.expandSize
	}

	if g.flags.Changed("scan-step-size") {
		o.ScanStepSize = &g.scanStepSize
	}

	if g.flags.Changed("scan-threshold") {
		o.ScanThreshold = &g.scanThreshold
	}

	if g.flags.Changed("log-level") {
		o.LogLevel = &g.logLevel
	}

	return o
}

// signalContext returns a context cancelled by the first signal on sigCh.
func signalContext(sigCh <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	if sigCh == nil {
		return ctx, cancel
	}

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, commands []*Command) {
	if commands == nil {
		var cfg config.Config

		discard := slog.New(slog.DiscardHandler)
		commands = []*Command{RunCmd(&cfg, discard), ReplCmd(&cfg, discard, nil, nil), PrintConfigCmd(&cfg)}
	}

	fprintln(w, `treadmill - incremental treadmill garbage collector playground

Usage: treadmill [options] <command> [args]

Options:
  -C, --cwd <dir>            Run as if started in <dir>
  -c, --config <file>        Use specified config file
  --initial-size <n>         Initial number of heap cells
  --expand-size <n>          Cells added per heap expansion
  --scan-step-size <n>       Grey cells traced per allocation
  --scan-threshold <f>       Free fraction that starts a collection
  --log-level <level>        debug, info, warn or error

Commands:`)

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}
