package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/treadmill/internal/config"
	"github.com/calvinalkan/treadmill/internal/runtime"
)

const historyFileName = ".treadmill_history"

// ReplCmd returns the repl command. Lines are read from in; when in is the
// process stdin, the liner line editor with history is used.
func ReplCmd(cfg *config.Config, log *slog.Logger, in io.Reader, env map[string]string) *Command {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.String("history", "", "History file `path` (default history_file config or ~/"+historyFileName+")")

	return &Command{
		Flags: fs,
		Usage: "repl [flags]",
		Short: "Step a heap interactively",
		Long: `Start an interactive session over a fresh heap.

Allocate objects, root and unroot them, link them together and watch cells
move between the free, white, grey and black arcs. Type 'help' inside the
repl for the command list.`,
		Examples: []string{
			"--initial-size 8 repl",
			"repl --history /tmp/treadmill_history",
		},
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			history, _ := fs.GetString("history")

			return execRepl(ctx, o, cfg, log, in, resolveHistory(history, cfg, env))
		},
	}
}

func execRepl(ctx context.Context, o *IO, cfg *config.Config, log *slog.Logger, in io.Reader, historyPath string) error {
	rt, err := runtime.New(cfg.HeapOptions(log))
	if err != nil {
		return err
	}

	s := NewSession(rt, o)

	if f, ok := in.(*os.File); ok && f == os.Stdin {
		return runInteractive(ctx, s, o, historyPath)
	}

	if in == nil {
		in = strings.NewReader("")
	}

	return runScripted(ctx, s, o, in)
}

// runScripted executes one command per input line without prompting. Failed
// lines are reported and skipped.
func runScripted(ctx context.Context, s *Session, o *IO, in io.Reader) error {
	failed := 0
	sc := bufio.NewScanner(in)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		quit, err := s.Exec(sc.Text())
		if err != nil {
			o.ErrPrintln("error:", err)

			failed++

			continue
		}

		if quit {
			break
		}
	}

	if failed > 0 {
		o.Warn(fmt.Sprintf("%d repl command(s) failed", failed), "see the errors above")
	}

	return sc.Err()
}

func runInteractive(ctx context.Context, s *Session, o *IO, historyPath string) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	if f, err := os.Open(historyPath); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}

	defer saveHistory(line, historyPath)

	st := s.rt.Heap().Stats()
	o.Printf("treadmill repl (total=%d free=%d)\n", st.Total, st.Free)
	o.Println("Type 'help' for available commands.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		input, err := line.Prompt("treadmill> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				o.Println("\nBye!")

				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		quit, err := s.Exec(input)
		if err != nil {
			o.ErrPrintln("error:", err)

			continue
		}

		if quit {
			o.Println("Bye!")

			return nil
		}
	}
}

// saveHistory persists command history, replacing the file atomically.
func saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}

	var buf bytes.Buffer

	if _, err := line.WriteHistory(&buf); err != nil {
		return
	}

	_ = atomic.WriteFile(path, &buf)
}

// resolveHistory picks the --history flag, then history_file from config,
// then ~/.treadmill_history. Relative paths are taken from the working dir.
func resolveHistory(flagValue string, cfg *config.Config, env map[string]string) string {
	path := flagValue
	if path == "" {
		path = cfg.HistoryFile
	}

	if path == "" {
		home := env["HOME"]
		if home == "" {
			return ""
		}

		return filepath.Join(home, historyFileName)
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.EffectiveCwd, path)
	}

	return path
}
