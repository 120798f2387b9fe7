package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/treadmill/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long: `Print the heap and logging settings after merging defaults, the global
config, the project config and flags, followed by the files that were read.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			formatted, err := config.Format(*cfg)
			if err != nil {
				return err
			}

			o.Println(formatted)
			o.Println()
			o.Println("# sources")
			o.Println("effective_cwd=" + cfg.EffectiveCwd)

			sources := []struct{ key, path string }{
				{"global_config", cfg.Sources.Global},
				{"project_config", cfg.Sources.Project},
			}

			loaded := 0

			for _, src := range sources {
				if src.path != "" {
					o.Printf("%s=%s\n", src.key, src.path)

					loaded++
				}
			}

			if loaded == 0 {
				o.Println("(defaults only)")
			}

			return nil
		},
	}
}
