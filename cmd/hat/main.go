package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rgehrsitz/hatgo/internal/config"
	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/transform"
)

// Build information, set by -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes. A run halted by unsatisfied demand is distinguished from
// configuration and engine failures.
const (
	exitFailure   = 1
	exitShortfall = 2
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hat",
		Short: "Harvest Allocation Tool for forest carbon simulations",
		Long: `hat turns yearly wood demand into disturbance events for a forest
carbon simulation. Each year it finds the stands eligible for harvest,
estimates what they would yield, skews the distribution with market
factors and allocates the demand not already met by predetermined events.

Examples:
  hat run country.yaml
  hat run country.yaml --format events-csv --output events.csv
  hat compare country.yaml --with high_demand,tolerant
  hat breakeven country.yaml
  hat transforms`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newCompareCmd())
	root.AddCommand(newBreakEvenCmd())
	root.AddCommand(newTransformsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a country configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewInputParser().LoadFromFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file %s is valid\n", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Country: %s, years %d-%d, %d templates, %d stands\n",
				cfg.Country, cfg.StartYear, cfg.EndYear, len(cfg.Templates), len(cfg.Simulation.Inventory))
			return nil
		},
	}
}

func newTransformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transforms",
		Short: "List the built-in templates and transforms accepted by --with",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			help := transform.GetTemplateHelp(transform.CreateBuiltInTemplates(), transform.NewTransformRegistry())
			fmt.Fprint(cmd.OutOrStdout(), help)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := version, commit, date
			if info, ok := debug.ReadBuildInfo(); ok && v == "dev" {
				if info.Main.Version != "" && info.Main.Version != "(devel)" {
					v = info.Main.Version
				}
				for _, s := range info.Settings {
					switch s.Key {
					case "vcs.revision":
						if c == "none" {
							c = s.Value
						}
					case "vcs.time":
						if d == "unknown" {
							d = s.Value
						}
					}
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hat %s (commit %s, built %s)\n", v, c, d)
		},
	}
}

func exitCode(err error) int {
	var halt *domain.UnsatisfiedDemandError
	if errors.As(err, &halt) {
		return exitShortfall
	}
	return exitFailure
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCode(err)
	}
	return 0
}

func main() {
	os.Exit(run())
}
