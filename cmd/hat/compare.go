package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rgehrsitz/hatgo/internal/compare"
	"github.com/rgehrsitz/hatgo/internal/config"
	"github.com/rgehrsitz/hatgo/internal/logging"
	"github.com/rgehrsitz/hatgo/internal/transform"
)

func newCompareCmd() *cobra.Command {
	var (
		base          string
		with          string
		format        string
		logLevel      string
		listTemplates bool
	)
	cmd := &cobra.Command{
		Use:   "compare [config-file]",
		Short: "Compare the base run against demand and policy scenarios",
		Long: `Run the configuration as is and once per alternative, then compare
allocated volume, unsatisfied demand and disturbance counts.

An alternative is a built-in template or a transform spec. Join several
with "+" to apply them together.

Examples:
  hat compare country.yaml --with high_demand,low_demand
  hat compare country.yaml --with tolerant+high_demand --format csv
  hat compare country.yaml --with scale_demand:product=fw,factor=2
  hat compare --list-templates`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if listTemplates {
				fmt.Fprint(out, transform.GetTemplateHelp(transform.CreateBuiltInTemplates(), transform.NewTransformRegistry()))
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("config file required for comparison (use --list-templates to see available templates)")
			}
			alternatives := transform.ParseTemplateList(with)
			if len(alternatives) == 0 {
				return fmt.Errorf("--with flag is required to specify the scenarios to compare")
			}

			cfg, err := config.NewInputParser().LoadFromFile(args[0])
			if err != nil {
				return err
			}

			logger, _, err := logging.New(logging.Config{Level: logLevel})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			engine := compare.NewCompareEngine(nil)
			engine.Logger = logger
			set, err := engine.Compare(cmd.Context(), cfg, compare.CompareOptions{
				BaseScenarioName: base,
				Alternatives:     alternatives,
				ConfigPath:       args[0],
			})
			if err != nil {
				return fmt.Errorf("comparison failed: %w", err)
			}

			switch strings.ToLower(format) {
			case "csv":
				text, err := (&compare.CSVFormatter{}).Format(set)
				if err != nil {
					return fmt.Errorf("failed to format CSV: %w", err)
				}
				fmt.Fprint(out, text)
			case "json":
				text, err := (&compare.JSONFormatter{Pretty: true}).Format(set)
				if err != nil {
					return fmt.Errorf("failed to format JSON: %w", err)
				}
				fmt.Fprintln(out, text)
			case "compact":
				fmt.Fprintln(out, (&compare.TableFormatter{}).FormatCompact(set))
			case "table", "console", "":
				fmt.Fprint(out, (&compare.TableFormatter{}).Format(set))
			default:
				return fmt.Errorf("unknown output format: %s (valid: table, compact, csv, json)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "Name of the base scenario (defaults to the country)")
	cmd.Flags().StringVar(&with, "with", "", "Comma-separated templates or transform specs to compare")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, compact, csv, json)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&listTemplates, "list-templates", false, "List the built-in templates and transforms")
	return cmd
}
