package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rgehrsitz/hatgo/internal/breakeven"
	"github.com/rgehrsitz/hatgo/internal/config"
	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/logging"
)

func newBreakEvenCmd() *cobra.Command {
	var (
		target   string
		product  string
		template string
		fromYear int
		minValue float64
		maxValue float64
		format   string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "breakeven [config-file]",
		Short: "Find the largest demand the forest supplies without a shortfall",
		Long: `Bisect a demand factor, or the dist_interval_bias factor, for the largest
value at which every simulated year still meets its demand.

Without --product the search runs for irw, fw and both together and
reports the product that binds first.

Examples:
  hat breakeven country.yaml
  hat breakeven country.yaml --product irw --from-year 2025
  hat breakeven country.yaml --target interval_bias --template cc_even
  hat breakeven country.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := breakeven.ParseTarget(target)
			if err != nil {
				return err
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

			solver := breakeven.NewDefaultSolver()
			solver.Logger = logger

			req := breakeven.Request{Config: cfg, Target: t, Template: template, FromYear: fromYear}
			if cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
				b := breakeven.DefaultBounds(t)
				if cmd.Flags().Changed("min") {
					b.Min = decimal.NewFromFloat(minValue)
				}
				if cmd.Flags().Changed("max") {
					b.Max = decimal.NewFromFloat(maxValue)
				}
				req.Bounds = &b
			}

			out := cmd.OutOrStdout()
			tf := &breakeven.TableFormatter{}
			asJSON := strings.EqualFold(format, "json")
			if !asJSON && !strings.EqualFold(format, "table") {
				return fmt.Errorf("unknown output format: %s (valid: table, json)", format)
			}

			if t == breakeven.TargetDemand && product == "" {
				multi, err := solver.SolveProducts(cmd.Context(), cfg, fromYear)
				if err != nil {
					return err
				}
				if asJSON {
					text, err := breakeven.FormatJSON(multi)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, text)
					return nil
				}
				fmt.Fprint(out, tf.FormatMulti(multi))
				return nil
			}

			if product != "" && product != "all" {
				p, err := domain.ParseProduct(product)
				if err != nil {
					return err
				}
				req.Product = p
			}
			result, err := solver.Solve(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				text, err := breakeven.FormatJSON(result)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, text)
				return nil
			}
			fmt.Fprint(out, tf.Format(result))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&target, "target", string(breakeven.TargetDemand), "Factor to search (demand, interval_bias)")
	flags.StringVar(&product, "product", "", "Demand product to scale (irw, fw, all); empty searches each")
	flags.StringVar(&template, "template", "", "Template whose interval bias is scaled; empty scales all")
	flags.IntVar(&fromYear, "from-year", 0, "Leave demand before this year unchanged")
	flags.Float64Var(&minValue, "min", 0, "Lower search bound")
	flags.Float64Var(&maxValue, "max", 0, "Upper search bound")
	flags.StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	return cmd
}
