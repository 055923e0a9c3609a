package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rgehrsitz/hatgo/internal/compare"
	"github.com/rgehrsitz/hatgo/internal/config"
	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/engine"
	"github.com/rgehrsitz/hatgo/internal/engine/memory"
	"github.com/rgehrsitz/hatgo/internal/hat"
	"github.com/rgehrsitz/hatgo/internal/logging"
	"github.com/rgehrsitz/hatgo/internal/observability"
	"github.com/rgehrsitz/hatgo/internal/output"
	"github.com/rgehrsitz/hatgo/internal/transform"
)

type runOptions struct {
	format              string
	output              string
	continueOnShortfall bool
	recency             string
	biasMode            string
	metricsTextfile     string
	logLevel            string
	logFormat           string
	with                string
	traceFile           string
	traceEndpoint       string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [config-file]",
		Short: "Allocate wood demand over the simulated years of one country",
		Long: `Run the harvest allocation for every year of the configuration on the
in-memory engine and write the report.

A year whose demand cannot be met stops the run unless
--continue-on-shortfall is set. The partial report is still written and
the command exits with status 2.

Examples:
  hat run country.yaml
  hat run country.yaml --format json --output report.json
  hat run country.yaml --with high_demand --continue-on-shortfall
  hat run country.yaml --with scale_demand:product=irw,factor=1.1 --bias-mode share`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAllocation(cmd.Context(), args[0], opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "format", "f", "console",
		fmt.Sprintf("Output format (%s)", strings.Join(output.AvailableFormatterNames(), ", ")))
	flags.StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	flags.BoolVar(&opts.continueOnShortfall, "continue-on-shortfall", false, "Record unsatisfied demand and keep simulating")
	flags.StringVar(&opts.recency, "recency", "", "Override the recency boundary (inclusive, strict)")
	flags.StringVar(&opts.biasMode, "bias-mode", "", "Override the market bias mode (multiplicative, share, none)")
	flags.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics of the run to this file")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", string(logging.FormatConsole), "Log encoding (console, json)")
	flags.StringVar(&opts.with, "with", "", "Comma-separated templates or transform specs applied before the run")
	flags.StringVar(&opts.traceFile, "trace-file", "", "Write OpenTelemetry spans of the engine calls to this file")
	flags.StringVar(&opts.traceEndpoint, "trace-endpoint", "", "Export OpenTelemetry spans to this OTLP gRPC collector")
	return cmd
}

func runAllocation(ctx context.Context, path string, opts *runOptions, stdout, stderr io.Writer) error {
	formatter := output.GetFormatterByName(opts.format)
	if formatter == nil {
		return fmt.Errorf("unknown output format %q (valid: %s)", opts.format, strings.Join(output.AvailableFormatterNames(), ", "))
	}

	logger, _, err := logging.New(logging.Config{Level: opts.logLevel, Format: logging.Format(opts.logFormat)})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.NewInputParser().LoadFromFile(path)
	if err != nil {
		return err
	}
	overrides, err := runOverrides(opts)
	if err != nil {
		return err
	}
	cfg, err = transform.ApplyTransforms(cfg, overrides)
	if err != nil {
		return err
	}
	for _, t := range overrides {
		logger.Infof("applied %s: %s", t.Name(), t.Description())
	}

	tracing, closeTrace, err := tracingConfig(opts)
	if err != nil {
		return err
	}
	defer closeTrace()
	tp, shutdown, err := observability.InitTracing(ctx, tracing, logger)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, logger)
	tracer := tp.Tracer(observability.TracerName)

	var sim engine.Simulator = memory.New(cfg)
	if tracing.Enabled {
		sim = observability.TraceSimulator(sim, tracer)
	}
	runner := hat.NewRunner(cfg, sim)
	runner.SetLogger(logger.With("country", cfg.Country))

	var collector *observability.AllocationCollector
	if opts.metricsTextfile != "" {
		collector, err = observability.NewAllocationCollector(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		runner.SetMetrics(collector)
	}

	ctx, span := tracer.Start(ctx, "hat.run", trace.WithAttributes(
		attribute.String("hat.country", cfg.Country),
		attribute.Int("hat.start_year", cfg.StartYear),
		attribute.Int("hat.end_year", cfg.EndYear),
	))
	result, runErr := runner.Run(ctx)
	if runErr != nil {
		span.RecordError(runErr)
	}
	span.End()

	var halt *domain.UnsatisfiedDemandError
	if runErr != nil && !errors.As(runErr, &halt) {
		return runErr
	}

	if err := output.WriteTo(formatter, result, opts.output, stdout); err != nil {
		return err
	}
	if collector != nil {
		if err := collector.WriteTextfile(opts.metricsTextfile); err != nil {
			return err
		}
	}

	if halt != nil {
		fmt.Fprintf(stderr, "Demand not met in %d: irw %s m3, fw %s m3\n",
			halt.Year, output.FormatVolume(halt.For(domain.ProductIRW)), output.FormatVolume(halt.For(domain.ProductFW)))
		return runErr
	}
	logger.Infof("run %s finished after %d years", result.RunID, len(result.Years))
	return nil
}

// runOverrides collects the --with alternatives followed by the individual
// setting flags, which therefore win over a template.
func runOverrides(opts *runOptions) ([]transform.ConfigTransform, error) {
	var transforms []transform.ConfigTransform

	if opts.with != "" {
		resolver := compare.NewCompareEngine(nil)
		for _, alt := range transform.ParseTemplateList(opts.with) {
			ts, _, err := resolver.Resolve(alt)
			if err != nil {
				return nil, err
			}
			transforms = append(transforms, ts...)
		}
	}

	if opts.recency != "" {
		boundary, err := domain.ParseRecencyBoundary(opts.recency)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, &transform.SetRecency{Boundary: boundary})
	}
	if opts.biasMode != "" {
		mode, err := domain.ParseBiasMode(opts.biasMode)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, &transform.SetBiasMode{Mode: mode})
	}
	if opts.continueOnShortfall {
		transforms = append(transforms, &transform.SetShortfallPolicy{Policy: domain.ShortfallContinue})
	}
	return transforms, nil
}

// tracingConfig maps the trace flags to a tracing setup. The returned func
// closes the trace file, if any.
func tracingConfig(opts *runOptions) (observability.TracingConfig, func(), error) {
	cfg := observability.TracingConfig{ServiceName: "hat"}
	switch {
	case opts.traceFile != "" && opts.traceEndpoint != "":
		return cfg, nil, fmt.Errorf("--trace-file and --trace-endpoint are mutually exclusive")
	case opts.traceFile != "":
		f, err := os.Create(opts.traceFile)
		if err != nil {
			return cfg, nil, fmt.Errorf("failed to create trace file: %w", err)
		}
		cfg.Enabled = true
		cfg.Exporter = "stdout"
		cfg.Writer = f
		return cfg, func() { _ = f.Close() }, nil
	case opts.traceEndpoint != "":
		cfg.Enabled = true
		cfg.Exporter = "otlp"
		cfg.Endpoint = opts.traceEndpoint
	}
	return cfg, func() {}, nil
}
