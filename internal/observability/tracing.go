package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/engine"
	"github.com/rgehrsitz/hatgo/internal/hat"
)

// TracerName identifies the spans of this module.
const TracerName = "github.com/rgehrsitz/hatgo"

// TracingConfig governs how run tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | otlp
	Endpoint    string // used when Exporter == otlp
	SampleRatio float64
	// Writer receives stdout exporter output; defaults to os.Stderr so the
	// report on stdout stays clean.
	Writer io.Writer
}

// InitTracing installs a tracer provider for cfg as the global provider and
// returns it with a shutdown function that flushes pending spans.
func InitTracing(ctx context.Context, cfg TracingConfig, log hat.Logger) (trace.TracerProvider, func(context.Context) error, error) {
	if log == nil {
		log = hat.NopLogger{}
	}

	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Debugf("tracing disabled; using noop tracer provider")
		return tp, func(context.Context) error { return nil }, nil
	}

	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	service := cfg.ServiceName
	if service == "" {
		service = "hat"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", service),
		attribute.String("service.namespace", "hatgo"),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Infof("tracing enabled: exporter=%s service=%s ratio=%.2f", cfg.Exporter, service, ratio)

	return tp, tp.Shutdown, nil
}

func exporterFromConfig(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout", "":
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		return stdouttrace.New(
			stdouttrace.WithWriter(w),
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp", "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		return otlptrace.New(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// ShutdownWithTimeout flushes spans within a bounded time, logging rather
// than returning a failure.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log hat.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = hat.NopLogger{}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warnf("tracing shutdown failed: %v", err)
	}
}

// TraceSimulator wraps sim so that every engine call becomes a span.
func TraceSimulator(sim engine.Simulator, tracer trace.Tracer) engine.Simulator {
	return &tracedSimulator{Simulator: sim, tracer: tracer, ctx: context.Background()}
}

type tracedSimulator struct {
	engine.Simulator
	tracer trace.Tracer
	// ctx of the latest Fork; Apply takes no context and parents its span here.
	ctx context.Context
}

func (s *tracedSimulator) yearAttributes() trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.Int("hat.year", s.Year()),
		attribute.Int("hat.timestep", s.Timestep()),
	)
}

func (s *tracedSimulator) Fork(ctx context.Context) (engine.Sandbox, error) {
	s.ctx = ctx
	ctx, span := s.tracer.Start(ctx, "engine.fork", s.yearAttributes())
	defer span.End()

	sb, err := s.Simulator.Fork(ctx)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return &tracedSandbox{Sandbox: sb, tracer: s.tracer, ctx: ctx}, nil
}

func (s *tracedSimulator) Apply(instructions []domain.DisturbanceInstruction) error {
	_, span := s.tracer.Start(s.ctx, "engine.apply", s.yearAttributes(),
		trace.WithAttributes(attribute.Int("hat.instructions", len(instructions))))
	defer span.End()

	if err := s.Simulator.Apply(instructions); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (s *tracedSimulator) Step(ctx context.Context) (*engine.StepResult, error) {
	ctx, span := s.tracer.Start(ctx, "engine.step", s.yearAttributes())
	defer span.End()

	res, err := s.Simulator.Step(ctx)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("hat.events", len(res.Events)))
	return res, nil
}

type tracedSandbox struct {
	engine.Sandbox
	tracer trace.Tracer
	ctx    context.Context
}

func (b *tracedSandbox) EndStep(ctx context.Context) (*domain.Snapshot, error) {
	ctx, span := b.tracer.Start(ctx, "engine.end_step")
	defer span.End()

	snap, err := b.Sandbox.EndStep(ctx)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("hat.stand_rows", len(snap.Rows)))
	return snap, nil
}

func (b *tracedSandbox) Evaluate(ctx context.Context, group *domain.StandGroup) (domain.FluxVector, error) {
	ctx, span := b.tracer.Start(ctx, "engine.evaluate", trace.WithAttributes(
		attribute.String("hat.group", group.ID),
		attribute.String("hat.template", group.TemplateID),
	))
	defer span.End()

	flux, err := b.Sandbox.Evaluate(ctx, group)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return flux, nil
}

func (b *tracedSandbox) Close() error {
	_, span := b.tracer.Start(b.ctx, "engine.close")
	defer span.End()

	if err := b.Sandbox.Close(); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
