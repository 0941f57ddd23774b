package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

const tracerName = "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/adapters/observability/service"

// Service decorates the deals application port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

// Option configures a decorator.
type Option func(*instrumentation)

type instrumentation struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *instrumentation) {
		i.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(i *instrumentation) {
		i.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(i *instrumentation) {
		i.metrics = newServiceMetrics(m)
	}
}

func newInstrumentation(opts []Option) instrumentation {
	i := instrumentation{
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&i)
		}
	}
	if i.tracer == nil {
		i.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if i.logger == nil {
		i.logger = defaultLogger()
	}
	return i
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	i := newInstrumentation(opts)
	return &Service{inner: inner, tracer: i.tracer, logger: i.logger, metrics: i.metrics}
}

// LookupDeal runs the lookup pipeline with instrumentation.
func (s *Service) LookupDeal(ctx context.Context, reference string) (*domain.Deal, error) {
	ctx, span := startSpan(ctx, s.tracer, "Service.LookupDeal", attribute.String("deal.reference", reference))
	defer span.End()

	logInfo(ctx, s.logger, "looking up deal", slog.String("reference", reference))
	deal, err := s.inner.LookupDeal(ctx, reference)
	s.metrics.recordLookup(ctx, err)
	if err != nil {
		return nil, handleError(ctx, s.logger, span, err, "failed to look up deal", slog.String("reference", reference))
	}
	span.SetAttributes(attribute.String("product.id", deal.Details.ID.String()))
	logInfo(ctx, s.logger, "deal looked up",
		slog.String("product.id", deal.Details.ID.String()),
		slog.String("sale_price", deal.Details.SalePrice),
	)
	return deal, nil
}

func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func logInfo(ctx context.Context, logger *slog.Logger, msg string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

// handleError logs user-caused failures at warn and everything else at error.
func handleError(ctx context.Context, logger *slog.Logger, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	class := domain.ErrorClass(err)
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.class", class))
	}
	if logger == nil {
		return err
	}
	level := slog.LevelError
	if class == "not_resolvable" || class == "no_link" {
		level = slog.LevelWarn
	}
	attrs = append(attrs, slog.String("error.class", class), slog.String("error", err.Error()))
	logger.LogAttrs(ctx, level, msg, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	lookups      metric.Int64Counter
	failures     metric.Int64Counter
	publications metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	lookups, _ := m.Int64Counter("deals.service.lookups", metric.WithDescription("Number of deal lookups"))
	failures, _ := m.Int64Counter("deals.service.failures", metric.WithDescription("Number of failed deal operations by error class"))
	publications, _ := m.Int64Counter("deals.service.publications", metric.WithDescription("Number of deals published to a channel"))
	return serviceMetrics{
		lookups:      lookups,
		failures:     failures,
		publications: publications,
	}
}

func (m serviceMetrics) recordLookup(ctx context.Context, err error) {
	addCounter(ctx, m.lookups, 1, attribute.Bool("deal.ok", err == nil))
	if err != nil {
		m.recordFailure(ctx, "lookup", err)
	}
}

func (m serviceMetrics) recordPublication(ctx context.Context, err error) {
	if err != nil {
		m.recordFailure(ctx, "publish", err)
		return
	}
	addCounter(ctx, m.publications, 1)
}

func (m serviceMetrics) recordFailure(ctx context.Context, operation string, err error) {
	addCounter(ctx, m.failures, 1,
		attribute.String("deal.operation", operation),
		attribute.String("error.class", domain.ErrorClass(err)),
	)
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
