package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

// Publications decorates a publication orchestrator with tracing, logging, and metrics.
type Publications struct {
	inner   ports.PublicationOrchestrator
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

// NewPublications wires a decorator around an orchestrator.
func NewPublications(inner ports.PublicationOrchestrator, opts ...Option) ports.PublicationOrchestrator {
	i := newInstrumentation(opts)
	return &Publications{inner: inner, tracer: i.tracer, logger: i.logger, metrics: i.metrics}
}

// PublishDeal posts a deal to the channel with instrumentation.
func (p *Publications) PublishDeal(ctx context.Context, req ports.PublicationRequest) (*ports.PublicationResult, error) {
	ctx, span := startSpan(ctx, p.tracer, "Service.PublishDeal",
		attribute.String("deal.reference", req.Reference),
		attribute.Int64("chat.requested_by", req.RequestedBy),
	)
	defer span.End()

	logInfo(ctx, p.logger, "publishing deal",
		slog.String("reference", req.Reference),
		slog.Int64("requested_by", req.RequestedBy),
	)
	result, err := p.inner.PublishDeal(ctx, req)
	p.metrics.recordPublication(ctx, err)
	if err != nil {
		return nil, handleError(ctx, p.logger, span, err, "failed to publish deal", slog.String("reference", req.Reference))
	}
	span.SetAttributes(
		attribute.String("product.id", result.ProductID.String()),
		attribute.Int("message.id", result.MessageID),
	)
	logInfo(ctx, p.logger, "deal published",
		slog.String("product.id", result.ProductID.String()),
		slog.Int("message.id", result.MessageID),
	)
	return result, nil
}

var _ ports.PublicationOrchestrator = (*Publications)(nil)
