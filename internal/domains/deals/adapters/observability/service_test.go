package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

type stubService struct {
	deal *domain.Deal
	err  error
}

func (s stubService) LookupDeal(context.Context, string) (*domain.Deal, error) {
	return s.deal, s.err
}

type stubOrchestrator struct {
	err error
}

func (s stubOrchestrator) PublishDeal(context.Context, ports.PublicationRequest) (*ports.PublicationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ports.PublicationResult{ProductID: "9", MessageID: 12}, nil
}

func instruments(t *testing.T) (*tracetest.SpanRecorder, *sdkmetric.ManualReader, []Option) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return recorder, reader, []Option{WithTracer(tp.Tracer("test")), WithMeter(mp.Meter("test"))}
}

func counterTotals(t *testing.T, reader *sdkmetric.ManualReader, name string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				class, _ := dp.Attributes.Value(attribute.Key("error.class"))
				totals[class.AsString()] += dp.Value
			}
		}
	}
	return totals
}

func TestService_LookupDealRecordsSpanAndMetrics(t *testing.T) {
	recorder, reader, opts := instruments(t)
	ok := New(stubService{deal: &domain.Deal{Details: domain.ProductDetails{ID: "1"}}}, opts...)
	failing := New(stubService{err: domain.ErrNotResolvable}, opts...)

	_, err := ok.LookupDeal(context.Background(), "https://a.aliexpress.com/_x")
	require.NoError(t, err)
	_, err = failing.LookupDeal(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotResolvable)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, "Service.LookupDeal", spans[0].Name())

	require.Equal(t, int64(1), counterTotals(t, reader, "deals.service.failures")["not_resolvable"])
}

func TestPublications_PublishDeal(t *testing.T) {
	recorder, reader, opts := instruments(t)
	p := NewPublications(stubOrchestrator{}, opts...)

	result, err := p.PublishDeal(context.Background(), ports.PublicationRequest{Reference: "9"})
	require.NoError(t, err)
	require.Equal(t, 12, result.MessageID)
	require.Equal(t, "Service.PublishDeal", recorder.Ended()[0].Name())

	failing := NewPublications(stubOrchestrator{err: &domain.UpstreamError{Code: "x"}}, opts...)
	_, err = failing.PublishDeal(context.Background(), ports.PublicationRequest{Reference: "9"})
	require.ErrorIs(t, err, domain.ErrUpstream)
	require.Equal(t, int64(1), counterTotals(t, reader, "deals.service.failures")["upstream_error"])
}
